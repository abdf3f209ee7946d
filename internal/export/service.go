package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/daniel-osaze/newsletter-mentions/internal/llm"
)

// Service produces XLSX bytes from batch extraction results: one row per
// company mention, so analysts can pivot on company or sentiment directly.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportMentionsXLSX returns an XLSX workbook (as bytes) for a batch result.
func (s *Service) ExportMentionsXLSX(batch llm.BatchResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Mentions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Item ID",
		"Company",
		"Sentiment",
		"Confidence",
		"Description",
		"Context",
		"Model",
		"Tokens",
		"Fallback",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, item := range batch.Successful {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if len(item.Result.Companies) == 0 {
			write(1, item.ID)
			write(2, "—")
			write(7, item.Result.Metadata.ModelVersion)
			write(8, item.Result.Metadata.TokenCount)
			write(9, item.Result.Metadata.FallbackUsed)
			row++
			continue
		}

		for _, m := range item.Result.Companies {
			write(1, item.ID)
			write(2, m.Name)
			write(3, string(m.Sentiment))
			write(4, m.Confidence)
			write(5, m.Description)
			write(6, m.Context)
			write(7, item.Result.Metadata.ModelVersion)
			write(8, item.Result.Metadata.TokenCount)
			write(9, item.Result.Metadata.FallbackUsed)
			row++
		}
	}

	// summary sheet keeps the failed/total counts next to the data
	const summary = "Summary"
	if _, err := f.NewSheet(summary); err == nil {
		_ = f.SetCellValue(summary, "A1", "Total items")
		_ = f.SetCellValue(summary, "B1", batch.Total)
		_ = f.SetCellValue(summary, "A2", "Successful")
		_ = f.SetCellValue(summary, "B2", len(batch.Successful))
		_ = f.SetCellValue(summary, "A3", "Failed")
		_ = f.SetCellValue(summary, "B3", batch.Failed)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.mentions.ok",
		"rows", row-2,
		"items", len(batch.Successful),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
