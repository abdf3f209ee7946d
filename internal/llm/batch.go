package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

// BatchItem is one newsletter queued for extraction. ID is caller-supplied
// and echoed back so callers never have to rely on slice position.
type BatchItem struct {
	ID          string
	Content     string
	SourceLabel string
}

// BatchItemResult pairs a successful extraction with its item ID.
type BatchItemResult struct {
	ID     string
	Result ExtractionResult
}

// BatchResult summarizes a batch run. Failed items are counted, never
// returned as partial results.
type BatchResult struct {
	Successful []BatchItemResult
	Failed     int
	Total      int
}

// BatchCoordinator drives many extraction calls sequentially with inter-item
// spacing, isolating per-item failures. It is intentionally not fan-out: the
// provider's rate limit and cost profile make concurrency counter-productive.
// Callers needing parallel batches run multiple coordinators with their own
// global limiter.
type BatchCoordinator struct {
	client    *Client
	itemDelay time.Duration
	logger    *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewBatchCoordinator(client *Client, itemDelay time.Duration, logger *slog.Logger) *BatchCoordinator {
	if itemDelay <= 0 {
		itemDelay = constants.BatchItemDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchCoordinator{
		client:    client,
		itemDelay: itemDelay,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// BatchExtract processes items in order with a fixed delay between items
// (not before the first). One item's failure becomes one failed entry, never
// an aborted batch; only batch-level context cancellation stops the run, in
// which case unprocessed items count as failed.
func (b *BatchCoordinator) BatchExtract(ctx context.Context, items []BatchItem) BatchResult {
	start := time.Now()
	out := BatchResult{Total: len(items)}

	for i, item := range items {
		if i > 0 {
			if err := b.sleep(ctx, b.itemDelay); err != nil {
				b.logger.Warn("llm.batch.cancelled", "processed", i, "remaining", len(items)-i, "error", err)
				out.Failed += len(items) - i
				break
			}
		}

		res, err := b.client.ExtractCompanies(ctx, item.Content, item.SourceLabel)
		switch {
		case err != nil:
			// per-item precondition violation (e.g. empty content): isolate it
			b.logger.Warn("llm.batch.item_invalid", "id", item.ID, "error", err)
			out.Failed++
		case res.Metadata.Error != "":
			b.logger.Warn("llm.batch.item_failed",
				"id", item.ID,
				"error_type", res.Metadata.ErrorType,
				"error", res.Metadata.Error,
			)
			out.Failed++
		default:
			out.Successful = append(out.Successful, BatchItemResult{ID: item.ID, Result: res})
		}
	}

	b.logger.Info("llm.batch.done",
		"total", out.Total,
		"successful", len(out.Successful),
		"failed", out.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}
