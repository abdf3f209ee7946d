package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/daniel-osaze/newsletter-mentions/internal/common"
	"github.com/daniel-osaze/newsletter-mentions/internal/export"
	"github.com/daniel-osaze/newsletter-mentions/internal/llm"
	"github.com/daniel-osaze/newsletter-mentions/internal/llm/anthropic"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	_ = godotenv.Load()

	var (
		dir    = flag.String("dir", "", "directory of newsletter files (.txt/.md) to process (required)")
		source = flag.String("source", "", "source label, defaults to the directory name")
		out    = flag.String("out", "", "output XLSX file path (optional)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *source == "" {
		*source = filepath.Base(*dir)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		printError("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	items, err := collectItems(*dir, *source)
	if err != nil {
		printError("Error: collecting newsletters: %v\n", err)
		os.Exit(1)
	}
	if len(items) == 0 {
		printError("Error: no .txt or .md files under %s\n", *dir)
		os.Exit(1)
	}

	ctx := context.Background()

	transport, err := anthropic.NewClient(anthropic.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	}, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	res := &resources{}
	defer res.close(logger)

	store, err := res.openCache(ctx, cfg, logger)
	if err != nil {
		printError("Error: opening cache: %v\n", err)
		os.Exit(1)
	}
	limiter, err := res.openLimiter(ctx, cfg, logger)
	if err != nil {
		printError("Error: opening rate limiter: %v\n", err)
		os.Exit(1)
	}

	client, err := llm.NewClient(llm.Config{
		Model:            cfg.LLM.Model,
		MaxTokens:        cfg.LLM.MaxTokens,
		Temperature:      cfg.LLM.Temperature,
		Timeout:          cfg.LLM.Timeout,
		MaxRetries:       cfg.Extraction.MaxRetries,
		BaseDelay:        cfg.Extraction.BaseDelay,
		MaxDelay:         cfg.Extraction.MaxDelay,
		CacheTTL:         cfg.Cache.TTL,
		EnableFallback:   cfg.Extraction.EnableFallback,
		LenientNormalize: true,
	}, transport, store, limiter, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	coordinator := llm.NewBatchCoordinator(client, cfg.Batch.ItemDelay, logger)

	start := time.Now()
	batch := coordinator.BatchExtract(ctx, items)

	fmt.Printf("processed %d items: %d successful, %d failed (%.1fs)\n",
		batch.Total, len(batch.Successful), batch.Failed, time.Since(start).Seconds())

	if *out != "" {
		svc := export.NewService(logger)
		wb, err := svc.ExportMentionsXLSX(batch)
		if err != nil {
			printError("Error: exporting workbook: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, wb, 0o644); err != nil {
			printError("Error: writing %s: %v\n", *out, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *out)
	}

	if batch.Failed > 0 {
		os.Exit(1)
	}
}

// collectItems loads every .txt/.md file under dir (non-recursive) as one
// batch item; the filename is the item ID.
func collectItems(dir, source string) ([]llm.BatchItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var items []llm.BatchItem
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, common.WrapError(err, "read "+e.Name())
		}
		items = append(items, llm.BatchItem{
			ID:          e.Name(),
			Content:     string(b),
			SourceLabel: source,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}
