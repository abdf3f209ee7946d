package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/daniel-osaze/newsletter-mentions/internal/common"
	"github.com/daniel-osaze/newsletter-mentions/internal/llm"
	"github.com/daniel-osaze/newsletter-mentions/internal/llm/anthropic"
)

func main() {
	_ = godotenv.Load()

	var (
		source = flag.String("source", "", "source label for the newsletter (required)")
		file   = flag.String("file", "-", "newsletter file to extract from, '-' for stdin")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *source == "" {
		logger.Error("usage: extract --source <label> [--file <path>]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	content, err := readContent(*file)
	if err != nil {
		logger.Error("read content", "file", *file, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, closers, err := buildClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("build client", "error", err)
		os.Exit(1)
	}
	defer closers.close(logger)

	result, err := client.ExtractCompanies(ctx, content, *source)
	if err != nil {
		logger.Error("extract", "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if result.Metadata.Error != "" {
		os.Exit(1)
	}
}

func readContent(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(filepath.Clean(path))
	return string(b), err
}

func buildClient(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*llm.Client, *resources, error) {
	transport, err := anthropic.NewClient(anthropic.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	res := &resources{}
	store, err := res.openCache(ctx, cfg, logger)
	if err != nil {
		res.close(logger)
		return nil, nil, err
	}
	limiter, err := res.openLimiter(ctx, cfg, logger)
	if err != nil {
		res.close(logger)
		return nil, nil, err
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
		res.close(logger)
		return nil, nil, err
	}
	return client, res, nil
}
