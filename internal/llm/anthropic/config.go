package anthropic

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

const apiVersion = "2023-06-01"

// Config for the Anthropic transport.
type Config struct {
	APIKey  string        // if empty, falls back to env ANTHROPIC_API_KEY
	BaseURL string        // default https://api.anthropic.com/v1
	Timeout time.Duration // http client timeout; per-attempt deadlines come from the caller's context
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds the transport. A missing API key is an initialization
// error, not a runtime fault: it fails construction instead of surfacing
// later as a 401.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, errMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}
