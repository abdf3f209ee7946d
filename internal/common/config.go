package common

import (
	"os"
	"strconv"
	"time"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

// Config holds all application configuration
type Config struct {
	LLM        LLMConfig
	Extraction ExtractionConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	Batch      BatchConfig
}

// LLMConfig holds transport-level configuration for the model provider
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// ExtractionConfig holds retry/backoff behavior for the extraction client
type ExtractionConfig struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	EnableFallback bool
}

// CacheConfig holds response-cache configuration.
// Driver is one of "" (disabled), "memory", "sqlite", "postgres".
type CacheConfig struct {
	Driver string
	DSN    string
	TTL    time.Duration
}

// RateLimitConfig holds admission-control configuration
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	DSN     string
}

// BatchConfig holds batch coordinator configuration
type BatchConfig struct {
	ItemDelay time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
			APIKey:      getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:     getEnv("ANTHROPIC_BASE_URL", ""),
			MaxTokens:   getEnvAsInt("ANTHROPIC_MAX_TOKENS", 4096),
			Temperature: getEnvAsFloat32("ANTHROPIC_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("ANTHROPIC_TIMEOUT", constants.CallTimeoutDefault),
		},
		Extraction: ExtractionConfig{
			MaxRetries:     getEnvAsInt("EXTRACTION_MAX_RETRIES", constants.MaxRetries),
			BaseDelay:      getEnvAsDuration("EXTRACTION_BASE_DELAY", constants.BaseDelay),
			MaxDelay:       getEnvAsDuration("EXTRACTION_MAX_DELAY", constants.MaxDelay),
			EnableFallback: getEnvAsBool("EXTRACTION_ENABLE_FALLBACK", false),
		},
		Cache: CacheConfig{
			Driver: getEnv("CACHE_DRIVER", ""),
			DSN:    getEnv("CACHE_DSN", ""),
			TTL:    getEnvAsDuration("CACHE_TTL", constants.CacheTTL),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvAsBool("RATE_LIMIT_ENABLED", false),
			Limit:   getEnvAsInt("RATE_LIMIT_MAX", constants.RateLimitMax),
			Window:  getEnvAsDuration("RATE_LIMIT_WINDOW", constants.RateLimitWindow),
			DSN:     getEnv("RATE_LIMIT_DSN", ""),
		},
		Batch: BatchConfig{
			ItemDelay: getEnvAsDuration("BATCH_ITEM_DELAY", constants.BatchItemDelay),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "ANTHROPIC_API_KEY is required", ErrInvalidInput)
	}
	if c.Cache.Driver != "" && c.Cache.Driver != "memory" && c.Cache.DSN == "" {
		return NewAppError("CONFIG_ERROR", "CACHE_DSN is required for driver "+c.Cache.Driver, ErrInvalidInput)
	}
	return nil
}
