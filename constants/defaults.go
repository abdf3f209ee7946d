package constants

import "time"

// Extraction call orchestration defaults.
const (
	// MaxRetries bounds attempts inside one ExtractCompanies call.
	MaxRetries = 5

	// CallTimeoutDefault is the per-attempt transport timeout.
	// CallTimeoutFloor is the lowest a caller may configure it.
	CallTimeoutDefault = 12 * time.Second
	CallTimeoutFloor   = 5 * time.Second

	// Backoff schedule: BaseDelay * 2^(attempt-1) plus 0-25% jitter, capped.
	BaseDelay    = 2 * time.Second
	MaxDelay     = 30 * time.Second
	JitterFactor = 0.25

	// Provider-side throttling (HTTP 429) cools down longer than generic
	// transient faults.
	ThrottleDelayFloor = 10 * time.Second
	ThrottleDelayMax   = 60 * time.Second
)

// Cache policy.
const (
	CacheKeyPrefix = "extraction:"
	CacheTTL       = 7 * 24 * time.Hour
)

// Rate limiter policy: sliding window, one shared bucket for all extraction calls.
const (
	RateLimitBucket = "extraction"
	RateLimitMax    = 100
	RateLimitWindow = 60 * time.Second
)

// Prompt construction.
const (
	// ContentExcerptCap bounds how much newsletter body goes into the user
	// message; longer content gets the truncation marker appended.
	ContentExcerptCap = 8000
	TruncationMarker  = "...[truncated]"
)

// Batch processing.
const (
	BatchItemDelay = 2 * time.Second
)

// FallbackConfidenceCap bounds confidence on heuristic (non-LLM) extractions so
// downstream consumers can discount them.
const FallbackConfidenceCap = 0.5
