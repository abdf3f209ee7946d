package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daniel-osaze/newsletter-mentions/constants"
	"github.com/daniel-osaze/newsletter-mentions/internal/cache"
	"github.com/daniel-osaze/newsletter-mentions/internal/common"
	"github.com/daniel-osaze/newsletter-mentions/internal/ratelimit"
)

// Config is produced once at construction and never mutated afterwards; the
// only runtime state transitions are the collaborator disable flags.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float32

	// Timeout is the hard per-attempt transport timeout. Values below the
	// floor are raised to it.
	Timeout time.Duration

	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	CacheTTL  time.Duration
	BucketKey string

	// EnableFallback opts into the heuristic extractor when the primary path
	// cannot complete a transport call. Off by default: its quality is too
	// low to run silently.
	EnableFallback bool

	// LenientNormalize re-validates after string-hygiene repair when strict
	// validation fails. Numeric range and enum membership are never repaired.
	LenientNormalize bool
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "claude-3-5-haiku-20241022"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout <= 0 {
		c.Timeout = constants.CallTimeoutDefault
	}
	if c.Timeout < constants.CallTimeoutFloor {
		c.Timeout = constants.CallTimeoutFloor
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = constants.MaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = constants.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = constants.MaxDelay
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = constants.CacheTTL
	}
	if c.BucketKey == "" {
		c.BucketKey = constants.RateLimitBucket
	}
	return c
}

// collaborators holds the optional cache and limiter behind one-way disable
// flags. Disabling swaps in a no-op implementation permanently; disabled never
// re-enables within a process lifetime, so intermittent backend errors cannot
// flap the state.
type collaborators struct {
	mu            sync.Mutex
	store         cache.Store
	limiter       ratelimit.Limiter
	cacheActive   bool
	limiterActive bool
}

func newCollaborators(store cache.Store, limiter ratelimit.Limiter) *collaborators {
	c := &collaborators{store: cache.Noop{}, limiter: ratelimit.Noop{}}
	if store != nil {
		c.store = store
		c.cacheActive = true
	}
	if limiter != nil {
		c.limiter = limiter
		c.limiterActive = true
	}
	return c
}

func (c *collaborators) cacheStore() (cache.Store, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store, c.cacheActive
}

// disableCache reports whether the cache was active, so the caller logs the
// transition exactly once.
func (c *collaborators) disableCache() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.cacheActive
	c.cacheActive = false
	c.store = cache.Noop{}
	return was
}

func (c *collaborators) rateLimiter() (ratelimit.Limiter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limiter, c.limiterActive
}

func (c *collaborators) disableLimiter() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.limiterActive
	c.limiterActive = false
	c.limiter = ratelimit.Noop{}
	return was
}

// Client orchestrates one extraction call: admission, cache lookup, prompt
// build, transport call with classified retry, parse, validate, cache write.
type Client struct {
	cfg       Config
	transport Transport
	collab    *collaborators
	fallback  *FallbackExtractor
	logger    *slog.Logger

	// injectable for tests
	sleep func(ctx context.Context, d time.Duration) error
	rng   func() float64
}

// NewClient builds a client. Transport is required; store and limiter are
// optional collaborators (nil disables them from the start).
func NewClient(cfg Config, transport Transport, store cache.Store, limiter ratelimit.Limiter, logger *slog.Logger) (*Client, error) {
	if transport == nil {
		return nil, common.NewAppError("INIT_ERROR", "transport is required", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:       cfg.withDefaults(),
		transport: transport,
		collab:    newCollaborators(store, limiter),
		fallback:  NewFallbackExtractor(),
		logger:    logger,
		sleep:     sleepCtx,
		rng:       rand.Float64,
	}, nil
}

// ExtractCompanies runs one extraction. The returned error is non-nil only
// for precondition violations (empty content or source label); every runtime
// fault comes back as a well-formed result with Metadata.Error* populated, so
// a batch of many extractions can never be aborted by one bad item.
func (c *Client) ExtractCompanies(ctx context.Context, content, sourceLabel string) (ExtractionResult, error) {
	if err := common.NewValidator().
		Field("content", content, common.Required).
		Field("source_label", sourceLabel, common.Required, common.MaxLength(512)).
		Error(); err != nil {
		return ExtractionResult{}, err
	}

	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()
	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"source", sourceLabel,
		"content_len", len(content),
	)

	// admission control: denial fails fast, backend faults fail open
	if lim, active := c.collab.rateLimiter(); active {
		allowed, err := lim.Allow(ctx, c.cfg.BucketKey)
		switch {
		case err != nil:
			if c.collab.disableLimiter() {
				c.logger.Warn("llm.ratelimit.disabled", "req_id", rid, "error", err)
			}
		case !allowed:
			c.logger.Warn("llm.extract.rate_limited", "req_id", rid, "bucket", c.cfg.BucketKey)
			return c.failure(rid, start, Classification{Type: ErrorTypeRateLimited},
				"rate limit exceeded for bucket "+c.cfg.BucketKey, false), nil
		}
	}

	// cache lookup: a hit bypasses the transport entirely
	key := cache.Key(content)
	if store, active := c.collab.cacheStore(); active {
		raw, hit, err := store.Get(ctx, key)
		if err != nil {
			if c.collab.disableCache() {
				c.logger.Warn("llm.cache.disabled", "req_id", rid, "op", "get", "error", err)
			}
		} else if hit {
			var cached ExtractionResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				c.logger.Info("llm.extract.cache_hit",
					"req_id", rid, "key", key,
					"companies", len(cached.Companies),
					"elapsed_ms", time.Since(start).Milliseconds(),
				)
				return cached, nil
			}
			// undecodable entry: treat as a miss, the write below replaces it
			c.logger.Warn("llm.cache.corrupt_entry", "req_id", rid, "key", key)
		}
	}

	system := BuildSystemPrompt()
	user := BuildUserPrompt(content, sourceLabel)

	resp, callErr := c.callWithRetry(ctx, rid, system, user)
	if callErr != nil {
		cls := Classify(callErr)
		c.logger.Error("llm.extract.call_failed",
			"req_id", rid, "error", callErr, "error_type", cls.Type,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if c.cfg.EnableFallback {
			if mentions := c.fallback.Extract(content); len(mentions) > 0 {
				c.logger.Warn("llm.extract.fallback_used", "req_id", rid, "companies", len(mentions))
				res := c.failure(rid, start, cls, callErr.Error(), true)
				res.Companies = mentions
				return res, nil
			}
		}
		return c.failure(rid, start, cls, callErr.Error(), false), nil
	}

	doc, err := RecoverJSONObject(resp.Text)
	if err != nil {
		c.logger.Error("llm.extract.parse_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return c.failure(rid, start, Classify(err), err.Error(), false), nil
	}

	schema := BuildMentionsJSONSchema()
	if vErr := ValidateJSONAgainstSchema(schema, doc); vErr != nil {
		repaired := false
		if c.cfg.LenientNormalize {
			if cleaned, dropped, sErr := NormalizeMentionsJSON(doc); sErr == nil {
				if ValidateJSONAgainstSchema(schema, cleaned) == nil {
					c.logger.Warn("llm.extract.lenient_normalize_applied",
						"req_id", rid, "dropped", dropped)
					doc = cleaned
					repaired = true
				}
			}
		}
		if !repaired {
			serr := &SchemaError{Cause: vErr}
			c.logger.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", vErr, "content", string(doc),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return c.failure(rid, start, Classify(serr), serr.Error(), false), nil
		}
	}

	var payload struct {
		Companies []CompanyMention `json:"companies"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		perr := &ParseError{Detail: err.Error()}
		c.logger.Error("llm.extract.unmarshal_failed", "req_id", rid, "error", err)
		return c.failure(rid, start, Classify(perr), perr.Error(), false), nil
	}
	if payload.Companies == nil {
		payload.Companies = []CompanyMention{}
	}

	modelVersion := resp.Model
	if modelVersion == "" {
		modelVersion = c.cfg.Model
	}
	result := ExtractionResult{
		Companies: payload.Companies,
		Metadata: Metadata{
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			TokenCount:       resp.InputTokens + resp.OutputTokens,
			ModelVersion:     modelVersion,
		},
	}

	// cache only validated results; errors are never cached
	if store, active := c.collab.cacheStore(); active {
		if raw, err := json.Marshal(result); err == nil {
			if err := store.Set(ctx, key, raw, c.cfg.CacheTTL); err != nil {
				if c.collab.disableCache() {
					c.logger.Warn("llm.cache.disabled", "req_id", rid, "op", "set", "error", err)
				}
			}
		}
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"companies", len(result.Companies),
		"tokens", result.Metadata.TokenCount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// callWithRetry drives the transport under the classified retry loop: up to
// MaxRetries attempts, each under its own hard timeout; non-retryable faults
// propagate immediately, exhausted retries propagate the last error.
func (c *Client) callWithRetry(ctx context.Context, rid, system, user string) (CompletionResponse, error) {
	req := CompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		System:      system,
		Messages:    []Message{{Role: "user", Content: user}},
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		resp, err := c.transport.Complete(attemptCtx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		cls := Classify(err)
		c.logger.Warn("llm.extract.attempt_failed",
			"req_id", rid,
			"attempt", attempt,
			"retryable", cls.Retryable,
			"error_type", cls.Type,
			"status", cls.Status,
			"error", err,
		)
		if !cls.Retryable {
			return CompletionResponse{}, err
		}
		if attempt == c.cfg.MaxRetries {
			break
		}

		delay := backoffDelay(attempt, cls, c.cfg.BaseDelay, c.cfg.MaxDelay, c.rng)
		c.logger.Info("llm.extract.retry", "req_id", rid, "attempt", attempt, "delay_ms", delay.Milliseconds())
		if err := c.sleep(ctx, delay); err != nil {
			return CompletionResponse{}, err
		}
	}
	return CompletionResponse{}, lastErr
}

func (c *Client) failure(rid string, start time.Time, cls Classification, msg string, fallbackUsed bool) ExtractionResult {
	return ExtractionResult{
		Companies: []CompanyMention{},
		Metadata: Metadata{
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			ModelVersion:     c.cfg.Model,
			Error:            msg,
			ErrorType:        cls.Type,
			ErrorStatus:      cls.Status,
			FallbackUsed:     fallbackUsed,
		},
	}
}
