package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-osaze/newsletter-mentions/internal/cache"
	"github.com/daniel-osaze/newsletter-mentions/internal/ratelimit"
)

const validMentionsJSON = `{"companies":[{"name":"Acme","description":"makes widgets","context":"Acme raised a round","sentiment":"positive","confidence":0.9}]}`

type stubTransport struct {
	calls int
	fn    func(req CompletionRequest) (CompletionResponse, error)
}

func (s *stubTransport) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	s.calls++
	return s.fn(req)
}

func textResponse(text string) func(CompletionRequest) (CompletionResponse, error) {
	return func(CompletionRequest) (CompletionResponse, error) {
		return CompletionResponse{Text: text, Model: "stub-model", InputTokens: 10, OutputTokens: 5}, nil
	}
}

type spyStore struct {
	data     map[string][]byte
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func newSpyStore() *spyStore {
	return &spyStore{data: map[string][]byte{}}
}

func (s *spyStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.getCalls++
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *spyStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *spyStore) Keys(context.Context, string) ([]string, error) { return nil, nil }

type stubLimiter struct {
	calls   int
	allowed bool
	err     error
}

func (l *stubLimiter) Allow(context.Context, string) (bool, error) {
	l.calls++
	return l.allowed, l.err
}

func newTestClient(t *testing.T, cfg Config, transport Transport, store cache.Store, limiter *stubLimiter) *Client {
	t.Helper()
	var lim ratelimit.Limiter
	if limiter != nil {
		lim = limiter
	}
	c, err := NewClient(cfg, transport, store, lim, slog.Default())
	require.NoError(t, err)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	c.rng = func() float64 { return 0 }
	return c
}

func TestNewClientRequiresTransport(t *testing.T) {
	_, err := NewClient(Config{}, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestExtractCompaniesRejectsEmptyInput(t *testing.T) {
	c := newTestClient(t, Config{}, &stubTransport{fn: textResponse(validMentionsJSON)}, nil, nil)

	_, err := c.ExtractCompanies(context.Background(), "", "Some Newsletter")
	require.Error(t, err)

	_, err = c.ExtractCompanies(context.Background(), "some content", "  ")
	require.Error(t, err)

	_, err = c.ExtractCompanies(context.Background(), "some content", strings.Repeat("x", 600))
	require.Error(t, err)
}

func TestExtractCompaniesSuccess(t *testing.T) {
	tr := &stubTransport{fn: textResponse(validMentionsJSON)}
	c := newTestClient(t, Config{}, tr, nil, nil)

	res, err := c.ExtractCompanies(context.Background(), "Acme raised a round.", "TechWeekly")
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "Acme", res.Companies[0].Name)
	assert.Equal(t, 15, res.Metadata.TokenCount)
	assert.Equal(t, "stub-model", res.Metadata.ModelVersion)
	assert.Empty(t, res.Metadata.Error)
	assert.False(t, res.Metadata.FallbackUsed)
}

func TestExtractCompaniesCacheIdempotence(t *testing.T) {
	tr := &stubTransport{fn: textResponse(validMentionsJSON)}
	c := newTestClient(t, Config{}, tr, cache.NewMemoryStore(), nil)

	first, err := c.ExtractCompanies(context.Background(), "Acme raised a round.", "TechWeekly")
	require.NoError(t, err)

	// identical content, different source label: must hit the cache
	second, err := c.ExtractCompanies(context.Background(), "Acme raised a round.", "OtherDigest")
	require.NoError(t, err)

	assert.Equal(t, 1, tr.calls, "transport must be invoked exactly once")
	assert.Equal(t, first.Companies, second.Companies)
}

func TestExtractCompaniesRetryBoundOnServerError(t *testing.T) {
	tr := &stubTransport{fn: func(CompletionRequest) (CompletionResponse, error) {
		return CompletionResponse{}, &TransportError{Status: 500, Message: "internal"}
	}}
	c := newTestClient(t, Config{MaxRetries: 5}, tr, nil, nil)

	res, err := c.ExtractCompanies(context.Background(), "content", "src")
	require.NoError(t, err, "transport faults never escape as errors")
	assert.Equal(t, 5, tr.calls)
	assert.Empty(t, res.Companies)
	assert.Equal(t, ErrorTypeServer, res.Metadata.ErrorType)
	assert.Equal(t, 500, res.Metadata.ErrorStatus)
	assert.NotEmpty(t, res.Metadata.Error)
}

func TestExtractCompaniesNonRetryableShortCircuit(t *testing.T) {
	tr := &stubTransport{fn: func(CompletionRequest) (CompletionResponse, error) {
		return CompletionResponse{}, &TransportError{Status: 401, Message: "bad key"}
	}}
	c := newTestClient(t, Config{}, tr, nil, nil)

	res, err := c.ExtractCompanies(context.Background(), "content", "src")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls, "401 must not be retried")
	assert.Equal(t, ErrorTypeAuthentication, res.Metadata.ErrorType)
	assert.Equal(t, 401, res.Metadata.ErrorStatus)
}

func TestExtractCompaniesSchemaRejection(t *testing.T) {
	tr := &stubTransport{fn: textResponse(`{"companies":[{"name":"X","confidence":1.5}]}`)}
	c := newTestClient(t, Config{LenientNormalize: true}, tr, nil, nil)

	res, err := c.ExtractCompanies(context.Background(), "content", "src")
	require.NoError(t, err)
	assert.Empty(t, res.Companies)
	assert.Equal(t, ErrorTypeSchema, res.Metadata.ErrorType)
}

func TestExtractCompaniesMarkdownRecovery(t *testing.T) {
	tr := &stubTransport{fn: textResponse("```json\n{\"companies\":[]}\n```")}
	c := newTestClient(t, Config{}, tr, nil, nil)

	res, err := c.ExtractCompanies(context.Background(), "content", "src")
	require.NoError(t, err)
	assert.NotNil(t, res.Companies)
	assert.Empty(t, res.Companies)
	assert.Empty(t, res.Metadata.Error)
}

func TestExtractCompaniesParseError(t *testing.T) {
	tr := &stubTransport{fn: textResponse("I could not find any companies, sorry!")}
	c := newTestClient(t, Config{}, tr, nil, nil)

	res, err := c.ExtractCompanies(context.Background(), "content", "src")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls, "parse failures must not trigger retries")
	assert.Equal(t, ErrorTypeParse, res.Metadata.ErrorType)
}

func TestExtractCompaniesLenientNormalizeRepairsStrings(t *testing.T) {
	// capitalized sentiment and string confidence: repairable
	raw := `{"companies":[{"name":" Acme ","description":"d","context":"c","sentiment":"Positive","confidence":"0.8"}]}`
	tr := &stubTransport{fn: textResponse(raw)}
	c := newTestClient(t, Config{LenientNormalize: true}, tr, nil, nil)

	res, err := c.ExtractCompanies(context.Background(), "content", "src")
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "Acme", res.Companies[0].Name)
	assert.InDelta(t, 0.8, res.Companies[0].Confidence, 1e-9)
}

func TestExtractCompaniesCacheFailOpenOnSet(t *testing.T) {
	tr := &stubTransport{fn: textResponse(validMentionsJSON)}
	store := newSpyStore()
	store.setErr = errors.New("backend down")
	c := newTestClient(t, Config{}, tr, store, nil)

	res, err := c.ExtractCompanies(context.Background(), "content one", "src")
	require.NoError(t, err)
	assert.Empty(t, res.Metadata.Error, "cache write failure must not fail the extraction")
	assert.Equal(t, 1, store.setCalls)

	// caching is now permanently disabled: no further get/set traffic
	_, err = c.ExtractCompanies(context.Background(), "content two", "src")
	require.NoError(t, err)
	assert.Equal(t, 1, store.setCalls, "set must never be called again")
	assert.Equal(t, 1, store.getCalls, "get must never be called again")
}

func TestExtractCompaniesCacheFailOpenOnGet(t *testing.T) {
	tr := &stubTransport{fn: textResponse(validMentionsJSON)}
	store := newSpyStore()
	store.getErr = errors.New("backend down")
	c := newTestClient(t, Config{}, tr, store, nil)

	res, err := c.ExtractCompanies(context.Background(), "content", "src")
	require.NoError(t, err)
	assert.Empty(t, res.Metadata.Error)
	assert.Equal(t, 1, store.getCalls)
	assert.Zero(t, store.setCalls, "disabled cache must not receive the write")
}

func TestExtractCompaniesErrorsAreNeverCached(t *testing.T) {
	tr := &stubTransport{fn: func(CompletionRequest) (CompletionResponse, error) {
		return CompletionResponse{}, &TransportError{Status: 500, Message: "internal"}
	}}
	store := newSpyStore()
	c := newTestClient(t, Config{MaxRetries: 2}, tr, store, nil)

	res, err := c.ExtractCompanies(context.Background(), "content", "src")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Metadata.Error)
	assert.Zero(t, store.setCalls)
}

func TestExtractCompaniesRateLimitDenied(t *testing.T) {
	tr := &stubTransport{fn: textResponse(validMentionsJSON)}
	lim := &stubLimiter{allowed: false}
	c := newTestClient(t, Config{}, tr, nil, lim)

	res, err := c.ExtractCompanies(context.Background(), "content", "src")
	require.NoError(t, err, "limiter denial is a result, not an error")
	assert.Zero(t, tr.calls, "denied calls must not reach the transport")
	assert.Equal(t, ErrorTypeRateLimited, res.Metadata.ErrorType)
}

func TestExtractCompaniesLimiterBackendFailsOpen(t *testing.T) {
	tr := &stubTransport{fn: textResponse(validMentionsJSON)}
	lim := &stubLimiter{err: errors.New("limiter backend down")}
	c := newTestClient(t, Config{}, tr, nil, lim)

	res, err := c.ExtractCompanies(context.Background(), "content one", "src")
	require.NoError(t, err)
	assert.Empty(t, res.Metadata.Error, "limiter outage must not fail the request")
	assert.Equal(t, 1, lim.calls)

	_, err = c.ExtractCompanies(context.Background(), "content two", "src")
	require.NoError(t, err)
	assert.Equal(t, 1, lim.calls, "limiter must be permanently disabled after a backend error")
}

func TestExtractCompaniesFallbackOptIn(t *testing.T) {
	tr := &stubTransport{fn: func(CompletionRequest) (CompletionResponse, error) {
		return CompletionResponse{}, &TransportError{Status: 503, Message: "overloaded"}
	}}
	c := newTestClient(t, Config{MaxRetries: 2, EnableFallback: true}, tr, nil, nil)

	res, err := c.ExtractCompanies(context.Background(), "Acme raised $5M to build widgets.", "src")
	require.NoError(t, err)
	require.NotEmpty(t, res.Companies)
	assert.True(t, res.Metadata.FallbackUsed)
	assert.NotEmpty(t, res.Metadata.Error, "fallback results still carry the primary failure")
	for _, m := range res.Companies {
		assert.LessOrEqual(t, m.Confidence, 0.5)
	}
}

func TestExtractCompaniesFallbackStaysOffByDefault(t *testing.T) {
	tr := &stubTransport{fn: func(CompletionRequest) (CompletionResponse, error) {
		return CompletionResponse{}, &TransportError{Status: 503, Message: "overloaded"}
	}}
	c := newTestClient(t, Config{MaxRetries: 2}, tr, nil, nil)

	res, err := c.ExtractCompanies(context.Background(), "Acme raised $5M to build widgets.", "src")
	require.NoError(t, err)
	assert.Empty(t, res.Companies)
	assert.False(t, res.Metadata.FallbackUsed)
}
