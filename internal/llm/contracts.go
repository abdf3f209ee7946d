package llm

import (
	"context"
	"fmt"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

// ExtractRequest carries one newsletter body through a single extraction call.
type ExtractRequest struct {
	Content     string
	SourceLabel string
}

// CompanyMention is one validated company reference found in the content.
// Instances are produced only by the parse/validate path and are never
// partially constructed.
type CompanyMention struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Context     string              `json:"context"`
	Sentiment   constants.Sentiment `json:"sentiment"`
	Confidence  float64             `json:"confidence"` // 0..1
}

// Metadata is attached to every result, success or failure. Callers never see
// a bare error for transport/quota faults; they see empty companies plus the
// Error* fields here.
type Metadata struct {
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	TokenCount       int    `json:"token_count"`
	ModelVersion     string `json:"model_version"`
	Error            string `json:"error,omitempty"`
	ErrorType        string `json:"error_type,omitempty"`
	ErrorStatus      int    `json:"error_status,omitempty"`
	FallbackUsed     bool   `json:"fallback_used"`
}

// ExtractionResult is the unit returned to callers and the unit stored in cache.
type ExtractionResult struct {
	Companies []CompanyMention `json:"companies"`
	Metadata  Metadata         `json:"metadata"`
}

// Error type labels surfaced in Metadata.ErrorType.
const (
	ErrorTypeAuthentication = "authentication_error"
	ErrorTypeRateLimited    = "rate_limit_exceeded"
	ErrorTypeThrottled      = "provider_throttled"
	ErrorTypeServer         = "server_error"
	ErrorTypeTransport      = "transport_error"
	ErrorTypeTimeout        = "timeout_error"
	ErrorTypeInvalidRequest = "invalid_request_error"
	ErrorTypeParse          = "parse_error"
	ErrorTypeSchema         = "schema_validation_error"
)

// Message is one turn in the transport request.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is the provider-agnostic request shape. The client depends
// only on this, the textual response, and coarse usage counters.
type CompletionRequest struct {
	Model       string
	MaxTokens   int
	Temperature float32
	System      string
	Messages    []Message
}

// CompletionResponse carries the model's text plus usage counters.
type CompletionResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Transport is the LLM provider boundary. Implementations convert provider
// errors into *TransportError so classification never inspects concrete
// provider types.
type Transport interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// TransportError is a typed failure from the provider boundary. Status is the
// HTTP-like code; 0 means the request never produced a response (network
// fault, timeout).
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transport status %d: %s", e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return "transport: " + e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError marks model output that could not be recovered into a JSON
// object. It is a data defect, not a transport fault, and is never retried.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return "parse model output: " + e.Detail
}

// SchemaError marks output that parsed but failed schema validation.
type SchemaError struct {
	Cause error
}

func (e *SchemaError) Error() string {
	return "schema validation failed: " + e.Cause.Error()
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}
