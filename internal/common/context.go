package common

import "context"

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// WithRequestID stamps the extraction request ID into the context so lower
// layers (transport, cache) log under the same correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestIDFromContext returns the stamped request ID, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}
