package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		errType   string
		status    int
	}{
		{"deadline exceeded", context.DeadlineExceeded, true, ErrorTypeTimeout, 0},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true, ErrorTypeTimeout, 0},
		{"canceled", context.Canceled, false, ErrorTypeTransport, 0},
		{"unauthorized", &TransportError{Status: 401, Message: "bad key"}, false, ErrorTypeAuthentication, 401},
		{"throttled", &TransportError{Status: 429, Message: "slow down"}, true, ErrorTypeThrottled, 429},
		{"server error", &TransportError{Status: 500, Message: "boom"}, true, ErrorTypeServer, 500},
		{"bad gateway", &TransportError{Status: 502, Message: "upstream"}, true, ErrorTypeServer, 502},
		{"invalid request", &TransportError{Status: 422, Message: "bad body"}, false, ErrorTypeInvalidRequest, 422},
		{"network fault", &TransportError{Status: 0, Message: "connection refused"}, true, ErrorTypeTransport, 0},
		{"parse error", &ParseError{Detail: "no json"}, false, ErrorTypeParse, 0},
		{"schema error", &SchemaError{Cause: errors.New("confidence out of range")}, false, ErrorTypeSchema, 0},
		{"unknown error", errors.New("something odd"), true, ErrorTypeTransport, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cls := Classify(tc.err)
			assert.Equal(t, tc.retryable, cls.Retryable)
			assert.Equal(t, tc.errType, cls.Type)
			assert.Equal(t, tc.status, cls.Status)
		})
	}
}

func TestClassifyThrottledCarriesExtendedDelays(t *testing.T) {
	cls := Classify(&TransportError{Status: 429, Message: "slow down"})
	assert.Equal(t, constants.ThrottleDelayFloor, cls.FloorDelay)
	assert.Equal(t, constants.ThrottleDelayMax, cls.CapDelay)
}

func TestClassifyWrappedTransportError(t *testing.T) {
	inner := &TransportError{Status: 503, Message: "overloaded"}
	cls := Classify(fmt.Errorf("complete: %w", inner))
	assert.True(t, cls.Retryable)
	assert.Equal(t, ErrorTypeServer, cls.Type)
}

func TestClassifyDeadlineInsideTransportError(t *testing.T) {
	te := &TransportError{Status: 0, Message: "request timed out", Err: context.DeadlineExceeded}
	cls := Classify(te)
	assert.True(t, cls.Retryable)
	assert.Equal(t, ErrorTypeTimeout, cls.Type)
}
