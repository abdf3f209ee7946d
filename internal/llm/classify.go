package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

// Classification is the retry loop's view of a failure: whether another
// attempt can help, and how long to cool down if so. FloorDelay/CapDelay of
// zero mean "use the configured defaults".
type Classification struct {
	Retryable  bool
	Type       string
	Status     int
	FloorDelay time.Duration
	CapDelay   time.Duration
}

// Classify maps a transport failure onto a retry decision. It is a pure
// function over the error's category; provider-specific error shapes never
// reach it (the transport adapter converts them to *TransportError first).
func Classify(err error) Classification {
	if errors.Is(err, context.DeadlineExceeded) {
		// transient latency
		return Classification{Retryable: true, Type: ErrorTypeTimeout}
	}
	if errors.Is(err, context.Canceled) {
		// caller gave up; another attempt would be against their wishes
		return Classification{Retryable: false, Type: ErrorTypeTransport}
	}

	var te *TransportError
	if errors.As(err, &te) {
		switch {
		case te.Status == http.StatusUnauthorized:
			// credential problem, retries cannot fix it
			return Classification{Retryable: false, Type: ErrorTypeAuthentication, Status: te.Status}
		case te.Status == http.StatusTooManyRequests:
			// provider throttling needs a longer cool-down than generic faults
			return Classification{
				Retryable:  true,
				Type:       ErrorTypeThrottled,
				Status:     te.Status,
				FloorDelay: constants.ThrottleDelayFloor,
				CapDelay:   constants.ThrottleDelayMax,
			}
		case te.Status >= 500:
			return Classification{Retryable: true, Type: ErrorTypeServer, Status: te.Status}
		case te.Status >= 400:
			// malformed/invalid request, a retry repeats the same failure
			return Classification{Retryable: false, Type: ErrorTypeInvalidRequest, Status: te.Status}
		default:
			// no HTTP status: connection refused/reset or a malformed 2xx body
			return Classification{Retryable: true, Type: ErrorTypeTransport, Status: te.Status}
		}
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		return Classification{Retryable: false, Type: ErrorTypeParse}
	}
	var se *SchemaError
	if errors.As(err, &se) {
		return Classification{Retryable: false, Type: ErrorTypeSchema}
	}

	// unknown infrastructure fault: treat as transient
	return Classification{Retryable: true, Type: ErrorTypeTransport}
}
