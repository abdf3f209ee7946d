package llm

import (
	"context"
	"time"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

// backoffDelay computes the pre-sleep for a failed attempt (1-based):
// base * 2^(attempt-1), raised to the classification's floor, plus 0-25%
// jitter, capped. Throttled (429) failures carry a higher floor and cap.
// rng must return a value in [0, 1).
func backoffDelay(attempt int, cls Classification, base, maxDelay time.Duration, rng func() float64) time.Duration {
	d := base << (attempt - 1)

	if cls.FloorDelay > 0 && d < cls.FloorDelay {
		d = cls.FloorDelay
	}

	d += time.Duration(float64(d) * constants.JitterFactor * rng())

	limit := maxDelay
	if cls.CapDelay > 0 {
		limit = cls.CapDelay
	}
	if d > limit {
		d = limit
	}
	return d
}

// sleepCtx blocks for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
