package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow is an in-process Limiter: at most `limit` permits per bucket
// within the trailing `window`.
type SlidingWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	permits map[string][]time.Time
	now     func() time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		permits: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (w *SlidingWindow) Allow(_ context.Context, bucket string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	kept := w.permits[bucket][:0]
	for _, t := range w.permits[bucket] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= w.limit {
		w.permits[bucket] = kept
		return false, nil
	}

	w.permits[bucket] = append(kept, now)
	return true, nil
}
