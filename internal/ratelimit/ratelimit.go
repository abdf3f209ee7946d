// Package ratelimit provides admission control for extraction calls.
//
// The limiter is a fail-open collaborator: callers treat a backend error as a
// signal to disable limiting permanently, never as a request failure.
package ratelimit

import "context"

// Limiter grants or denies a permit for a bucket. Allow returns (false, nil)
// on limit exceeded and a non-nil error only for backend faults.
type Limiter interface {
	Allow(ctx context.Context, bucket string) (bool, error)
}

// Noop is swapped in permanently once a backend fails; every permit is granted.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }
