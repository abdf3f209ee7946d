// Package cache provides the response-cache backends for extraction results.
//
// Keys are content-addressed: identical newsletter bodies map to the same
// entry no matter which source they arrived from. The source label only
// affects narrative framing in the prompt, never the set of companies present
// in the text, so it is deliberately excluded from the key.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

// Store is the backend contract. Get reports (value, found, error); a miss is
// not an error. Keys exists for diagnostics only and is never on the hot path.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Hash returns the deterministic fingerprint of extraction input text.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Key builds the cache key for a newsletter body.
func Key(content string) string {
	return constants.CacheKeyPrefix + Hash(content)
}

// Noop is swapped in permanently once a backend fails; every operation is a
// silent miss.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Keys(context.Context, string) ([]string, error)           { return nil, nil }
