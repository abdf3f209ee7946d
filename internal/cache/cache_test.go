package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-osaze/newsletter-mentions/constants"
)

func TestHashDeterministic(t *testing.T) {
	a := Hash("newsletter body")
	b := Hash("newsletter body")
	c := Hash("newsletter body!")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.Equal(t, strings.ToLower(a), a)
}

func TestKeyPrefix(t *testing.T) {
	k := Key("content")
	assert.True(t, strings.HasPrefix(k, constants.CacheKeyPrefix))
	assert.Equal(t, constants.CacheKeyPrefix+Hash("content"), k)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, hit, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	got, hit, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	current = base.Add(59 * time.Second)
	_, hit, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)

	current = base.Add(61 * time.Second)
	_, hit, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit, "entry past its TTL must read as a miss")
}

func TestMemoryStoreValueIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	src := []byte("original")
	require.NoError(t, s.Set(ctx, "k", src, time.Minute))
	src[0] = 'X'

	got, hit, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestMemoryStoreKeysPattern(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, Key("a"), []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, Key("b"), []byte("2"), time.Minute))
	require.NoError(t, s.Set(ctx, "other:thing", []byte("3"), time.Minute))

	keys, err := s.Keys(ctx, constants.CacheKeyPrefix+"*")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestNoopStore(t *testing.T) {
	s := Noop{}
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	_, hit, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	keys, err := s.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
