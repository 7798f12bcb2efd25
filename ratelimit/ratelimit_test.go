package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelola/course-engine/ratelimit"
)

// fakeCounterStore counts in memory, like the sqlite-backed store does.
type fakeCounterStore struct {
	counts map[string]int
	err    error
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{counts: map[string]int{}}
}

func (s *fakeCounterStore) Increment(ctx context.Context, key string, windowStart time.Time) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	k := key + "|" + windowStart.Format(time.RFC3339)
	s.counts[k]++
	return s.counts[k], nil
}

func TestFixedWindow_AllowsUpToLimit(t *testing.T) {
	// GIVEN: A limit of 3 per window
	// WHEN: One client sends 5 requests inside the window
	// THEN: The first 3 pass, the rest are rejected

	store := newFakeCounterStore()
	fw := ratelimit.NewFixedWindow(store, time.Minute, 3)
	fw.Now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 30, 0, time.UTC) }

	for i := 0; i < 3; i++ {
		ok, err := fw.Allow(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	for i := 0; i < 2; i++ {
		ok, err := fw.Allow(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestFixedWindow_WindowRollover(t *testing.T) {
	store := newFakeCounterStore()
	fw := ratelimit.NewFixedWindow(store, time.Minute, 1)

	now := time.Date(2025, 6, 1, 10, 0, 59, 0, time.UTC)
	fw.Now = func() time.Time { return now }

	ok, err := fw.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = fw.Allow(context.Background(), "10.0.0.1")
	assert.False(t, ok, "second request in the same window is over the limit")

	// One second later the next window starts and the counter is fresh.
	now = now.Add(time.Second)
	ok, err = fw.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFixedWindow_KeysAreIndependent(t *testing.T) {
	store := newFakeCounterStore()
	fw := ratelimit.NewFixedWindow(store, time.Minute, 1)
	fw.Now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }

	ok, _ := fw.Allow(context.Background(), "10.0.0.1")
	assert.True(t, ok)
	ok, _ = fw.Allow(context.Background(), "10.0.0.2")
	assert.True(t, ok, "a different client has its own counter")
}

func TestFixedWindow_EmptyKeyCountedAsUnknown(t *testing.T) {
	store := newFakeCounterStore()
	fw := ratelimit.NewFixedWindow(store, time.Minute, 1)
	fw.Now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }

	ok, err := fw.Allow(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, ok)

	// The empty key shares the "unknown" bucket.
	ok, _ = fw.Allow(context.Background(), "")
	assert.False(t, ok)
}

func TestFixedWindow_StoreErrorPropagates(t *testing.T) {
	store := newFakeCounterStore()
	store.err = errors.New("database is locked")
	fw := ratelimit.NewFixedWindow(store, time.Minute, 1)

	_, err := fw.Allow(context.Background(), "10.0.0.1")

	assert.Error(t, err)
}

func TestLocal_Burst(t *testing.T) {
	l := ratelimit.NewLocal(1, 2)

	ok, err := l.Allow(context.Background(), "anyone")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l.Allow(context.Background(), "anyone")
	assert.True(t, ok)

	// Burst exhausted; the 1 rps refill has not caught up yet.
	ok, _ = l.Allow(context.Background(), "anyone")
	assert.False(t, ok)
}
