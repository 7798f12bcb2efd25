/*
Package ratelimit provides the injected rate-limiter used by the API layer.

PURPOSE:
  Request throttling is behind a small interface instead of a process-local
  map, so the deployment topology can change (multiple instances sharing a
  database) without touching handlers or core logic.

IMPLEMENTATIONS:
  FixedWindow: counts requests per (key, window start) in a CounterStore.
               Any store shared between instances gives a global limit;
               the sqlite store implements CounterStore.
  Local:       a single-process token bucket on golang.org/x/time/rate,
               for development and single-instance deployments.

KEYING:
  Keys identify the client (the API middleware uses the remote address).
  An empty key is counted under "unknown" rather than rejected.

SEE ALSO:
  - api/middleware.go: HTTP middleware using this interface
  - store/sqlite: CounterStore implementation
*/
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a client may proceed right now.
type Limiter interface {
	// Allow reports whether the request identified by key is within limits.
	// An error means the decision could not be made; callers choose whether
	// to fail open or closed.
	Allow(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// FIXED WINDOW - Store-backed counter, safe across instances
// =============================================================================

// CounterStore persists per-window request counts. Implementations must
// make Increment atomic: it bumps the count for (key, windowStart) and
// returns the new value.
type CounterStore interface {
	Increment(ctx context.Context, key string, windowStart time.Time) (int, error)
}

// FixedWindow allows up to Limit requests per key per Window.
type FixedWindow struct {
	Store  CounterStore
	Window time.Duration
	Limit  int

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewFixedWindow(store CounterStore, window time.Duration, limit int) *FixedWindow {
	return &FixedWindow{Store: store, Window: window, Limit: limit, Now: time.Now}
}

func (fw *FixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		key = "unknown"
	}
	now := fw.Now()
	windowStart := now.Truncate(fw.Window)

	count, err := fw.Store.Increment(ctx, key, windowStart)
	if err != nil {
		return false, err
	}
	return count <= fw.Limit, nil
}

// =============================================================================
// LOCAL - Single-process token bucket
// =============================================================================

// Local wraps a shared token bucket for all clients of one process.
type Local struct {
	limiter *rate.Limiter
}

// NewLocal allows a steady rps with the given burst.
func NewLocal(rps float64, burst int) *Local {
	return &Local{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *Local) Allow(ctx context.Context, key string) (bool, error) {
	return l.limiter.Allow(), nil
}
