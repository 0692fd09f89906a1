package gateway

import (
	"context"
	"fmt"
	"time"

	"zantgate/internal/store"
)

// SlidingLimiter bounds requests per fingerprint within a moving time window.
// The window is a timestamp list in the shared store, pruned on every check.
// Counting may be approximate under concurrent access; this is a
// defense-in-depth layer, not an exact ledger.
type SlidingLimiter struct {
	store  store.Store
	window time.Duration
	max    int
}

// NewSlidingLimiter creates a limiter with the given window width and maximum
// request count per window.
func NewSlidingLimiter(s store.Store, window time.Duration, max int) *SlidingLimiter {
	return &SlidingLimiter{store: s, window: window, max: max}
}

// Allow prunes the key's window to entries newer than now-window, rejects if
// the pruned count already reaches the maximum, and otherwise records now and
// accepts.
func (l *SlidingLimiter) Allow(ctx context.Context, key string, now time.Time) (bool, error) {
	count, err := l.store.WindowCount(ctx, key, now.Add(-l.window))
	if err != nil {
		return false, fmt.Errorf("rate window count: %w", err)
	}
	if count >= l.max {
		return false, nil
	}
	if err := l.store.WindowAdd(ctx, key, now, l.window); err != nil {
		return false, fmt.Errorf("rate window add: %w", err)
	}
	return true, nil
}
