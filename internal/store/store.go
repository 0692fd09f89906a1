// Package store provides the shared-state backing for the admission gateway:
// per-fingerprint request windows, suspicion counters, and ban records.
// Implementations must provide per-key atomicity so the backing can be an
// in-process map or an external shared cache without changing callers.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no live entry.
var ErrNotFound = errors.New("store: not found")

// BanRecord is a temporary fingerprint-keyed denial.
type BanRecord struct {
	Until    time.Time `json:"until"`
	Reason   string    `json:"reason"`
	IssuedAt time.Time `json:"issued_at"`
}

// Expired reports whether the ban has lapsed at the given instant.
func (b BanRecord) Expired(now time.Time) bool {
	return !b.Until.After(now)
}

// Store is the contract for gateway state. Implementations must be safe for
// concurrent use. Counts may be approximate under races; no operation may
// corrupt the backing state.
type Store interface {
	// WindowCount prunes window entries at or before cutoff and returns the
	// number of remaining entries.
	WindowCount(ctx context.Context, key string, cutoff time.Time) (int, error)

	// WindowAdd appends a timestamp to the key's window. Entries older than
	// ttl may be discarded by the backing store.
	WindowAdd(ctx context.Context, key string, at time.Time, ttl time.Duration) error

	// CounterIncr increments the key's counter and returns the new value.
	// The counter expires ttl after its most recent increment.
	CounterIncr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// CounterReset removes the key's counter.
	CounterReset(ctx context.Context, key string) error

	// BanGet returns the key's ban record, or ErrNotFound if none is live.
	// Expired records are removed on read.
	BanGet(ctx context.Context, key string) (*BanRecord, error)

	// BanSet stores a ban record for the key, replacing any existing one.
	BanSet(ctx context.Context, key string, rec BanRecord) error

	// BanDelete removes the key's ban record, if any.
	BanDelete(ctx context.Context, key string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close stops background goroutines and releases resources.
	Close() error
}
