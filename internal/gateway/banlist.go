package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zantgate/internal/store"
)

// BanList is the process-wide temporary ban registry, keyed by fingerprint.
// Records live in the shared store and are lazily expired on read.
type BanList struct {
	store store.Store
}

// NewBanList creates a ban registry over the given store.
func NewBanList(s store.Store) *BanList {
	return &BanList{store: s}
}

// Add registers a ban for the fingerprint lasting the given duration.
func (b *BanList) Add(ctx context.Context, fingerprint string, duration time.Duration, reason string) error {
	now := time.Now()
	rec := store.BanRecord{
		Until:    now.Add(duration),
		Reason:   reason,
		IssuedAt: now,
	}
	if err := b.store.BanSet(ctx, fingerprint, rec); err != nil {
		return fmt.Errorf("ban add: %w", err)
	}
	return nil
}

// Check returns the fingerprint's active ban, or nil if none. Expired records
// are removed by the store on read.
func (b *BanList) Check(ctx context.Context, fingerprint string) (*store.BanRecord, error) {
	rec, err := b.store.BanGet(ctx, fingerprint)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ban check: %w", err)
	}
	return rec, nil
}
