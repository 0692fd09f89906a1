package store

import (
	"context"
	"sync"
	"time"
)

// windowEntry holds request timestamps and the last access time for eviction.
type windowEntry struct {
	stamps   []time.Time
	lastSeen time.Time
}

// counterEntry holds a counter value and its expiry.
type counterEntry struct {
	value     int64
	expiresAt time.Time
}

// MemoryStore implements Store with in-process maps. Entries are bounded by
// maxEntries and a background goroutine periodically sweeps expired state, so
// sustained traffic from unique fingerprints cannot grow memory without limit.
// State is lost on restart, which matches the process-lifetime contract of the
// gateway's stores.
type MemoryStore struct {
	maxEntries    int
	sweepInterval time.Duration

	mu       sync.Mutex
	windows  map[string]*windowEntry
	counters map[string]*counterEntry
	bans     map[string]BanRecord

	done   chan struct{}
	closed bool
}

// NewMemoryStore creates a memory-backed store and starts its sweeper.
func NewMemoryStore(maxEntries int, sweepInterval time.Duration) *MemoryStore {
	m := &MemoryStore{
		maxEntries:    maxEntries,
		sweepInterval: sweepInterval,
		windows:       make(map[string]*windowEntry),
		counters:      make(map[string]*counterEntry),
		bans:          make(map[string]BanRecord),
		done:          make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *MemoryStore) WindowCount(ctx context.Context, key string, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.windows[key]
	if !exists {
		return 0, nil
	}

	e.stamps = pruneStamps(e.stamps, cutoff)
	e.lastSeen = time.Now()
	if len(e.stamps) == 0 {
		delete(m.windows, key)
		return 0, nil
	}
	return len(e.stamps), nil
}

func (m *MemoryStore) WindowAdd(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.windows[key]
	if !exists {
		if len(m.windows) >= m.maxEntries {
			m.evictOneWindowLocked()
		}
		e = &windowEntry{}
		m.windows[key] = e
	}
	// ttl is handled by the sweeper; WindowCount prunes on read.
	e.stamps = append(e.stamps, at)
	e.lastSeen = time.Now()
	return nil
}

func (m *MemoryStore) CounterIncr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	e, exists := m.counters[key]
	if !exists || e.expiresAt.Before(now) {
		if !exists && len(m.counters) >= m.maxEntries {
			m.evictOneCounterLocked()
		}
		e = &counterEntry{}
		m.counters[key] = e
	}
	e.value++
	e.expiresAt = now.Add(ttl)
	return e.value, nil
}

func (m *MemoryStore) CounterReset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counters, key)
	return nil
}

func (m *MemoryStore) BanGet(ctx context.Context, key string) (*BanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.bans[key]
	if !exists {
		return nil, ErrNotFound
	}
	// Lazy expiry on read
	if rec.Expired(time.Now()) {
		delete(m.bans, key)
		return nil, ErrNotFound
	}
	recCopy := rec
	return &recCopy, nil
}

func (m *MemoryStore) BanSet(ctx context.Context, key string, rec BanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bans[key]; !exists && len(m.bans) >= m.maxEntries {
		m.evictOneBanLocked()
	}
	m.bans[key] = rec
	return nil
}

func (m *MemoryStore) BanDelete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bans, key)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the background sweeper goroutine.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// sweep periodically evicts expired counters and bans, and windows that have
// not been touched within 2x the sweep interval.
func (m *MemoryStore) sweep() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictStale()
		}
	}
}

func (m *MemoryStore) evictStale() {
	now := time.Now()
	cutoff := now.Add(-2 * m.sweepInterval)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.windows {
		if e.lastSeen.Before(cutoff) {
			delete(m.windows, key)
		}
	}
	for key, e := range m.counters {
		if e.expiresAt.Before(now) {
			delete(m.counters, key)
		}
	}
	for key, rec := range m.bans {
		if rec.Expired(now) {
			delete(m.bans, key)
		}
	}
}

// evictOneWindowLocked drops the least recently touched window entry.
// Called with m.mu held when the map is at capacity.
func (m *MemoryStore) evictOneWindowLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range m.windows {
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey = key
			oldest = e.lastSeen
		}
	}
	if oldestKey != "" {
		delete(m.windows, oldestKey)
	}
}

func (m *MemoryStore) evictOneCounterLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range m.counters {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = e.expiresAt
		}
	}
	if oldestKey != "" {
		delete(m.counters, oldestKey)
	}
}

func (m *MemoryStore) evictOneBanLocked() {
	var oldestKey string
	var oldest time.Time
	for key, rec := range m.bans {
		if oldestKey == "" || rec.Until.Before(oldest) {
			oldestKey = key
			oldest = rec.Until
		}
	}
	if oldestKey != "" {
		delete(m.bans, oldestKey)
	}
}

// pruneStamps removes timestamps at or before cutoff, preserving order.
func pruneStamps(stamps []time.Time, cutoff time.Time) []time.Time {
	kept := stamps[:0]
	for _, s := range stamps {
		if s.After(cutoff) {
			kept = append(kept, s)
		}
	}
	return kept
}
