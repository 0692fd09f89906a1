package gateway

import (
	"crypto/sha256"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// keyPair holds the active signing key and its predecessor. Verification is
// attempted against both so tokens signed just before a rotation boundary
// stay valid for one grace interval.
type keyPair struct {
	current  []byte
	previous []byte
}

// Rotator derives the token-signing key from a static secret and the current
// rotation epoch, republishing it on a fixed interval. The key pair is
// published atomically; readers never observe a partially written value.
type Rotator struct {
	static   string
	interval time.Duration

	keys atomic.Pointer[keyPair]

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewRotator creates a rotator seeded for the current epoch. Start must be
// called to begin background rotation.
func NewRotator(staticSecret string, interval time.Duration) *Rotator {
	r := &Rotator{
		static:   staticSecret,
		interval: interval,
		done:     make(chan struct{}),
	}
	now := time.Now()
	r.keys.Store(&keyPair{
		current:  r.derive(now),
		previous: r.derive(now.Add(-interval)),
	})
	return r
}

// Start launches the rotation goroutine. Rotation runs on its own timer,
// decoupled from request handling.
func (r *Rotator) Start() {
	go r.loop()
}

// Stop terminates background rotation. Safe to call more than once.
func (r *Rotator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.done)
	}
}

// ActiveKey returns the current signing key.
func (r *Rotator) ActiveKey() []byte {
	return r.keys.Load().current
}

// VerificationKeys returns the current key followed by the previous one, the
// order token verification should try them in.
func (r *Rotator) VerificationKeys() [][]byte {
	kp := r.keys.Load()
	return [][]byte{kp.current, kp.previous}
}

func (r *Rotator) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			r.rotate(now)
		}
	}
}

func (r *Rotator) rotate(now time.Time) {
	old := r.keys.Load()
	r.keys.Store(&keyPair{
		current:  r.derive(now),
		previous: old.current,
	})
}

// derive computes SHA-256(staticSecret + rotation epoch). The epoch is the
// interval-floored unix time, so every instance sharing a clock and a static
// secret derives the same key.
func (r *Rotator) derive(now time.Time) []byte {
	seconds := int64(r.interval.Seconds())
	// Config validation enforces a minimum of 1s; keep the divisor safe for
	// direct construction too.
	if seconds < 1 {
		seconds = 1
	}
	epoch := now.Unix() / seconds * seconds
	sum := sha256.Sum256([]byte(r.static + strconv.FormatInt(epoch, 10)))
	return sum[:]
}
