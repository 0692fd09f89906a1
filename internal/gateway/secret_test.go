package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotator_DerivesFromStaticSecretAndEpoch(t *testing.T) {
	a := NewRotator("shared-static-secret-value", time.Hour)
	b := NewRotator("shared-static-secret-value", time.Hour)

	// Two instances with the same static secret and clock derive the same key.
	assert.Equal(t, a.ActiveKey(), b.ActiveKey())

	c := NewRotator("a-different-secret-value!!", time.Hour)
	assert.NotEqual(t, a.ActiveKey(), c.ActiveKey())
}

func TestRotator_RotateChangesKey(t *testing.T) {
	r := NewRotator("shared-static-secret-value", time.Hour)
	before := r.ActiveKey()

	r.rotate(time.Now().Add(time.Hour))

	after := r.ActiveKey()
	assert.NotEqual(t, before, after)

	// The previous key stays available for grace verification.
	keys := r.VerificationKeys()
	require.Len(t, keys, 2)
	assert.Equal(t, after, keys[0])
	assert.Equal(t, before, keys[1])
}

func TestRotator_TokenSurvivesOneRotation(t *testing.T) {
	r := NewRotator("shared-static-secret-value", time.Hour)
	tok := sampleToken()
	encoded := tok.Encode(r.ActiveKey())

	r.rotate(time.Now().Add(time.Hour))

	decoded, ok := DecodeToken(encoded, r.VerificationKeys()...)
	require.True(t, ok)
	assert.Equal(t, tok, decoded)

	// But not two rotations.
	r.rotate(time.Now().Add(2 * time.Hour))
	_, ok = DecodeToken(encoded, r.VerificationKeys()...)
	assert.False(t, ok)
}

func TestRotator_ConcurrentReadersDuringRotation(t *testing.T) {
	r := NewRotator("shared-static-secret-value", time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := r.ActiveKey()
				assert.Len(t, key, 32)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.rotate(time.Now().Add(time.Duration(n) * time.Hour))
		}(i)
	}
	wg.Wait()
}

func TestRotator_SubSecondIntervalDerivesSafely(t *testing.T) {
	// Config validation rejects intervals under a second, but the constructor
	// must not divide by zero when handed one directly.
	r := NewRotator("shared-static-secret-value", 500*time.Millisecond)
	assert.Len(t, r.ActiveKey(), 32)

	keys := r.VerificationKeys()
	require.Len(t, keys, 2)
	assert.Len(t, keys[1], 32)
}

func TestRotator_StopIsIdempotent(t *testing.T) {
	r := NewRotator("shared-static-secret-value", 50*time.Millisecond)
	r.Start()
	r.Stop()
	r.Stop()
}
