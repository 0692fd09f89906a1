package gateway

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zantgate/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemoryStore(10000, time.Minute)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSlidingLimiter_AllowsUpToMax(t *testing.T) {
	limiter := NewSlidingLimiter(newTestStore(t), time.Minute, 5)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "fp-a", now)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "fp-a", now)
	require.NoError(t, err)
	assert.False(t, allowed, "request over the max must be rejected")
}

func TestSlidingLimiter_WindowSlides(t *testing.T) {
	limiter := NewSlidingLimiter(newTestStore(t), time.Minute, 2)
	ctx := context.Background()
	base := time.Now()

	allowed, err := limiter.Allow(ctx, "fp-b", base)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, err = limiter.Allow(ctx, "fp-b", base.Add(time.Second))
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "fp-b", base.Add(2*time.Second))
	require.NoError(t, err)
	assert.False(t, allowed)

	// After the first entries age out of the window, room opens again.
	allowed, err = limiter.Allow(ctx, "fp-b", base.Add(61*time.Second))
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestSlidingLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewSlidingLimiter(newTestStore(t), time.Minute, 1)
	ctx := context.Background()
	now := time.Now()

	allowed, err := limiter.Allow(ctx, "fp-c", now)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, err = limiter.Allow(ctx, "fp-c", now)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "fp-d", now)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestSlidingLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewSlidingLimiter(newTestStore(t), time.Minute, 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("client-%d", id%5)
			for j := 0; j < 20; j++ {
				_, err := limiter.Allow(ctx, key, time.Now())
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	// No panics or data races -- run with -race flag
}
