package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zantgate/internal/gateway"
	"zantgate/internal/models"
	"zantgate/internal/store"
)

func newTestRouter(t *testing.T, st store.Store, upstream http.Handler, opts ...RouteOption) http.Handler {
	t.Helper()

	cfg := models.NewDefaultConfig().Gateway
	cfg.Secret = "routes-test-secret-0123456789"

	rotator := gateway.NewRotator(cfg.Secret, cfg.RotationInterval)
	renderer, err := gateway.NewRenderer(cfg)
	require.NoError(t, err)

	gw := gateway.New(cfg, st, rotator, renderer)
	return SetupRoutes(gw, upstream, st, opts...)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st := store.NewMemoryStore(1000, time.Minute)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, newTestStore(t), http.NotFoundHandler())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rr.Body.String(), `"store":"ok"`)
}

func TestHealthEndpointDegraded(t *testing.T) {
	router := newTestRouter(t, &failingStore{}, http.NotFoundHandler())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"degraded"`)
}

func TestGatewayAssetsServed(t *testing.T) {
	router := newTestRouter(t, newTestStore(t), http.NotFoundHandler())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/zantgate/assets/gateway.css", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "--zg-")
	// Assets are answered directly, never by the admission middleware.
	assert.Empty(t, rr.Result().Cookies())
}

func TestUnknownPathRunsAdmission(t *testing.T) {
	upstreamCalled := false
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalled = true
	})
	router := newTestRouter(t, newTestStore(t), upstream)

	req := httptest.NewRequest("GET", "/some/page", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.False(t, upstreamCalled, "first visit must queue, not pass through")
	assert.Contains(t, rr.Body.String(), "You are in line")
	assert.NotEmpty(t, rr.Result().Cookies())
}

func TestOverloadMiddleware(t *testing.T) {
	mw := OverloadMiddleware(models.OverloadConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		Burst:             2,
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Burst admits the first two, the third is shed.
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		require.Equal(t, http.StatusOK, rr.Code, "request %d within burst", i+1)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

// failingStore reports an unreachable backing store.
type failingStore struct{}

var errStoreDown = errors.New("store unreachable")

func (f *failingStore) WindowCount(ctx context.Context, key string, cutoff time.Time) (int, error) {
	return 0, errStoreDown
}

func (f *failingStore) WindowAdd(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	return errStoreDown
}

func (f *failingStore) CounterIncr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, errStoreDown
}

func (f *failingStore) CounterReset(ctx context.Context, key string) error { return errStoreDown }

func (f *failingStore) BanGet(ctx context.Context, key string) (*store.BanRecord, error) {
	return nil, errStoreDown
}

func (f *failingStore) BanSet(ctx context.Context, key string, rec store.BanRecord) error {
	return errStoreDown
}

func (f *failingStore) BanDelete(ctx context.Context, key string) error { return errStoreDown }

func (f *failingStore) Ping(ctx context.Context) error { return errStoreDown }

func (f *failingStore) Close() error { return nil }
