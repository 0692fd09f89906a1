package gateway

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zantgate/internal/models"
)

func newTestRenderer(t *testing.T, mutate func(*models.GatewayConfig)) *Renderer {
	t.Helper()
	cfg := testGatewayConfig()
	cfg.SiteName = "hidden wiki"
	cfg.Label = "zantgate"
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := NewRenderer(cfg)
	require.NoError(t, err)
	return r
}

func TestRenderer_QueueFirstVisit(t *testing.T) {
	r := newTestRenderer(t, nil)

	rr := httptest.NewRecorder()
	r.RenderQueue(rr, ModeFirst, 8, "/news/today")

	body := rr.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Contains(t, body, "hidden wiki")
	assert.Contains(t, body, "You are in line")
	assert.NotContains(t, body, "Still waiting")
	assert.Contains(t, body, `href="/news/today"`)
	assert.Contains(t, body, "Continue (8s)")
	assert.Contains(t, body, "protected by zantgate")
}

func TestRenderer_QueueRetryWarns(t *testing.T) {
	r := newTestRenderer(t, nil)

	rr := httptest.NewRecorder()
	r.RenderQueue(rr, ModeRetry, 12, "/")

	body := rr.Body.String()
	assert.Contains(t, body, "Still waiting")
	assert.Contains(t, body, "lock you out")
	assert.NotContains(t, body, "You are in line")
}

func TestRenderer_QueueClampsRemainingToOne(t *testing.T) {
	r := newTestRenderer(t, nil)

	rr := httptest.NewRecorder()
	r.RenderQueue(rr, ModeFirst, 0, "/")

	assert.Contains(t, rr.Body.String(), "Continue (1s)")
}

func TestRenderer_QueueEscapesSiteName(t *testing.T) {
	r := newTestRenderer(t, func(cfg *models.GatewayConfig) {
		cfg.SiteName = `<b onmouseover="x()">evil</b>`
	})

	rr := httptest.NewRecorder()
	r.RenderQueue(rr, ModeFirst, 8, "/")

	body := rr.Body.String()
	assert.NotContains(t, body, `<b onmouseover`)
	assert.Contains(t, body, "&lt;b")
}

func TestRenderer_QueueOptionalImage(t *testing.T) {
	r := newTestRenderer(t, nil)
	rr := httptest.NewRecorder()
	r.RenderQueue(rr, ModeFirst, 8, "/")
	assert.NotContains(t, rr.Body.String(), "<img")

	r = newTestRenderer(t, func(cfg *models.GatewayConfig) {
		cfg.QueueImageURL = "/zantgate/assets/logo.png"
	})
	rr = httptest.NewRecorder()
	r.RenderQueue(rr, ModeFirst, 8, "/")
	assert.Contains(t, rr.Body.String(), `src="/zantgate/assets/logo.png"`)
}

func TestRenderer_BlockedKnownReasons(t *testing.T) {
	r := newTestRenderer(t, nil)

	cases := map[string]string{
		ReasonTooManyRequests: "refreshed too many times",
		ReasonSuspicious:      "automated tools",
		ReasonRateLimit:       "too many requests in a short time",
		ReasonGlobalBan:       "temporarily suspended",
	}
	for reason, fragment := range cases {
		rr := httptest.NewRecorder()
		r.RenderBlocked(rr, reason, 120)
		assert.Contains(t, rr.Body.String(), fragment, "reason %s", reason)
		assert.Contains(t, rr.Body.String(), "Try again in about 120 seconds")
	}
}

func TestRenderer_BlockedUnknownReasonFallsBack(t *testing.T) {
	r := newTestRenderer(t, nil)

	rr := httptest.NewRecorder()
	r.RenderBlocked(rr, "no_such_reason", -5)

	body := rr.Body.String()
	assert.Contains(t, body, "temporarily suspended")
	assert.Contains(t, body, "Try again shortly")
}

func TestRenderer_ThemeFromStylesheet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.css")
	css := `:root {
  --zg-background: #101010;
  --zg-accent: #ff6600;
  --zg-text: #fafafa;
}`
	require.NoError(t, os.WriteFile(path, []byte(css), 0o644))

	r := newTestRenderer(t, func(cfg *models.GatewayConfig) {
		cfg.ThemeStylesheet = path
	})

	rr := httptest.NewRecorder()
	r.RenderQueue(rr, ModeFirst, 8, "/")

	body := rr.Body.String()
	assert.Contains(t, body, "#101010")
	assert.Contains(t, body, "#ff6600")
	// Unset property keeps the default.
	assert.Contains(t, body, string(defaultTheme.Surface))
}

func TestRenderer_ThemeRefreshesOnModTimeChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.css")
	require.NoError(t, os.WriteFile(path, []byte("--zg-accent: #111111;"), 0o644))

	r := newTestRenderer(t, func(cfg *models.GatewayConfig) {
		cfg.ThemeStylesheet = path
	})
	assert.EqualValues(t, "#111111", r.currentTheme().Accent)

	require.NoError(t, os.WriteFile(path, []byte("--zg-accent: #222222;"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	r.mu.Lock()
	r.nextCheck = time.Time{}
	r.mu.Unlock()
	assert.EqualValues(t, "#222222", r.currentTheme().Accent)
}

func TestRenderer_ThemeStatIsThrottled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.css")
	require.NoError(t, os.WriteFile(path, []byte("--zg-accent: #444444;"), 0o644))

	r := newTestRenderer(t, func(cfg *models.GatewayConfig) {
		cfg.ThemeStylesheet = path
	})
	assert.EqualValues(t, "#444444", r.currentTheme().Accent)

	// A change inside the check interval is not observed; the cached theme
	// answers without touching the disk.
	require.NoError(t, os.WriteFile(path, []byte("--zg-accent: #555555;"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))
	assert.EqualValues(t, "#444444", r.currentTheme().Accent)

	// Once the interval lapses, the change lands.
	r.mu.Lock()
	r.nextCheck = time.Time{}
	r.mu.Unlock()
	assert.EqualValues(t, "#555555", r.currentTheme().Accent)
}

func TestRenderer_ThemeMissingFileUsesLastGood(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.css")
	require.NoError(t, os.WriteFile(path, []byte("--zg-accent: #333333;"), 0o644))

	r := newTestRenderer(t, func(cfg *models.GatewayConfig) {
		cfg.ThemeStylesheet = path
	})
	assert.EqualValues(t, "#333333", r.currentTheme().Accent)

	require.NoError(t, os.Remove(path))
	r.mu.Lock()
	r.nextCheck = time.Time{}
	r.mu.Unlock()
	assert.EqualValues(t, "#333333", r.currentTheme().Accent)
}

func TestExtractTheme_RejectsNonHexValues(t *testing.T) {
	css := []byte(`--zg-background: url(javascript:alert(1)); --zg-accent: #abc;`)
	theme := extractTheme(css, defaultTheme)

	assert.Equal(t, defaultTheme.Background, theme.Background)
	assert.EqualValues(t, "#abc", theme.Accent)
}
