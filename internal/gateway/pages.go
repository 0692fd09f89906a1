package gateway

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"sync"
	"time"

	"zantgate/internal/models"
)

//go:embed templates
var templateFS embed.FS

// Queue page modes.
const (
	ModeFirst = "first"
	ModeRetry = "retry"
)

// Blocked page reason keys.
const (
	ReasonTooManyRequests = "too_many_requests"
	ReasonSuspicious      = "suspicious_pattern"
	ReasonRateLimit       = "rate_limit"
	ReasonGlobalBan       = "global_ban"
)

// reasonMessages maps reason keys to human-readable copy.
var reasonMessages = map[string]string{
	ReasonTooManyRequests: "You refreshed too many times before your wait was over.",
	ReasonSuspicious:      "Your requests match patterns used by automated tools.",
	ReasonRateLimit:       "You sent too many requests in a short time.",
	ReasonGlobalBan:       "Access from this client is temporarily suspended.",
}

// Theme holds the page colors. Values are validated before use so a hostile
// stylesheet cannot inject markup.
type Theme struct {
	Background template.CSS
	Surface    template.CSS
	Accent     template.CSS
	Text       template.CSS
}

var defaultTheme = Theme{
	Background: "#0d1117",
	Surface:    "#161b22",
	Accent:     "#2ea043",
	Text:       "#e6edf3",
}

// themeProps maps stylesheet custom property names to theme fields.
var themePropRe = regexp.MustCompile(`--zg-(background|surface|accent|text)\s*:\s*(#[0-9a-fA-F]{3,8})\s*;`)

// Renderer produces the Queue and Blocked HTML responses. It optionally reads
// page colors from an external stylesheet's custom properties, re-reading only
// when the file's modification time changes and falling back to the last good
// theme on any read or parse error. The read never fails a request.
type Renderer struct {
	siteName       string
	label          string
	queueImageURL  string
	stylesheetPath string
	tmpl           *template.Template

	mu        sync.Mutex
	modTime   time.Time
	theme     Theme
	nextCheck time.Time
}

// themeCheckInterval bounds how often the stylesheet is stat'ed, so renders
// between checks return the cached theme without touching the disk.
const themeCheckInterval = 5 * time.Second

// NewRenderer parses the embedded templates and seeds the default theme.
func NewRenderer(cfg models.GatewayConfig) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse gateway templates: %w", err)
	}

	return &Renderer{
		siteName:       cfg.SiteName,
		label:          cfg.Label,
		queueImageURL:  cfg.QueueImageURL,
		stylesheetPath: cfg.ThemeStylesheet,
		tmpl:           tmpl,
		theme:          defaultTheme,
	}, nil
}

type queuePageData struct {
	SiteName    string
	Label       string
	ImageURL    string
	Mode        string
	Retry       bool
	Remaining   int
	Destination string
	Theme       Theme
}

type blockedPageData struct {
	SiteName  string
	Label     string
	Reason    string
	Message   string
	Remaining int
	Theme     Theme
}

// RenderQueue writes the waiting-room page. The progress indicator runs for
// max(remaining,1) seconds before the continue link to destination activates.
func (r *Renderer) RenderQueue(w http.ResponseWriter, mode string, remaining int, destination string) {
	if remaining < 1 {
		remaining = 1
	}
	data := queuePageData{
		SiteName:    r.siteName,
		Label:       r.label,
		ImageURL:    r.queueImageURL,
		Mode:        mode,
		Retry:       mode == ModeRetry,
		Remaining:   remaining,
		Destination: destination,
		Theme:       r.currentTheme(),
	}
	r.write(w, "queue.html", data)
}

// RenderBlocked writes the denial page with a reason-keyed message and an
// approximate remaining-time readout.
func (r *Renderer) RenderBlocked(w http.ResponseWriter, reason string, remaining int) {
	msg, ok := reasonMessages[reason]
	if !ok {
		reason = ReasonGlobalBan
		msg = reasonMessages[ReasonGlobalBan]
	}
	if remaining < 0 {
		remaining = 0
	}
	data := blockedPageData{
		SiteName:  r.siteName,
		Label:     r.label,
		Reason:    reason,
		Message:   msg,
		Remaining: remaining,
		Theme:     r.currentTheme(),
	}
	r.write(w, "blocked.html", data)
}

func (r *Renderer) write(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("gateway template error", "template", name, "error", err)
	}
}

// currentTheme returns the active theme, refreshing from the stylesheet when
// its modification time has changed. The stat runs at most once per
// themeCheckInterval; all other calls return the cached theme.
func (r *Renderer) currentTheme() Theme {
	if r.stylesheetPath == "" {
		return defaultTheme
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Before(r.nextCheck) {
		return r.theme
	}
	r.nextCheck = now.Add(themeCheckInterval)

	fi, err := os.Stat(r.stylesheetPath)
	if err != nil {
		slog.Debug("theme stylesheet unavailable, using last good theme",
			"path", r.stylesheetPath, "error", err)
		return r.theme
	}
	if fi.ModTime().Equal(r.modTime) {
		return r.theme
	}

	data, err := os.ReadFile(r.stylesheetPath)
	if err != nil {
		slog.Warn("failed to read theme stylesheet, using last good theme",
			"path", r.stylesheetPath, "error", err)
		return r.theme
	}

	r.modTime = fi.ModTime()
	r.theme = extractTheme(data, r.theme)
	return r.theme
}

// extractTheme pulls --zg-* custom properties out of the stylesheet. Only
// hex color values are accepted; anything else keeps the fallback value.
func extractTheme(css []byte, fallback Theme) Theme {
	theme := fallback
	for _, match := range themePropRe.FindAllSubmatch(css, -1) {
		value := template.CSS(match[2])
		switch string(match[1]) {
		case "background":
			theme.Background = value
		case "surface":
			theme.Surface = value
		case "accent":
			theme.Accent = value
		case "text":
			theme.Text = value
		}
	}
	return theme
}
