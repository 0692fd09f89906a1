package gateway

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"zantgate/internal/models"
	"zantgate/internal/store"
)

// Gateway evaluates every inbound request against the admission rules and
// either responds itself (queue or blocked page) or passes the request to the
// protected application. One synchronous decision per request; shared state
// lives in the Store.
type Gateway struct {
	cfg      models.GatewayConfig
	rotator  *Rotator
	limiter  *SlidingLimiter
	bans     *BanList
	renderer *Renderer
	store    store.Store
}

// New wires the gateway's collaborators together.
func New(cfg models.GatewayConfig, s store.Store, rotator *Rotator, renderer *Renderer) *Gateway {
	return &Gateway{
		cfg:      cfg,
		rotator:  rotator,
		limiter:  NewSlidingLimiter(s, cfg.RateWindow, cfg.RateMaxRequests),
		bans:     NewBanList(s),
		renderer: renderer,
		store:    s,
	}
}

// Middleware returns the admission decision as HTTP middleware. Calling next
// is the continuation signal; every other path is answered by the gateway.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Any failure mid-decision degrades to the first-visit queue page,
		// never to pass-through.
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic during admission decision", "error", rec, "path", r.URL.Path)
				mDecisions.WithLabelValues(outcomeQueue).Inc()
				g.renderer.RenderQueue(w, ModeFirst, g.cfg.WaitSeconds, "/")
			}
		}()
		g.decide(w, r, next)
	})
}

// decide runs the fixed-order decision of one request. First matching
// terminal action wins.
func (g *Gateway) decide(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ctx := r.Context()
	now := time.Now()

	// 1. Excluded paths skip the gateway entirely.
	for _, prefix := range g.cfg.ExcludedPaths {
		if strings.HasPrefix(r.URL.Path, prefix) {
			mDecisions.WithLabelValues(outcomeBypass).Inc()
			next.ServeHTTP(w, r)
			return
		}
	}

	// 2. Absolute URLs are never queued as destinations. The raw request
	// target is checked because proxy-style requests carry the full URL there.
	destination := r.RequestURI
	if destination == "" {
		destination = r.URL.RequestURI()
	}
	if isAbsoluteURL(destination) {
		destination = "/"
	}

	// 3. Header-derived identity.
	fingerprint := Fingerprint(r.Header)

	// 4. Global ban check. No mutation on this path.
	ban, err := g.bans.Check(ctx, fingerprint)
	if err != nil {
		g.failRestrictive(w, "ban check failed", err)
		return
	}
	if ban != nil {
		remaining := int(time.Until(ban.Until).Seconds())
		slog.Info("request blocked by active ban",
			"fingerprint", fingerprint, "reason", ban.Reason, "remaining_s", remaining)
		g.block(w, ban.Reason, remaining)
		return
	}

	// 5. Sliding-window rate limit.
	allowed, err := g.limiter.Allow(ctx, fingerprint, now)
	if err != nil {
		g.failRestrictive(w, "rate limit check failed", err)
		return
	}
	if !allowed {
		if err := g.bans.Add(ctx, fingerprint, g.banDuration(), ReasonRateLimit); err != nil {
			slog.Error("failed to register rate limit ban", "error", err)
		}
		mBans.WithLabelValues(ReasonRateLimit).Inc()
		slog.Warn("fingerprint exceeded rate window",
			"fingerprint", fingerprint, "max", g.cfg.RateMaxRequests, "window", g.cfg.RateWindow)
		g.block(w, ReasonRateLimit, g.cfg.BanSeconds)
		return
	}

	// 6. Suspicion heuristics.
	if tags := DetectSuspicion(r.Header); len(tags) > 0 {
		for _, tag := range tags {
			mSuspicionFlags.WithLabelValues(tag).Inc()
		}
		count, err := g.store.CounterIncr(ctx, fingerprint, g.cfg.MaxLifetime)
		if err != nil {
			g.failRestrictive(w, "suspicion counter failed", err)
			return
		}
		if count >= int64(g.cfg.SuspicionThreshold) {
			banFor := 2 * g.banDuration()
			if err := g.bans.Add(ctx, fingerprint, banFor, ReasonSuspicious); err != nil {
				slog.Error("failed to register suspicion ban", "error", err)
			}
			if err := g.store.CounterReset(ctx, fingerprint); err != nil {
				slog.Error("failed to reset suspicion counter", "error", err)
			}
			mBans.WithLabelValues(ReasonSuspicious).Inc()
			slog.Warn("fingerprint banned for suspicious patterns",
				"fingerprint", fingerprint, "tags", tags, "count", count)
			g.block(w, ReasonSuspicious, int(banFor.Seconds()))
			return
		}
	}

	// 7. Token intake under the active key, with a one-interval grace window
	// for tokens signed just before a rotation boundary.
	token, ok := g.readToken(r)
	if !ok {
		g.issueFresh(w, fingerprint, destination, now)
		return
	}
	if g.cfg.Fingerprinting && token.Fingerprint != fingerprint {
		// Token presented by a different client shape: restart the queue
		// and drop any access marker it carried.
		g.clearAccessCookie(w)
		g.issueFresh(w, fingerprint, destination, now)
		return
	}

	// 8. In-token ban.
	if token.BanUntil > now.Unix() {
		g.clearAccessCookie(w)
		g.block(w, ReasonTooManyRequests, int(token.BanUntil-now.Unix()))
		return
	}

	// 9. Wait check.
	remaining := token.AllowAt - now.Unix()
	if remaining > 0 {
		// A client that already burned maxFails early retries gets banned on
		// the next premature request; below that, the retry is counted and
		// the queue page re-served.
		if token.FailCount >= g.cfg.MaxFails {
			token.BanUntil = now.Unix() + int64(g.cfg.BanSeconds)
			token.AllowAt = token.BanUntil + int64(g.cfg.WaitSeconds)
			token.FailCount = 0
			g.clearAccessCookie(w)
			if err := g.bans.Add(ctx, fingerprint, g.banDuration(), ReasonTooManyRequests); err != nil {
				slog.Error("failed to register retry ban", "error", err)
			}
			mBans.WithLabelValues(ReasonTooManyRequests).Inc()
			g.setQueueCookie(w, token, now)
			g.block(w, ReasonTooManyRequests, g.cfg.BanSeconds)
			return
		}
		token.FailCount++
		g.setQueueCookie(w, token, now)
		mDecisions.WithLabelValues(outcomeQueue).Inc()
		if remaining < 1 {
			remaining = 1
		}
		g.renderer.RenderQueue(w, ModeRetry, int(remaining), destination)
		return
	}

	// Wait satisfied: mark access once, re-arm the queue for subsequent
	// navigation, and hand the request to the application.
	if _, err := r.Cookie(g.cfg.AccessCookieName); err != nil {
		g.setAccessCookie(w, now)
	}
	token.Nonce = newNonce()
	token.AllowAt = now.Unix() + int64(g.cfg.WaitSeconds)
	token.FailCount = 0
	token.BanUntil = 0
	g.setQueueCookie(w, token, now)

	mDecisions.WithLabelValues(outcomeContinue).Inc()
	next.ServeHTTP(w, r)
}

// readToken decodes the queue cookie against the current and previous signing
// keys. Any parse or verification failure is equivalent to no cookie at all.
func (g *Gateway) readToken(r *http.Request) (Token, bool) {
	cookie, err := r.Cookie(g.cfg.QueueCookieName)
	if err != nil || cookie.Value == "" {
		return Token{}, false
	}
	return DecodeToken(cookie.Value, g.rotator.VerificationKeys()...)
}

// issueFresh starts a new wait window and serves the first-visit queue page.
func (g *Gateway) issueFresh(w http.ResponseWriter, fingerprint, destination string, now time.Time) {
	token := Token{
		ID:          newTokenID(),
		AllowAt:     now.Unix() + int64(g.cfg.WaitSeconds),
		FailCount:   0,
		BanUntil:    0,
		Fingerprint: fingerprint,
		Nonce:       newNonce(),
	}
	g.setQueueCookie(w, token, now)
	mTokensIssued.Inc()
	mDecisions.WithLabelValues(outcomeQueue).Inc()
	g.renderer.RenderQueue(w, ModeFirst, g.cfg.WaitSeconds, destination)
}

func (g *Gateway) block(w http.ResponseWriter, reason string, remainingSeconds int) {
	mDecisions.WithLabelValues(outcomeBlock).Inc()
	g.renderer.RenderBlocked(w, reason, remainingSeconds)
}

// failRestrictive handles internal errors mid-decision: log and restart the
// client's queue rather than passing through or hard-failing.
func (g *Gateway) failRestrictive(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	mDecisions.WithLabelValues(outcomeQueue).Inc()
	g.renderer.RenderQueue(w, ModeFirst, g.cfg.WaitSeconds, "/")
}

func (g *Gateway) banDuration() time.Duration {
	return time.Duration(g.cfg.BanSeconds) * time.Second
}

func (g *Gateway) setQueueCookie(w http.ResponseWriter, token Token, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.QueueCookieName,
		Value:    token.Encode(g.rotator.ActiveKey()),
		Path:     "/",
		Expires:  now.Add(g.cfg.MaxLifetime),
		HttpOnly: true,
		Secure:   g.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (g *Gateway) setAccessCookie(w http.ResponseWriter, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.AccessCookieName,
		Value:    randomHex(16),
		Path:     "/",
		Expires:  now.Add(g.cfg.MaxLifetime),
		HttpOnly: true,
		Secure:   g.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (g *Gateway) clearAccessCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.AccessCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// isAbsoluteURL reports whether raw carries a scheme or names a host, the
// open redirect shapes the queue page must never link to. Protocol-relative
// targets ("//host/path") count: browsers resolve them off-site.
func isAbsoluteURL(raw string) bool {
	if strings.HasPrefix(raw, "//") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	return u.IsAbs() || u.Host != ""
}
