// Package proxy forwards admitted requests to the protected hosting
// application. The gateway treats the application as an external
// collaborator: the only signal it receives is the forwarded request itself.
package proxy

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"zantgate/internal/models"
)

// New builds a reverse proxy for the configured upstream.
func New(cfg models.UpstreamConfig) (http.Handler, error) {
	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}

	rp := httputil.NewSingleHostReverseProxy(target)

	rp.Transport = &http.Transport{
		ResponseHeaderTimeout: cfg.Timeout,
		IdleConnTimeout:       90 * time.Second,
	}

	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("upstream unreachable", "upstream", target.Host, "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}

	return rp, nil
}
