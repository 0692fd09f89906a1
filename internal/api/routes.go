package api

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"zantgate/internal/gateway"
	"zantgate/internal/store"
)

//go:embed assets
var assetFS embed.FS

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" && r.URL.Path != "/metrics"
			}),
		))
	}
}

// WithOverloadLimiter adds the process-wide load-shedding middleware.
func WithOverloadLimiter(middleware mux.MiddlewareFunc) RouteOption {
	return func(r *mux.Router) {
		r.Use(middleware)
	}
}

// SetupRoutes builds the HTTP surface: health and gateway assets answered
// directly, everything else gated by the admission middleware in front of the
// upstream handler.
func SetupRoutes(gw *gateway.Gateway, upstream http.Handler, st store.Store, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	for _, opt := range opts {
		opt(router)
	}

	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	router.HandleFunc("/health", healthHandler(st)).Methods("GET")

	assets, _ := fs.Sub(assetFS, "assets")
	router.PathPrefix("/zantgate/assets/").Handler(
		http.StripPrefix("/zantgate/assets/", http.FileServer(http.FS(assets))))

	// Everything else runs the admission decision.
	router.PathPrefix("/").Handler(gw.Middleware(upstream))

	return router
}

// healthHandler reports service and store status.
func healthHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		storeStatus := "ok"
		code := http.StatusOK
		if err := st.Ping(r.Context()); err != nil {
			status = "degraded"
			storeStatus = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"store":  storeStatus,
		})
	}
}
