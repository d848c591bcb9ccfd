package api

import (
	"net/http"
	"time"

	"github.com/jean1042/monitoring/internal/metrics"
)

// Router wraps the HTTP mux and provides route configuration.
type Router struct {
	mux      *http.ServeMux
	handlers *Handlers
	metrics  *metrics.Collector
}

// NewRouter creates a new router with all routes configured.
// collector may be nil to disable request metrics.
func NewRouter(h *Handlers, collector *metrics.Collector) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		handlers: h,
		metrics:  collector,
	}
	r.setupRoutes()
	return r
}

// setupRoutes configures all HTTP routes for the API.
func (r *Router) setupRoutes() {
	r.mux.HandleFunc("POST /monitoring/v1/webhook/{webhook_id}/{access_key}/events", r.handlers.CreateEvents)
	r.mux.HandleFunc("GET /monitoring/v1/events/{event_id}", r.handlers.GetEvent)
	r.mux.HandleFunc("GET /health", HandleHealth)
}

// Handler returns the mux wrapped with middleware.
func (r *Router) Handler() http.Handler {
	return metricsMiddleware(r.metrics)(r.mux)
}

// NewServer creates a new HTTP server with the router configured.
func NewServer(port string, h *Handlers, collector *metrics.Collector) *http.Server {
	router := NewRouter(h, collector)
	return &http.Server{
		Addr:         ":" + port,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
