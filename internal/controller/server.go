// Package controller wires the HTTP API for the sandbox controller.
package controller

import (
	"context"
	"net/http"
	"time"

	"sandplane/internal/config"
	"sandplane/internal/controller/handlers"
	"sandplane/internal/controller/middleware"
)

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a controller server. cfg supplies the admin override and
// rate limit settings; metricsHandler serves the Prometheus scrape
// endpoint.
func New(addr string, h *handlers.Handlers, cfg *config.Config, metricsHandler http.Handler) *Server {
	identityMW := middleware.Identity(cfg.AdminIDs, cfg.AdminTokenHash)
	limitMW := middleware.RateLimit(cfg.RateLimit, cfg.RateLimitBurst)

	// Authenticated routes get identity resolution then per-owner
	// throttling.
	authed := func(hf http.HandlerFunc) http.Handler {
		return identityMW(limitMW(hf))
	}

	mux := http.NewServeMux()

	// Unauthenticated probes and scrape endpoint.
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	// Everything below requires a resolved identity.
	mux.Handle("GET /images", authed(h.ListImages))

	mux.Handle("POST /instances", authed(h.Deploy))
	mux.Handle("GET /instances", authed(h.ListInstances))
	mux.Handle("GET /instances/all", authed(h.ListAllInstances))
	mux.Handle("GET /instances/{id}", authed(h.DescribeInstance))
	mux.Handle("POST /instances/{id}/start", authed(h.StartInstance))
	mux.Handle("POST /instances/{id}/stop", authed(h.StopInstance))
	mux.Handle("POST /instances/{id}/restart", authed(h.RestartInstance))
	mux.Handle("DELETE /instances/{id}", authed(h.RemoveInstance))
	mux.Handle("POST /instances/{id}/session", authed(h.RegenerateSession))

	mux.Handle("GET /system/stats", authed(h.SystemStats))

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// Deploys block on image pulls and session negotiation, so the
			// write timeout must outlive them.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
