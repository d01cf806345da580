// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/relplan/internal/activity"
	"github.com/matthewbaird/relplan/internal/catalog"
	"github.com/matthewbaird/relplan/internal/executor"
	"github.com/matthewbaird/relplan/internal/metrics"
	"github.com/matthewbaird/relplan/internal/session"
	"github.com/matthewbaird/relplan/internal/wire"
)

const sessionSweepInterval = time.Minute

// Config holds server configuration.
type Config struct {
	Port            int
	ShutdownTimeout time.Duration

	Executor *executor.Executor
	Catalog  *catalog.Registry
	Sessions *session.Manager
	// Metrics may be nil, in which case /metrics is not mounted.
	Metrics *metrics.Metrics
	// Activity may be nil, in which case /v1/activity is not mounted.
	Activity activity.Store
}

// NewRouter registers every route on a chi router.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(Recovery, RequestID, Logging)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	ph := &planHandler{exec: cfg.Executor, catalog: cfg.Catalog}
	r.Post("/", ph.Legacy)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/translate", ph.Translate)
		r.Post("/execute", ph.Execute)
		r.Get("/tables", ph.Tables)
		if cfg.Activity != nil {
			ah := &activityHandler{store: cfg.Activity}
			r.Get("/activity", ah.List)
		}
		if cfg.Sessions != nil {
			r.Handle("/ws", wire.NewHandler(cfg.Sessions, cfg.Executor))
		}
	})

	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled and the
// server has shut down.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("server shutdown")
		}
	}()

	if cfg.Sessions != nil {
		go sweepSessions(ctx, cfg.Sessions)
	}

	log.Info().Str("addr", addr).Msg("starting server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func sweepSessions(ctx context.Context, sessions *session.Manager) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Cleanup()
		}
	}
}
