package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"replaytrace/internal/cache"
	"replaytrace/internal/clients/tempo"
	"replaytrace/internal/config"
	"replaytrace/internal/db"
	"replaytrace/internal/metrics"
	"replaytrace/internal/orchestrator"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg     *config.Config
	srv     *http.Server
	db      *db.DB
	handler *Handler
	logger  *slog.Logger

	// stop cancels the base context of every request, ending live feeds.
	stop context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Initialize the replay store
	store, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("Replay store ready", "path", store.Path())

	// Trace source is optional; without it tables carry frames only.
	var traces orchestrator.TraceSource
	if cfg.Tempo.Enabled {
		traces = tempo.NewClient(cfg.Tempo.URL, cfg.Tempo.GetTimeoutDuration(), cfg.Tempo.SearchLimit, logger)
	} else {
		logger.Warn("Tempo disabled, trace tables will contain frames only")
	}

	m := metrics.New()
	orch := orchestrator.New(store, traces, cache.New(cfg.Timeline.CacheSize), m, cfg, logger)

	handler := NewHandler(cfg, store, orch, m, logger)
	router := SetupRouter(handler)

	baseCtx, stop := context.WithCancel(context.Background())

	// WriteTimeout stays unset so live feeds are not cut off.
	srv := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	return &Server{
		cfg:     cfg,
		srv:     srv,
		db:      store,
		handler: handler,
		logger:  logger,
		stop:    stop,
	}, nil
}

// Start starts the HTTP server. It returns nil once Shutdown has been called.
func (s *Server) Start() error {
	s.logger.Info("Server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and closes the replay store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	s.stop()

	var err error
	if shutdownErr := s.srv.Shutdown(ctx); shutdownErr != nil {
		err = multierr.Append(err, fmt.Errorf("failed to shut down http server: %w", shutdownErr))
	}
	if closeErr := s.db.Close(); closeErr != nil {
		err = multierr.Append(err, fmt.Errorf("failed to close database: %w", closeErr))
	}
	return err
}
