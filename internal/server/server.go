// Package server exposes the indexed messages and reply suggestions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// Server is the HTTP query service
type Server struct {
	cfg      config.ServerConfig
	index    core.IndexStore
	replies  ReplySuggester
	sync     SyncTrigger
	pageSize int
	router   chi.Router
	logger   *zap.Logger
}

// New creates the query service. sync may be nil when no poller runs.
func New(
	cfg config.ServerConfig,
	pageSize int,
	index core.IndexStore,
	replies ReplySuggester,
	sync SyncTrigger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cfg:      cfg,
		index:    index,
		replies:  replies,
		sync:     sync,
		pageSize: pageSize,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.cfg.AllowedOrigins))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/emails", s.handleListEmails)
	r.Post("/suggest-reply", s.handleSuggestReply)
	r.Post("/sync", s.handleSync)

	if s.cfg.AdminToken != "" {
		r.With(bearerAuth(s.cfg.AdminToken, s.logger)).Delete("/emails", s.handleClearEmails)
	}
	return r
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Query service listening", zap.String("address", s.cfg.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("query service failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down query service")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
