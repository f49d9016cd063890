// Package api serves the table editor over a JSON HTTP API.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/tablekit/internal/backup"
	"github.com/leapstack-labs/tablekit/internal/engine"
	"github.com/leapstack-labs/tablekit/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Server is the HTTP API server.
type Server struct {
	addr     string
	handlers *Handlers
	logger   *slog.Logger
}

// Config holds configuration for the API server.
type Config struct {
	Engine *engine.Engine
	// Runner is optional; without it the backup routes answer 501.
	Runner *backup.Runner
	// Store is optional; it backs the backup and journal history routes.
	Store core.Store
	// Exclude hides tables from listings and lookups.
	Exclude []string
	// Locker serializes engine access. Pass the same one to the backup runner.
	Locker sync.Locker
	Addr   string
	Logger *slog.Logger
}

// NewServer creates a new API server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:     cfg.Addr,
		handlers: NewHandlers(cfg, logger),
		logger:   logger,
	}
}

// Handler returns the router with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	SetupRoutes(r, s.handlers)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
// Extra workers, such as the backup scheduler, run in the same group and
// stop with the server.
func (s *Server) Serve(ctx context.Context, workers ...func(context.Context) error) error {
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://%s", s.addr))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	for _, work := range workers {
		eg.Go(func() error {
			return work(egctx)
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
