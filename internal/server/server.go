package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server owns the HTTP listener and coordinates graceful shutdown of the
// pipeline, the live-reload hub, and the reload coordinator together.
type Server struct {
	http       *http.Server
	liveReload interface{ Stop() }
	logger     *slog.Logger
}

// NewServer builds a Server listening on port, serving pipeline.
func NewServer(port int, pipeline *Pipeline, liveReload interface{ Stop() }, readHeaderTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", port),
			Handler:           pipeline,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		liveReload: liveReload,
		logger:     logger,
	}
}

// Run starts serving and blocks until ctx is cancelled, at which point it
// stops accepting new connections and waits up to shutdownTimeout for
// in-flight requests to complete.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Warn("graceful shutdown requested")
	if s.liveReload != nil {
		s.liveReload.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return <-errCh
}
