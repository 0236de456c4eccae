package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/cachecore/internal/logger"
	"github.com/marmos91/cachecore/pkg/config"
)

// Server hosts cachecored's HTTP surface over a *http.Server, supporting
// graceful shutdown with a configurable timeout.
type Server struct {
	server       *http.Server
	port         int
	shutdownOnce sync.Once
}

// NewServer constructs a Server from cfg, routing every request through
// handler's PUT/GET endpoints.
func NewServer(cfg config.ServerConfig, handler *Handler) *Server {
	router := NewRouter(handler)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		port: cfg.Port,
	}
}

// Start serves requests until ctx is cancelled or the listener fails. On
// cancellation it runs a bounded graceful shutdown and returns its result.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("cachecored listening", "port", s.port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("cachecored shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("cachecored server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. Safe to call more than once and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("cachecored shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("cachecored shutdown error: %w", err)
			logger.Error("cachecored shutdown error", "error", err)
		} else {
			logger.Info("cachecored stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is configured to listen on.
func (s *Server) Port() int { return s.port }
