// Package server runs the operational HTTP listener of "verdict run":
// metrics, health and version endpoints. It owns the listener lifecycle;
// routes are supplied by the caller.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"sta-hq/verdict/pkg/config"
)

// Server is the operational HTTP server.
type Server struct {
	config     *config.ServerConfig
	handler    http.Handler
	logger     *slog.Logger
	httpServer *http.Server

	mu        sync.RWMutex
	listener  net.Listener
	isRunning bool
	ready     chan struct{}
}

// New creates a server for handler. The handler is wrapped in panic
// recovery and request logging.
func New(cfg *config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")
	return &Server{
		config:  cfg,
		handler: Recovery(logger, Logging(logger, handler)),
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully within ShutdownTimeout. It returns nil after
// a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
	}
	s.isRunning = true
	close(s.ready)
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err, ok := <-errChan:
		s.setStopped()
		if !ok {
			return nil
		}
		return err
	}
}

func (s *Server) shutdown() error {
	s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	defer s.setStopped()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setStopped() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

// Addr blocks until the server is listening and returns the bound address,
// which differs from the configured one when the port is 0. It returns ""
// if ctx is done first.
func (s *Server) Addr(ctx context.Context) string {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listener.Addr().String()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
