package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coderoom/engine/internal/bytesize"
	"github.com/coderoom/engine/internal/logger"
	"github.com/coderoom/engine/pkg/room"
)

// Config configures the gateway's HTTP server.
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize bytesize.ByteSize
}

// Server is the gateway's graceful-shutdown HTTP server wrapper.
type Server struct {
	server       *http.Server
	port         int
	shutdownOnce sync.Once
}

// NewServer builds a Server bound to cfg, serving rm's rooms over the
// WebSocket protocol of §6, with readinessProbe (optional) backing
// /health/ready.
func NewServer(cfg Config, rm *room.Manager, readinessProbe func() error) *Server {
	router := NewRouter(rm, readinessProbe)

	if cfg.MaxMessageSize > 0 {
		maxMessageSize = int64(cfg.MaxMessageSize)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{server: srv, port: cfg.Port}
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("gateway server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("gateway server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("gateway server failed: %w", err)
	}
}

// Stop gracefully shuts the server down; safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("gateway server shutdown: %w", err)
			logger.Error("gateway server shutdown error", "error", err)
		} else {
			logger.Info("gateway server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int {
	return s.port
}
