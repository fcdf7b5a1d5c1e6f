package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/muurk/wanctl/internal/jobs"
	"github.com/muurk/wanctl/internal/logging"
	"github.com/muurk/wanctl/internal/metrics"
)

// ShutdownTimeout bounds how long Shutdown waits for in-flight requests,
// which may include long polls on running jobs.
const ShutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Listen   string // Address to listen on, e.g. ":8000"
	Password string // Router admin password used for the page-load login
	MDNS     bool   // Advertise the service over mDNS
	MDNSName string // mDNS instance name
}

// IPReader performs the synchronous page-load sequence: log in, read the
// WAN address.
type IPReader interface {
	CurrentIP(ctx context.Context, password string) (string, error)
}

// Server is the HTTP control surface.
type Server struct {
	config   *Config
	device   IPReader
	runner   *jobs.Runner
	registry *jobs.Registry
	metrics  *metrics.Registry
	gatherer prometheus.Gatherer
	page     *template.Template
	upgrader websocket.Upgrader

	httpServer *http.Server
	mdns       *zeroconf.Server
}

// New creates a Server. The runner's registry is shared with the echo
// endpoints.
func New(config *Config, device IPReader, runner *jobs.Runner) (*Server, error) {
	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	return &Server{
		config:   config,
		device:   device,
		runner:   runner,
		registry: runner.Registry(),
		metrics:  metrics.Get(),
		gatherer: prometheus.DefaultGatherer,
		page:     page,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}, nil
}

// Start listens on the configured address and blocks until SIGINT/SIGTERM
// or a server error.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: /api/echo holds requests for the whole outage.
		IdleTimeout: 2 * time.Minute,
	}

	logging.Info("Server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("mdns", s.config.MDNS),
	)

	if s.config.MDNS {
		if tcp, ok := listener.Addr().(*net.TCPAddr); ok {
			if err := s.advertise(tcp.Port); err != nil {
				// The control surface works without discovery
				logging.Warn("mDNS advertisement failed", zap.Error(err))
			}
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		s.stopAdvertising()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting requests and waits for in-flight ones. Background
// reconnect jobs are not waited for; they hold no resources worth draining.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.stopAdvertising()

	var err error
	if s.httpServer != nil {
		if err = s.httpServer.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
			_ = s.httpServer.Close()
		}
	}

	logging.Info("Server stopped", zap.Int("unpolled_jobs", s.registry.Len()))
	logging.Sync()
	return err
}

// Handler returns the HTTP handler with all routes and request logging.
func (s *Server) Handler() http.Handler {
	return s.instrument(s.routes())
}
