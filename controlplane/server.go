// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/wardenhq/warden/lib/clock"
	"github.com/wardenhq/warden/lib/config"
	"github.com/wardenhq/warden/lib/session"
	"github.com/wardenhq/warden/lib/supervisor"
	"github.com/wardenhq/warden/lib/workdir"
	"github.com/wardenhq/warden/sandbox"
)

// Runner executes sandboxed jobs. *sandbox.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, job sandbox.Job) *sandbox.Result
}

// ServerConfig holds the dependencies of a Server.
type ServerConfig struct {
	// Settings is the loaded daemon configuration. Read only.
	Settings *config.Config

	Authority  *session.Authority
	Supervisor supervisor.Supervisor
	Runner     Runner

	// Apps is the managed root for clones, pulls, installs and
	// process scripts.
	Apps *workdir.Root

	// Logs places log directories for processes started via the API.
	Logs *supervisor.LogLayout

	// Clock defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// Server serves the control plane API over TCP.
type Server struct {
	address    string
	handler    http.Handler
	routes     *Handler
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger

	// cancel ends the base context every request context derives from.
	// Cancelling it kills the jobs those requests are running.
	cancel context.CancelFunc
}

// NewServer creates a Server. It does not listen until Start.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if config.Authority == nil {
		return nil, fmt.Errorf("session authority is required")
	}
	if config.Supervisor == nil {
		return nil, fmt.Errorf("supervisor is required")
	}
	if config.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if config.Apps == nil || config.Logs == nil {
		return nil, fmt.Errorf("apps root and log layout are required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	handler := newHandler(config)
	root, err := handler.routes()
	if err != nil {
		return nil, err
	}

	baseContext, cancel := context.WithCancel(context.Background())
	return &Server{
		address: config.Settings.Address(),
		handler: root,
		routes:  handler,
		cancel:  cancel,
		httpServer: &http.Server{
			Handler:           root,
			BaseContext:       func(net.Listener) context.Context { return baseContext },
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// Long enough for the slowest job plus the response.
			WriteTimeout: sandbox.InstallTimeout + time.Minute,
			IdleTimeout:  2 * time.Minute,
		},
		logger: config.Logger,
	}, nil
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening. Serving continues in the background until
// Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	s.listener = listener
	s.logger.Info("control plane listening", "address", listener.Addr().String())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	notifySystemd("READY=1")
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits for in-flight
// requests, including running jobs, until ctx expires. Requests still
// running at that point are cancelled, which kills their jobs, and
// Shutdown returns only after every handler has finished. The error
// is ctx's when the deadline forced cancellation.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down control plane")
	notifySystemd("STOPPING=1")

	err := s.httpServer.Shutdown(ctx)
	s.cancel()
	if err != nil {
		s.logger.Warn("shutdown deadline passed, cancelling in-flight requests", "error", err)
		s.httpServer.Close()
	}
	s.routes.inflight.Wait()
	return err
}

// notifySystemd sends state to systemd's notify socket. No-op when
// NOTIFY_SOCKET is unset.
func notifySystemd(state string) {
	socketPath := os.Getenv("NOTIFY_SOCKET")
	if socketPath == "" {
		return
	}

	conn, err := net.Dial("unixgram", socketPath)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.Write([]byte(state))
}
