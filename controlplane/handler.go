// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/wardenhq/warden/lib/clock"
	"github.com/wardenhq/warden/lib/config"
	"github.com/wardenhq/warden/lib/session"
	"github.com/wardenhq/warden/lib/supervisor"
	"github.com/wardenhq/warden/lib/workdir"
)

// Handler holds the dependencies shared by every route.
type Handler struct {
	settings   *config.Config
	authority  *session.Authority
	supervisor supervisor.Supervisor
	runner     Runner
	apps       *workdir.Root
	logs       *supervisor.LogLayout
	clock      clock.Clock
	started    time.Time
	logger     *slog.Logger

	// inflight tracks requests still being served, jobs included.
	inflight sync.WaitGroup
}

func newHandler(config ServerConfig) *Handler {
	return &Handler{
		settings:   config.Settings,
		authority:  config.Authority,
		supervisor: config.Supervisor,
		runner:     config.Runner,
		apps:       config.Apps,
		logs:       config.Logs,
		clock:      config.Clock,
		started:    config.Clock.Now(),
		logger:     config.Logger,
	}
}

// routes builds the mux and wraps it in the middleware chain.
func (h *Handler) routes() (http.Handler, error) {
	gated := http.NewServeMux()
	gated.HandleFunc("GET /api/pm2/processes", h.handleListProcesses)
	gated.HandleFunc("GET /api/pm2/processes/{id}", h.handleDescribeProcess)
	gated.HandleFunc("POST /api/pm2/processes/start", h.handleStartProcess)
	gated.HandleFunc("POST /api/pm2/processes/{id}/stop", h.handleStopProcess)
	gated.HandleFunc("POST /api/pm2/processes/{id}/restart", h.handleRestartProcess)
	gated.HandleFunc("DELETE /api/pm2/processes/{id}", h.handleDeleteProcess)
	gated.HandleFunc("POST /api/pm2/processes/{id}/flush-logs", h.handleFlushLogs)
	gated.HandleFunc("GET /api/pm2/processes/{id}/logs", h.handleReadLogs)
	gated.HandleFunc("GET /api/pm2/system", h.handleSystem)
	gated.HandleFunc("POST /api/pm2/git/clone", h.handleClone)
	gated.HandleFunc("POST /api/pm2/git/pull", h.handlePull)
	gated.HandleFunc("POST /api/pm2/npm/install", h.handleInstall)
	gated.HandleFunc("/api/pm2/", h.notFound)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /api/auth/status", h.handleAuthStatus)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/verify", h.handleVerify)
	// change-password checks the token itself to report its own reasons.
	mux.HandleFunc("POST /api/auth/change-password", h.handleChangePassword)
	mux.Handle("POST /api/auth/logout", h.authority.Middleware(http.HandlerFunc(h.handleLogout)))
	mux.Handle("/api/pm2/", h.authority.Middleware(gated))
	mux.HandleFunc("/", h.notFound)

	var root http.Handler = mux
	if h.settings.Compression.Enabled {
		compressed, err := withCompression(root)
		if err != nil {
			return nil, err
		}
		root = compressed
	}
	if h.settings.CORS.Enabled {
		root = withCORS(h.settings.CORS, root)
	}
	root = h.withRecovery(root)
	root = withAccessLog(h.logger, h.clock, root)
	root = withRequestID(root)
	root = h.withInflight(root)
	return root, nil
}

// handleHealth reports liveness. Always open.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
