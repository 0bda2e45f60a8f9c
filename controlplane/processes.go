// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/wardenhq/warden/lib/apierror"
	"github.com/wardenhq/warden/lib/supervisor"
)

func (h *Handler) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	processes, err := h.supervisor.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, processes)
}

func (h *Handler) handleDescribeProcess(w http.ResponseWriter, r *http.Request) {
	process, err := h.supervisor.Describe(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, process)
}

// startRequest is the body of POST /api/pm2/processes/start. Script is
// relative to the apps root.
type startRequest struct {
	Script string            `json:"script"`
	Name   string            `json:"name"`
	Env    map[string]string `json:"env"`
}

// handleStartProcess starts a script from inside the apps root as a
// single-instance process with its logs under the logs root.
func (h *Handler) handleStartProcess(w http.ResponseWriter, r *http.Request) {
	var request startRequest
	if err := decodeBody(w, r, &request); err != nil {
		h.writeError(w, r, err)
		return
	}
	if request.Script == "" {
		h.writeError(w, r, apierror.Validation("Script path is required"))
		return
	}

	dir, err := h.apps.Resolve(filepath.Dir(request.Script))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	script := filepath.Join(dir, filepath.Base(request.Script))
	info, err := os.Stat(script)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		h.writeError(w, r, apierror.NotFound("Script not found"))
		return
	}
	if err != nil {
		h.writeError(w, r, apierror.Internal("checking script: %w", err))
		return
	}

	name := request.Name
	if name == "" {
		name = supervisor.DefaultName(script)
	}
	if err := supervisor.ValidateName(name); err != nil {
		h.writeError(w, r, err)
		return
	}

	logs, err := h.logs.Prepare(name)
	if err != nil {
		h.writeError(w, r, apierror.Internal("preparing log directory: %w", err))
		return
	}

	err = h.supervisor.Start(r.Context(), supervisor.StartSpec{
		Script: script,
		Name:   name,
		Dir:    dir,
		Env:    request.Env,
		Logs:   logs,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Info("process started", "name", name, "script", script)
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Process started successfully",
		"name":    name,
	})
}

// processCommand adapts a single-reference supervisor command into a
// handler that answers with message on success.
func (h *Handler) processCommand(w http.ResponseWriter, r *http.Request, command func(*http.Request, string) error, message string) {
	ref := r.PathValue("id")
	if err := supervisor.ValidateRef(ref); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := command(r, ref); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *Handler) handleStopProcess(w http.ResponseWriter, r *http.Request) {
	h.processCommand(w, r, func(r *http.Request, ref string) error {
		return h.supervisor.Stop(r.Context(), ref)
	}, "Process stopped successfully")
}

func (h *Handler) handleRestartProcess(w http.ResponseWriter, r *http.Request) {
	h.processCommand(w, r, func(r *http.Request, ref string) error {
		return h.supervisor.Restart(r.Context(), ref)
	}, "Process restarted successfully")
}

func (h *Handler) handleFlushLogs(w http.ResponseWriter, r *http.Request) {
	h.processCommand(w, r, func(r *http.Request, ref string) error {
		return h.supervisor.Flush(r.Context(), ref)
	}, "Logs flushed successfully")
}

// handleDeleteProcess removes a process and then its log directory. A
// log cleanup failure does not fail the request.
func (h *Handler) handleDeleteProcess(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("id")
	if err := supervisor.ValidateRef(ref); err != nil {
		h.writeError(w, r, err)
		return
	}
	process, err := h.supervisor.Describe(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.supervisor.Delete(r.Context(), ref); err != nil {
		h.writeError(w, r, err)
		return
	}

	removed, err := h.logs.Remove(process.Name)
	switch {
	case err != nil:
		h.logger.Warn("failed to delete process logs", "name", process.Name, "error", err)
		h.writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Process deleted successfully, but failed to delete logs",
			"logsDeleted": false,
			"logError":    err.Error(),
		})
	case removed:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Process and logs deleted successfully",
			"logsDeleted": true,
		})
	default:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Process deleted successfully (no logs found)",
			"logsDeleted": false,
		})
	}
}
