// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"net/http"

	"github.com/wardenhq/warden/lib/apierror"
	"github.com/wardenhq/warden/lib/logwindow"
)

// logsResponse is the body of a successful log read.
type logsResponse struct {
	Logs       []string            `json:"logs"`
	TotalLines int                 `json:"totalLines"`
	From       logwindow.Direction `json:"from"`
	Type       logwindow.Kind      `json:"type"`
	File       string              `json:"file"`
}

// handleReadLogs returns a head or tail window of one of a process's
// log files. A missing or empty file is a 200 with an empty list and a
// message.
func (h *Handler) handleReadLogs(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	query, err := logwindow.ParseQuery(values.Get("lines"), values.Get("from"), values.Get("type"))
	if err != nil {
		h.writeError(w, r, apierror.Validation("%s", err.Error()))
		return
	}

	process, err := h.supervisor.Describe(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	query.Path = process.LogFile(query.Kind)

	result, err := logwindow.Read(query)
	if err != nil {
		h.writeError(w, r, apierror.Internal("Failed to read log file: %w", err))
		return
	}

	if result.Message != "" {
		h.writeJSON(w, http.StatusOK, map[string]any{
			"logs":    result.Lines,
			"message": result.Message,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, logsResponse{
		Logs:       result.Lines,
		TotalLines: result.Count(),
		From:       result.Direction,
		Type:       result.Kind,
		File:       result.Path,
	})
}
