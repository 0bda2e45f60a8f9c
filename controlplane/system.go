// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"net/http"
	"runtime"
	"strings"

	"github.com/wardenhq/warden/lib/hwinfo"
	"github.com/wardenhq/warden/lib/supervisor"
	"github.com/wardenhq/warden/lib/version"
)

// systemInfo is the body of GET /api/pm2/system.
type systemInfo struct {
	supervisor.Summary

	Platform    string  `json:"platform"`
	Arch        string  `json:"arch"`
	Uptime      float64 `json:"uptime"`
	ServerPort  int     `json:"serverPort"`
	CORSEnabled bool    `json:"corsEnabled"`
	Version     string  `json:"version"`
	GoVersion   string  `json:"goVersion"`

	Host hwinfo.Host `json:"host"`
}

func (h *Handler) handleSystem(w http.ResponseWriter, r *http.Request) {
	processes, err := h.supervisor.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, systemInfo{
		Summary:     supervisor.Summarize(processes),
		Platform:    capitalize(runtime.GOOS),
		Arch:        runtime.GOARCH,
		Uptime:      h.clock.Now().Sub(h.started).Seconds(),
		ServerPort:  h.settings.Port,
		CORSEnabled: h.settings.CORS.Enabled,
		Version:     version.Short(),
		GoVersion:   runtime.Version(),
		Host:        hwinfo.Probe(),
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
