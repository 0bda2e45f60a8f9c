// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/wardenhq/warden/lib/apierror"
	"github.com/wardenhq/warden/lib/git"
	"github.com/wardenhq/warden/lib/workdir"
	"github.com/wardenhq/warden/sandbox"
)

// jobResponse is the body of a successful maintenance job.
type jobResponse struct {
	Message   string `json:"message"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	Directory string `json:"directory"`
}

// runJob executes job and writes either the success body or the
// categorized failure. directory is reported back on success. Jobs run
// under the request context, so a client that disconnects kills its job.
func (h *Handler) runJob(w http.ResponseWriter, r *http.Request, job sandbox.Job, message, directory string) {
	h.logger.Info("starting job",
		"tool", job.Tool.Name,
		"dir", job.Dir,
		"request_id", requestIDFromContext(r.Context()),
	)
	result := h.runner.Run(r.Context(), job)
	if err := result.Err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, jobResponse{
		Message:   message,
		Stdout:    strings.TrimSpace(result.Stdout),
		Stderr:    strings.TrimSpace(result.Stderr),
		Directory: directory,
	})
}

// handleClone clones an allow-listed repository into the apps root.
func (h *Handler) handleClone(w http.ResponseWriter, r *http.Request) {
	var request struct {
		URL string `json:"url"`
	}
	if err := decodeBody(w, r, &request); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := git.ValidateCloneURL(request.URL, h.settings.Git.AllowedPrefixes); err != nil {
		h.writeError(w, r, err)
		return
	}
	name, err := git.RepositoryName(request.URL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	target, err := h.apps.Join(name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := os.Lstat(target); err == nil {
		h.writeError(w, r, apierror.Conflict("Directory %q already exists in apps folder", name))
		return
	} else if !errors.Is(err, fs.ErrNotExist) {
		h.writeError(w, r, apierror.Internal("checking clone target: %w", err))
		return
	}
	if err := h.apps.Ensure(); err != nil {
		h.writeError(w, r, apierror.Internal("creating apps folder: %w", err))
		return
	}

	h.runJob(w, r, sandbox.CloneJob(request.URL, h.apps.Path()),
		fmt.Sprintf("Repository %q cloned successfully", name), target)
}

// directoryRequest names a directory relative to the apps root.
type directoryRequest struct {
	Directory string `json:"directory"`
}

// resolveJobDirectory decodes the request body and confines the named
// directory to the apps root.
func (h *Handler) resolveJobDirectory(w http.ResponseWriter, r *http.Request) (string, error) {
	var request directoryRequest
	if err := decodeBody(w, r, &request); err != nil {
		return "", err
	}
	return h.apps.Resolve(request.Directory)
}

// handlePull fast-forwards a repository inside the apps root.
func (h *Handler) handlePull(w http.ResponseWriter, r *http.Request) {
	dir, err := h.resolveJobDirectory(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !git.IsRepository(dir) {
		h.writeError(w, r, apierror.Validation("Directory is not a git repository"))
		return
	}
	h.runJob(w, r, sandbox.PullJob(dir), "Git pull completed successfully", dir)
}

// handleInstall installs npm dependencies for a package inside the
// apps root.
func (h *Handler) handleInstall(w http.ResponseWriter, r *http.Request) {
	dir, err := h.resolveJobDirectory(w, r)
	if err == nil {
		err = workdir.RequireMarker(dir, "package.json", "package.json not found in directory")
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.runJob(w, r, sandbox.InstallJob(dir), "NPM install completed successfully", dir)
}
