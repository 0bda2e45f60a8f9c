// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wardenhq/warden/lib/apierror"
)

// maxRequestBodySize bounds JSON request bodies.
const maxRequestBodySize = 64 * 1024

// decodeBody decodes a JSON request body into dst. An empty body leaves
// dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierror.Validation("Request body too large (max %d bytes)", maxRequestBodySize)
	}
	return apierror.Validation("Invalid request body")
}

// writeJSON encodes value as JSON with the given status. Encoding
// failures mean the client is gone and are only logged.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.logger.Warn("writing JSON response", "error", err, "status", status)
	}
}

// errorBody is the error response shape. Stderr is present only for
// external tool failures.
type errorBody struct {
	Error  string  `json:"error"`
	Stderr *string `json:"stderr,omitempty"`
}

// writeError renders err by category. Internal and uncategorized
// errors are answered with a generic message and logged in full.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	categorized := apierror.As(err)
	status := categorized.Status()

	body := errorBody{Error: categorized.Error()}
	if categorized.Category == apierror.CategoryInternal {
		body.Error = "Internal server error"
	}
	switch categorized.Category {
	case apierror.CategoryExternalTool, apierror.CategoryTimeout:
		stderr := categorized.Detail
		body.Stderr = &stderr
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
			"request_id", requestIDFromContext(r.Context()),
		)
	}
	h.writeJSON(w, status, body)
}

// notFound answers unmatched routes.
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
}
