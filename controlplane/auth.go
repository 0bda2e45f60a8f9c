// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"errors"
	"net/http"
	"time"

	"github.com/wardenhq/warden/lib/apierror"
	"github.com/wardenhq/warden/lib/session"
)

// authFailure is the error shape of the /api/auth routes.
type authFailure struct {
	Success bool   `json:"success"`
	Valid   *bool  `json:"valid,omitempty"`
	Error   string `json:"error"`
}

// writeAuthError renders err in the auth route shape. Server-side
// failures show their message only when it was written for operators,
// i.e. carries no wrapped cause; everything else reads "Internal server
// error".
func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	status := apierror.Status(err)
	message := "Internal server error"
	var categorized *apierror.Error
	if errors.As(err, &categorized) {
		if status < http.StatusInternalServerError || errors.Unwrap(categorized.Err) == nil {
			message = categorized.Error()
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("auth request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", requestIDFromContext(r.Context()),
		)
	}
	h.writeJSON(w, status, authFailure{Error: message})
}

func (h *Handler) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"enabled":       h.authority.Enabled(),
		"jwtExpiration": h.settings.Auth.TokenLifetime,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Password string `json:"password"`
	}
	if err := decodeBody(w, r, &request); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	if request.Password == "" {
		h.writeAuthError(w, r, apierror.Validation("Password is required"))
		return
	}

	if !h.authority.Enabled() {
		h.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Authentication is disabled",
			"token":   nil,
		})
		return
	}

	token, _, err := h.authority.Login(r.Context(), request.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Login successful",
		"token":     token,
		"expiresIn": h.settings.Auth.TokenLifetime,
	})
}

// tokenData is the decoded view of a token returned by verify.
type tokenData struct {
	Authenticated bool   `json:"authenticated"`
	LoginTime     string `json:"loginTime"`
	IssuedAt      int64  `json:"iat"`
	ExpiresAt     int64  `json:"exp"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Token string `json:"token"`
	}
	if err := decodeBody(w, r, &request); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	if request.Token == "" {
		h.writeAuthError(w, r, apierror.Validation("Token is required"))
		return
	}

	if !h.authority.Enabled() {
		h.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"valid":   true,
			"message": "Authentication is disabled",
		})
		return
	}

	claims, err := h.authority.Verify(request.Token)
	if err != nil {
		h.logger.Debug("token verification failed", "error", err)
		valid := false
		h.writeJSON(w, http.StatusUnauthorized, authFailure{Valid: &valid, Error: "Invalid or expired token"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"valid":   true,
		"data": tokenData{
			Authenticated: claims.Authenticated,
			LoginTime:     time.UnixMilli(claims.LoginTime).UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			IssuedAt:      claims.IssuedAt,
			ExpiresAt:     claims.ExpiresAt,
		},
	})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var change session.PasswordChange
	if err := decodeBody(w, r, &change); err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	if err := h.authority.RotatePassword(r.Context(), session.BearerToken(r), change); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed successfully. Please log in again with your new password.",
	})
}

// handleLogout acknowledges a logout. Tokens are stateless; the client
// discards its copy.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logout successful",
	})
}
