// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Error codes in gating rejections.
const (
	CodeTokenRequired = "TOKEN_REQUIRED"
	CodeTokenInvalid  = "TOKEN_INVALID"
)

type claimsKey struct{}

// ClaimsFromContext returns the claims attached by Middleware, or nil
// when gating is disabled.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns "" when absent.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware gates next on a valid bearer token. A missing token is 401
// TOKEN_REQUIRED; a token that fails verification is 403 TOKEN_INVALID.
// When gating is disabled requests pass through untouched.
func (a *Authority) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}

		token := BearerToken(r)
		if token == "" {
			writeRejection(w, http.StatusUnauthorized, "Access token required", CodeTokenRequired)
			return
		}

		claims, err := a.Verify(token)
		if err != nil {
			a.logger.Debug("rejected session token", "path", r.URL.Path, "error", err)
			writeRejection(w, http.StatusForbidden, "Invalid or expired token", CodeTokenInvalid)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func writeRejection(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
