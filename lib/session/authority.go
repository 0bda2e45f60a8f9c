// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/lib/apierror"
	"github.com/wardenhq/warden/lib/clock"
	"github.com/wardenhq/warden/lib/credential"
)

// MinPasswordLength is the shortest password RotatePassword accepts.
const MinPasswordLength = 4

// Credentials is the subset of the credential store the authority uses.
// *credential.Store satisfies it.
type Credentials interface {
	Signer
	PublicKey() (ed25519.PublicKey, error)
	CheckPassword(password []byte) error
	SetPassword(password []byte) error
	Generation() ([]byte, error)
}

// Config configures an Authority.
type Config struct {
	// Enabled turns request gating on. When false every request passes
	// and Login returns no token.
	Enabled bool

	// Lifetime is how long issued tokens remain valid.
	Lifetime time.Duration

	// BindGeneration rejects tokens issued before the most recent
	// password change.
	BindGeneration bool

	// MaxConcurrentLogins bounds simultaneous bcrypt comparisons.
	MaxConcurrentLogins int

	// Clock defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// Authority issues and verifies session tokens. Safe for concurrent use.
type Authority struct {
	credentials Credentials
	enabled     bool
	lifetime    time.Duration
	bind        bool
	clock       clock.Clock
	logger      *slog.Logger

	// loginSlots is a counting semaphore over bcrypt work.
	loginSlots chan struct{}
}

// NewAuthority creates an Authority over credentials.
func NewAuthority(credentials Credentials, config Config) *Authority {
	if config.Lifetime <= 0 {
		config.Lifetime = time.Hour
	}
	if config.MaxConcurrentLogins < 1 {
		config.MaxConcurrentLogins = 4
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Authority{
		credentials: credentials,
		enabled:     config.Enabled,
		lifetime:    config.Lifetime,
		bind:        config.BindGeneration,
		clock:       config.Clock,
		logger:      config.Logger,
		loginSlots:  make(chan struct{}, config.MaxConcurrentLogins),
	}
}

// Enabled reports whether request gating is on.
func (a *Authority) Enabled() bool { return a.enabled }

// Lifetime returns the validity period of issued tokens.
func (a *Authority) Lifetime() time.Duration { return a.lifetime }

// Issue mints a token for an authenticated operator.
func (a *Authority) Issue() (string, *Claims, error) {
	now := a.clock.Now()
	claims := &Claims{
		Authenticated: true,
		ID:            uuid.NewString(),
		IssuedAt:      now.Unix(),
		ExpiresAt:     now.Add(a.lifetime).Unix(),
		LoginTime:     now.UnixMilli(),
	}

	if a.bind {
		generation, err := a.credentials.Generation()
		if err != nil {
			return "", nil, fmt.Errorf("reading credential generation: %w", err)
		}
		claims.Generation = generation
	}

	token, err := Encode(a.credentials, claims)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Verify checks a token's signature, expiry and, when binding is on,
// its credential generation.
func (a *Authority) Verify(token string) (*Claims, error) {
	publicKey, err := a.credentials.PublicKey()
	if err != nil {
		return nil, err
	}

	claims, err := Decode(publicKey, token, a.clock.Now())
	if err != nil {
		return nil, err
	}

	if a.bind {
		current, err := a.credentials.Generation()
		if err != nil {
			return nil, fmt.Errorf("reading credential generation: %w", err)
		}
		if !bytes.Equal(claims.Generation, current) {
			return nil, ErrStaleGeneration
		}
	}
	return claims, nil
}

// Login verifies password and issues a token. Waits for a free
// comparison slot or ctx cancellation. The caller handles the disabled
// case; Login always compares.
func (a *Authority) Login(ctx context.Context, password string) (string, *Claims, error) {
	if password == "" {
		return "", nil, apierror.Validation("Password is required")
	}

	if err := a.checkPassword(ctx, password); err != nil {
		if errors.Is(err, credential.ErrPasswordMismatch) {
			a.logger.Warn("login rejected")
			return "", nil, apierror.Unauthorized("Invalid password")
		}
		return "", nil, err
	}

	token, claims, err := a.Issue()
	if err != nil {
		return "", nil, err
	}
	a.logger.Info("login succeeded", "token_id", claims.ID, "expires_at", time.Unix(claims.ExpiresAt, 0).UTC())
	return token, claims, nil
}

func (a *Authority) checkPassword(ctx context.Context, password string) error {
	select {
	case a.loginSlots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-a.loginSlots }()

	err := a.credentials.CheckPassword([]byte(password))
	if errors.Is(err, credential.ErrNoPassword) {
		return apierror.Internal("Password hash not configured")
	}
	return err
}

// PasswordChange is a request to replace the operator password.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// RotatePassword replaces the operator password. token is the caller's
// bearer token, which must be valid. Checks run cheapest first: field
// presence, confirmation, length, then the token, then bcrypt. Existing
// tokens stay valid unless generation binding is on.
func (a *Authority) RotatePassword(ctx context.Context, token string, change PasswordChange) error {
	if change.CurrentPassword == "" || change.NewPassword == "" || change.ConfirmPassword == "" {
		return apierror.Validation("Current password, new password, and confirmation are required")
	}
	if change.NewPassword != change.ConfirmPassword {
		return apierror.Validation("New password and confirmation do not match")
	}
	if len(change.NewPassword) < MinPasswordLength {
		return apierror.Validation("New password must be at least %d characters long", MinPasswordLength)
	}
	if !a.enabled {
		return apierror.Validation("Authentication is disabled")
	}
	if token == "" {
		return apierror.Unauthorized("Authentication token required")
	}
	if _, err := a.Verify(token); err != nil {
		return apierror.Unauthorized("Invalid or expired token")
	}

	if err := a.checkPassword(ctx, change.CurrentPassword); err != nil {
		if errors.Is(err, credential.ErrPasswordMismatch) {
			return apierror.Unauthorized("Current password is incorrect")
		}
		return err
	}

	if err := a.credentials.SetPassword([]byte(change.NewPassword)); err != nil {
		return apierror.Internal("updating password: %w", err)
	}
	a.logger.Info("operator password changed", "tokens_revoked", a.bind)
	return nil
}
