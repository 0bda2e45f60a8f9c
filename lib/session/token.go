// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/wardenhq/warden/lib/codec"
)

// signatureSize is the fixed size of an Ed25519 signature.
const signatureSize = ed25519.SignatureSize

// maxTokenLength bounds the encoded token accepted by Decode. Real
// tokens are well under 200 characters.
const maxTokenLength = 2048

// Claims is the CBOR-encoded payload of a session token.
type Claims struct {
	// Authenticated is always true for tokens minted by Login.
	Authenticated bool `cbor:"1,keyasint"`

	// ID is a random token identifier, logged on issue for auditing.
	ID string `cbor:"2,keyasint"`

	// IssuedAt and ExpiresAt are Unix timestamps in seconds.
	IssuedAt  int64 `cbor:"3,keyasint"`
	ExpiresAt int64 `cbor:"4,keyasint"`

	// LoginTime is the login instant in Unix milliseconds.
	LoginTime int64 `cbor:"5,keyasint"`

	// Generation is the credential generation at issue time. Present
	// only when generation binding is enabled.
	Generation []byte `cbor:"6,keyasint,omitempty"`
}

// Errors returned by Decode.
var (
	ErrMalformed        = errors.New("session: malformed token")
	ErrInvalidSignature = errors.New("session: invalid signature")
	ErrExpired          = errors.New("session: token has expired")
	ErrStaleGeneration  = errors.New("session: token predates a password change")
)

// Signer produces Ed25519 signatures with the current signing key.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// Encode signs claims and returns the bearer token string.
func Encode(signer Signer, claims *Claims) (string, error) {
	payload, err := codec.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("session: encoding token payload: %w", err)
	}

	signature, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("session: signing token: %w", err)
	}

	raw := make([]byte, len(payload)+signatureSize)
	copy(raw, payload)
	copy(raw[len(payload):], signature)
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode verifies token against publicKey and checks expiry at now.
// Any malformed input yields an error wrapping ErrMalformed.
func Decode(publicKey ed25519.PublicKey, token string, now time.Time) (*Claims, error) {
	if len(token) == 0 || len(token) > maxTokenLength {
		return nil, ErrMalformed
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) <= signatureSize {
		return nil, fmt.Errorf("%w: too short for signature", ErrMalformed)
	}

	splitPoint := len(raw) - signatureSize
	payload := raw[:splitPoint]
	signature := raw[splitPoint:]

	if !ed25519.Verify(publicKey, payload, signature) {
		return nil, ErrInvalidSignature
	}

	var claims Claims
	if err := codec.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if now.Unix() >= claims.ExpiresAt {
		return nil, ErrExpired
	}
	return &claims, nil
}
