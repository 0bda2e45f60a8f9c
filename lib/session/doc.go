// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package session issues and verifies operator session tokens and gates
// HTTP requests on them.
//
// A token is base64url(payload || signature): a CBOR-encoded [Claims]
// followed by a 64-byte Ed25519 signature from the credential store's
// signing key. Tokens are stateless. Verification checks the signature
// and the expiry, and nothing else unless generation binding is on, in
// which case the token's credential generation must match the current
// one so that a password change revokes outstanding sessions.
//
// [Authority.Login] runs bcrypt comparisons through a fixed number of
// slots so a burst of logins cannot occupy every CPU.
package session
