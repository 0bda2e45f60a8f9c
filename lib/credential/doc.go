// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential persists the daemon's single credential record:
// an Ed25519 signing seed for session tokens and a bcrypt hash of the
// operator password.
//
// Both live as files in the state directory. [Store.EnsureProvisioned]
// creates whichever is missing (a random seed, and a hash of the
// default password "admin") and is safe to call on every start. Writes
// go to a temporary file that is renamed into place while holding an
// flock on the directory, so a concurrent reader in this or another
// process sees either the old hash or the new one, never a torn file.
//
// The signing seed is held in a [secret.Buffer] for the life of the
// Store. The password hash is re-read from disk on every access so an
// offline reset takes effect without a restart.
package credential
