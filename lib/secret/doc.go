// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds sensitive bytes (the token signing key, operator
// passwords typed at a prompt) outside the Go heap.
//
// A [Buffer] is an anonymous mmap region locked into RAM (no swap) and
// excluded from core dumps. Close zeroes and unmaps it; any access after
// Close panics. [Buffer.Equal] compares in constant time.
//
// [ReadFromPath] and [ReadFromTerminal] load secrets from a file, stdin
// or an interactive prompt straight into a Buffer and zero the
// intermediate copies.
package secret
