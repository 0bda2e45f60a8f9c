// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers for warden binaries:
// reporting a fatal error before or after the structured logger exists,
// and choosing the exit status for it.
package process
