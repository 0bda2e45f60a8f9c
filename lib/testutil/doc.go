// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for warden packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-deadline
// pattern so that a test waiting on a goroutine fails instead of
// hanging the suite. They are the only place tests use real wall-clock
// timeouts; everything else runs on the fake clock from lib/clock.
//
// [WriteFile] creates a file and any missing parent directories.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
