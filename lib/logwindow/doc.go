// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package logwindow reads a bounded window of lines from the head or
// tail of an append-only log file without scanning the whole file.
//
// Head reads stream from the start and stop after the line budget.
// Tail reads take the last 64 KiB, and if that holds fewer lines than
// the budget, make exactly one wider read covering up to 128 KiB more
// immediately before it. Tail results never contain blank lines and
// never start with a fragment of a line cut by the read window. Lines
// longer than the window can make a tail return fewer lines than
// requested.
package logwindow
