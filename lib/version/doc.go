// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the warden binary.
//
// [Version], [GitCommit], [GitDirty] and [BuildTime] are injected with
// -ldflags -X. When they are not (go install, go run, tests), the VCS
// stamp the toolchain embeds is used for the commit and dirty flag.
//
//   - [Info] -- "0.1.0-dev (abc1234, 2026-02-10T...)" for the version command
//   - [Full] -- Info plus Go version and GOOS/GOARCH
//   - [Short] -- just the version number
//   - [LogAttrs] -- the same fields as slog attributes for startup logs
package version
