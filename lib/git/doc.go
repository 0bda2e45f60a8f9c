// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package git validates repository URLs before they reach the git CLI
// and derives the directory a clone lands in.
//
// Validation is purely syntactic and happens before any process is
// spawned: the URL must be an http(s), ssh:// or scp-style git@ URL
// ending in .git, contain no shell metacharacters, fit in 500 bytes and
// start with an operator-configured prefix. An empty prefix list denies
// every URL.
package git
