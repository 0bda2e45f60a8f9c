// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package controlplane is warden's HTTP API.
//
// Routes under /api/auth handle login, token verification and password
// changes. Routes under /api/pm2 are gated by a session token (when
// authentication is enabled) and cover process inspection and control,
// bounded log retrieval, and the sandboxed maintenance jobs: git clone,
// git pull and npm install. /health is always open.
//
// Every request passes through the same middleware chain: request ID,
// access log, panic recovery, CORS (when enabled) and gzip compression
// (when enabled). Errors are rendered from [apierror] categories as
// {"error": "..."} with the status code the category maps to; external
// tool failures also carry the tool's stderr.
package controlplane
