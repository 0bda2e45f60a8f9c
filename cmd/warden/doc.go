// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Warden is an authenticated HTTP control plane in front of pm2. It
// lists and controls supervised processes, reads their log files, and
// runs a fixed catalogue of maintenance jobs (git clone, git pull, npm
// install) inside a managed apps directory.
//
// Subcommands:
//
//	serve               run the control plane
//	reset-password      replace the operator password offline
//	rotate-signing-key  replace the token signing key, revoking every token
//	version             print build information
//
// Configuration comes from --config, else $WARDEN_CONFIG, else built-in
// defaults. PORT overrides the configured port; --port overrides both.
package main
