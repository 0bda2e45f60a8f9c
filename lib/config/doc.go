// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the warden daemon configuration.
//
// Configuration comes from a single file named by the --config flag or
// the WARDEN_CONFIG environment variable. YAML is the native format.
// A config.json (or .jsonc) left over from the Node deployment is read
// with its original field names so an existing installation can be
// pointed at the new binary unchanged. With no file at all, [Default]
// applies.
//
// The only environment override is PORT, matching how the daemon has
// always been deployed behind process managers that assign ports.
// Path values expand ${HOME} and ${WARDEN_ROOT}.
package config
