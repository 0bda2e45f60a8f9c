// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor is the control plane's view of the process
// supervisor. [Supervisor] is the small synchronous command surface the
// HTTP layer depends on; [PM2] implements it by invoking the pm2 CLI
// through the sandbox runner and parsing "pm2 jlist" output. [Fake] is
// an in-memory implementation for tests.
//
// The supervisor is treated as an opaque source of process metadata.
// Nothing here schedules, restarts or accounts for processes.
package supervisor
