// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox runs the fixed set of external maintenance tools the
// control plane is allowed to invoke.
//
// The central type is [Runner]. A [Job] names a [Tool] from the
// catalogue (git clone, git pull, npm install, the process supervisor
// CLI) and supplies an argument vector, a working directory and
// optional environment overrides. There is never a shell: the argument
// vector goes straight to execve after the tool's [Filter] accepts it.
//
// Every job runs in its own process group with a sanitized environment
// and a hard deadline. On the deadline the whole group receives SIGKILL,
// so neither the tool nor anything it spawned outlives the job. Stdout
// and stderr are captured separately, each capped in size.
//
// [Runner.Run] always returns a [Result] whose [Status] says how the job
// ended: succeeded, failed with an exit code, timed out, or never
// started. A failed result carries a message produced by the tool's
// [Classifier], which turns known stderr patterns (authentication
// failures, missing repositories) into advice an operator can act on.
// [Result.Err] converts the outcome into the categorized error the HTTP
// layer reports.
//
// Jobs are not queued or serialized. Two jobs on the same directory run
// concurrently if the caller starts them concurrently.
package sandbox
