// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"strings"
	"time"

	"github.com/wardenhq/warden/lib/apierror"
)

// Status is how a job ended.
type Status string

const (
	// StatusSucceeded: exit code 0 before the deadline.
	StatusSucceeded Status = "succeeded"

	// StatusFailed: nonzero exit before the deadline.
	StatusFailed Status = "failed"

	// StatusTimedOut: the deadline passed or the caller cancelled, and
	// the process group was killed.
	StatusTimedOut Status = "timed_out"

	// StatusSpawnError: the process never ran (arguments rejected,
	// binary missing, working directory missing).
	StatusSpawnError Status = "spawn_error"
)

// Result is the outcome of a job. Which fields are meaningful depends
// on Status: ExitCode and Message for StatusFailed, SpawnErr for
// StatusSpawnError. Stdout and Stderr hold whatever was captured,
// including partial output from a timed-out job.
type Result struct {
	Tool     *Tool
	Status   Status
	ExitCode int
	Stdout   string
	Stderr   string

	// Truncated is set when either stream exceeded the capture cap.
	Truncated bool

	// Message is the classified failure description.
	Message string

	SpawnErr error
	Duration time.Duration
}

// Succeeded reports whether the job exited 0 in time.
func (r *Result) Succeeded() bool { return r.Status == StatusSucceeded }

// Err converts a non-successful result into the error reported to the
// operator, prefixed with the tool label ("Git clone failed: ...").
// Returns nil on success. Stderr is attached as detail for failures
// only; partial output from a timed-out job stays in the logs.
func (r *Result) Err() error {
	label := "Command"
	if r.Tool != nil {
		label = r.Tool.Label
	}

	switch r.Status {
	case StatusSucceeded:
		return nil
	case StatusFailed:
		return apierror.ExternalTool("%s failed: %s", label, r.Message).
			WithDetail(strings.TrimSpace(r.Stderr))
	case StatusTimedOut:
		message := "operation timed out"
		if r.Tool != nil && r.Tool.TimeoutMessage != "" {
			message = r.Tool.TimeoutMessage
		}
		return apierror.Timeout("%s failed: %s", label, message)
	default:
		return apierror.ExternalTool("%s failed: %v", label, r.SpawnErr)
	}
}
