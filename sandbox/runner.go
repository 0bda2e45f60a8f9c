// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// DefaultMaxOutput caps each of stdout and stderr.
	DefaultMaxOutput = 1 << 20

	// waitDelay bounds how long Wait blocks on output pipes after the
	// process group is killed.
	waitDelay = 2 * time.Second
)

// Job is one invocation of a catalogued tool.
type Job struct {
	Tool *Tool

	// Args follow the tool binary. Never interpreted by a shell.
	Args []string

	// Dir is the working directory. Must exist.
	Dir string

	// Env overrides or extends the sanitized environment.
	Env map[string]string

	// Timeout overrides the tool's default when positive.
	Timeout time.Duration
}

func (j Job) timeout() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return j.Tool.Timeout
}

// Runner executes jobs. Safe for concurrent use; jobs are independent.
type Runner struct {
	logger    *slog.Logger
	maxOutput int
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Logger *slog.Logger

	// MaxOutput caps captured bytes per stream. Default DefaultMaxOutput.
	MaxOutput int
}

// NewRunner creates a Runner.
func NewRunner(config RunnerConfig) *Runner {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.MaxOutput <= 0 {
		config.MaxOutput = DefaultMaxOutput
	}
	return &Runner{logger: config.Logger, maxOutput: config.MaxOutput}
}

// Run executes job and waits for it to finish, fail, or hit its
// deadline. Cancelling ctx kills the job the same way the deadline
// does. The returned Result is never nil.
func (r *Runner) Run(ctx context.Context, job Job) *Result {
	result := &Result{Tool: job.Tool}
	if job.Tool == nil {
		result.Status = StatusSpawnError
		result.SpawnErr = errors.New("no tool specified")
		return result
	}

	if job.Tool.Filter != nil {
		if err := job.Tool.Filter.Check(job.Args); err != nil {
			result.Status = StatusSpawnError
			result.SpawnErr = fmt.Errorf("arguments rejected: %w", err)
			r.logger.Warn("job arguments rejected", "tool", job.Tool.Name, "args", job.Args, "error", err)
			return result
		}
	}

	timeout := job.timeout()
	jobContext, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(jobContext, job.Tool.Binary, job.Args...)
	cmd.Dir = job.Dir
	cmd.Env = buildEnvironment(job.Tool.Env, job.Env)

	// Own process group so the kill reaches everything the tool forks.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	maxOutput := r.maxOutput
	if job.Tool.MaxOutput > 0 {
		maxOutput = job.Tool.MaxOutput
	}
	stdout := newCappedBuffer(maxOutput)
	stderr := newCappedBuffer(maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		result.Status = StatusSpawnError
		result.SpawnErr = err
		r.logger.Error("job failed to start",
			"tool", job.Tool.Name,
			"dir", job.Dir,
			"error", err,
		)
		return result
	}

	waitErr := cmd.Wait()
	result.Duration = time.Since(started)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Truncated = stdout.Truncated() || stderr.Truncated()

	if errors.Is(waitErr, exec.ErrWaitDelay) && jobContext.Err() == nil {
		// The tool exited cleanly but something it forked still holds
		// the output pipes. The exit status stands; the stragglers die.
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			r.logger.Warn("killing leftover job processes failed", "tool", job.Tool.Name, "error", err)
		}
		if cmd.ProcessState != nil && cmd.ProcessState.Success() {
			waitErr = nil
		}
	}

	switch {
	case jobContext.Err() != nil:
		// Deadline or caller cancellation, even if the exit raced it.
		result.Status = StatusTimedOut
		result.ExitCode = -1
		r.logger.Warn("job killed at deadline",
			"tool", job.Tool.Name,
			"dir", job.Dir,
			"timeout", timeout,
			"cause", context.Cause(jobContext),
			"partial_stderr", tail(result.Stderr, 512),
		)
	case waitErr == nil:
		result.Status = StatusSucceeded
		r.logger.Info("job succeeded",
			"tool", job.Tool.Name,
			"dir", job.Dir,
			"duration", result.Duration,
		)
	default:
		var exitError *exec.ExitError
		if !errors.As(waitErr, &exitError) {
			result.Status = StatusSpawnError
			result.SpawnErr = waitErr
			r.logger.Error("job wait failed", "tool", job.Tool.Name, "error", waitErr)
			break
		}
		result.Status = StatusFailed
		result.ExitCode = exitError.ExitCode()
		result.Message = job.Tool.classify(result.ExitCode, result.Stderr)
		r.logger.Warn("job failed",
			"tool", job.Tool.Name,
			"dir", job.Dir,
			"exit_code", result.ExitCode,
			"duration", result.Duration,
		)
	}

	return result
}

// tail returns at most the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
