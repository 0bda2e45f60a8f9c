// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wardenhq/warden/lib/apierror"
	"github.com/wardenhq/warden/sandbox"
)

// Runner executes sandboxed jobs. *sandbox.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, job sandbox.Job) *sandbox.Result
}

// PM2Config configures a PM2 adapter.
type PM2Config struct {
	Runner Runner

	// Binary is the pm2 executable. Default "pm2".
	Binary string

	// Timeout bounds each pm2 invocation. Default 30s.
	Timeout time.Duration

	// Dir is the working directory for pm2 commands other than start.
	Dir string

	Logger *slog.Logger
}

// PM2 drives the pm2 CLI.
type PM2 struct {
	runner Runner
	tool   *sandbox.Tool
	dir    string
	logger *slog.Logger
}

// NewPM2 creates a PM2 adapter.
func NewPM2(config PM2Config) (*PM2, error) {
	if config.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if config.Binary == "" {
		config.Binary = "pm2"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &PM2{
		runner: config.Runner,
		tool:   sandbox.SupervisorTool(config.Binary, config.Timeout),
		dir:    config.Dir,
		logger: config.Logger,
	}, nil
}

// List returns every process pm2 knows about.
func (p *PM2) List(ctx context.Context) ([]Process, error) {
	result, err := p.run(ctx, p.dir, nil, "jlist")
	if err != nil {
		return nil, err
	}
	if result.Truncated {
		p.logger.Error("supervisor process list exceeded the output cap", "bytes", len(result.Stdout))
		return nil, apierror.ExternalTool("Supervisor process list exceeded %d bytes", len(result.Stdout))
	}
	return parseProcessList([]byte(result.Stdout))
}

// Describe returns the process matching ref by id or name.
func (p *PM2) Describe(ctx context.Context, ref string) (*Process, error) {
	processes, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range processes {
		if processes[i].Matches(ref) {
			return &processes[i], nil
		}
	}
	return nil, apierror.NotFound("%w", ErrProcessNotFound)
}

// Start launches spec.Script as a single-instance process.
func (p *PM2) Start(ctx context.Context, spec StartSpec) error {
	if err := ValidateName(spec.Name); err != nil {
		return err
	}
	if strings.HasPrefix(spec.Script, "-") {
		return apierror.Validation("Invalid script path %q", spec.Script)
	}

	args := []string{
		"start", spec.Script,
		"--name", spec.Name,
		"--instances", "1",
	}
	if spec.Dir != "" {
		args = append(args, "--cwd", spec.Dir)
	}
	if spec.Logs.Output != "" {
		args = append(args,
			"--output", spec.Logs.Output,
			"--error", spec.Logs.Error,
			"--log", spec.Logs.Combined,
		)
	}

	dir := spec.Dir
	if dir == "" {
		dir = p.dir
	}
	_, err := p.run(ctx, dir, spec.Env, args...)
	return err
}

// Stop stops the process matching ref.
func (p *PM2) Stop(ctx context.Context, ref string) error {
	return p.command(ctx, "stop", ref)
}

// Restart restarts the process matching ref.
func (p *PM2) Restart(ctx context.Context, ref string) error {
	return p.command(ctx, "restart", ref)
}

// Delete removes the process matching ref from the supervisor.
func (p *PM2) Delete(ctx context.Context, ref string) error {
	return p.command(ctx, "delete", ref)
}

// Flush truncates the log files of the process matching ref.
func (p *PM2) Flush(ctx context.Context, ref string) error {
	return p.command(ctx, "flush", ref)
}

func (p *PM2) command(ctx context.Context, verb, ref string) error {
	if err := ValidateRef(ref); err != nil {
		return err
	}
	_, err := p.run(ctx, p.dir, nil, verb, ref)
	return err
}

func (p *PM2) run(ctx context.Context, dir string, env map[string]string, args ...string) (*sandbox.Result, error) {
	result := p.runner.Run(ctx, sandbox.Job{Tool: p.tool, Args: args, Dir: dir, Env: env})
	if result.Succeeded() {
		return result, nil
	}
	if result.Status == sandbox.StatusFailed && reportsMissingProcess(result) {
		return nil, apierror.NotFound("%w", ErrProcessNotFound)
	}
	p.logger.Warn("supervisor command failed",
		"args", args,
		"status", result.Status,
		"exit_code", result.ExitCode,
	)
	return nil, result.Err()
}

// reportsMissingProcess recognizes pm2's "Process or Namespace x not
// found" diagnostic, which it prints on either stream.
func reportsMissingProcess(result *sandbox.Result) bool {
	output := result.Stderr + result.Stdout
	return strings.Contains(output, "not found") && strings.Contains(output, "Process")
}

// parseProcessList decodes "pm2 jlist" output. pm2 can print notices
// before the JSON array, so decoding starts at the first '['.
func parseProcessList(output []byte) ([]Process, error) {
	start := bytes.IndexByte(output, '[')
	if start < 0 {
		if len(bytes.TrimSpace(output)) == 0 {
			return []Process{}, nil
		}
		return nil, apierror.ExternalTool("Supervisor returned no process list")
	}

	var processes []Process
	decoder := json.NewDecoder(bytes.NewReader(output[start:]))
	if err := decoder.Decode(&processes); err != nil {
		return nil, apierror.ExternalTool("Supervisor returned an unreadable process list: %v", err)
	}
	if processes == nil {
		processes = []Process{}
	}
	return processes, nil
}

var _ Supervisor = (*PM2)(nil)
