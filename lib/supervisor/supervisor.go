// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/wardenhq/warden/lib/apierror"
	"github.com/wardenhq/warden/lib/logwindow"
)

// ErrProcessNotFound is returned when no process matches an id or name.
// The text is shown to operators as is.
var ErrProcessNotFound = errors.New("Process not found")

// Supervisor is the command surface of a process supervisor. Process
// references are a numeric id or a process name.
type Supervisor interface {
	List(ctx context.Context) ([]Process, error)
	Describe(ctx context.Context, ref string) (*Process, error)
	Start(ctx context.Context, spec StartSpec) error
	Stop(ctx context.Context, ref string) error
	Restart(ctx context.Context, ref string) error
	Delete(ctx context.Context, ref string) error
	Flush(ctx context.Context, ref string) error
}

// Process is one supervised process as reported by the supervisor. The
// JSON field names match pm2's own so existing clients keep working.
type Process struct {
	Name  string      `json:"name"`
	ID    int         `json:"pm_id"`
	PID   int         `json:"pid"`
	Monit Monit       `json:"monit"`
	Env   Environment `json:"pm2_env"`
}

// Monit is the supervisor's resource sample for a process.
type Monit struct {
	Memory int64   `json:"memory"`
	CPU    float64 `json:"cpu"`
}

// Environment is the subset of pm2_env the control plane reads.
type Environment struct {
	Status       string `json:"status"`
	CombinedLog  string `json:"pm_log_path,omitempty"`
	OutputLog    string `json:"pm_out_log_path,omitempty"`
	ErrorLog     string `json:"pm_err_log_path,omitempty"`
	Uptime       int64  `json:"pm_uptime,omitempty"`
	Restarts     int    `json:"restart_time"`
	WorkingDir   string `json:"pm_cwd,omitempty"`
	ScriptPath   string `json:"pm_exec_path,omitempty"`
	InstanceMode string `json:"exec_mode,omitempty"`
}

// Process status values reported by pm2.
const (
	StatusOnline  = "online"
	StatusStopped = "stopped"
	StatusErrored = "errored"
)

// LogFile returns the path of the requested log stream, or "" when the
// supervisor reports none.
func (p *Process) LogFile(kind logwindow.Kind) string {
	switch kind {
	case logwindow.Output:
		return p.Env.OutputLog
	case logwindow.Error:
		return p.Env.ErrorLog
	default:
		return p.Env.CombinedLog
	}
}

// Matches reports whether ref names this process by id or name.
func (p *Process) Matches(ref string) bool {
	if ref == p.Name {
		return true
	}
	id, err := strconv.Atoi(ref)
	return err == nil && id == p.ID
}

// StartSpec describes a process to start.
type StartSpec struct {
	// Script is the absolute path of the entry point.
	Script string

	// Name is the supervisor process name.
	Name string

	// Dir is the working directory.
	Dir string

	// Env is passed to the process in addition to the sanitized
	// environment.
	Env map[string]string

	Logs LogFiles
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName checks a process name for use as a supervisor argument
// and a log directory name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) || len(name) > 100 {
		return apierror.Validation("Invalid process name %q", name)
	}
	return nil
}

// ValidateRef checks a process reference (id, name, or "all").
func ValidateRef(ref string) error {
	if ref == "" {
		return apierror.Validation("Process id is required")
	}
	if !namePattern.MatchString(ref) {
		return apierror.Validation("Invalid process id %q", ref)
	}
	return nil
}

// DefaultName derives a process name from its script: the base name
// without extension.
func DefaultName(script string) string {
	base := filepath.Base(script)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Summary aggregates a process list for the system overview.
type Summary struct {
	Total   int     `json:"totalProcesses"`
	Running int     `json:"runningProcesses"`
	Stopped int     `json:"stoppedProcesses"`
	Errored int     `json:"erroredProcesses"`
	Memory  int64   `json:"memory"`
	CPU     float64 `json:"cpu"`
}

// Summarize counts processes by status and sums their resource samples.
func Summarize(processes []Process) Summary {
	summary := Summary{Total: len(processes)}
	for _, process := range processes {
		switch process.Env.Status {
		case StatusOnline:
			summary.Running++
		case StatusStopped:
			summary.Stopped++
		case StatusErrored:
			summary.Errored++
		}
		summary.Memory += process.Monit.Memory
		summary.CPU += process.Monit.CPU
	}
	return summary
}
