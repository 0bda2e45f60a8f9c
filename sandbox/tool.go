// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"time"
)

// Classifier turns a nonzero exit into an operator-facing message.
// Returning "" falls back to "<label> exited with code N".
type Classifier func(exitCode int, stderr string) string

// Tool is a catalogued external program.
type Tool struct {
	// Name identifies the tool in logs ("git-clone").
	Name string

	// Label prefixes operator-facing messages ("Git clone").
	Label string

	// Binary is resolved through PATH at spawn time.
	Binary string

	// Timeout is the default deadline for jobs using this tool.
	Timeout time.Duration

	// TimeoutMessage is reported when a job is killed at its deadline.
	TimeoutMessage string

	// Env is fixed environment added after sanitizing.
	Env map[string]string

	// Filter vets the argument vector. Nil accepts anything.
	Filter Filter

	// Classify interprets nonzero exits. Nil uses the fallback only.
	Classify Classifier

	// MaxOutput caps captured bytes per stream for this tool. Zero uses
	// the runner's cap.
	MaxOutput int
}

func (t *Tool) classify(exitCode int, stderr string) string {
	if t.Classify != nil {
		if message := t.Classify(exitCode, stderr); message != "" {
			return message
		}
	}
	return fmt.Sprintf("%s exited with code %d", t.Label, exitCode)
}

const (
	CloneTimeout   = 20 * time.Second
	PullTimeout    = 3 * time.Minute
	InstallTimeout = 10 * time.Minute

	// SupervisorMaxOutput caps supervisor output. A process listing
	// carries each process's full environment.
	SupervisorMaxOutput = 64 << 20
)

// gitEnvironment disables every interactive credential path: the
// terminal prompt, askpass helpers for HTTPS and SSH, and ssh's own
// password prompt.
var gitEnvironment = map[string]string{
	"GIT_TERMINAL_PROMPT": "0",
	"GIT_ASKPASS":         "true",
	"SSH_ASKPASS":         "true",
	"GIT_SSH_COMMAND":     "ssh -o BatchMode=yes",
}

var (
	// CloneTool runs "git clone --quiet <url>" in the managed root.
	CloneTool = &Tool{
		Name:           "git-clone",
		Label:          "Git clone",
		Binary:         "git",
		Timeout:        CloneTimeout,
		TimeoutMessage: "Git clone operation timed out after 20 seconds",
		Env:            gitEnvironment,
		Filter:         &GlobFilter{Allowed: []string{"clone --quiet *"}, Blocked: []string{"clone --quiet -*"}},
		Classify:       classifyClone,
	}

	// PullTool runs "git pull --quiet" in a repository.
	PullTool = &Tool{
		Name:           "git-pull",
		Label:          "Git pull",
		Binary:         "git",
		Timeout:        PullTimeout,
		TimeoutMessage: "Git pull operation timed out after 3 minutes",
		Env:            gitEnvironment,
		Filter:         &GlobFilter{Allowed: []string{"pull --quiet"}},
		Classify:       classifyPull,
	}

	// InstallTool runs "npm install" in a package directory.
	InstallTool = &Tool{
		Name:           "npm-install",
		Label:          "NPM install",
		Binary:         "npm",
		Timeout:        InstallTimeout,
		TimeoutMessage: "NPM install operation timed out after 10 minutes",
		Filter:         &GlobFilter{Allowed: []string{"install"}},
	}
)

// CloneJob clones url into appsDir.
func CloneJob(url, appsDir string) Job {
	return Job{Tool: CloneTool, Args: []string{"clone", "--quiet", url}, Dir: appsDir}
}

// PullJob updates the repository at dir from its upstream.
func PullJob(dir string) Job {
	return Job{Tool: PullTool, Args: []string{"pull", "--quiet"}, Dir: dir}
}

// InstallJob installs dependencies for the package at dir.
func InstallJob(dir string) Job {
	return Job{Tool: InstallTool, Args: []string{"install"}, Dir: dir}
}

// SupervisorTool describes the process supervisor CLI at binary. Only
// the subcommands the control plane issues pass its filter.
func SupervisorTool(binary string, timeout time.Duration) *Tool {
	return &Tool{
		Name:           "supervisor",
		Label:          "Supervisor",
		Binary:         binary,
		Timeout:        timeout,
		TimeoutMessage: fmt.Sprintf("Supervisor command timed out after %s", timeout),
		MaxOutput:      SupervisorMaxOutput,
		Filter: &GlobFilter{Allowed: []string{
			"jlist",
			"start *",
			"stop *",
			"restart *",
			"delete *",
			"flush *",
		}},
	}
}
