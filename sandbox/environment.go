// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"os"
	"slices"
)

// inheritedVariables are the only daemon environment variables a job
// sees. Everything else, including any credentials the daemon was
// started with, is withheld.
var inheritedVariables = []string{
	"PATH",
	"HOME",
	"USER",
	"LANG",
	"LC_ALL",
	"TZ",
	"TERM",
	"TMPDIR",
	"SSH_AUTH_SOCK",
	"HTTP_PROXY",
	"HTTPS_PROXY",
	"NO_PROXY",
	"http_proxy",
	"https_proxy",
	"no_proxy",
}

// buildEnvironment layers the sanitized daemon environment, then the
// tool's fixed variables, then per-job overrides. Later layers win.
func buildEnvironment(toolEnv, jobEnv map[string]string) []string {
	merged := make(map[string]string, len(inheritedVariables)+len(toolEnv)+len(jobEnv))
	for _, name := range inheritedVariables {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			merged[name] = value
		}
	}
	for name, value := range toolEnv {
		merged[name] = value
	}
	for name, value := range jobEnv {
		merged[name] = value
	}

	env := make([]string, 0, len(merged))
	for name, value := range merged {
		env = append(env, name+"="+value)
	}
	slices.Sort(env)
	return env
}
