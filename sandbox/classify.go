// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import "strings"

// gitFatalExit is git's exit code for fatal errors, including failed
// authentication and unreachable repositories.
const gitFatalExit = 128

var gitAuthenticationMarkers = []string{
	"Authentication failed",
	"Permission denied",
	"could not read Username",
	"could not read Password",
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func classifyClone(exitCode int, stderr string) string {
	if exitCode != gitFatalExit {
		return ""
	}
	switch {
	case containsAny(stderr, gitAuthenticationMarkers):
		return "Authentication required but interactive prompts are disabled. " +
			"Please ensure the repository is public or use SSH keys for private repositories."
	case strings.Contains(stderr, "Repository not found"):
		return "Repository not found. Please check the URL and ensure you have access to the repository."
	}
	return ""
}

func classifyPull(exitCode int, stderr string) string {
	if exitCode == gitFatalExit && containsAny(stderr, gitAuthenticationMarkers) {
		return "Authentication required but interactive prompts are disabled. " +
			"Please ensure you have proper access credentials configured."
	}
	return ""
}
