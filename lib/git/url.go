// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wardenhq/warden/lib/apierror"
)

// MaxURLLength is the longest clone URL accepted.
const MaxURLLength = 500

var (
	cloneURLPattern = regexp.MustCompile(`^(` +
		`https?://[a-zA-Z0-9\-._~:/?#[\]@!$&'()*+,;=%]+\.git` +
		`|ssh://[a-zA-Z0-9\-._~@]+/[a-zA-Z0-9\-._~/?#[\]@!$&'()*+,;=%/]+\.git` +
		`|git@[a-zA-Z0-9\-._~]+:[a-zA-Z0-9\-._~/?#[\]@!$&'()*+,;=%/]+\.git` +
		`)$`)

	// shellMetacharacters never appear in a legitimate repository URL.
	shellMetacharacters = regexp.MustCompile("[;&|`$(){}[\\]\\\\'\"<>\n\r]")

	repositoryNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// ValidateCloneURL checks url against the accepted syntax and the
// allow-list. Failures are apierror validation (400) or forbidden (403)
// errors whose messages are shown to the operator.
func ValidateCloneURL(url string, allowedPrefixes []string) error {
	if url == "" {
		return apierror.Validation("Git URL is required")
	}
	if !cloneURLPattern.MatchString(url) {
		return apierror.Validation("Invalid Git URL format. Must be HTTP/HTTPS/SSH URL ending with .git")
	}
	if shellMetacharacters.MatchString(url) {
		return apierror.Validation("Git URL contains invalid characters")
	}
	if len(url) > MaxURLLength {
		return apierror.Validation("Git URL is too long (maximum %d characters)", MaxURLLength)
	}
	if !hasAllowedPrefix(url, allowedPrefixes) {
		return apierror.Forbidden("Git URL not allowed. Repository must start with one of: %s",
			strings.Join(allowedPrefixes, ", "))
	}
	return nil
}

func hasAllowedPrefix(url string, allowedPrefixes []string) bool {
	for _, prefix := range allowedPrefixes {
		if prefix != "" && strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// RepositoryName returns the directory name a clone of url creates: the
// final path component without its .git suffix.
func RepositoryName(url string) (string, error) {
	name := url[strings.LastIndexAny(url, "/:")+1:]
	name = strings.TrimSuffix(name, ".git")

	if name == "." || name == ".." || !repositoryNamePattern.MatchString(name) {
		return "", apierror.Validation("Cannot derive a directory name from Git URL")
	}
	return name, nil
}

// IsRepository reports whether dir has a .git entry (a directory for a
// normal clone, a file for a worktree or submodule).
func IsRepository(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
