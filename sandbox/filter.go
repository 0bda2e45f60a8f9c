// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"strings"
)

// Filter vets a job's argument vector before spawn.
type Filter interface {
	Check(args []string) error
}

// GlobFilter matches the space-joined argument vector against glob
// patterns where * matches any run of characters. Blocked wins over
// Allowed; an empty Allowed list accepts anything not blocked.
type GlobFilter struct {
	Allowed []string
	Blocked []string
}

// Check returns an error if args are blocked or not allowed.
func (f *GlobFilter) Check(args []string) error {
	command := strings.Join(args, " ")

	for _, pattern := range f.Blocked {
		if matchGlob(pattern, command) {
			return fmt.Errorf("%q matches blocked pattern %q", command, pattern)
		}
	}

	if len(f.Allowed) == 0 {
		return nil
	}
	for _, pattern := range f.Allowed {
		if matchGlob(pattern, command) {
			return nil
		}
	}
	return fmt.Errorf("%q does not match any allowed pattern", command)
}

func matchGlob(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}

	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]

	for _, middle := range parts[1 : len(parts)-1] {
		index := strings.Index(s, middle)
		if index == -1 {
			return false
		}
		s = s[index+len(middle):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}

var _ Filter = (*GlobFilter)(nil)
