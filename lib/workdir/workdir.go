// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package workdir confines operator-supplied directories to the managed
// apps root.
package workdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wardenhq/warden/lib/apierror"
)

// Root is a managed directory that jobs may run inside.
type Root struct {
	path string
}

// New returns a Root for path, which is made absolute and cleaned.
func New(path string) (*Root, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving managed root %q: %w", path, err)
	}
	return &Root{path: absolute}, nil
}

// Path returns the absolute root path.
func (r *Root) Path() string { return r.path }

// Ensure creates the root if it is missing.
func (r *Root) Ensure() error {
	return os.MkdirAll(r.path, 0755)
}

// Join returns the path of an immediate child named name. name must be
// a single path element.
func (r *Root) Join(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) {
		return "", apierror.Validation("invalid directory name %q", name)
	}
	return filepath.Join(r.path, name), nil
}

// Resolve maps an operator-supplied directory, relative to the root, to
// an existing directory strictly inside the root. Symlinks are
// followed before the containment check so a link inside the root
// cannot point outside it.
func (r *Root) Resolve(directory string) (string, error) {
	if strings.TrimSpace(directory) == "" {
		return "", apierror.Validation("Directory is required")
	}

	target := filepath.Join(r.path, directory)
	if filepath.IsAbs(directory) {
		target = filepath.Clean(directory)
	}
	if !r.contains(target) {
		return "", apierror.Forbidden("Directory must be within apps folder")
	}

	info, err := os.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return "", apierror.NotFound("Directory not found")
	}
	if err != nil {
		return "", apierror.Internal("checking directory: %w", err)
	}
	if !info.IsDir() {
		return "", apierror.Validation("Path is not a directory")
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", apierror.Internal("resolving directory: %w", err)
	}
	root, err := filepath.EvalSymlinks(r.path)
	if err != nil {
		return "", apierror.Internal("resolving managed root: %w", err)
	}
	if !within(root, resolved) {
		return "", apierror.Forbidden("Directory must be within apps folder")
	}
	return resolved, nil
}

// RequireMarker checks that dir contains the named entry, returning a
// validation error with message otherwise.
func RequireMarker(dir, marker, message string) error {
	if _, err := os.Stat(filepath.Join(dir, marker)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apierror.Validation("%s", message)
		}
		return apierror.Internal("checking %s: %w", marker, err)
	}
	return nil
}

func (r *Root) contains(target string) bool {
	return within(r.path, target)
}

// within reports whether target is strictly below root. The root itself
// does not count.
func within(root, target string) bool {
	relative, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return relative != "." && relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator))
}
