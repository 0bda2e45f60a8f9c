// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wardenhq/warden/lib/workdir"
)

// LogFiles are the three log streams of a process started through the
// control plane.
type LogFiles struct {
	Dir      string
	Output   string
	Error    string
	Combined string
}

// LogLayout places per-process log directories under a logs root:
// <root>/<name>/{output,error,combined}.log.
type LogLayout struct {
	root *workdir.Root
}

// NewLogLayout returns a layout rooted at path.
func NewLogLayout(path string) (*LogLayout, error) {
	root, err := workdir.New(path)
	if err != nil {
		return nil, err
	}
	return &LogLayout{root: root}, nil
}

// Files returns the log paths for name without touching the filesystem.
func (l *LogLayout) Files(name string) (LogFiles, error) {
	dir, err := l.root.Join(name)
	if err != nil {
		return LogFiles{}, err
	}
	return LogFiles{
		Dir:      dir,
		Output:   filepath.Join(dir, "output.log"),
		Error:    filepath.Join(dir, "error.log"),
		Combined: filepath.Join(dir, "combined.log"),
	}, nil
}

// Prepare returns the log paths for name, creating its directory.
func (l *LogLayout) Prepare(name string) (LogFiles, error) {
	files, err := l.Files(name)
	if err != nil {
		return LogFiles{}, err
	}
	if err := os.MkdirAll(files.Dir, 0755); err != nil {
		return LogFiles{}, fmt.Errorf("creating log directory: %w", err)
	}
	return files, nil
}

// Remove deletes the log directory for name. Reports false when there
// was nothing to remove.
func (l *LogLayout) Remove(name string) (bool, error) {
	files, err := l.Files(name)
	if err != nil {
		return false, err
	}
	info, err := os.Lstat(files.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s is not a directory", files.Dir)
	}
	if err := os.RemoveAll(files.Dir); err != nil {
		return false, err
	}
	return true, nil
}
