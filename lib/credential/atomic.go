// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic writes data to a temporary file beside path, syncs it and
// renames it over path. Readers see the old or the new content.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tempPath := file.Name()

	committed := false
	defer func() {
		if !committed {
			file.Close()
			os.Remove(tempPath)
		}
	}()

	if err := file.Chmod(perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		return err
	}
	committed = true

	if directory, err := os.Open(dir); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}
