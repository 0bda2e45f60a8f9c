// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFromPath_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "password")
	if err := os.WriteFile(path, []byte("  correct horse \n"), 0600); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath: %v", err)
	}
	defer buffer.Close()
	if buffer.String() != "correct horse" {
		t.Errorf("ReadFromPath() = %q, want %q", buffer.String(), "correct horse")
	}
}

func TestReadFromPath_Missing(t *testing.T) {
	if _, err := ReadFromPath(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadFromPath_WhitespaceOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank")
	if err := os.WriteFile(path, []byte(" \n\t\n"), 0600); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	if _, err := ReadFromPath(path); err == nil {
		t.Fatal("expected error for whitespace-only file")
	}
}

func TestReadLine_FirstLineOnly(t *testing.T) {
	buffer, err := readLine(strings.NewReader("first\nsecond\n"))
	if err != nil {
		t.Fatalf("readLine: %v", err)
	}
	defer buffer.Close()
	if buffer.String() != "first" {
		t.Errorf("readLine() = %q, want %q", buffer.String(), "first")
	}
}

func TestReadLine_Empty(t *testing.T) {
	if _, err := readLine(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadFromTerminal_NotATerminal(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "notatty")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer file.Close()

	var prompt bytes.Buffer
	_, err = ReadFromTerminal(int(file.Fd()), &prompt, "Password: ")
	if err == nil {
		t.Fatal("expected error when fd is not a terminal")
	}
	if prompt.Len() != 0 {
		t.Errorf("prompt written for non-terminal: %q", prompt.String())
	}
}
