// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ReadFromPath reads a secret from path, or the first line of stdin when
// path is "-". Surrounding whitespace is trimmed. An empty secret is an
// error.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return readLine(os.Stdin)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return trimmedBuffer(data)
}

// ReadFromTerminal prompts on out and reads a secret from the terminal
// at fd with echo disabled. Fails when fd is not a terminal so callers
// can fall back to a file.
func ReadFromTerminal(fd int, out io.Writer, prompt string) (*Buffer, error) {
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal; use a password file")
	}

	fmt.Fprint(out, prompt)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return trimmedBuffer(data)
}

func readLine(reader io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return nil, fmt.Errorf("stdin is empty")
	}
	return trimmedBuffer(scanner.Bytes())
}

func trimmedBuffer(data []byte) (*Buffer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret is empty")
	}

	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}
