// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitError carries an explicit exit status out of run(). Use it for
// outcomes that are not failures of the binary itself, such as a
// confirmation prompt the operator declined.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the status main should exit with for err: 0 for
// nil, the code of an *ExitError in its chain, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	return 1
}

// Fatal writes "error: err" to stderr and exits with ExitCode(err).
// Use it in main() for errors from run(), where the structured logger
// may not be initialized.
func Fatal(err error) {
	report(os.Stderr, err)
	os.Exit(ExitCode(err))
}

func report(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
