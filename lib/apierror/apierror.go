// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package apierror classifies failures surfaced to operators so the
// HTTP layer can pick a status code without parsing message text.
//
// Handlers and the packages they call return *Error values built with
// the category constructors (Validation, NotFound, ...). The HTTP layer
// calls Status on whatever error reaches it; anything that is not an
// *Error is treated as internal.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies an error for programmatic handling.
type Category string

const (
	// CategoryValidation: malformed or disallowed input. Fix and retry.
	CategoryValidation Category = "validation"

	// CategoryUnauthorized: credentials are missing or wrong.
	CategoryUnauthorized Category = "unauthorized"

	// CategoryForbidden: credentials were presented but are not
	// acceptable (expired token, path outside the managed root,
	// repository not on the allow-list).
	CategoryForbidden Category = "forbidden"

	// CategoryNotFound: a referenced file, process or directory does
	// not exist.
	CategoryNotFound Category = "not_found"

	// CategoryConflict: the operation collides with existing state,
	// e.g. a clone target directory already exists.
	CategoryConflict Category = "conflict"

	// CategoryExternalTool: an external tool exited nonzero or could
	// not be spawned. Detail carries the captured stderr.
	CategoryExternalTool Category = "external_tool"

	// CategoryTimeout: an external tool exceeded its time budget and
	// was killed.
	CategoryTimeout Category = "timeout"

	// CategoryInternal: persistence failures and bugs.
	CategoryInternal Category = "internal"
)

// Error is a categorized error. Err carries the human-readable message
// shown to the operator. Detail is optional diagnostic output (raw
// stderr of an external tool) and is only ever set for tool failures.
type Error struct {
	Category Category
	Err      error
	Detail   string
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the category.
func (e *Error) Status() int {
	switch e.Category {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryForbidden:
		return http.StatusForbidden
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail returns e with diagnostic detail attached.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// Validation creates a validation error.
func Validation(format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// Unauthorized creates an authentication error.
func Unauthorized(format string, args ...any) *Error {
	return &Error{Category: CategoryUnauthorized, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *Error {
	return &Error{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// ExternalTool creates an external tool failure.
func ExternalTool(format string, args ...any) *Error {
	return &Error{Category: CategoryExternalTool, Err: fmt.Errorf(format, args...)}
}

// Timeout creates a tool timeout error.
func Timeout(format string, args ...any) *Error {
	return &Error{Category: CategoryTimeout, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *Error {
	return &Error{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// As extracts an *Error from err's chain. Errors without a category are
// wrapped as internal so callers always get a usable value.
func As(err error) *Error {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized
	}
	return &Error{Category: CategoryInternal, Err: err}
}

// Status returns the HTTP status code for any error.
func Status(err error) int {
	return As(err).Status()
}

// Is reports whether err carries the given category.
func Is(err error, category Category) bool {
	var categorized *Error
	return errors.As(err, &categorized) && categorized.Category == category
}
