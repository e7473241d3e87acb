// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
)

// usageError is an error the operator can fix by changing flags or
// configuration. It exits with status 2 and may carry a hint.
type usageError struct {
	err  error
	hint string
}

func usage(format string, args ...any) *usageError {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// WithHint attaches a suggestion printed after the error.
func (e *usageError) WithHint(hint string) *usageError {
	e.hint = hint
	return e
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func errorHint(err error) string {
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		return usageErr.hint
	}
	return ""
}

func exitCode(err error) int {
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		return 2
	}
	return 1
}
