// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func TestUnwrap(t *testing.T) {
	rootCause := errors.New("root cause error")

	validationErr := NewValidation("validation failed", rootCause)

	if validationErr.Unwrap() == nil {
		t.Error("Expected unwrapped error to not be nil")
	}

	if !errors.Is(validationErr, rootCause) {
		t.Error("errors.Is should find the root cause in the wrapped error")
	}

	simpleErr := NewValidation("simple error")
	if simpleErr.Unwrap() != nil {
		t.Error("Expected Unwrap to return nil for error with no wrapped cause")
	}
}

func TestUnwrapWithDifferentErrorTypes(t *testing.T) {
	rootCause := errors.New("kv bucket unreachable")

	testCases := []struct {
		name string
		err  error
	}{
		{"Validation", NewValidation("validation error", rootCause)},
		{"NotFound", NewNotFound("not found error", rootCause)},
		{"Conflict", NewConflict("conflict error", rootCause)},
		{"Unexpected", NewUnexpected("unexpected error", rootCause)},
		{"ServiceUnavailable", NewServiceUnavailable("service unavailable", rootCause)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, rootCause) {
				t.Errorf("errors.Is should find root cause in %s error", tc.name)
			}

			type unwrapper interface {
				Unwrap() error
			}

			u, ok := tc.err.(unwrapper)
			if !ok {
				t.Fatalf("%s error should implement Unwrap()", tc.name)
			}
			if !errors.Is(u.Unwrap(), rootCause) {
				t.Errorf("errors.Is should find root cause in unwrapped %s error", tc.name)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewServiceUnavailable("failed to get committee", sql.ErrConnDone)
	want := "failed to get committee: " + sql.ErrConnDone.Error()
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if NewNotFound("committee not found").Error() != "committee not found" {
		t.Error("Error() without cause should be the bare message")
	}
}

func TestIsHelpers(t *testing.T) {
	conflict := fmt.Errorf("saving committee: %w", NewConflict("revision mismatch"))
	if !IsConflict(conflict) {
		t.Error("IsConflict should see through fmt.Errorf wrapping")
	}
	if IsNotFound(conflict) {
		t.Error("a Conflict is not a NotFound")
	}

	notFound := NewNotFound("committee not found", sql.ErrNoRows)
	if !IsNotFound(notFound) {
		t.Error("IsNotFound should match NotFound")
	}
	if !errors.Is(notFound, sql.ErrNoRows) {
		t.Error("errors.Is should find sql.ErrNoRows")
	}

	validation := fmt.Errorf("member 2: %w", NewValidation("examiner is required"))
	if !IsValidation(validation) || IsConflict(validation) {
		t.Error("IsValidation should match only Validation")
	}

	unavailable := NewServiceUnavailable("kv unreachable", errors.New("i/o timeout"))
	if !IsServiceUnavailable(unavailable) || IsServiceUnavailable(notFound) {
		t.Error("IsServiceUnavailable should match only ServiceUnavailable")
	}
}
