// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

import "errors"

// Validation represents a request that cannot be applied as given and must be corrected by the caller.
type Validation struct {
	base
}

// Error returns the error message for Validation.
func (v Validation) Error() string {
	return v.error()
}

// NewValidation creates a new Validation error with the provided message.
func NewValidation(message string, err ...error) Validation {
	return Validation{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// NotFound represents a missing committee, member or directory entry.
type NotFound struct {
	base
}

// Error returns the error message for NotFound.
func (nf NotFound) Error() string {
	return nf.error()
}

// NewNotFound creates a new NotFound error with the provided message.
func NewNotFound(message string, err ...error) NotFound {
	return NotFound{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// Conflict represents a write that lost against a concurrent one (stale revision)
// or that would break a uniqueness constraint.
type Conflict struct {
	base
}

// Error returns the error message for Conflict.
func (c Conflict) Error() string {
	return c.error()
}

// NewConflict creates a new Conflict error with the provided message.
func NewConflict(message string, err ...error) Conflict {
	return Conflict{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// IsConflict reports whether err, or any error it wraps, is a Conflict.
func IsConflict(err error) bool {
	var conflict Conflict
	return errors.As(err, &conflict)
}

// IsNotFound reports whether err, or any error it wraps, is a NotFound.
func IsNotFound(err error) bool {
	var notFound NotFound
	return errors.As(err, &notFound)
}

// IsValidation reports whether err, or any error it wraps, is a Validation.
func IsValidation(err error) bool {
	var validation Validation
	return errors.As(err, &validation)
}
