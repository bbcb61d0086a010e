// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package errors provides the typed error family shared by the committee service layers.
package errors

import "fmt"

// base holds the message and the wrapped cause common to every error type
type base struct {
	message string
	err     error
}

// error renders the message, followed by the cause when there is one.
// Every error type embedding base formats itself through this method.
func (b base) error() string {
	if b.err == nil {
		return b.message
	}
	return fmt.Sprintf("%s: %v", b.message, b.err)
}

// Unwrap exposes the underlying error to support errors.Is / errors.As.
func (b base) Unwrap() error {
	return b.err
}
