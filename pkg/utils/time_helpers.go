// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package utils holds small helpers shared by the committee service layers.
package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/gradoffice/examining-committee-service/pkg/constants"
)

// ParseTime reads an RFC3339 timestamp, with or without a fraction.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New(constants.ErrEmptyTimestamp)
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", constants.ErrInvalidTimestampFormat, err)
	}
	return t, nil
}

// ParseTimePtr is ParseTime for optional columns; nil and "" give nil
func ParseTimePtr(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := ParseTime(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatTime renders t in UTC for display.
func FormatTime(t time.Time) string {
	return t.UTC().Format(constants.TimestampFormat)
}

// FormatTimePtr is FormatTime for optional values.
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// StorageTime renders t in the sortable storage layout. Precision below a
// microsecond is dropped.
func StorageTime(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(constants.StorageTimestampFormat)
}

// StorageTimePtr is StorageTime for optional values.
func StorageTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := StorageTime(*t)
	return &s
}
