// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

const (
	// TimestampFormat renders timestamps for people: RFC3339, fraction only when present
	TimestampFormat = "2006-01-02T15:04:05.999999999Z07:00"
	// StorageTimestampFormat is fixed width UTC with microseconds so stored values sort as text
	StorageTimestampFormat = "2006-01-02T15:04:05.000000Z"
)

// Timestamp parse errors
const (
	ErrInvalidTimestampFormat = "timestamp is not RFC3339"
	ErrEmptyTimestamp         = "empty timestamp"
)

// Committee sizing shared by every composition policy
const (
	MinTitulars = 3
	MaxTitulars = 5
)
