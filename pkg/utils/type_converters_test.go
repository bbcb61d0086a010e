// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntPtrToNullable(t *testing.T) {
	tests := []struct {
		name     string
		input    *int
		expected any
	}{
		{name: "nil pointer stays nil", input: nil, expected: nil},
		{name: "value converts to int64", input: IntPtr(3), expected: int64(3)},
		{name: "zero value is kept", input: IntPtr(0), expected: int64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IntPtrToNullable(tt.input))
		})
	}
}

func TestNullableToIntPtr(t *testing.T) {
	assert.Nil(t, NullableToIntPtr(nil))

	v := int64(7)
	result := NullableToIntPtr(&v)
	if assert.NotNil(t, result) {
		assert.Equal(t, 7, *result)
	}

	v = 8
	assert.Equal(t, 7, *result, "result must not alias the input")
}
