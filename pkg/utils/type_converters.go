// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// IntPtrToNullable converts an optional int into a value suitable for a
// nullable database column: nil stays nil.
func IntPtrToNullable(val *int) any {
	if val == nil {
		return nil
	}
	return int64(*val)
}

// NullableToIntPtr converts a nullable integer column back into an optional int.
func NullableToIntPtr(val *int64) *int {
	if val == nil {
		return nil
	}
	v := int(*val)
	return &v
}
