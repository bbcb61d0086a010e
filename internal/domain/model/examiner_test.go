// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
)

func TestNewExaminer(t *testing.T) {
	tests := []struct {
		name        string
		internalID  string
		externalID  string
		want        Examiner
		expectError bool
	}{
		{name: "internal", internalID: "prof-1", want: InternalExaminer("prof-1")},
		{name: "external", externalID: "ext-1", want: ExternalExaminer("ext-1")},
		{name: "trims whitespace", internalID: "  prof-2 ", want: InternalExaminer("prof-2")},
		{name: "both set", internalID: "prof-1", externalID: "ext-1", expectError: true},
		{name: "neither set", expectError: true},
		{name: "only whitespace", internalID: "   ", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewExaminer(tt.internalID, tt.externalID)
			if tt.expectError {
				require.Error(t, err)
				var validation errs.Validation
				assert.True(t, errors.As(err, &validation))
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExaminerAccessors(t *testing.T) {
	internal := InternalExaminer("prof-1")
	assert.True(t, internal.IsInternal())
	assert.False(t, internal.IsExternal())
	assert.Equal(t, "prof-1", internal.InternalID())
	assert.Empty(t, internal.ExternalID())
	assert.Equal(t, AffiliationInternal, internal.Affiliation())
	assert.Equal(t, "internal:prof-1", internal.String())

	external := ExternalExaminer("ext-1")
	assert.True(t, external.IsExternal())
	assert.Equal(t, "ext-1", external.ExternalID())
	assert.Empty(t, external.InternalID())

	var zero Examiner
	assert.True(t, zero.IsZero())
	assert.Error(t, zero.Validate())
	assert.Empty(t, zero.String())
	assert.Error(t, InternalExaminer("").Validate())
}

func TestExaminerJSON(t *testing.T) {
	data, err := json.Marshal(ExternalExaminer("ext-9"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"external_examiner_id":"ext-9"}`, string(data))

	var decoded Examiner
	require.NoError(t, json.Unmarshal([]byte(`{"internal_examiner_id":"prof-3"}`), &decoded))
	assert.Equal(t, InternalExaminer("prof-3"), decoded)

	err = json.Unmarshal([]byte(`{"internal_examiner_id":"a","external_examiner_id":"b"}`), &decoded)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{}`), &decoded)
	assert.Error(t, err)
}
