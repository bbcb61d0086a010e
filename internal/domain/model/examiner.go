// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/json"
	"strings"

	"github.com/gradoffice/examining-committee-service/pkg/errors"
)

// Affiliation tells whether an examiner belongs to the home program's faculty
type Affiliation string

// Affiliation values
const (
	AffiliationInternal Affiliation = "internal"
	AffiliationExternal Affiliation = "external"
)

// Examiner references the person sitting on a committee. It is either an
// internal examiner or an external one, never both and never neither; the
// zero value is invalid and is rejected by Validate.
type Examiner struct {
	affiliation Affiliation
	id          string
}

// InternalExaminer references a faculty member of the home program.
func InternalExaminer(id string) Examiner {
	return Examiner{affiliation: AffiliationInternal, id: strings.TrimSpace(id)}
}

// ExternalExaminer references an examiner from outside the home program.
func ExternalExaminer(id string) Examiner {
	return Examiner{affiliation: AffiliationExternal, id: strings.TrimSpace(id)}
}

// NewExaminer builds an Examiner from the two nullable identifiers used by
// storage rows and proposal files. Exactly one of them must be set.
func NewExaminer(internalID, externalID string) (Examiner, error) {
	internalID = strings.TrimSpace(internalID)
	externalID = strings.TrimSpace(externalID)

	switch {
	case internalID != "" && externalID != "":
		return Examiner{}, errors.NewValidation("examiner must be either internal or external, not both")
	case internalID != "":
		return InternalExaminer(internalID), nil
	case externalID != "":
		return ExternalExaminer(externalID), nil
	default:
		return Examiner{}, errors.NewValidation("examiner is required: set internal_examiner_id or external_examiner_id")
	}
}

// Affiliation returns the examiner's affiliation tag.
func (e Examiner) Affiliation() Affiliation { return e.affiliation }

// ID returns the directory identifier of the examiner.
func (e Examiner) ID() string { return e.id }

// IsInternal reports whether the examiner is internal.
func (e Examiner) IsInternal() bool { return e.affiliation == AffiliationInternal }

// IsExternal reports whether the examiner is external.
func (e Examiner) IsExternal() bool { return e.affiliation == AffiliationExternal }

// IsZero reports whether no examiner has been set.
func (e Examiner) IsZero() bool { return e.affiliation == "" && e.id == "" }

// InternalID returns the id when internal, "" otherwise.
func (e Examiner) InternalID() string {
	if e.IsInternal() {
		return e.id
	}
	return ""
}

// ExternalID returns the id when external, "" otherwise.
func (e Examiner) ExternalID() string {
	if e.IsExternal() {
		return e.id
	}
	return ""
}

// Validate checks that the examiner carries a known tag and an identifier.
func (e Examiner) Validate() error {
	if e.affiliation != AffiliationInternal && e.affiliation != AffiliationExternal {
		return errors.NewValidation("examiner is required: set internal_examiner_id or external_examiner_id")
	}
	if e.id == "" {
		return errors.NewValidation("examiner id is required")
	}
	return nil
}

// String renders the examiner as "affiliation:id" for logs.
func (e Examiner) String() string {
	if e.IsZero() {
		return ""
	}
	return string(e.affiliation) + ":" + e.id
}

type examinerJSON struct {
	InternalExaminerID string `json:"internal_examiner_id,omitempty"`
	ExternalExaminerID string `json:"external_examiner_id,omitempty"`
}

// MarshalJSON writes exactly one of internal_examiner_id / external_examiner_id.
func (e Examiner) MarshalJSON() ([]byte, error) {
	return json.Marshal(examinerJSON{
		InternalExaminerID: e.InternalID(),
		ExternalExaminerID: e.ExternalID(),
	})
}

// UnmarshalJSON rejects payloads carrying both identifiers or neither.
func (e *Examiner) UnmarshalJSON(data []byte) error {
	var raw examinerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	examiner, err := NewExaminer(raw.InternalExaminerID, raw.ExternalExaminerID)
	if err != nil {
		return err
	}
	*e = examiner
	return nil
}
