// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package composition

import "github.com/gradoffice/examining-committee-service/internal/domain/model"

// External titular bounds for defenses: outside evaluation is mandatory
const (
	defenseMinExternalTitulars = 1
	defenseMaxExternalTitulars = 2
)

// DefensePolicy governs thesis and dissertation defenses.
// Titulars in [3,5], external titulars in [1,2], exactly one president.
type DefensePolicy struct{}

var _ Validator = DefensePolicy{}

// Name implements Validator.
func (DefensePolicy) Name() string { return "defense" }

// Types implements Validator.
func (DefensePolicy) Types() []model.CommitteeType {
	return []model.CommitteeType{
		model.TypeDefenseMasters,
		model.TypeDefenseDoctorate,
		model.TypeDefenseDirectDoctorate,
	}
}

// Validate implements Validator.
func (DefensePolicy) Validate(s Snapshot) error {
	if err := checkCommon(s); err != nil {
		return err
	}
	return checkExternalTitulars(s, defenseMinExternalTitulars, defenseMaxExternalTitulars)
}

// QualificationPolicy governs qualification exams.
// Titulars in [3,5], exactly one president; an all-internal committee is allowed.
type QualificationPolicy struct{}

var _ Validator = QualificationPolicy{}

// Name implements Validator.
func (QualificationPolicy) Name() string { return "qualification" }

// Types implements Validator.
func (QualificationPolicy) Types() []model.CommitteeType {
	return []model.CommitteeType{
		model.TypeQualificationMasters,
		model.TypeQualificationDoctorate,
	}
}

// Validate implements Validator.
func (QualificationPolicy) Validate(s Snapshot) error {
	if err := checkCommon(s); err != nil {
		return err
	}
	return checkExternalTitulars(s, 0, s.NumberOfTitulars())
}
