// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package composition

import (
	"fmt"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
	"github.com/gradoffice/examining-committee-service/pkg/errors"
)

// Rule names reported in a RuleViolation
const (
	RuleMinTitulars         = "min-titulars"
	RuleMaxTitulars         = "max-titulars"
	RuleExactlyOnePresident = "exactly-one-president"
	RuleMinExternalTitulars = "min-external-titulars"
	RuleMaxExternalTitulars = "max-external-titulars"
)

// Validator is a composition policy for a set of committee types.
// Implementations must be stateless: Validate has no side effects and returns
// the same result for the same snapshot.
type Validator interface {
	// Name identifies the policy in logs
	Name() string

	// Types lists the committee types the policy applies to
	Types() []model.CommitteeType

	// Validate returns nil when the snapshot satisfies the policy, or a
	// *RuleViolation for the first rule that fails
	Validate(snapshot Snapshot) error
}

// RuleViolation reports a composition constraint that failed. It is a user
// correctable condition and is never retried.
type RuleViolation struct {
	Rule     string `json:"rule"`
	Expected int    `json:"expected"`
	Observed int    `json:"observed"`
}

// Error returns the error message for RuleViolation.
func (v *RuleViolation) Error() string {
	return fmt.Sprintf("composition rule %q violated: expected %d, observed %d", v.Rule, v.Expected, v.Observed)
}

// Unwrap classifies the violation as a validation error.
func (v *RuleViolation) Unwrap() error {
	return errors.NewValidation(fmt.Sprintf("composition rule %s violated", v.Rule))
}

// checkTitulars enforces the total titular bounds.
func checkTitulars(s Snapshot, min, max int) error {
	n := s.NumberOfTitulars()
	if n < min {
		return &RuleViolation{Rule: RuleMinTitulars, Expected: min, Observed: n}
	}
	if n > max {
		return &RuleViolation{Rule: RuleMaxTitulars, Expected: max, Observed: n}
	}
	return nil
}

// checkPresident requires exactly one presiding titular.
func checkPresident(s Snapshot) error {
	if !s.HasExactlyOnePresident() {
		return &RuleViolation{Rule: RuleExactlyOnePresident, Expected: 1, Observed: len(s.presidents)}
	}
	return nil
}

// checkExternalTitulars enforces the external titular bounds.
func checkExternalTitulars(s Snapshot, min, max int) error {
	n := s.NumberOfExternalTitulars()
	if n < min {
		return &RuleViolation{Rule: RuleMinExternalTitulars, Expected: min, Observed: n}
	}
	if n > max {
		return &RuleViolation{Rule: RuleMaxExternalTitulars, Expected: max, Observed: n}
	}
	return nil
}

// checkCommon runs the rules shared by every policy, in order.
func checkCommon(s Snapshot) error {
	if err := checkTitulars(s, constants.MinTitulars, constants.MaxTitulars); err != nil {
		return err
	}
	return checkPresident(s)
}
