// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package composition validates who may sit on an examining committee.
//
// A Snapshot is a read-only projection of a member list. Validators are pure
// policies over a snapshot, and the Registry picks the policy that applies
// to a committee type.
package composition

import "github.com/gradoffice/examining-committee-service/internal/domain/model"

// Snapshot is the aggregate view of a committee's composition. It is derived
// on every validation call and never stored.
type Snapshot struct {
	titulars         int
	internalTitulars int
	externalTitulars int
	presidents       []model.CommitteeMember
}

// NewSnapshot computes a snapshot from a member list. Replaced members are
// ignored; alternates are excluded from every titular-based count.
func NewSnapshot(members []model.CommitteeMember) Snapshot {
	var s Snapshot
	for _, m := range members {
		if !m.IsActive() || !m.IsTitular() {
			continue
		}
		s.titulars++
		switch m.Examiner.Affiliation() {
		case model.AffiliationInternal:
			s.internalTitulars++
		case model.AffiliationExternal:
			s.externalTitulars++
		}
		if m.Role == model.RolePresident {
			s.presidents = append(s.presidents, m)
		}
	}
	return s
}

// FromCommittee computes the snapshot of a committee's current members.
func FromCommittee(committee *model.Committee) Snapshot {
	if committee == nil {
		return Snapshot{}
	}
	return NewSnapshot(committee.Members)
}

// NumberOfTitulars counts the titular members.
func (s Snapshot) NumberOfTitulars() int { return s.titulars }

// NumberOfInternalTitulars counts titulars drawn from the home program.
func (s Snapshot) NumberOfInternalTitulars() int { return s.internalTitulars }

// NumberOfExternalTitulars counts titulars from outside the home program.
func (s Snapshot) NumberOfExternalTitulars() int { return s.externalTitulars }

// Presidents returns the titulars holding the president role.
func (s Snapshot) Presidents() []model.CommitteeMember {
	out := make([]model.CommitteeMember, len(s.presidents))
	copy(out, s.presidents)
	return out
}

// HasPresident reports whether at least one titular presides.
func (s Snapshot) HasPresident() bool { return len(s.presidents) > 0 }

// HasExactlyOnePresident reports whether exactly one titular presides.
func (s Snapshot) HasExactlyOnePresident() bool { return len(s.presidents) == 1 }
