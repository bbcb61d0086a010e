// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package model defines the domain models and entities for the examining committee service.
package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gradoffice/examining-committee-service/pkg/errors"
)

// CommitteeType is the kind of examination a committee holds
type CommitteeType string

// Committee types
const (
	TypeQualificationMasters   CommitteeType = "qualification-masters"
	TypeQualificationDoctorate CommitteeType = "qualification-doctorate"
	TypeDefenseMasters         CommitteeType = "defense-masters"
	TypeDefenseDoctorate       CommitteeType = "defense-doctorate"
	TypeDefenseDirectDoctorate CommitteeType = "defense-direct-doctorate"
	TypeProficiencyExam        CommitteeType = "proficiency-exam"
)

// ValidCommitteeTypes returns all committee types known to the domain.
// Knowing a type does not imply a composition policy exists for it.
func ValidCommitteeTypes() []CommitteeType {
	return []CommitteeType{
		TypeQualificationMasters,
		TypeQualificationDoctorate,
		TypeDefenseMasters,
		TypeDefenseDoctorate,
		TypeDefenseDirectDoctorate,
		TypeProficiencyExam,
	}
}

// IsValid reports whether t is a known committee type
func (t CommitteeType) IsValid() bool {
	for _, v := range ValidCommitteeTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// CommitteeStatus is the lifecycle state of a committee
type CommitteeStatus string

// Committee statuses
const (
	StatusScheduled CommitteeStatus = "scheduled"
	StatusConfirmed CommitteeStatus = "confirmed"
	StatusRealized  CommitteeStatus = "realized"
	StatusCancelled CommitteeStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible
func (s CommitteeStatus) IsTerminal() bool {
	return s == StatusRealized || s == StatusCancelled
}

// CommitteeResult is the outcome recorded once the committee convened
type CommitteeResult string

// Committee results
const (
	ResultApproved              CommitteeResult = "approved"
	ResultApprovedWithRevisions CommitteeResult = "approved-with-revisions"
	ResultRejected              CommitteeResult = "rejected"
)

// IsValid reports whether r is a known result
func (r CommitteeResult) IsValid() bool {
	switch r {
	case ResultApproved, ResultApprovedWithRevisions, ResultRejected:
		return true
	}
	return false
}

// CommitteeMode is how the session is held
type CommitteeMode string

// Committee modes
const (
	ModeInPerson CommitteeMode = "in-person"
	ModeRemote   CommitteeMode = "remote"
	ModeHybrid   CommitteeMode = "hybrid"
)

// IsValid reports whether m is a known mode
func (m CommitteeMode) IsValid() bool {
	switch m {
	case ModeInPerson, ModeRemote, ModeHybrid:
		return true
	}
	return false
}

// StatusChange is one entry of a committee's lifecycle history
type StatusChange struct {
	From   CommitteeStatus `json:"from,omitempty"`
	To     CommitteeStatus `json:"to"`
	Event  string          `json:"event"`
	Reason string          `json:"reason,omitempty"`
	At     time.Time       `json:"at"`
}

// Committee is the examination committee aggregate. It owns its members:
// they are loaded, validated and stored together with it.
type Committee struct {
	UID          string        `json:"uid"`
	CandidateUID string        `json:"candidate_uid"`
	ProgramUID   string        `json:"program_uid,omitempty"`
	Title        string        `json:"title,omitempty"` // thesis or dissertation title
	Type         CommitteeType `json:"type"`
	Iteration    int           `json:"iteration"` // 1 for the first attempt of this type

	ScheduledAt time.Time     `json:"scheduled_at"`
	Location    string        `json:"location,omitempty"`
	Mode        CommitteeMode `json:"mode"`

	Status             CommitteeStatus `json:"status"`
	Result             CommitteeResult `json:"result,omitempty"`
	MinutesDocumentRef string          `json:"minutes_document_ref,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	RescheduleCount    int             `json:"reschedule_count"`

	Members []CommitteeMember `json:"members"`
	History []StatusChange    `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateBasicFields validates the required fields and formats of the committee
// itself. Composition rules are checked separately by the composition policies.
func (c *Committee) ValidateBasicFields() error {
	if c.CandidateUID == "" {
		return errors.NewValidation("candidate_uid is required")
	}
	if c.Type == "" {
		return errors.NewValidation("type is required")
	}
	if !c.Type.IsValid() {
		return errors.NewValidation(fmt.Sprintf("invalid committee type: %s. Valid values: %v", c.Type, ValidCommitteeTypes()))
	}
	if c.Iteration < 1 {
		return errors.NewValidation("iteration must be at least 1")
	}
	if c.ScheduledAt.IsZero() {
		return errors.NewValidation("scheduled_at is required")
	}
	if !c.Mode.IsValid() {
		return errors.NewValidation("mode must be 'in-person', 'remote', or 'hybrid'")
	}
	if c.Mode != ModeRemote && strings.TrimSpace(c.Location) == "" {
		return errors.NewValidation("location is required for in-person and hybrid committees")
	}

	seen := make(map[string]struct{}, len(c.Members))
	for i := range c.Members {
		member := &c.Members[i]
		if err := member.ValidateBasicFields(); err != nil {
			return err
		}
		if _, dup := seen[member.UID]; dup {
			return errors.NewValidation(fmt.Sprintf("duplicate member uid: %s", member.UID))
		}
		seen[member.UID] = struct{}{}
	}
	return nil
}

// ActiveMembers returns the members that make up the current composition,
// in committee order. Replaced members are left out.
func (c *Committee) ActiveMembers() []CommitteeMember {
	active := make([]CommitteeMember, 0, len(c.Members))
	for _, m := range c.Members {
		if m.IsActive() {
			active = append(active, m)
		}
	}
	return active
}

// Member returns the member with the given UID and its index, or nil and -1.
func (c *Committee) Member(uid string) (*CommitteeMember, int) {
	for i := range c.Members {
		if c.Members[i].UID == uid {
			return &c.Members[i], i
		}
	}
	return nil, -1
}

// Clone returns a deep copy of the committee, so candidate changes can be
// validated without touching the original.
func (c *Committee) Clone() *Committee {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Members = make([]CommitteeMember, len(c.Members))
	copy(clone.Members, c.Members)
	for i := range clone.Members {
		if order := c.Members[i].PresentationOrder; order != nil {
			v := *order
			clone.Members[i].PresentationOrder = &v
		}
	}
	clone.History = append([]StatusChange(nil), c.History...)
	return &clone
}

// BuildIndexKey generates a SHA-256 hash for the (candidate, type, iteration)
// uniqueness constraint.
func (c *Committee) BuildIndexKey(ctx context.Context) string {
	candidate := strings.TrimSpace(strings.ToLower(c.CandidateUID))
	data := fmt.Sprintf("%s|%s|%d", candidate, c.Type, c.Iteration)

	hash := sha256.Sum256([]byte(data))
	key := hex.EncodeToString(hash[:])

	slog.DebugContext(ctx, "committee index key built",
		"candidate_uid", c.CandidateUID,
		"type", c.Type,
		"iteration", c.Iteration,
		"key", key,
	)

	return key
}

// Tags generates a consistent set of tags for the committee.
func (c *Committee) Tags() []string {
	if c == nil {
		return nil
	}

	var tags []string

	if c.UID != "" {
		tags = append(tags, c.UID, fmt.Sprintf("committee_uid:%s", c.UID))
	}
	if c.CandidateUID != "" {
		tags = append(tags, fmt.Sprintf("candidate_uid:%s", c.CandidateUID))
	}
	if c.ProgramUID != "" {
		tags = append(tags, fmt.Sprintf("program_uid:%s", c.ProgramUID))
	}
	if c.Type != "" {
		tags = append(tags, fmt.Sprintf("type:%s", c.Type))
	}
	if c.Status != "" {
		tags = append(tags, fmt.Sprintf("status:%s", c.Status))
	}

	return tags
}
