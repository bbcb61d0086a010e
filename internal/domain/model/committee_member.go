// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"fmt"
	"time"

	"github.com/gradoffice/examining-committee-service/pkg/errors"
)

// MemberKind separates full evaluating members from alternates
type MemberKind string

// MemberKind values
const (
	MemberKindTitular   MemberKind = "titular"
	MemberKindAlternate MemberKind = "alternate"
)

// MemberRole is the function a member performs during the session
type MemberRole string

// MemberRole values
const (
	RolePresident      MemberRole = "president"
	RoleInternalMember MemberRole = "internal-member"
	RoleExternalMember MemberRole = "external-member"
	RoleAdvisor        MemberRole = "advisor"
	RoleCoAdvisor      MemberRole = "co-advisor"
)

// InvitationStatus is the state of a member's invitation
type InvitationStatus string

// InvitationStatus values
const (
	InvitationPending   InvitationStatus = "pending"
	InvitationSent      InvitationStatus = "sent"
	InvitationConfirmed InvitationStatus = "confirmed"
	InvitationDeclined  InvitationStatus = "declined"
)

// Invitation events
const (
	EventSendInvitation    = "send-invitation"
	EventAcceptInvitation  = "accept-invitation"
	EventDeclineInvitation = "decline-invitation"
)

// ValidMemberRoles returns all valid member role values
func ValidMemberRoles() []MemberRole {
	return []MemberRole{RolePresident, RoleInternalMember, RoleExternalMember, RoleAdvisor, RoleCoAdvisor}
}

// CommitteeMember is a seat on a committee held by one examiner.
// A member is never mutated into another person: replacing a declined member
// adds a new record and links the two through ReplacesUID / ReplacedByUID.
type CommitteeMember struct {
	UID          string `json:"uid"`
	CommitteeUID string `json:"committee_uid"`

	Examiner Examiner   `json:"examiner"`
	Kind     MemberKind `json:"kind"`
	Role     MemberRole `json:"role"`

	InvitationStatus  InvitationStatus `json:"invitation_status"`
	InvitationSentAt  *time.Time       `json:"invitation_sent_at,omitempty"`
	RespondedAt       *time.Time       `json:"responded_at,omitempty"`
	PresentationOrder *int             `json:"presentation_order,omitempty"`
	Notes             string           `json:"notes,omitempty"`

	// Replacement chain
	ReplacesUID   string `json:"replaces_uid,omitempty"`
	ReplacedByUID string `json:"replaced_by_uid,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateBasicFields validates the required fields and enumerations of a member
func (m *CommitteeMember) ValidateBasicFields() error {
	if m.UID == "" {
		return errors.NewValidation("member uid is required")
	}
	if err := m.Examiner.Validate(); err != nil {
		return err
	}
	switch m.Kind {
	case MemberKindTitular, MemberKindAlternate:
	case "":
		return errors.NewValidation("member kind is required")
	default:
		return errors.NewValidation(fmt.Sprintf("invalid member kind: %s (must be titular or alternate)", m.Kind))
	}
	if !isValidRole(m.Role) {
		return errors.NewValidation(fmt.Sprintf("invalid member role: %q. Valid values: %v", m.Role, ValidMemberRoles()))
	}
	if m.PresentationOrder != nil && *m.PresentationOrder < 1 {
		return errors.NewValidation("presentation_order must be a positive number")
	}
	return nil
}

func isValidRole(role MemberRole) bool {
	for _, r := range ValidMemberRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// IsTitular reports whether the member is a full evaluating member.
func (m *CommitteeMember) IsTitular() bool { return m.Kind == MemberKindTitular }

// IsActive reports whether the member still belongs to the composition,
// i.e. it has not been superseded by a replacement.
func (m *CommitteeMember) IsActive() bool { return m.ReplacedByUID == "" }

// IsAvailable reports whether the member confirmed attendance.
func (m *CommitteeMember) IsAvailable() bool { return m.InvitationStatus == InvitationConfirmed }

// RoleMatchesAffiliation reports whether the role is coherent with the
// examiner's affiliation. Only the two roles that name an affiliation are
// checked; composition policies do not enforce this.
func (m *CommitteeMember) RoleMatchesAffiliation() bool {
	switch m.Role {
	case RoleInternalMember:
		return m.Examiner.IsInternal()
	case RoleExternalMember:
		return m.Examiner.IsExternal()
	default:
		return true
	}
}

// SendInvitation moves the invitation from pending to sent.
func (m *CommitteeMember) SendInvitation(now time.Time) error {
	if m.InvitationStatus != InvitationPending {
		return &TransitionError{
			From:   string(m.InvitationStatus),
			Event:  EventSendInvitation,
			Reason: "invitation can only be sent while pending",
		}
	}
	m.InvitationStatus = InvitationSent
	m.InvitationSentAt = &now
	m.RespondedAt = nil
	m.UpdatedAt = now
	return nil
}

// AcceptInvitation records that the examiner confirmed attendance.
func (m *CommitteeMember) AcceptInvitation(now time.Time) error {
	return m.respond(InvitationConfirmed, EventAcceptInvitation, now)
}

// DeclineInvitation records that the examiner declined.
func (m *CommitteeMember) DeclineInvitation(now time.Time) error {
	return m.respond(InvitationDeclined, EventDeclineInvitation, now)
}

func (m *CommitteeMember) respond(to InvitationStatus, event string, now time.Time) error {
	if m.InvitationStatus != InvitationSent {
		return &TransitionError{
			From:   string(m.InvitationStatus),
			Event:  event,
			Reason: "only a sent invitation can be answered",
		}
	}
	m.InvitationStatus = to
	m.RespondedAt = &now
	m.UpdatedAt = now
	return nil
}

// ResetInvitation puts the invitation back to pending, dropping any previous answer.
func (m *CommitteeMember) ResetInvitation(now time.Time) {
	m.InvitationStatus = InvitationPending
	m.InvitationSentAt = nil
	m.RespondedAt = nil
	m.UpdatedAt = now
}
