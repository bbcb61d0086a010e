// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/gradoffice/examining-committee-service/pkg/errors"
)

// Committee events
const (
	EventCreate        = "create"
	EventChangeMembers = "change-members"
	EventChangeType    = "change-type"
	EventConfirm       = "confirm"
	EventRealize       = "realize"
	EventCancel        = "cancel"
	EventReschedule    = "reschedule"
)

// CompositionChecker validates a committee's active members against the
// composition policy of its type.
type CompositionChecker interface {
	Check(committee *Committee) error
}

// TransitionError is returned when an event is not allowed from the current
// state, or its preconditions do not hold. Nothing is changed when it is returned.
type TransitionError struct {
	From   string
	Event  string
	Reason string
}

// Error returns the error message for TransitionError.
func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s from status %q", e.Event, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap classifies the transition error as a validation error.
func (e *TransitionError) Unwrap() error {
	return errors.NewValidation(e.Reason)
}

func (c *Committee) transitionError(event, reason string) error {
	return &TransitionError{From: string(c.Status), Event: event, Reason: reason}
}

func (c *Committee) record(to CommitteeStatus, event, reason string, now time.Time) {
	c.History = append(c.History, StatusChange{
		From:   c.Status,
		To:     to,
		Event:  event,
		Reason: reason,
		At:     now,
	})
	c.Status = to
	c.UpdatedAt = now
}

// Open initialises a new committee: status scheduled, every member pending.
func (c *Committee) Open(checker CompositionChecker, now time.Time) error {
	if err := c.ValidateBasicFields(); err != nil {
		return err
	}
	candidate := c.Clone()
	for i := range candidate.Members {
		candidate.Members[i].CommitteeUID = c.UID
		candidate.Members[i].ReplacedByUID = ""
		candidate.Members[i].ReplacesUID = ""
		candidate.Members[i].CreatedAt = now
		candidate.Members[i].ResetInvitation(now)
	}
	if err := checker.Check(candidate); err != nil {
		return err
	}

	c.Members = candidate.Members
	c.Status = ""
	c.History = nil
	c.Result = ""
	c.MinutesDocumentRef = ""
	c.CancellationReason = ""
	c.RescheduleCount = 0
	c.CreatedAt = now
	c.record(StatusScheduled, EventCreate, "", now)
	return nil
}

// changeMembers applies a membership change to a copy of the committee,
// validates the copy, and only then adopts the new member list.
func (c *Committee) changeMembers(checker CompositionChecker, now time.Time, apply func(candidate *Committee) error) error {
	if c.Status != StatusScheduled {
		return c.transitionError(EventChangeMembers, "membership can only change while the committee is scheduled")
	}

	candidate := c.Clone()
	if err := apply(candidate); err != nil {
		return err
	}
	if err := candidate.ValidateBasicFields(); err != nil {
		return err
	}
	if err := checker.Check(candidate); err != nil {
		return err
	}

	c.Members = candidate.Members
	c.UpdatedAt = now
	return nil
}

// ProposeMembers replaces the whole composition with a new proposal.
// Every proposed member starts pending.
func (c *Committee) ProposeMembers(members []CommitteeMember, checker CompositionChecker, now time.Time) error {
	return c.changeMembers(checker, now, func(candidate *Committee) error {
		proposed := make([]CommitteeMember, len(members))
		copy(proposed, members)
		for i := range proposed {
			proposed[i].CommitteeUID = c.UID
			proposed[i].ReplacesUID = ""
			proposed[i].ReplacedByUID = ""
			proposed[i].CreatedAt = now
			proposed[i].ResetInvitation(now)
		}
		candidate.Members = proposed
		return nil
	})
}

// AddMember appends a new pending member to the composition.
func (c *Committee) AddMember(member CommitteeMember, checker CompositionChecker, now time.Time) error {
	return c.changeMembers(checker, now, func(candidate *Committee) error {
		member.CommitteeUID = c.UID
		member.ReplacesUID = ""
		member.ReplacedByUID = ""
		member.CreatedAt = now
		member.ResetInvitation(now)
		candidate.Members = append(candidate.Members, member)
		return nil
	})
}

// RemoveMember drops an active member from the composition.
func (c *Committee) RemoveMember(memberUID string, checker CompositionChecker, now time.Time) error {
	return c.changeMembers(checker, now, func(candidate *Committee) error {
		member, idx := candidate.Member(memberUID)
		if member == nil {
			return errors.NewNotFound(fmt.Sprintf("member %s not found in committee", memberUID))
		}
		if !member.IsActive() {
			return errors.NewValidation(fmt.Sprintf("member %s was replaced and is kept as history", memberUID))
		}
		candidate.Members = append(candidate.Members[:idx], candidate.Members[idx+1:]...)
		return nil
	})
}

// ReplaceMember substitutes a member who declined the invitation. The
// declined record is kept and linked to its replacement. Kind and role are
// inherited from the declined member when the replacement leaves them empty.
func (c *Committee) ReplaceMember(memberUID string, replacement CommitteeMember, checker CompositionChecker, now time.Time) error {
	return c.changeMembers(checker, now, func(candidate *Committee) error {
		old, _ := candidate.Member(memberUID)
		if old == nil {
			return errors.NewNotFound(fmt.Sprintf("member %s not found in committee", memberUID))
		}
		if !old.IsActive() {
			return errors.NewValidation(fmt.Sprintf("member %s was already replaced", memberUID))
		}
		if old.InvitationStatus != InvitationDeclined {
			return errors.NewValidation(fmt.Sprintf("member %s can only be replaced after declining", memberUID))
		}

		if replacement.Kind == "" {
			replacement.Kind = old.Kind
		}
		if replacement.Role == "" {
			replacement.Role = old.Role
		}
		replacement.CommitteeUID = c.UID
		replacement.ReplacesUID = old.UID
		replacement.ReplacedByUID = ""
		replacement.CreatedAt = now
		replacement.ResetInvitation(now)

		old.ReplacedByUID = replacement.UID
		old.UpdatedAt = now
		candidate.Members = append(candidate.Members, replacement)
		return nil
	})
}

// ChangeType switches the committee to another type, re-validating the
// current composition against the new type's policy.
func (c *Committee) ChangeType(committeeType CommitteeType, checker CompositionChecker, now time.Time) error {
	if c.Status != StatusScheduled {
		return c.transitionError(EventChangeType, "type can only change while the committee is scheduled")
	}
	if !committeeType.IsValid() {
		return errors.NewValidation(fmt.Sprintf("invalid committee type: %s", committeeType))
	}

	candidate := c.Clone()
	candidate.Type = committeeType
	if err := checker.Check(candidate); err != nil {
		return err
	}

	c.Type = committeeType
	c.UpdatedAt = now
	return nil
}

// activeMember returns an active member or an error naming why it cannot be used.
func (c *Committee) activeMember(memberUID string) (*CommitteeMember, error) {
	member, _ := c.Member(memberUID)
	if member == nil {
		return nil, errors.NewNotFound(fmt.Sprintf("member %s not found in committee", memberUID))
	}
	if !member.IsActive() {
		return nil, errors.NewValidation(fmt.Sprintf("member %s was replaced and is kept as history", memberUID))
	}
	return member, nil
}

// SendInvitation marks a member's invitation as sent. Delivery itself happens
// outside the domain.
func (c *Committee) SendInvitation(memberUID string, now time.Time) error {
	if c.Status.IsTerminal() {
		return c.transitionError(EventSendInvitation, "committee is closed")
	}
	member, err := c.activeMember(memberUID)
	if err != nil {
		return err
	}
	if err := member.SendInvitation(now); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

// RecordInvitationReply applies an examiner's answer to their invitation.
func (c *Committee) RecordInvitationReply(memberUID string, accepted bool, now time.Time) error {
	event := EventDeclineInvitation
	if accepted {
		event = EventAcceptInvitation
	}
	if c.Status.IsTerminal() {
		return c.transitionError(event, "committee is closed")
	}
	member, err := c.activeMember(memberUID)
	if err != nil {
		return err
	}
	if accepted {
		err = member.AcceptInvitation(now)
	} else {
		err = member.DeclineInvitation(now)
	}
	if err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

// Confirm moves a scheduled committee to confirmed. Every active titular must
// have confirmed attendance and the composition must satisfy the type policy.
func (c *Committee) Confirm(checker CompositionChecker, now time.Time) error {
	if c.Status != StatusScheduled {
		return c.transitionError(EventConfirm, "only a scheduled committee can be confirmed")
	}

	for _, m := range c.ActiveMembers() {
		if !m.IsTitular() || m.IsAvailable() {
			continue
		}
		switch m.InvitationStatus {
		case InvitationDeclined:
			return c.transitionError(EventConfirm, fmt.Sprintf("titular %s declined and must be replaced", m.UID))
		default:
			return c.transitionError(EventConfirm, fmt.Sprintf("titular %s has not confirmed (invitation %s)", m.UID, m.InvitationStatus))
		}
	}

	if err := checker.Check(c); err != nil {
		return err
	}

	c.record(StatusConfirmed, EventConfirm, "", now)
	return nil
}

// Realize records the outcome of a confirmed committee. The session must not
// be in the future relative to now.
func (c *Committee) Realize(result CommitteeResult, minutesRef string, now time.Time) error {
	if c.Status != StatusConfirmed {
		return c.transitionError(EventRealize, "only a confirmed committee can be realized")
	}
	if !result.IsValid() {
		return errors.NewValidation(fmt.Sprintf("invalid result: %q (must be approved, approved-with-revisions, or rejected)", result))
	}
	minutesRef = strings.TrimSpace(minutesRef)
	if minutesRef == "" {
		return errors.NewValidation("minutes_document_ref is required to realize a committee")
	}
	if c.ScheduledAt.After(now) {
		return c.transitionError(EventRealize, fmt.Sprintf("committee is scheduled for %s, which is in the future", c.ScheduledAt.Format(time.RFC3339)))
	}

	c.Result = result
	c.MinutesDocumentRef = minutesRef
	c.record(StatusRealized, EventRealize, "", now)
	return nil
}

// Cancel closes a committee that will not take place.
func (c *Committee) Cancel(reason string, now time.Time) error {
	if c.Status.IsTerminal() {
		return c.transitionError(EventCancel, "committee is already closed")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errors.NewValidation("a reason is required to cancel a committee")
	}

	c.CancellationReason = reason
	c.record(StatusCancelled, EventCancel, reason, now)
	return nil
}

// Reschedule moves the session to a new date. The committee returns to
// scheduled and every active member's invitation starts over from pending.
// Composition is not re-validated: membership did not change.
// Empty location or mode keep the current values.
func (c *Committee) Reschedule(at time.Time, location string, mode CommitteeMode, reason string, now time.Time) error {
	if c.Status.IsTerminal() {
		return c.transitionError(EventReschedule, "committee is already closed")
	}
	if at.IsZero() {
		return errors.NewValidation("scheduled_at is required to reschedule")
	}
	if mode != "" && !mode.IsValid() {
		return errors.NewValidation("mode must be 'in-person', 'remote', or 'hybrid'")
	}

	c.ScheduledAt = at
	if location = strings.TrimSpace(location); location != "" {
		c.Location = location
	}
	if mode != "" {
		c.Mode = mode
	}
	for i := range c.Members {
		if c.Members[i].IsActive() {
			c.Members[i].ResetInvitation(now)
		}
	}
	c.RescheduleCount++
	c.record(StatusScheduled, EventReschedule, strings.TrimSpace(reason), now)
	return nil
}
