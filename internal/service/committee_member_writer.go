// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/pkg/log"
)

// ProposeMembers replaces the whole composition of a scheduled committee
func (o *committeeWriterOrchestrator) ProposeMembers(ctx context.Context, uid string, members []model.CommitteeMember, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.propose_members", uid)
	defer func() { endSpan(span, err) }()

	proposed := make([]model.CommitteeMember, len(members))
	copy(proposed, members)
	assignMemberUIDs(proposed)

	if _, err := resolveExaminers(ctx, o.directory, proposed); err != nil {
		return nil, 0, err
	}

	updated, revision, err := o.mutate(ctx, uid, expectedRevision, model.EventChangeMembers, func(c *model.Committee, now time.Time) error {
		return c.ProposeMembers(proposed, o.registry.WithContext(ctx), now)
	})
	if err != nil {
		return nil, 0, err
	}
	warnIncoherentRoles(ctx, updated)

	o.publish(ctx, updated, revision, model.ActionUpdated)

	slog.InfoContext(ctx, "committee composition replaced",
		"committee_uid", uid,
		"members", len(updated.Members),
		"revision", revision,
	)
	return updated, revision, nil
}

// AddMember adds a pending member to a scheduled committee
func (o *committeeWriterOrchestrator) AddMember(ctx context.Context, uid string, member model.CommitteeMember, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.add_member", uid)
	defer func() { endSpan(span, err) }()

	if member.UID == "" {
		member.UID = uuid.New().String()
	}
	if _, err := resolveExaminers(ctx, o.directory, []model.CommitteeMember{member}); err != nil {
		return nil, 0, err
	}

	updated, revision, err := o.mutate(ctx, uid, expectedRevision, model.EventChangeMembers, func(c *model.Committee, now time.Time) error {
		return c.AddMember(member, o.registry.WithContext(ctx), now)
	})
	if err != nil {
		return nil, 0, err
	}
	warnIncoherentRoles(ctx, updated)

	o.publish(ctx, updated, revision, model.ActionUpdated)

	slog.InfoContext(ctx, "committee member added",
		"committee_uid", uid,
		"member_uid", member.UID,
		"kind", member.Kind,
		"role", member.Role,
		"revision", revision,
	)
	return updated, revision, nil
}

// RemoveMember drops an active member from a scheduled committee
func (o *committeeWriterOrchestrator) RemoveMember(ctx context.Context, uid, memberUID string, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.remove_member", uid)
	defer func() { endSpan(span, err) }()

	updated, revision, err := o.mutate(ctx, uid, expectedRevision, model.EventChangeMembers, func(c *model.Committee, now time.Time) error {
		return c.RemoveMember(memberUID, o.registry.WithContext(ctx), now)
	})
	if err != nil {
		return nil, 0, err
	}

	o.publish(ctx, updated, revision, model.ActionUpdated)

	slog.InfoContext(ctx, "committee member removed",
		"committee_uid", uid,
		"member_uid", memberUID,
		"revision", revision,
	)
	return updated, revision, nil
}

// ReplaceMember substitutes a member who declined the invitation
func (o *committeeWriterOrchestrator) ReplaceMember(ctx context.Context, uid, memberUID string, replacement model.CommitteeMember, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.replace_member", uid)
	defer func() { endSpan(span, err) }()

	if replacement.UID == "" {
		replacement.UID = uuid.New().String()
	}
	if _, err := resolveExaminers(ctx, o.directory, []model.CommitteeMember{replacement}); err != nil {
		return nil, 0, err
	}

	updated, revision, err := o.mutate(ctx, uid, expectedRevision, model.EventChangeMembers, func(c *model.Committee, now time.Time) error {
		return c.ReplaceMember(memberUID, replacement, o.registry.WithContext(ctx), now)
	})
	if err != nil {
		return nil, 0, err
	}
	warnIncoherentRoles(ctx, updated)

	o.publish(ctx, updated, revision, model.ActionUpdated)

	slog.InfoContext(ctx, "committee member replaced",
		"committee_uid", uid,
		"member_uid", memberUID,
		"replacement_uid", replacement.UID,
		"revision", revision,
	)
	return updated, revision, nil
}

// SendInvitation marks a member's invitation as sent and asks the notification
// sink to deliver it once the change is stored
func (o *committeeWriterOrchestrator) SendInvitation(ctx context.Context, uid, memberUID string, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.send_invitation", uid)
	defer func() { endSpan(span, err) }()

	updated, revision, err := o.mutate(ctx, uid, expectedRevision, model.EventSendInvitation, func(c *model.Committee, now time.Time) error {
		return c.SendInvitation(memberUID, now)
	})
	if err != nil {
		return nil, 0, err
	}

	member, _ := updated.Member(memberUID)
	invitation := &model.InvitationMessage{
		CommitteeUID: updated.UID,
		MemberUID:    member.UID,
		Examiner:     member.Examiner,
		Kind:         member.Kind,
		Role:         member.Role,
		Type:         updated.Type,
		ScheduledAt:  updated.ScheduledAt,
		Location:     updated.Location,
		Mode:         updated.Mode,
	}
	o.publish(ctx, updated, revision, model.ActionUpdated, invitation)

	slog.InfoContext(ctx, "invitation sent",
		"committee_uid", uid,
		"member_uid", memberUID,
		"invitation_sent_at", log.OptionalTime(member.InvitationSentAt),
		"revision", revision,
	)
	return updated, revision, nil
}

// RecordInvitationReply applies an examiner's answer to their invitation
func (o *committeeWriterOrchestrator) RecordInvitationReply(ctx context.Context, uid, memberUID string, accepted bool, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.record_invitation_reply", uid)
	defer func() { endSpan(span, err) }()

	event := model.EventDeclineInvitation
	if accepted {
		event = model.EventAcceptInvitation
	}

	updated, revision, err := o.mutate(ctx, uid, expectedRevision, event, func(c *model.Committee, now time.Time) error {
		return c.RecordInvitationReply(memberUID, accepted, now)
	})
	if err != nil {
		return nil, 0, err
	}

	o.publish(ctx, updated, revision, model.ActionUpdated)

	var respondedAt *time.Time
	if member, _ := updated.Member(memberUID); member != nil {
		respondedAt = member.RespondedAt
	}
	slog.InfoContext(ctx, "invitation reply recorded",
		"committee_uid", uid,
		"member_uid", memberUID,
		"accepted", accepted,
		"responded_at", log.OptionalTime(respondedAt),
		"revision", revision,
	)
	return updated, revision, nil
}
