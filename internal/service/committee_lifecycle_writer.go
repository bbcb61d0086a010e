// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
)

// CreateCommittee opens a new committee: validates its fields and composition,
// reserves the (candidate, type, iteration) constraint and stores the aggregate.
func (o *committeeWriterOrchestrator) CreateCommittee(ctx context.Context, committee *model.Committee) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.create", committee.UID)
	defer func() { endSpan(span, err) }()

	slog.DebugContext(ctx, "executing create committee use case",
		"candidate_uid", committee.CandidateUID,
		"type", committee.Type,
		"iteration", committee.Iteration,
		"members", len(committee.Members),
	)

	// For rollback purposes
	var (
		keys             []string
		rollbackRequired bool
	)
	defer func() {
		if r := recover(); r != nil || rollbackRequired {
			o.deleteKeys(ctx, keys, true)
			if r != nil {
				panic(r)
			}
		}
	}()

	// Step 1: Generate UIDs
	if committee.UID == "" {
		committee.UID = uuid.New().String()
	}
	assignMemberUIDs(committee.Members)

	// Step 2: Validate fields and composition, start the lifecycle
	if err := committee.Open(o.registry.WithContext(ctx), o.clock()); err != nil {
		o.recordRejection(ctx, committee, model.EventCreate, err)
		return nil, 0, err
	}
	warnIncoherentRoles(ctx, committee)

	// Step 3: Make sure every examiner exists
	if _, err := resolveExaminers(ctx, o.directory, committee.ActiveMembers()); err != nil {
		return nil, 0, err
	}

	// Step 4: Reserve the unique constraint
	constraintKey, err := o.committeeWriter.UniqueCommittee(ctx, committee)
	if err != nil {
		slog.WarnContext(ctx, "committee uniqueness constraint rejected",
			"error", err,
			"candidate_uid", committee.CandidateUID,
			"type", committee.Type,
			"iteration", committee.Iteration,
		)
		return nil, 0, err
	}
	if constraintKey != "" {
		keys = append(keys, constraintKey)
	}

	// Step 5: Store the aggregate
	created, revision, err := o.committeeWriter.CreateCommittee(ctx, committee)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create committee in storage", "error", err)
		rollbackRequired = true
		return nil, 0, err
	}

	o.publish(ctx, created, revision, model.ActionCreated)

	slog.InfoContext(ctx, "committee created successfully",
		"committee_uid", created.UID,
		"candidate_uid", created.CandidateUID,
		"type", created.Type,
		"iteration", created.Iteration,
		"revision", revision,
	)

	return created, revision, nil
}

// ChangeType switches the committee type. The uniqueness constraint includes
// the type, so a new key is reserved first and the old one released after the
// update succeeds.
func (o *committeeWriterOrchestrator) ChangeType(ctx context.Context, uid string, committeeType model.CommitteeType, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.change_type", uid)
	defer func() { endSpan(span, err) }()

	slog.DebugContext(ctx, "executing change committee type use case",
		"committee_uid", uid,
		"type", committeeType,
		"expected_revision", expectedRevision,
	)

	var (
		staleKeys        []string
		newKeys          []string
		rollbackRequired bool
		updateSucceeded  bool
	)
	defer func() {
		if r := recover(); r != nil || rollbackRequired {
			o.deleteKeys(ctx, newKeys, true)
			if r != nil {
				panic(r)
			}
		}
		if updateSucceeded {
			o.releaseStaleKeys(ctx, uid, staleKeys)
		}
	}()

	committee, err := o.load(ctx, uid, expectedRevision)
	if err != nil {
		return nil, 0, err
	}
	previous := committee.Clone()

	if err := committee.ChangeType(committeeType, o.registry.WithContext(ctx), o.clock()); err != nil {
		o.recordRejection(ctx, committee, model.EventChangeType, err)
		return nil, 0, err
	}

	if previous.Type != committee.Type {
		constraintKey, err := o.committeeWriter.UniqueCommittee(ctx, committee)
		if err != nil {
			return nil, 0, err
		}
		if constraintKey != "" {
			newKeys = append(newKeys, constraintKey)
		}
		staleKeys = append(staleKeys, lookupKey(ctx, previous))
	}

	updated, revision, err := o.committeeWriter.UpdateCommittee(ctx, uid, committee, expectedRevision)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update committee type",
			"error", err,
			"committee_uid", uid,
			"expected_revision", expectedRevision,
		)
		rollbackRequired = true
		return nil, 0, err
	}
	updateSucceeded = true

	o.publish(ctx, updated, revision, model.ActionUpdated)

	slog.InfoContext(ctx, "committee type changed",
		"committee_uid", uid,
		"from", previous.Type,
		"to", updated.Type,
		"revision", revision,
	)

	return updated, revision, nil
}

// ConfirmCommittee moves a scheduled committee to confirmed
func (o *committeeWriterOrchestrator) ConfirmCommittee(ctx context.Context, uid string, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.confirm", uid)
	defer func() { endSpan(span, err) }()

	updated, revision, err := o.mutate(ctx, uid, expectedRevision, model.EventConfirm, func(c *model.Committee, now time.Time) error {
		return c.Confirm(o.registry.WithContext(ctx), now)
	})
	if err != nil {
		return nil, 0, err
	}

	o.publish(ctx, updated, revision, model.ActionConfirmed)

	slog.InfoContext(ctx, "committee confirmed",
		"committee_uid", uid,
		"scheduled_at", updated.ScheduledAt,
		"revision", revision,
	)
	return updated, revision, nil
}

// RealizeCommittee records the outcome of a confirmed committee
func (o *committeeWriterOrchestrator) RealizeCommittee(ctx context.Context, uid string, result model.CommitteeResult, minutesRef string, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.realize", uid)
	defer func() { endSpan(span, err) }()

	updated, revision, err := o.mutate(ctx, uid, expectedRevision, model.EventRealize, func(c *model.Committee, now time.Time) error {
		return c.Realize(result, minutesRef, now)
	})
	if err != nil {
		return nil, 0, err
	}

	o.publish(ctx, updated, revision, model.ActionRealized)

	slog.InfoContext(ctx, "committee realized",
		"committee_uid", uid,
		"result", updated.Result,
		"revision", revision,
	)
	return updated, revision, nil
}

// CancelCommittee closes a committee that will not take place
func (o *committeeWriterOrchestrator) CancelCommittee(ctx context.Context, uid, reason string, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.cancel", uid)
	defer func() { endSpan(span, err) }()

	updated, revision, err := o.mutate(ctx, uid, expectedRevision, model.EventCancel, func(c *model.Committee, now time.Time) error {
		return c.Cancel(reason, now)
	})
	if err != nil {
		return nil, 0, err
	}

	o.publish(ctx, updated, revision, model.ActionCancelled)

	slog.InfoContext(ctx, "committee cancelled",
		"committee_uid", uid,
		"reason", updated.CancellationReason,
		"revision", revision,
	)
	return updated, revision, nil
}

// RescheduleCommittee moves the session to a new date; every active member is invited again
func (o *committeeWriterOrchestrator) RescheduleCommittee(ctx context.Context, uid string, request RescheduleRequest, expectedRevision uint64) (_ *model.Committee, _ uint64, err error) {
	ctx, span := o.startSpan(ctx, "committee.reschedule", uid)
	defer func() { endSpan(span, err) }()

	updated, revision, err := o.mutate(ctx, uid, expectedRevision, model.EventReschedule, func(c *model.Committee, now time.Time) error {
		return c.Reschedule(request.ScheduledAt, request.Location, request.Mode, request.Reason, now)
	})
	if err != nil {
		return nil, 0, err
	}

	o.publish(ctx, updated, revision, model.ActionRescheduled)

	slog.InfoContext(ctx, "committee rescheduled",
		"committee_uid", uid,
		"scheduled_at", updated.ScheduledAt,
		"reschedule_count", updated.RescheduleCount,
		"revision", revision,
	)
	return updated, revision, nil
}

// DeleteCommittee removes a committee with its members and releases its
// uniqueness constraint. Realized committees are the record of an examination
// and cannot be deleted.
func (o *committeeWriterOrchestrator) DeleteCommittee(ctx context.Context, uid string, expectedRevision uint64) (err error) {
	ctx, span := o.startSpan(ctx, "committee.delete", uid)
	defer func() { endSpan(span, err) }()

	slog.DebugContext(ctx, "executing delete committee use case",
		"committee_uid", uid,
		"expected_revision", expectedRevision,
	)

	existing, err := o.load(ctx, uid, expectedRevision)
	if err != nil {
		return err
	}

	if existing.Status == model.StatusRealized {
		slog.WarnContext(ctx, "refusing to delete realized committee", "committee_uid", uid)
		return errs.NewValidation(fmt.Sprintf("committee %s was realized and cannot be deleted", uid))
	}

	if err := o.committeeWriter.DeleteCommittee(ctx, uid, expectedRevision, existing); err != nil {
		slog.ErrorContext(ctx, "failed to delete committee",
			"error", err,
			"committee_uid", uid,
		)
		return err
	}

	o.deleteKeys(ctx, []string{lookupKey(ctx, existing)}, false)

	o.publish(ctx, existing, 0, model.ActionDeleted)

	slog.InfoContext(ctx, "committee deleted successfully",
		"committee_uid", uid,
		"candidate_uid", existing.CandidateUID,
		"type", existing.Type,
	)
	return nil
}
