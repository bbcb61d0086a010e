// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/gradoffice/examining-committee-service/internal/domain/composition"
	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/internal/domain/port"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
	"github.com/gradoffice/examining-committee-service/pkg/log"
)

const instrumentationName = "github.com/gradoffice/examining-committee-service/internal/service"

// RescheduleRequest carries the new session data for a reschedule.
// Empty Location and Mode keep the committee's current values.
type RescheduleRequest struct {
	ScheduledAt time.Time
	Location    string
	Mode        model.CommitteeMode
	Reason      string
}

// CommitteeWriter defines the write operations of the committee use cases.
// Every mutating call takes the revision the caller last read; a stale revision
// fails with a Conflict and nothing is written.
type CommitteeWriter interface {
	// CreateCommittee opens a new committee with its initial composition
	CreateCommittee(ctx context.Context, committee *model.Committee) (*model.Committee, uint64, error)
	// DeleteCommittee removes a committee and its members
	DeleteCommittee(ctx context.Context, uid string, expectedRevision uint64) error

	// ProposeMembers replaces the whole composition
	ProposeMembers(ctx context.Context, uid string, members []model.CommitteeMember, expectedRevision uint64) (*model.Committee, uint64, error)
	// AddMember adds one member to the composition
	AddMember(ctx context.Context, uid string, member model.CommitteeMember, expectedRevision uint64) (*model.Committee, uint64, error)
	// RemoveMember drops one active member
	RemoveMember(ctx context.Context, uid, memberUID string, expectedRevision uint64) (*model.Committee, uint64, error)
	// ReplaceMember substitutes a member who declined
	ReplaceMember(ctx context.Context, uid, memberUID string, replacement model.CommitteeMember, expectedRevision uint64) (*model.Committee, uint64, error)
	// ChangeType moves the committee to another type
	ChangeType(ctx context.Context, uid string, committeeType model.CommitteeType, expectedRevision uint64) (*model.Committee, uint64, error)

	// SendInvitation marks a member's invitation as sent and asks the notification sink to deliver it
	SendInvitation(ctx context.Context, uid, memberUID string, expectedRevision uint64) (*model.Committee, uint64, error)
	// RecordInvitationReply applies an examiner's answer
	RecordInvitationReply(ctx context.Context, uid, memberUID string, accepted bool, expectedRevision uint64) (*model.Committee, uint64, error)

	// ConfirmCommittee moves a scheduled committee to confirmed
	ConfirmCommittee(ctx context.Context, uid string, expectedRevision uint64) (*model.Committee, uint64, error)
	// RealizeCommittee records the outcome of a confirmed committee
	RealizeCommittee(ctx context.Context, uid string, result model.CommitteeResult, minutesRef string, expectedRevision uint64) (*model.Committee, uint64, error)
	// CancelCommittee closes a committee that will not take place
	CancelCommittee(ctx context.Context, uid, reason string, expectedRevision uint64) (*model.Committee, uint64, error)
	// RescheduleCommittee moves the session to a new date
	RescheduleCommittee(ctx context.Context, uid string, request RescheduleRequest, expectedRevision uint64) (*model.Committee, uint64, error)
}

// committeeWriterOrchestratorOption defines a function type for setting options on the orchestrator
type committeeWriterOrchestratorOption func(*committeeWriterOrchestrator)

// WithCommitteeReader sets the committee reader
func WithCommitteeReader(reader port.CommitteeReader) committeeWriterOrchestratorOption {
	return func(w *committeeWriterOrchestrator) {
		w.committeeReader = reader
	}
}

// WithCommitteeWriter sets the committee writer
func WithCommitteeWriter(writer port.CommitteeWriter) committeeWriterOrchestratorOption {
	return func(w *committeeWriterOrchestrator) {
		w.committeeWriter = writer
	}
}

// WithCompositionRegistry sets the registry used to validate compositions
func WithCompositionRegistry(registry *composition.Registry) committeeWriterOrchestratorOption {
	return func(w *committeeWriterOrchestrator) {
		w.registry = registry
	}
}

// WithPersonDirectory sets the person directory (may be nil to skip examiner resolution)
func WithPersonDirectory(directory port.PersonDirectory) committeeWriterOrchestratorOption {
	return func(w *committeeWriterOrchestrator) {
		w.directory = directory
	}
}

// WithPublisher sets the publisher
func WithPublisher(publisher port.MessagePublisher) committeeWriterOrchestratorOption {
	return func(w *committeeWriterOrchestrator) {
		w.publisher = publisher
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) committeeWriterOrchestratorOption {
	return func(w *committeeWriterOrchestrator) {
		w.now = now
	}
}

// committeeWriterOrchestrator orchestrates the committee writing process
type committeeWriterOrchestrator struct {
	committeeReader port.CommitteeReader
	committeeWriter port.CommitteeWriter
	registry        *composition.Registry
	directory       port.PersonDirectory
	publisher       port.MessagePublisher
	now             func() time.Time

	tracer     trace.Tracer
	violations metric.Int64Counter
}

// NewCommitteeWriterOrchestrator creates a new committee writer orchestrator using the option pattern
func NewCommitteeWriterOrchestrator(opts ...committeeWriterOrchestratorOption) CommitteeWriter {
	w := &committeeWriterOrchestrator{
		registry: composition.DefaultRegistry(),
		now:      time.Now,
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(w)
	}

	violations, err := otel.Meter(instrumentationName).Int64Counter(
		"committee.composition.violations",
		metric.WithDescription("Composition rule violations rejected by the committee service"),
	)
	if err != nil {
		slog.Warn("failed to create composition violation counter", "error", err)
	}
	w.violations = violations

	return w
}

// clock returns the current time truncated to the precision kept by every store
func (o *committeeWriterOrchestrator) clock() time.Time {
	return o.now().UTC().Truncate(time.Microsecond)
}

// startSpan opens a span for a use case
func (o *committeeWriterOrchestrator) startSpan(ctx context.Context, name, uid string) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("committee_uid", uid)))
}

// endSpan records err on the span and ends it
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// recordRejection logs a rejected mutation and counts composition violations
func (o *committeeWriterOrchestrator) recordRejection(ctx context.Context, committee *model.Committee, operation string, err error) {
	var violation *composition.RuleViolation
	var gap *composition.ConfigurationGap

	switch {
	case stderrors.As(err, &violation):
		slog.WarnContext(ctx, "composition rule violated",
			"committee_uid", committee.UID,
			"type", committee.Type,
			"operation", operation,
			"rule", violation.Rule,
			"expected", violation.Expected,
			"observed", violation.Observed,
		)
		if o.violations != nil {
			o.violations.Add(ctx, 1, metric.WithAttributes(
				attribute.String("rule", violation.Rule),
				attribute.String("type", string(committee.Type)),
			))
		}
	case stderrors.As(err, &gap):
		slog.ErrorContext(ctx, "no composition policy configured for committee type",
			"committee_uid", committee.UID,
			"type", gap.Type,
			"operation", operation,
		)
	default:
		slog.WarnContext(ctx, "committee change rejected",
			"committee_uid", committee.UID,
			"status", committee.Status,
			"operation", operation,
			"error", err,
		)
	}
}

// warnIncoherentRoles logs members whose role contradicts the examiner's affiliation.
// Composition policies do not reject these.
func warnIncoherentRoles(ctx context.Context, committee *model.Committee) {
	for _, m := range committee.ActiveMembers() {
		if !m.RoleMatchesAffiliation() {
			slog.WarnContext(ctx, "member role does not match examiner affiliation",
				"committee_uid", committee.UID,
				"member_uid", m.UID,
				"role", m.Role,
				"examiner", m.Examiner.String(),
			)
		}
	}
}

// load retrieves the committee and checks the caller's revision
func (o *committeeWriterOrchestrator) load(ctx context.Context, uid string, expectedRevision uint64) (*model.Committee, error) {
	existing, existingRevision, err := o.committeeReader.GetCommittee(ctx, uid)
	if err != nil {
		slog.ErrorContext(ctx, "failed to retrieve existing committee",
			"error", err,
			"committee_uid", uid,
		)
		return nil, err
	}

	if existingRevision != expectedRevision {
		slog.WarnContext(ctx, "revision mismatch",
			"expected_revision", expectedRevision,
			"current_revision", existingRevision,
			"committee_uid", uid,
		)
		return nil, errs.NewConflict("committee has been modified by another process")
	}

	return existing, nil
}

// mutate runs one unit of work: load, check revision, apply the change to the
// aggregate and save it with the expected revision. When apply fails nothing
// is written.
func (o *committeeWriterOrchestrator) mutate(
	ctx context.Context,
	uid string,
	expectedRevision uint64,
	operation string,
	apply func(committee *model.Committee, now time.Time) error,
) (*model.Committee, uint64, error) {
	committee, err := o.load(ctx, uid, expectedRevision)
	if err != nil {
		return nil, 0, err
	}

	if err := apply(committee, o.clock()); err != nil {
		o.recordRejection(ctx, committee, operation, err)
		return nil, 0, err
	}

	updated, revision, err := o.committeeWriter.UpdateCommittee(ctx, uid, committee, expectedRevision)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update committee in storage",
			"error", err,
			"committee_uid", uid,
			"expected_revision", expectedRevision,
			"operation", operation,
		)
		return nil, 0, err
	}

	slog.DebugContext(ctx, "committee updated",
		"committee_uid", uid,
		"operation", operation,
		"status", updated.Status,
		"revision", revision,
	)

	return updated, revision, nil
}

// deleteKeys removes keys by getting their revision and deleting them
// This is used both for rollback scenarios and cleanup operations
func (o *committeeWriterOrchestrator) deleteKeys(ctx context.Context, keys []string, isRollback bool) {
	if len(keys) == 0 {
		return
	}

	slog.DebugContext(ctx, "deleting keys",
		"keys", keys,
		"is_rollback", isRollback,
	)

	for _, key := range keys {
		var rev uint64
		var errGet error

		// entity UIDs resolve through the reader, constraint keys through the writer
		if o.committeeReader != nil {
			rev, errGet = o.committeeReader.GetRevision(ctx, key)
		}
		if o.committeeReader == nil || errGet != nil {
			rev, errGet = o.committeeWriter.GetKeyRevision(ctx, key)
		}

		if errGet != nil {
			logKeyFailure(ctx, "failed to get revision for key deletion", key, errGet, isRollback)
			continue
		}

		if err := o.committeeWriter.Delete(ctx, key, rev); err != nil {
			logKeyFailure(ctx, "failed to delete key", key, err, isRollback)
			continue
		}

		slog.DebugContext(ctx, "successfully deleted key",
			"key", key,
			"is_rollback", isRollback,
		)
	}
}

// logKeyFailure escalates failed rollbacks: a leftover key blocks the
// (candidate, type, iteration) triple until an operator removes it
func logKeyFailure(ctx context.Context, msg, key string, err error, isRollback bool) {
	attrs := []any{"key", key, "error", err, "is_rollback", isRollback}
	if isRollback {
		attrs = append(attrs, log.PriorityCritical())
	}
	slog.ErrorContext(ctx, msg, attrs...)
}

// releaseStaleKeys deletes constraint keys the committee gave up, before the
// caller returns. A key the committee maps to again is kept, so a change back
// to an earlier type does not lose its reservation.
func (o *committeeWriterOrchestrator) releaseStaleKeys(ctx context.Context, uid string, keys []string) {
	if len(keys) == 0 {
		return
	}

	current, _, err := o.committeeReader.GetCommittee(ctx, uid)
	switch {
	case err == nil:
		held := lookupKey(ctx, current)
		keys = slices.DeleteFunc(slices.Clone(keys), func(key string) bool { return key == held })
	case !errs.IsNotFound(err):
		for _, key := range keys {
			logKeyFailure(ctx, "cannot confirm key is stale, keeping it", key, err, false)
		}
		return
	}

	o.deleteKeys(ctx, keys, false)
}

// lookupKey returns the storage key of the (candidate, type, iteration) constraint
func lookupKey(ctx context.Context, committee *model.Committee) string {
	return fmt.Sprintf(constants.KVLookupCommitteePrefix, committee.BuildIndexKey(ctx))
}

// subjectForAction maps an event action to its NATS subject
func subjectForAction(action model.MessageAction) string {
	switch action {
	case model.ActionCreated:
		return constants.CommitteeCreatedSubject
	case model.ActionConfirmed:
		return constants.CommitteeConfirmedSubject
	case model.ActionRealized:
		return constants.CommitteeRealizedSubject
	case model.ActionCancelled:
		return constants.CommitteeCancelledSubject
	case model.ActionRescheduled:
		return constants.CommitteeRescheduledSubject
	case model.ActionDeleted:
		return constants.CommitteeDeletedSubject
	default:
		return constants.CommitteeUpdatedSubject
	}
}

// publishCommitteeEvent publishes the committee event and any invitation
// messages concurrently. Failures are returned for logging only: the change is
// already committed.
func (o *committeeWriterOrchestrator) publishCommitteeEvent(
	ctx context.Context,
	committee *model.Committee,
	revision uint64,
	action model.MessageAction,
	invitations ...*model.InvitationMessage,
) error {
	if o.publisher == nil {
		slog.DebugContext(ctx, "publisher not configured, skipping message publishing",
			"committee_uid", committee.UID)
		return nil
	}

	event := &model.CommitteeEvent{
		Action:     action,
		Revision:   revision,
		OccurredAt: o.clock(),
	}
	message, err := event.Build(ctx, committee)
	if err != nil {
		return fmt.Errorf("failed to build %s committee event: %w", action, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := o.publisher.Committee(gctx, subjectForAction(action), message); err != nil {
			return fmt.Errorf("failed to publish %s committee event: %w", action, err)
		}
		return nil
	})
	for _, invitation := range invitations {
		g.Go(func() error {
			if err := o.publisher.Invitation(gctx, constants.MemberInvitationSentSubject, invitation); err != nil {
				return fmt.Errorf("failed to publish invitation for member %s: %w", invitation.MemberUID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.DebugContext(ctx, "messages published successfully",
		"action", action,
		"committee_uid", committee.UID,
		"invitations", len(invitations),
	)
	return nil
}

// publish logs publishing failures without failing the committed change
func (o *committeeWriterOrchestrator) publish(
	ctx context.Context,
	committee *model.Committee,
	revision uint64,
	action model.MessageAction,
	invitations ...*model.InvitationMessage,
) {
	if err := o.publishCommitteeEvent(ctx, committee, revision, action, invitations...); err != nil {
		slog.ErrorContext(ctx, "failed to publish messages",
			"error", err,
			"committee_uid", committee.UID,
			"action", action,
		)
	}
}
