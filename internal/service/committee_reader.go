// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/gradoffice/examining-committee-service/internal/domain/composition"
	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/internal/domain/port"
)

// ValidationReport is the outcome of a dry-run composition check
type ValidationReport struct {
	CommitteeUID     string                     `json:"committee_uid,omitempty"`
	Type             model.CommitteeType        `json:"type"`
	Policy           string                     `json:"policy"`
	Valid            bool                       `json:"valid"`
	Titulars         int                        `json:"titulars"`
	InternalTitulars int                        `json:"internal_titulars"`
	ExternalTitulars int                        `json:"external_titulars"`
	Presidents       int                        `json:"presidents"`
	Violation        *composition.RuleViolation `json:"violation,omitempty"`
}

// CommitteeReader defines the read operations of the committee use cases
type CommitteeReader interface {
	// GetCommittee retrieves a committee and its revision
	GetCommittee(ctx context.Context, uid string) (*model.Committee, uint64, error)
	// GetRevision retrieves only the revision for a given UID
	GetRevision(ctx context.Context, uid string) (uint64, error)
	// ListCommitteesByCandidate retrieves every committee of a candidate
	ListCommitteesByCandidate(ctx context.Context, candidateUID string) ([]*model.Committee, error)
	// GetCommitteeRoster joins the active members with directory data
	GetCommitteeRoster(ctx context.Context, uid string) ([]model.RosterEntry, error)
	// ValidateCommittee re-checks a stored committee's composition without changing it
	ValidateCommittee(ctx context.Context, uid string) (*ValidationReport, error)
	// ValidateProposal checks a composition that is not stored anywhere
	ValidateProposal(ctx context.Context, committeeType model.CommitteeType, members []model.CommitteeMember) (*ValidationReport, error)
}

// committeeReaderOrchestratorOption defines a function type for setting options on the reader orchestrator
type committeeReaderOrchestratorOption func(*committeeReaderOrchestrator)

// WithReader sets the committee reader port
func WithReader(reader port.CommitteeReader) committeeReaderOrchestratorOption {
	return func(r *committeeReaderOrchestrator) {
		r.committeeReader = reader
	}
}

// WithReaderRegistry sets the registry used for dry-run validation
func WithReaderRegistry(registry *composition.Registry) committeeReaderOrchestratorOption {
	return func(r *committeeReaderOrchestrator) {
		r.registry = registry
	}
}

// WithReaderDirectory sets the person directory used by the roster
func WithReaderDirectory(directory port.PersonDirectory) committeeReaderOrchestratorOption {
	return func(r *committeeReaderOrchestrator) {
		r.directory = directory
	}
}

// committeeReaderOrchestrator orchestrates the committee reading process
type committeeReaderOrchestrator struct {
	committeeReader port.CommitteeReader
	registry        *composition.Registry
	directory       port.PersonDirectory
}

// NewCommitteeReaderOrchestrator creates a new committee reader orchestrator using the option pattern
func NewCommitteeReaderOrchestrator(opts ...committeeReaderOrchestratorOption) CommitteeReader {
	r := &committeeReaderOrchestrator{
		registry: composition.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetCommittee retrieves a single committee by UID
func (r *committeeReaderOrchestrator) GetCommittee(ctx context.Context, uid string) (*model.Committee, uint64, error) {
	slog.DebugContext(ctx, "executing get committee use case",
		"committee_uid", uid,
	)

	committee, revision, err := r.committeeReader.GetCommittee(ctx, uid)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get committee",
			"error", err,
			"committee_uid", uid,
		)
		return nil, 0, err
	}

	slog.DebugContext(ctx, "committee retrieved successfully",
		"committee_uid", uid,
		"status", committee.Status,
		"revision", revision,
	)

	return committee, revision, nil
}

// GetRevision retrieves only the revision for a given UID
func (r *committeeReaderOrchestrator) GetRevision(ctx context.Context, uid string) (uint64, error) {
	return r.committeeReader.GetRevision(ctx, uid)
}

// ListCommitteesByCandidate retrieves every committee of a candidate
func (r *committeeReaderOrchestrator) ListCommitteesByCandidate(ctx context.Context, candidateUID string) ([]*model.Committee, error) {
	slog.DebugContext(ctx, "executing list committees by candidate use case",
		"candidate_uid", candidateUID,
	)

	committees, err := r.committeeReader.ListCommitteesByCandidate(ctx, candidateUID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list committees by candidate",
			"error", err,
			"candidate_uid", candidateUID,
		)
		return nil, err
	}

	slog.DebugContext(ctx, "committees retrieved successfully by candidate",
		"candidate_uid", candidateUID,
		"count", len(committees),
	)

	return committees, nil
}

// GetCommitteeRoster returns the active members with their directory data.
// Directory failures leave Person empty instead of failing the read, unless
// the request itself was cancelled.
func (r *committeeReaderOrchestrator) GetCommitteeRoster(ctx context.Context, uid string) ([]model.RosterEntry, error) {
	committee, _, err := r.GetCommittee(ctx, uid)
	if err != nil {
		return nil, err
	}

	active := committee.ActiveMembers()
	roster := make([]model.RosterEntry, len(active))
	for i := range active {
		roster[i].Member = active[i]
	}
	if r.directory == nil {
		return roster, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range roster {
		g.Go(func() error {
			person, err := r.directory.ResolveExaminer(gctx, roster[i].Member.Examiner)
			if err != nil {
				// a cancelled request fails the read instead of returning a blank roster
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				slog.WarnContext(gctx, "failed to resolve examiner for roster",
					"error", err,
					"committee_uid", uid,
					"member_uid", roster[i].Member.UID,
					"examiner", roster[i].Member.Examiner.String(),
				)
				return nil
			}
			roster[i].Person = person
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return roster, nil
}

// ValidateCommittee re-checks the stored composition against the current policies
func (r *committeeReaderOrchestrator) ValidateCommittee(ctx context.Context, uid string) (*ValidationReport, error) {
	committee, _, err := r.GetCommittee(ctx, uid)
	if err != nil {
		return nil, err
	}

	report, err := r.validate(ctx, committee.Type, committee.ActiveMembers())
	if err != nil {
		return nil, err
	}
	report.CommitteeUID = committee.UID
	return report, nil
}

// ValidateProposal checks a composition that is not stored anywhere
func (r *committeeReaderOrchestrator) ValidateProposal(ctx context.Context, committeeType model.CommitteeType, members []model.CommitteeMember) (*ValidationReport, error) {
	for i := range members {
		if err := members[i].ValidateBasicFields(); err != nil {
			return nil, err
		}
	}
	active := make([]model.CommitteeMember, 0, len(members))
	for _, m := range members {
		if m.IsActive() {
			active = append(active, m)
		}
	}
	return r.validate(ctx, committeeType, active)
}

// validate builds a report. A rule violation is part of the report; a missing
// policy is returned as an error.
func (r *committeeReaderOrchestrator) validate(ctx context.Context, committeeType model.CommitteeType, members []model.CommitteeMember) (*ValidationReport, error) {
	validator, err := r.registry.Resolve(committeeType)
	if err != nil {
		slog.ErrorContext(ctx, "no composition policy configured for committee type",
			"type", committeeType,
			"error", err,
		)
		return nil, err
	}

	snapshot := composition.NewSnapshot(members)
	report := &ValidationReport{
		Type:             committeeType,
		Policy:           validator.Name(),
		Valid:            true,
		Titulars:         snapshot.NumberOfTitulars(),
		InternalTitulars: snapshot.NumberOfInternalTitulars(),
		ExternalTitulars: snapshot.NumberOfExternalTitulars(),
		Presidents:       len(snapshot.Presidents()),
	}

	if err := validator.Validate(snapshot); err != nil {
		var violation *composition.RuleViolation
		if !stderrors.As(err, &violation) {
			return nil, err
		}
		report.Valid = false
		report.Violation = violation
	}

	slog.DebugContext(ctx, "composition validated",
		"type", committeeType,
		"policy", report.Policy,
		"valid", report.Valid,
	)

	return report, nil
}
