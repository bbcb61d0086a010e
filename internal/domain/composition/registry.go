// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package composition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/pkg/errors"
)

// ConfigurationGap means no policy is registered for a committee type. It
// points at an incomplete domain configuration, not at a bad request.
type ConfigurationGap struct {
	Type model.CommitteeType
}

// Error returns the error message for ConfigurationGap.
func (g *ConfigurationGap) Error() string {
	return fmt.Sprintf("no composition validator registered for committee type %q", g.Type)
}

// Unwrap classifies the gap as an unexpected (operator-facing) error.
func (g *ConfigurationGap) Unwrap() error {
	return errors.NewUnexpected(g.Error())
}

// Registry maps committee types to composition validators.
type Registry struct {
	validators []Validator
	byType     map[model.CommitteeType]Validator
}

var _ model.CompositionChecker = (*Registry)(nil)

// NewRegistry builds a registry. When several validators declare the same
// type, the first one given wins.
func NewRegistry(validators ...Validator) *Registry {
	r := &Registry{
		validators: validators,
		byType:     make(map[model.CommitteeType]Validator),
	}
	for _, v := range validators {
		for _, t := range v.Types() {
			if _, taken := r.byType[t]; !taken {
				r.byType[t] = v
			}
		}
	}
	return r
}

// DefaultRegistry returns the registry with every policy of the program rules.
func DefaultRegistry() *Registry {
	return NewRegistry(DefensePolicy{}, QualificationPolicy{})
}

// Validators returns the registered validators in registration order.
func (r *Registry) Validators() []Validator {
	return append([]Validator(nil), r.validators...)
}

// Resolve returns the validator for a committee type, or a *ConfigurationGap.
func (r *Registry) Resolve(committeeType model.CommitteeType) (Validator, error) {
	v, ok := r.byType[committeeType]
	if !ok {
		return nil, &ConfigurationGap{Type: committeeType}
	}
	return v, nil
}

// Validate resolves the policy for the type and runs it on the snapshot.
func (r *Registry) Validate(committeeType model.CommitteeType, s Snapshot) error {
	v, err := r.Resolve(committeeType)
	if err != nil {
		return err
	}
	return v.Validate(s)
}

// Check implements model.CompositionChecker. The snapshot is recomputed from
// the committee's members on every call.
func (r *Registry) Check(committee *model.Committee) error {
	return r.check(context.Background(), committee)
}

// WithContext returns a checker that logs rejections with the request context
func (r *Registry) WithContext(ctx context.Context) model.CompositionChecker {
	return contextChecker{registry: r, ctx: ctx}
}

func (r *Registry) check(ctx context.Context, committee *model.Committee) error {
	err := r.Validate(committee.Type, FromCommittee(committee))
	if err != nil {
		slog.DebugContext(ctx, "composition check failed",
			"committee_uid", committee.UID,
			"type", committee.Type,
			"error", err,
		)
	}
	return err
}

type contextChecker struct {
	registry *Registry
	ctx      context.Context
}

func (c contextChecker) Check(committee *model.Committee) error {
	return c.registry.check(c.ctx, committee)
}
