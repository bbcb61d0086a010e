// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/internal/domain/port"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
)

// assignMemberUIDs gives every member without a UID a fresh one
func assignMemberUIDs(members []model.CommitteeMember) {
	for i := range members {
		if members[i].UID == "" {
			members[i].UID = uuid.New().String()
		}
	}
}

// resolveExaminers checks every examiner against the person directory in
// parallel. An unknown examiner, or one whose directory affiliation differs
// from the member's, is a validation error.
func resolveExaminers(ctx context.Context, directory port.PersonDirectory, members []model.CommitteeMember) (map[string]*model.Person, error) {
	if directory == nil {
		return map[string]*model.Person{}, nil
	}
	for i := range members {
		if err := members[i].Examiner.Validate(); err != nil {
			return nil, err
		}
	}

	people := make([]*model.Person, len(members))
	g, gctx := errgroup.WithContext(ctx)
	for i := range members {
		examiner := members[i].Examiner
		g.Go(func() error {
			person, err := directory.ResolveExaminer(gctx, examiner)
			if err != nil {
				if errs.IsNotFound(err) {
					return errs.NewValidation(fmt.Sprintf("examiner %s not found in the person directory", examiner), err)
				}
				return err
			}
			if person.Affiliation != "" && person.Affiliation != examiner.Affiliation() {
				return errs.NewValidation(fmt.Sprintf("examiner %s is registered as %s in the person directory", examiner, person.Affiliation))
			}
			people[i] = person
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.WarnContext(ctx, "examiner resolution failed", "error", err)
		return nil, err
	}

	resolved := make(map[string]*model.Person, len(members))
	for i, person := range people {
		resolved[members[i].Examiner.String()] = person
	}
	return resolved, nil
}
