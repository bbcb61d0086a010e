// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
)

// ResolveExaminer looks the examiner up in the people table
func (s *Store) ResolveExaminer(ctx context.Context, examiner model.Examiner) (*model.Person, error) {
	if err := examiner.Validate(); err != nil {
		return nil, err
	}

	person := model.Person{ID: examiner.ID(), Affiliation: examiner.Affiliation()}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, institution, email FROM people WHERE affiliation = ? AND id = ?`,
		string(examiner.Affiliation()), examiner.ID(),
	).Scan(&person.Name, &person.Institution, &person.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NewNotFound(fmt.Sprintf("examiner %s not found", examiner))
		}
		return nil, errs.NewServiceUnavailable("failed to resolve examiner", err)
	}
	return &person, nil
}

// PutPerson inserts or replaces a person in the directory
func (s *Store) PutPerson(ctx context.Context, person *model.Person) error {
	examiner := model.InternalExaminer(person.ID)
	if person.Affiliation == model.AffiliationExternal {
		examiner = model.ExternalExaminer(person.ID)
	} else if person.Affiliation != model.AffiliationInternal {
		return errs.NewValidation(fmt.Sprintf("invalid affiliation %q for person %s", person.Affiliation, person.ID))
	}
	if err := examiner.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO people (affiliation, id, name, institution, email)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (affiliation, id) DO UPDATE SET
    name = excluded.name, institution = excluded.institution, email = excluded.email`,
		string(person.Affiliation), person.ID, person.Name, person.Institution, person.Email,
	)
	if err != nil {
		return errs.NewServiceUnavailable("failed to store person", err)
	}
	return nil
}
