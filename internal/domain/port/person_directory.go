// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
)

// PersonDirectory resolves examiner references to people
type PersonDirectory interface {
	// ResolveExaminer returns the person behind an examiner reference,
	// or a NotFound error when the directory does not know them
	ResolveExaminer(ctx context.Context, examiner model.Examiner) (*model.Person, error)
}
