// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package port defines the interfaces for external dependencies and adapters.
package port

import (
	"context"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
)

// CommitteeReader defines the interface for committee read operations
type CommitteeReader interface {
	// GetCommittee retrieves a committee with its members and returns its revision
	GetCommittee(ctx context.Context, uid string) (*model.Committee, uint64, error)

	// GetRevision retrieves only the revision for a given UID
	GetRevision(ctx context.Context, uid string) (uint64, error)

	// ListCommitteesByCandidate retrieves every committee of a candidate, all types and iterations.
	// Returns an empty slice when the candidate has none.
	ListCommitteesByCandidate(ctx context.Context, candidateUID string) ([]*model.Committee, error)
}
