// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
)

// BaseCommitteeWriter defines key level operations used for constraint cleanup
type BaseCommitteeWriter interface {
	// GetKeyRevision retrieves the revision for a given key (used for cleanup operations)
	GetKeyRevision(ctx context.Context, key string) (uint64, error)

	// Delete removes a key with the given revision (used for cleanup and rollback)
	Delete(ctx context.Context, key string, revision uint64) error
}

// CommitteeWriter defines the interface for committee write operations.
// A committee is always written together with its members.
type CommitteeWriter interface {
	BaseCommitteeWriter

	// CreateCommittee stores a new committee and returns it with its revision
	CreateCommittee(ctx context.Context, committee *model.Committee) (*model.Committee, uint64, error)

	// UpdateCommittee replaces a committee if its stored revision still equals expectedRevision.
	// A stale revision yields a Conflict error and nothing is written.
	UpdateCommittee(ctx context.Context, uid string, committee *model.Committee, expectedRevision uint64) (*model.Committee, uint64, error)

	// DeleteCommittee deletes a committee and its members with expected revision
	DeleteCommittee(ctx context.Context, uid string, expectedRevision uint64, committee *model.Committee) error

	// UniqueCommittee reserves the (candidate, type, iteration) constraint.
	// It returns the constraint key so callers can release it on rollback.
	UniqueCommittee(ctx context.Context, committee *model.Committee) (string, error)
}
