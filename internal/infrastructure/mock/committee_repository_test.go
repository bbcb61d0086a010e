// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	pkgerrors "github.com/gradoffice/examining-committee-service/pkg/errors"
)

func testCommittee(uid, candidate string, committeeType model.CommitteeType, iteration int) *model.Committee {
	return &model.Committee{
		UID:          uid,
		CandidateUID: candidate,
		Type:         committeeType,
		Iteration:    iteration,
		ScheduledAt:  time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC),
		Mode:         model.ModeRemote,
		Status:       model.StatusScheduled,
		Members: []model.CommitteeMember{
			{UID: uid + "-m1", Examiner: model.InternalExaminer("prof-1"), Kind: model.MemberKindTitular, Role: model.RolePresident},
		},
	}
}

func TestNewMockRepository_Seeded(t *testing.T) {
	repo := NewMockRepository()
	assert.Same(t, repo, NewMockRepository())

	ctx := context.Background()
	_, err := repo.ResolveExaminer(ctx, model.ExternalExaminer("ext-elena"))
	assert.NoError(t, err)
}

func TestMockRepository_RevisionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newEmptyRepository()

	created, rev, err := repo.CreateCommittee(ctx, testCommittee("c-1", "cand-1", model.TypeDefenseMasters, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)

	_, _, err = repo.CreateCommittee(ctx, created)
	assert.True(t, pkgerrors.IsConflict(err), "creating the same UID twice must conflict")

	created.Location = "Room 1"
	updated, rev, err := repo.UpdateCommittee(ctx, "c-1", created, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev)
	assert.Equal(t, "Room 1", updated.Location)

	_, _, err = repo.UpdateCommittee(ctx, "c-1", created, 1)
	assert.True(t, pkgerrors.IsConflict(err), "stale revision must conflict")

	err = repo.DeleteCommittee(ctx, "c-1", 1, created)
	assert.True(t, pkgerrors.IsConflict(err))

	require.NoError(t, repo.DeleteCommittee(ctx, "c-1", 2, created))
	_, _, err = repo.GetCommittee(ctx, "c-1")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestMockRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := newEmptyRepository()
	_, _, err := repo.CreateCommittee(ctx, testCommittee("c-1", "cand-1", model.TypeDefenseMasters, 1))
	require.NoError(t, err)

	got, _, err := repo.GetCommittee(ctx, "c-1")
	require.NoError(t, err)
	got.Members[0].Role = model.RoleAdvisor

	again, _, err := repo.GetCommittee(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, model.RolePresident, again.Members[0].Role)
}

func TestMockRepository_UniqueCommittee(t *testing.T) {
	ctx := context.Background()
	repo := newEmptyRepository()

	first := testCommittee("c-1", "cand-1", model.TypeDefenseMasters, 1)
	key, err := repo.UniqueCommittee(ctx, first)
	require.NoError(t, err)
	assert.True(t, repo.HasConstraint(key))

	// same owner may reserve again
	_, err = repo.UniqueCommittee(ctx, first)
	assert.NoError(t, err)

	tests := []struct {
		name      string
		committee *model.Committee
		conflict  bool
	}{
		{name: "same triple", committee: testCommittee("c-2", "cand-1", model.TypeDefenseMasters, 1), conflict: true},
		{name: "candidate compared case-insensitively", committee: testCommittee("c-2", "CAND-1", model.TypeDefenseMasters, 1), conflict: true},
		{name: "next iteration", committee: testCommittee("c-2", "cand-1", model.TypeDefenseMasters, 2)},
		{name: "other type", committee: testCommittee("c-3", "cand-1", model.TypeQualificationMasters, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.UniqueCommittee(ctx, tt.committee)
			assert.Equal(t, tt.conflict, pkgerrors.IsConflict(err))
		})
	}

	rev, err := repo.GetKeyRevision(ctx, key)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, key, rev))
	assert.False(t, repo.HasConstraint(key))
}

func TestMockRepository_ListCommitteesByCandidate(t *testing.T) {
	ctx := context.Background()
	repo := newEmptyRepository()

	later := testCommittee("c-2", "cand-1", model.TypeDefenseMasters, 1)
	later.ScheduledAt = later.ScheduledAt.Add(48 * time.Hour)
	repo.AddCommittee(later)
	repo.AddCommittee(testCommittee("c-1", "cand-1", model.TypeQualificationMasters, 1))
	repo.AddCommittee(testCommittee("c-3", "cand-2", model.TypeDefenseMasters, 1))

	list, err := repo.ListCommitteesByCandidate(ctx, "cand-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c-1", list[0].UID)
	assert.Equal(t, "c-2", list[1].UID)

	list, err = repo.ListCommitteesByCandidate(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMockMessagePublisher(t *testing.T) {
	ctx := context.Background()
	publisher := NewMockMessagePublisher()

	require.NoError(t, publisher.Committee(ctx, "banca.committee.created", "payload"))
	require.NoError(t, publisher.Invitation(ctx, "banca.member.invitation_sent", "invite"))
	assert.Equal(t, []string{"banca.committee.created", "banca.member.invitation_sent"}, publisher.Subjects())
	assert.Equal(t, "invitation", publisher.Published()[1].Kind)

	publisher.SetError(pkgerrors.NewServiceUnavailable("nats down"))
	assert.Error(t, publisher.Committee(ctx, "banca.committee.updated", "payload"))
	assert.Len(t, publisher.Published(), 2)

	publisher.Reset()
	assert.Empty(t, publisher.Published())
}
