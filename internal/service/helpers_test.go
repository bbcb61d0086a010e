// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/internal/infrastructure/mock"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// testClock is a settable time source shared by an orchestrator under test
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type testEnv struct {
	repo      *mock.MockRepository
	publisher *mock.MockMessagePublisher
	clock     *testClock
	writer    CommitteeWriter
	reader    CommitteeReader
}

// newTestEnv resets the shared mock repository and wires both orchestrators to it
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := mock.NewMockRepository()
	repo.ClearAll()
	for _, id := range []string{"prof-1", "prof-2", "prof-3", "prof-4", "prof-5"} {
		repo.AddPerson(&model.Person{ID: id, Name: "Professor " + id, Institution: "Home Program", Affiliation: model.AffiliationInternal})
	}
	for _, id := range []string{"ext-1", "ext-2", "ext-3"} {
		repo.AddPerson(&model.Person{ID: id, Name: "Examiner " + id, Institution: "Visiting University", Affiliation: model.AffiliationExternal})
	}

	env := &testEnv{
		repo:      repo,
		publisher: mock.NewMockMessagePublisher(),
		clock:     &testClock{now: testNow},
	}
	env.writer = NewCommitteeWriterOrchestrator(
		WithCommitteeReader(repo),
		WithCommitteeWriter(repo),
		WithPersonDirectory(repo),
		WithPublisher(env.publisher),
		WithClock(env.clock.Now),
	)
	env.reader = NewCommitteeReaderOrchestrator(
		WithReader(repo),
		WithReaderDirectory(repo),
	)
	return env
}

func titular(uid string, examiner model.Examiner, role model.MemberRole) model.CommitteeMember {
	return model.CommitteeMember{UID: uid, Examiner: examiner, Kind: model.MemberKindTitular, Role: role}
}

func alternate(uid string, examiner model.Examiner) model.CommitteeMember {
	return model.CommitteeMember{UID: uid, Examiner: examiner, Kind: model.MemberKindAlternate, Role: model.RoleInternalMember}
}

// newDefenseRequest is a valid masters defense: a president, one more
// internal titular, one external titular and an alternate
func newDefenseRequest() *model.Committee {
	return &model.Committee{
		CandidateUID: "candidate-1",
		ProgramUID:   "program-cs",
		Title:        "On the Composition of Examining Committees",
		Type:         model.TypeDefenseMasters,
		Iteration:    1,
		ScheduledAt:  time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC),
		Location:     "Room 204",
		Mode:         model.ModeInPerson,
		Members: []model.CommitteeMember{
			titular("m-1", model.InternalExaminer("prof-1"), model.RolePresident),
			titular("m-2", model.InternalExaminer("prof-2"), model.RoleInternalMember),
			titular("m-3", model.ExternalExaminer("ext-1"), model.RoleExternalMember),
			alternate("m-4", model.InternalExaminer("prof-3")),
		},
	}
}

// createDefense stores a valid defense through the orchestrator
func (e *testEnv) createDefense(t *testing.T) (*model.Committee, uint64) {
	t.Helper()
	created, rev, err := e.writer.CreateCommittee(context.Background(), newDefenseRequest())
	require.NoError(t, err)
	e.publisher.Reset()
	return created, rev
}

// confirmAllTitulars sends and accepts every active titular invitation
func (e *testEnv) confirmAllTitulars(t *testing.T, committee *model.Committee, rev uint64) (*model.Committee, uint64) {
	t.Helper()
	ctx := context.Background()
	var err error
	for _, m := range committee.ActiveMembers() {
		if !m.IsTitular() || m.InvitationStatus == model.InvitationConfirmed {
			continue
		}
		if m.InvitationStatus == model.InvitationPending {
			committee, rev, err = e.writer.SendInvitation(ctx, committee.UID, m.UID, rev)
			require.NoError(t, err)
		}
		committee, rev, err = e.writer.RecordInvitationReply(ctx, committee.UID, m.UID, true, rev)
		require.NoError(t, err)
	}
	return committee, rev
}
