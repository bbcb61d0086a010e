// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
)

// checkerFunc adapts a function to CompositionChecker
type checkerFunc func(c *Committee) error

func (f checkerFunc) Check(c *Committee) error { return f(c) }

var errComposition = errs.NewValidation("composition rejected")

// minTitulars rejects committees with fewer than three active titulars
var minTitulars = checkerFunc(func(c *Committee) error {
	n := 0
	for _, m := range c.ActiveMembers() {
		if m.IsTitular() {
			n++
		}
	}
	if n < 3 {
		return errComposition
	}
	return nil
})

var lifecycleNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func openedCommittee(t *testing.T) *Committee {
	t.Helper()
	c := createValidTestCommittee()
	require.NoError(t, c.Open(minTitulars, lifecycleNow))
	return c
}

func confirmAll(t *testing.T, c *Committee) {
	t.Helper()
	for _, m := range c.ActiveMembers() {
		require.NoError(t, c.SendInvitation(m.UID, lifecycleNow))
		require.NoError(t, c.RecordInvitationReply(m.UID, true, lifecycleNow))
	}
}

func requireTransitionError(t *testing.T, err error) *TransitionError {
	t.Helper()
	var transition *TransitionError
	require.True(t, errors.As(err, &transition), "expected a transition error, got %v", err)
	var validation errs.Validation
	assert.True(t, errors.As(err, &validation))
	return transition
}

func TestCommittee_Open(t *testing.T) {
	c := createValidTestCommittee()
	c.Members[0].InvitationStatus = InvitationConfirmed
	c.Status = StatusRealized

	require.NoError(t, c.Open(minTitulars, lifecycleNow))

	assert.Equal(t, StatusScheduled, c.Status)
	assert.Equal(t, lifecycleNow, c.CreatedAt)
	require.Len(t, c.History, 1)
	assert.Equal(t, EventCreate, c.History[0].Event)
	for _, m := range c.Members {
		assert.Equal(t, InvitationPending, m.InvitationStatus)
		assert.Equal(t, "committee-1", m.CommitteeUID)
	}

	t.Run("composition failure leaves the committee untouched", func(t *testing.T) {
		c := createValidTestCommittee()
		c.Members = c.Members[:2]
		err := c.Open(minTitulars, lifecycleNow)
		assert.ErrorIs(t, err, errComposition)
		assert.Empty(t, c.Status)
		assert.Empty(t, c.History)
	})

	t.Run("basic validation runs first", func(t *testing.T) {
		c := createValidTestCommittee()
		c.CandidateUID = ""
		assert.Error(t, c.Open(minTitulars, lifecycleNow))
	})
}

func TestCommittee_MembershipChanges(t *testing.T) {
	t.Run("add member", func(t *testing.T) {
		c := openedCommittee(t)
		err := c.AddMember(CommitteeMember{UID: "m-5", Examiner: ExternalExaminer("ext-2"), Kind: MemberKindTitular, Role: RoleExternalMember, InvitationStatus: InvitationConfirmed}, minTitulars, lifecycleNow)
		require.NoError(t, err)
		m, _ := c.Member("m-5")
		require.NotNil(t, m)
		assert.Equal(t, InvitationPending, m.InvitationStatus)
		assert.Equal(t, "committee-1", m.CommitteeUID)
	})

	t.Run("remove member below minimum is rejected atomically", func(t *testing.T) {
		c := openedCommittee(t)
		err := c.RemoveMember("m-2", minTitulars, lifecycleNow)
		assert.ErrorIs(t, err, errComposition)
		assert.Len(t, c.Members, 4)
	})

	t.Run("remove alternate", func(t *testing.T) {
		c := openedCommittee(t)
		require.NoError(t, c.RemoveMember("m-4", minTitulars, lifecycleNow))
		assert.Len(t, c.Members, 3)
	})

	t.Run("remove unknown member", func(t *testing.T) {
		c := openedCommittee(t)
		err := c.RemoveMember("nope", minTitulars, lifecycleNow)
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("propose replaces the composition", func(t *testing.T) {
		c := openedCommittee(t)
		proposal := []CommitteeMember{
			{UID: "n-1", Examiner: InternalExaminer("prof-7"), Kind: MemberKindTitular, Role: RolePresident},
			{UID: "n-2", Examiner: InternalExaminer("prof-8"), Kind: MemberKindTitular, Role: RoleInternalMember},
			{UID: "n-3", Examiner: ExternalExaminer("ext-7"), Kind: MemberKindTitular, Role: RoleExternalMember},
		}
		require.NoError(t, c.ProposeMembers(proposal, minTitulars, lifecycleNow))
		require.Len(t, c.Members, 3)
		assert.Equal(t, "n-1", c.Members[0].UID)
		assert.Empty(t, proposal[0].CommitteeUID, "caller slice must not be modified")
	})

	t.Run("duplicate member uid is rejected", func(t *testing.T) {
		c := openedCommittee(t)
		err := c.AddMember(CommitteeMember{UID: "m-1", Examiner: InternalExaminer("prof-9"), Kind: MemberKindAlternate, Role: RoleAdvisor}, minTitulars, lifecycleNow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate member uid")
		assert.Len(t, c.Members, 4)
	})

	t.Run("membership is frozen once confirmed", func(t *testing.T) {
		c := openedCommittee(t)
		confirmAll(t, c)
		require.NoError(t, c.Confirm(minTitulars, lifecycleNow))

		err := c.RemoveMember("m-4", minTitulars, lifecycleNow)
		transition := requireTransitionError(t, err)
		assert.Equal(t, string(StatusConfirmed), transition.From)

		err = c.ChangeType(TypeQualificationMasters, minTitulars, lifecycleNow)
		requireTransitionError(t, err)
	})
}

func TestCommittee_ReplaceMember(t *testing.T) {
	replacement := CommitteeMember{UID: "m-6", Examiner: ExternalExaminer("ext-5")}

	t.Run("declined member is replaced and kept as history", func(t *testing.T) {
		c := openedCommittee(t)
		require.NoError(t, c.SendInvitation("m-3", lifecycleNow))
		require.NoError(t, c.RecordInvitationReply("m-3", false, lifecycleNow))

		require.NoError(t, c.ReplaceMember("m-3", replacement, minTitulars, lifecycleNow))

		old, _ := c.Member("m-3")
		require.NotNil(t, old)
		assert.Equal(t, "m-6", old.ReplacedByUID)
		assert.False(t, old.IsActive())
		assert.Equal(t, InvitationDeclined, old.InvitationStatus)

		added, _ := c.Member("m-6")
		require.NotNil(t, added)
		assert.Equal(t, "m-3", added.ReplacesUID)
		assert.Equal(t, MemberKindTitular, added.Kind)
		assert.Equal(t, RoleExternalMember, added.Role)
		assert.Equal(t, InvitationPending, added.InvitationStatus)
		assert.Len(t, c.ActiveMembers(), 4)
	})

	t.Run("member who did not decline cannot be replaced", func(t *testing.T) {
		c := openedCommittee(t)
		err := c.ReplaceMember("m-3", replacement, minTitulars, lifecycleNow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after declining")
		_, idx := c.Member("m-6")
		assert.Equal(t, -1, idx)
	})

	t.Run("replaced member cannot be replaced again", func(t *testing.T) {
		c := openedCommittee(t)
		require.NoError(t, c.SendInvitation("m-3", lifecycleNow))
		require.NoError(t, c.RecordInvitationReply("m-3", false, lifecycleNow))
		require.NoError(t, c.ReplaceMember("m-3", replacement, minTitulars, lifecycleNow))

		second := CommitteeMember{UID: "m-7", Examiner: ExternalExaminer("ext-6")}
		err := c.ReplaceMember("m-3", second, minTitulars, lifecycleNow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already replaced")
	})
}

func TestCommittee_Confirm(t *testing.T) {
	t.Run("all titulars confirmed", func(t *testing.T) {
		c := openedCommittee(t)
		for _, uid := range []string{"m-1", "m-2", "m-3"} {
			require.NoError(t, c.SendInvitation(uid, lifecycleNow))
			require.NoError(t, c.RecordInvitationReply(uid, true, lifecycleNow))
		}
		// the alternate never answered
		require.NoError(t, c.Confirm(minTitulars, lifecycleNow))
		assert.Equal(t, StatusConfirmed, c.Status)
		assert.Len(t, c.History, 2)
	})

	t.Run("pending titular blocks confirmation", func(t *testing.T) {
		c := openedCommittee(t)
		err := c.Confirm(minTitulars, lifecycleNow)
		transition := requireTransitionError(t, err)
		assert.Equal(t, EventConfirm, transition.Event)
		assert.Contains(t, transition.Reason, "has not confirmed")
		assert.Equal(t, StatusScheduled, c.Status)
	})

	t.Run("only unavailable titulars block confirmation", func(t *testing.T) {
		c := openedCommittee(t)
		confirmAll(t, c)
		m, _ := c.Member("m-3")
		m.InvitationStatus = InvitationSent
		require.False(t, m.IsAvailable())
		err := c.Confirm(minTitulars, lifecycleNow)
		transition := requireTransitionError(t, err)
		assert.Contains(t, transition.Reason, "m-3")

		m.InvitationStatus = InvitationConfirmed
		require.NoError(t, c.Confirm(minTitulars, lifecycleNow))
	})

	t.Run("declined titular blocks confirmation", func(t *testing.T) {
		c := openedCommittee(t)
		confirmAll(t, c)
		m, _ := c.Member("m-2")
		m.InvitationStatus = InvitationDeclined
		err := c.Confirm(minTitulars, lifecycleNow)
		transition := requireTransitionError(t, err)
		assert.Contains(t, transition.Reason, "must be replaced")
	})

	t.Run("composition is re-validated", func(t *testing.T) {
		c := openedCommittee(t)
		confirmAll(t, c)
		reject := checkerFunc(func(*Committee) error { return errComposition })
		assert.ErrorIs(t, c.Confirm(reject, lifecycleNow), errComposition)
		assert.Equal(t, StatusScheduled, c.Status)
	})
}

func TestCommittee_Realize(t *testing.T) {
	confirmed := func(t *testing.T) *Committee {
		c := openedCommittee(t)
		confirmAll(t, c)
		require.NoError(t, c.Confirm(minTitulars, lifecycleNow))
		return c
	}
	after := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	t.Run("records result and minutes", func(t *testing.T) {
		c := confirmed(t)
		require.NoError(t, c.Realize(ResultApprovedWithRevisions, "minutes/2026/42.pdf", after))
		assert.Equal(t, StatusRealized, c.Status)
		assert.Equal(t, ResultApprovedWithRevisions, c.Result)
		assert.Equal(t, "minutes/2026/42.pdf", c.MinutesDocumentRef)
	})

	t.Run("session in the future", func(t *testing.T) {
		c := confirmed(t)
		err := c.Realize(ResultApproved, "minutes.pdf", lifecycleNow)
		requireTransitionError(t, err)
		assert.Equal(t, StatusConfirmed, c.Status)
	})

	t.Run("missing minutes", func(t *testing.T) {
		c := confirmed(t)
		assert.Error(t, c.Realize(ResultApproved, "  ", after))
		assert.Empty(t, c.Result)
	})

	t.Run("invalid result", func(t *testing.T) {
		c := confirmed(t)
		assert.Error(t, c.Realize("pass", "minutes.pdf", after))
	})

	t.Run("scheduled committee cannot be realized", func(t *testing.T) {
		c := openedCommittee(t)
		requireTransitionError(t, c.Realize(ResultApproved, "minutes.pdf", after))
	})
}

func TestCommittee_CancelAndReschedule(t *testing.T) {
	t.Run("cancel requires a reason", func(t *testing.T) {
		c := openedCommittee(t)
		assert.Error(t, c.Cancel(" ", lifecycleNow))
		require.NoError(t, c.Cancel("candidate withdrew", lifecycleNow))
		assert.Equal(t, StatusCancelled, c.Status)
		assert.Equal(t, "candidate withdrew", c.CancellationReason)

		requireTransitionError(t, c.Cancel("again", lifecycleNow))
		requireTransitionError(t, c.Reschedule(lifecycleNow, "", "", "", lifecycleNow))
		requireTransitionError(t, c.SendInvitation("m-1", lifecycleNow))
	})

	t.Run("reschedule a confirmed committee resets invitations", func(t *testing.T) {
		c := openedCommittee(t)
		confirmAll(t, c)
		require.NoError(t, c.Confirm(minTitulars, lifecycleNow))

		newDate := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
		require.NoError(t, c.Reschedule(newDate, "", ModeRemote, "external examiner travel", lifecycleNow))

		assert.Equal(t, StatusScheduled, c.Status)
		assert.Equal(t, newDate, c.ScheduledAt)
		assert.Equal(t, "Room 204", c.Location)
		assert.Equal(t, ModeRemote, c.Mode)
		assert.Equal(t, 1, c.RescheduleCount)
		for _, m := range c.ActiveMembers() {
			assert.Equal(t, InvitationPending, m.InvitationStatus)
		}
		last := c.History[len(c.History)-1]
		assert.Equal(t, EventReschedule, last.Event)
		assert.Equal(t, StatusConfirmed, last.From)
		assert.Equal(t, "external examiner travel", last.Reason)
	})

	t.Run("reschedule keeps replaced members as they were", func(t *testing.T) {
		c := openedCommittee(t)
		require.NoError(t, c.SendInvitation("m-3", lifecycleNow))
		require.NoError(t, c.RecordInvitationReply("m-3", false, lifecycleNow))
		require.NoError(t, c.ReplaceMember("m-3", CommitteeMember{UID: "m-6", Examiner: ExternalExaminer("ext-5")}, minTitulars, lifecycleNow))

		require.NoError(t, c.Reschedule(lifecycleNow.Add(48*time.Hour), "Room 1", "", "", lifecycleNow))
		old, _ := c.Member("m-3")
		assert.Equal(t, InvitationDeclined, old.InvitationStatus)
	})

	t.Run("reschedule requires a date", func(t *testing.T) {
		c := openedCommittee(t)
		assert.Error(t, c.Reschedule(time.Time{}, "", "", "", lifecycleNow))
		assert.Equal(t, 0, c.RescheduleCount)
	})
}

func TestCommittee_InvitationThroughAggregate(t *testing.T) {
	c := openedCommittee(t)

	err := c.RecordInvitationReply("m-1", true, lifecycleNow)
	transition := requireTransitionError(t, err)
	assert.Equal(t, EventAcceptInvitation, transition.Event)

	assert.True(t, errs.IsNotFound(c.SendInvitation("missing", lifecycleNow)))
}
