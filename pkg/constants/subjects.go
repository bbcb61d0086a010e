// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// NATS subjects for committee lifecycle events consumed by notification and document sinks
const (
	CommitteeCreatedSubject     = "banca.committee.created"
	CommitteeUpdatedSubject     = "banca.committee.updated"
	CommitteeConfirmedSubject   = "banca.committee.confirmed"
	CommitteeRealizedSubject    = "banca.committee.realized"
	CommitteeCancelledSubject   = "banca.committee.cancelled"
	CommitteeRescheduledSubject = "banca.committee.rescheduled"
	CommitteeDeletedSubject     = "banca.committee.deleted"

	// MemberInvitationSentSubject tells the notification sink to deliver an invitation
	MemberInvitationSentSubject = "banca.member.invitation_sent"

	// InvitationReplySubject carries examiner replies (accept/decline) back to this service
	InvitationReplySubject = "banca.invitation.reply"
)
