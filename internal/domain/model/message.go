// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gradoffice/examining-committee-service/pkg/constants"
)

// MessageAction is the action carried by a committee event
type MessageAction string

// MessageAction constants
const (
	ActionCreated     MessageAction = "created"
	ActionUpdated     MessageAction = "updated"
	ActionConfirmed   MessageAction = "confirmed"
	ActionRealized    MessageAction = "realized"
	ActionCancelled   MessageAction = "cancelled"
	ActionRescheduled MessageAction = "rescheduled"
	ActionDeleted     MessageAction = "deleted"
)

// CommitteeEvent is published after a committee change has been committed.
// Notification and document services consume it; this service never delivers
// anything itself.
type CommitteeEvent struct {
	Action       MessageAction     `json:"action"`
	CommitteeUID string            `json:"committee_uid"`
	Revision     uint64            `json:"revision"`
	Headers      map[string]string `json:"headers"`
	Data         any               `json:"data"`
	Tags         []string          `json:"tags"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// Build fills the event headers from the context and the payload from the committee.
// Deletions only carry the committee UID.
func (e *CommitteeEvent) Build(ctx context.Context, committee *Committee) (*CommitteeEvent, error) {
	headers := make(map[string]string)
	if principal, ok := ctx.Value(constants.PrincipalContextID).(string); ok {
		headers["principal"] = principal
	}
	if requestID, ok := ctx.Value(constants.RequestIDContextKey).(string); ok {
		headers["request_id"] = requestID
	}
	e.Headers = headers
	e.CommitteeUID = committee.UID
	e.Tags = committee.Tags()

	if e.Action == ActionDeleted {
		e.Data = committee.UID
		return e, nil
	}

	data, err := json.Marshal(committee)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling committee into JSON", "error", err)
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.ErrorContext(ctx, "error unmarshalling committee into JSON", "error", err)
		return nil, err
	}
	e.Data = payload
	return e, nil
}

// InvitationMessage asks the notification sink to deliver an invitation
type InvitationMessage struct {
	CommitteeUID string        `json:"committee_uid"`
	MemberUID    string        `json:"member_uid"`
	Examiner     Examiner      `json:"examiner"`
	Kind         MemberKind    `json:"kind"`
	Role         MemberRole    `json:"role"`
	Type         CommitteeType `json:"type"`
	ScheduledAt  time.Time     `json:"scheduled_at"`
	Location     string        `json:"location,omitempty"`
	Mode         CommitteeMode `json:"mode"`
}

// InvitationReply is an examiner's answer, relayed by the notification sink
type InvitationReply struct {
	CommitteeUID string    `json:"committee_uid"`
	MemberUID    string    `json:"member_uid"`
	Accepted     bool      `json:"accepted"`
	RepliedAt    time.Time `json:"replied_at"`
}
