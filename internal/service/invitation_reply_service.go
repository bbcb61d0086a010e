// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
	"github.com/gradoffice/examining-committee-service/pkg/log"
	"github.com/gradoffice/examining-committee-service/pkg/utils"
)

// InvitationReplyService applies examiner replies relayed by the notification sink.
// Replies carry no revision, so each attempt reads the current one and a
// concurrent change is retried with exponential backoff.
type InvitationReplyService struct {
	reader CommitteeReader
	writer CommitteeWriter
	retry  utils.RetryConfig
}

// NewInvitationReplyService creates a new invitation reply service
func NewInvitationReplyService(reader CommitteeReader, writer CommitteeWriter) *InvitationReplyService {
	return &InvitationReplyService{
		reader: reader,
		writer: writer,
		retry:  utils.NewRetryConfig(5, 100*time.Millisecond, 2*time.Second),
	}
}

// WithRetryConfig overrides the retry policy used on revision conflicts
func (s *InvitationReplyService) WithRetryConfig(config utils.RetryConfig) *InvitationReplyService {
	s.retry = config
	return s
}

// HandleMessage routes NATS messages to the reply handler.
// Returns an error only when the message could not be applied.
func (s *InvitationReplyService) HandleMessage(ctx context.Context, msg *nats.Msg) error {
	subject := msg.Subject

	slog.DebugContext(ctx, "received invitation reply message", "subject", subject)

	if subject != constants.InvitationReplySubject {
		slog.WarnContext(ctx, "unknown invitation reply subject", "subject", subject)
		return fmt.Errorf("unknown invitation reply subject: %s", subject)
	}

	var reply model.InvitationReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal invitation reply", "error", err)
		return fmt.Errorf("failed to unmarshal invitation reply: %w", err)
	}

	if err := s.Apply(ctx, reply); err != nil {
		slog.ErrorContext(ctx, "error processing invitation reply",
			"error", err,
			"committee_uid", reply.CommitteeUID,
			"member_uid", reply.MemberUID,
		)
		return err
	}

	return nil
}

// Apply records a reply, retrying when another change to the same committee
// wins the race. Any other failure is returned as is.
func (s *InvitationReplyService) Apply(ctx context.Context, reply model.InvitationReply) error {
	if strings.TrimSpace(reply.CommitteeUID) == "" || strings.TrimSpace(reply.MemberUID) == "" {
		return errs.NewValidation("invitation reply requires committee_uid and member_uid")
	}

	ctx = log.AppendCtx(ctx, slog.String("committee_uid", reply.CommitteeUID))
	ctx = log.AppendCtx(ctx, slog.String("member_uid", reply.MemberUID))
	slog.InfoContext(ctx, "processing invitation reply", "accepted", reply.Accepted)

	return utils.RetryWithExponentialBackoff(ctx, s.retry, func() error {
		revision, err := s.reader.GetRevision(ctx, reply.CommitteeUID)
		if err != nil {
			if errs.IsNotFound(err) {
				return utils.Permanent(err)
			}
			return err
		}

		_, _, err = s.writer.RecordInvitationReply(ctx, reply.CommitteeUID, reply.MemberUID, reply.Accepted, revision)
		if err != nil && !errs.IsConflict(err) {
			return utils.Permanent(err)
		}
		return err
	})
}
