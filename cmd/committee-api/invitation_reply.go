// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/gradoffice/examining-committee-service/cmd/committee-api/config"
	"github.com/gradoffice/examining-committee-service/cmd/committee-api/service"
	internalService "github.com/gradoffice/examining-committee-service/internal/service"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
	logging "github.com/gradoffice/examining-committee-service/pkg/log"
	"github.com/gradoffice/examining-committee-service/pkg/utils"
)

// handleInvitationReplies subscribes to examiner replies and applies them to
// the committee aggregate, retrying on revision conflicts
func handleInvitationReplies(ctx context.Context, wg *sync.WaitGroup, cfg config.Config) error {
	if !cfg.UsesNATS() {
		slog.WarnContext(ctx, "invitation reply consumer disabled, no NATS connection configured")
		return nil
	}

	slog.InfoContext(ctx, "starting invitation reply consumer")

	replyService := internalService.NewInvitationReplyService(
		service.CommitteeReaderOrchestrator(ctx, cfg),
		service.CommitteeWriterOrchestrator(ctx, cfg),
	).WithRetryConfig(utils.NewRetryConfig(5, 100*time.Millisecond, 2*time.Second))
	natsClient := service.GetNATSClient(ctx, cfg)

	_, subErr := natsClient.QueueSubscribe(
		constants.InvitationReplySubject,
		constants.CommitteeAPIQueue,
		func(msg *nats.Msg) {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "rejecting reply - service shutting down",
					"subject", msg.Subject)
				if nakErr := msg.Nak(); nakErr != nil {
					slog.DebugContext(ctx, "failed to nak reply during shutdown", "error", nakErr)
				}
				return
			default:
			}

			// not derived from the shutdown context so in-flight replies finish
			msgCtx, cancel := context.WithTimeout(replyContext(msg), cfg.ReplyTimeout)
			defer cancel()

			if handleErr := replyService.HandleMessage(msgCtx, msg); handleErr != nil {
				slog.ErrorContext(msgCtx, "failed to apply invitation reply",
					"error", handleErr,
					"subject", msg.Subject)
				if nakErr := msg.Nak(); nakErr != nil {
					slog.DebugContext(msgCtx, "failed to nak reply", "error", nakErr)
				}
				return
			}
			if ackErr := msg.Ack(); ackErr != nil {
				slog.DebugContext(msgCtx, "failed to ack reply", "error", ackErr)
			}
		},
	)
	if subErr != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", constants.InvitationReplySubject, subErr)
	}
	slog.InfoContext(ctx, "subscribed to invitation replies",
		"subject", constants.InvitationReplySubject,
		"queue", constants.CommitteeAPIQueue)

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		slog.InfoContext(ctx, "shutting down invitation reply consumer")
	}()

	return nil
}

// replyContext carries the sender's request ID, or a fresh one, into the
// events and logs the reply produces
func replyContext(msg *nats.Msg) context.Context {
	requestID := ""
	if msg.Header != nil {
		requestID = msg.Header.Get(constants.RequestIDHeader)
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx := context.WithValue(context.Background(), constants.RequestIDContextKey, requestID)
	return logging.AppendCtx(ctx, slog.String("request_id", requestID))
}
