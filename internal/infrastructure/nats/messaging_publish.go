// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gradoffice/examining-committee-service/internal/domain/port"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
	"github.com/gradoffice/examining-committee-service/pkg/errors"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// eventKindHeader tells consumers sharing a wildcard subscription which stream an event belongs to
const eventKindHeader = "Banca-Event-Kind"

const (
	eventKindCommittee  = "committee"
	eventKindInvitation = "invitation"
)

type eventPublisher struct {
	client *NATSClient
}

// Committee publishes committee lifecycle events.
func (p *eventPublisher) Committee(ctx context.Context, subject string, message any) error {
	return p.send(ctx, eventKindCommittee, subject, message)
}

// Invitation publishes an invitation request for the notification service to deliver
func (p *eventPublisher) Invitation(ctx context.Context, subject string, message any) error {
	return p.send(ctx, eventKindInvitation, subject, message)
}

func (p *eventPublisher) send(ctx context.Context, kind, subject string, message any) error {
	logger := slog.With("subject", subject, "event_kind", kind)

	if err := p.client.IsReady(ctx); err != nil {
		logger.ErrorContext(ctx, "cannot publish event, NATS is not ready", "error", err)
		return errors.NewServiceUnavailable("NATS client is not ready", err)
	}

	msg, err := newEventMsg(ctx, kind, subject, message)
	if err != nil {
		logger.ErrorContext(ctx, "cannot encode event", "error", err)
		return err
	}

	if err := p.client.conn.PublishMsg(msg); err != nil {
		logger.ErrorContext(ctx, "event publish failed", "error", err)
		return errors.NewServiceUnavailable("failed to publish event", err)
	}

	logger.DebugContext(ctx, "event published", "bytes", len(msg.Data))
	return nil
}

// newEventMsg encodes message as JSON and carries the request ID and the
// trace context in the headers
func newEventMsg(ctx context.Context, kind, subject string, message any) (*nats.Msg, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, errors.NewUnexpected("failed to marshal event", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(eventKindHeader, kind)
	if requestID, _ := ctx.Value(constants.RequestIDContextKey).(string); requestID != "" {
		msg.Header.Set(constants.RequestIDHeader, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return msg, nil
}

// NewMessagePublisher returns a publisher sending core NATS messages
func NewMessagePublisher(client *NATSClient) port.MessagePublisher {
	return &eventPublisher{client: client}
}
