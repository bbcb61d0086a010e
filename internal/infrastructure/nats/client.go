// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package nats implements the committee repository, the event publisher and
// the person directory on top of NATS JetStream KV and request/reply.
package nats

import (
	"context"
	"log/slog"
	"time"

	"github.com/gradoffice/examining-committee-service/pkg/constants"
	"github.com/gradoffice/examining-committee-service/pkg/errors"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSClient owns the connection shared by the repository, the publisher and
// the directory, plus the committees bucket
type NATSClient struct {
	conn       *nats.Conn
	committees jetstream.KeyValue
	timeout    time.Duration
}

// Close drains subscriptions and closes the NATS connection
func (c *NATSClient) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}

// IsReady reports ServiceUnavailable unless the connection is up and not draining
func (c *NATSClient) IsReady(ctx context.Context) error {
	if err := c.connected(); err != nil {
		slog.ErrorContext(ctx, "NATS client is not ready", "error", err)
		return err
	}
	slog.DebugContext(ctx, "NATS client is ready", "url", c.conn.ConnectedUrl())
	return nil
}

func (c *NATSClient) connected() error {
	switch {
	case c.conn == nil:
		return errors.NewServiceUnavailable("NATS connection not initialized")
	case c.conn.IsDraining():
		return errors.NewServiceUnavailable("NATS connection is draining")
	case !c.conn.IsConnected():
		return errors.NewServiceUnavailable("NATS connection not established", nats.ErrConnectionClosed)
	}
	return nil
}

// QueueSubscribe joins the queue group so replicas share the invitation replies
func (c *NATSClient) QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	if err := c.connected(); err != nil {
		return nil, err
	}
	return c.conn.QueueSubscribe(subject, queue, handler)
}

// bucket returns the committees bucket. Other names are not bound.
func (c *NATSClient) bucket(name string) (jetstream.KeyValue, error) {
	if name != constants.KVBucketNameCommittees || c.committees == nil {
		return nil, errors.NewServiceUnavailable("KV bucket " + name + " not available")
	}
	return c.committees, nil
}

// bindCommittees looks up the committees bucket, which is provisioned outside this service
func (c *NATSClient) bindCommittees(ctx context.Context) error {
	js, err := jetstream.New(c.conn)
	if err != nil {
		return err
	}
	kv, err := js.KeyValue(ctx, constants.KVBucketNameCommittees)
	if err != nil {
		return err
	}
	c.committees = kv
	return nil
}

func connectOptions(ctx context.Context, config Config) []nats.Option {
	return []nats.Option{
		nats.Name(constants.ServiceName),
		nats.Timeout(config.Timeout),
		nats.MaxReconnects(config.MaxReconnect),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.WarnContext(ctx, "NATS disconnected", "error", err, "status", nc.Status())
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			attrs := []any{"error", err}
			if sub != nil {
				attrs = append(attrs, "subject", sub.Subject, "queue", sub.Queue)
			}
			slog.ErrorContext(ctx, "async NATS error", attrs...)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection closed", "status", nc.Status())
		}),
	}
}

// NewClient connects to NATS and binds the committees bucket
func NewClient(ctx context.Context, config Config) (*NATSClient, error) {
	if config.URL == "" {
		return nil, errors.NewValidation("NATS URL is required")
	}
	slog.InfoContext(ctx, "connecting to NATS", "url", config.URL, "timeout", config.Timeout)

	conn, err := nats.Connect(config.URL, connectOptions(ctx, config)...)
	if err != nil {
		return nil, errors.NewServiceUnavailable("failed to connect to NATS", err)
	}

	client := &NATSClient{conn: conn, timeout: config.Timeout}
	if err := client.bindCommittees(ctx); err != nil {
		slog.ErrorContext(ctx, "committees bucket unavailable",
			"error", err,
			"bucket", constants.KVBucketNameCommittees,
		)
		conn.Close()
		return nil, errors.NewServiceUnavailable("failed to bind the committees bucket", err)
	}

	slog.InfoContext(ctx, "NATS client ready", "connected_url", conn.ConnectedUrl())
	return client, nil
}
