// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gradoffice/examining-committee-service/internal/domain/port"
)

// PublishedMessage is a message captured by MockMessagePublisher
type PublishedMessage struct {
	Kind    string // "committee" or "invitation"
	Subject string
	Message any
}

// MockMessagePublisher records published messages instead of sending them
type MockMessagePublisher struct {
	mu        sync.Mutex
	published []PublishedMessage
	err       error
}

// Ensure MockMessagePublisher implements the MessagePublisher interface
var _ port.MessagePublisher = (*MockMessagePublisher)(nil)

// NewMockMessagePublisher creates a new mock publisher
func NewMockMessagePublisher() *MockMessagePublisher {
	return &MockMessagePublisher{}
}

// Committee records a committee event
func (p *MockMessagePublisher) Committee(ctx context.Context, subject string, message any) error {
	return p.record(ctx, "committee", subject, message)
}

// Invitation records an invitation message
func (p *MockMessagePublisher) Invitation(ctx context.Context, subject string, message any) error {
	return p.record(ctx, "invitation", subject, message)
}

func (p *MockMessagePublisher) record(ctx context.Context, kind, subject string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	slog.InfoContext(ctx, "mock message published",
		"subject", subject,
		"message_type", kind,
	)
	p.published = append(p.published, PublishedMessage{Kind: kind, Subject: subject, Message: message})
	return nil
}

// SetError makes every publish fail with err
func (p *MockMessagePublisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Published returns a copy of the recorded messages
func (p *MockMessagePublisher) Published() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedMessage(nil), p.published...)
}

// Subjects returns the subjects of the recorded messages, in publish order
func (p *MockMessagePublisher) Subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	subjects := make([]string, len(p.published))
	for i, m := range p.published {
		subjects[i] = m.Subject
	}
	return subjects
}

// Reset drops recorded messages and configured errors
func (p *MockMessagePublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = nil
	p.err = nil
}
