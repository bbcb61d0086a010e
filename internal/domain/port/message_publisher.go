// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import "context"

// MessagePublisher defines the interface for publishing committee messages.
// Messages are published after the change they describe has been committed.
type MessagePublisher interface {
	// Committee publishes committee lifecycle events consumed by the
	// notification and document services
	Committee(ctx context.Context, subject string, message any) error

	// Invitation publishes invitation requests for delivery to examiners
	Invitation(ctx context.Context, subject string, message any) error
}
