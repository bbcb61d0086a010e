// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import "context"

// CommitteeRepository defines the interface for committee persistence.
// It holds pure storage operations; composition rules, lifecycle checks and
// event publishing belong to the service layer.
//
// Implemented by:
//   - NATS JetStream KV storage
//   - SQLite storage
//   - Mock storage (testing and local runs)
type CommitteeRepository interface {
	CommitteeReader
	CommitteeWriter

	// IsReady checks if the storage is ready by verifying the connection
	IsReady(ctx context.Context) error
}
