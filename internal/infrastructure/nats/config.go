// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import "time"

// Config holds the NATS connection settings
type Config struct {
	// URL is the NATS server URL
	URL string
	// Timeout bounds connection attempts and request/reply calls
	Timeout time.Duration
	// MaxReconnect is the maximum number of reconnect attempts
	MaxReconnect int
	// ReconnectWait is the time to wait between reconnect attempts
	ReconnectWait time.Duration
}
