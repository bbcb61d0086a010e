// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// ContextKey types the values this service stores in a context.Context
type ContextKey string

const (
	// PrincipalContextID holds who acts on the committee, a program secretary or coordinator
	PrincipalContextID ContextKey = "principal"
	// RequestIDContextKey holds the request ID propagated into events
	RequestIDContextKey ContextKey = "request-id"
)

// RequestIDHeader is the NATS header a request ID travels in
const RequestIDHeader = "X-Request-Id"
