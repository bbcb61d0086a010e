// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"

	"github.com/gradoffice/examining-committee-service/pkg/constants"
)

func TestReplyContext(t *testing.T) {
	withHeader := nats.NewMsg(constants.InvitationReplySubject)
	withHeader.Header.Set(constants.RequestIDHeader, "req-31")

	tests := []struct {
		name  string
		msg   *nats.Msg
		check func(t *testing.T, requestID string)
	}{
		{
			name: "request id from the sender",
			msg:  withHeader,
			check: func(t *testing.T, requestID string) {
				assert.Equal(t, "req-31", requestID)
			},
		},
		{
			name: "fresh request id without headers",
			msg:  &nats.Msg{Subject: constants.InvitationReplySubject},
			check: func(t *testing.T, requestID string) {
				_, err := uuid.Parse(requestID)
				assert.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := replyContext(tt.msg)
			requestID, _ := ctx.Value(constants.RequestIDContextKey).(string)
			tt.check(t, requestID)
		})
	}
}
