// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/internal/domain/port"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
	"github.com/gradoffice/examining-committee-service/pkg/errors"
)

type messageRequest struct {
	client *NATSClient
}

// directoryResponse is the reply of the person directory: either a person or an error
type directoryResponse struct {
	model.Person
	Error string `json:"error,omitempty"`
}

func (m *messageRequest) get(ctx context.Context, subject, id string) ([]byte, error) {
	if m.client.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.client.timeout)
			defer cancel()
		}
	}

	msg, err := m.client.conn.RequestWithContext(ctx, subject, []byte(id))
	if err != nil {
		slog.ErrorContext(ctx, "person directory request failed",
			"error", err,
			"subject", subject,
			"id", id,
		)
		return nil, errors.NewServiceUnavailable("person directory unavailable", err)
	}
	return msg.Data, nil
}

// ResolveExaminer asks the person directory for the examiner on the subject
// matching their affiliation. An empty reply means the directory does not know them.
func (m *messageRequest) ResolveExaminer(ctx context.Context, examiner model.Examiner) (*model.Person, error) {
	if err := examiner.Validate(); err != nil {
		return nil, err
	}

	subject := constants.DirectoryGetInternalExaminerSubject
	if examiner.IsExternal() {
		subject = constants.DirectoryGetExternalExaminerSubject
	}

	data, err := m.get(ctx, subject, examiner.ID())
	if err != nil {
		return nil, err
	}
	return decodeDirectoryResponse(ctx, examiner, data)
}

func decodeDirectoryResponse(ctx context.Context, examiner model.Examiner, data []byte) (*model.Person, error) {
	if len(data) == 0 {
		return nil, errors.NewNotFound(fmt.Sprintf("examiner %s not found", examiner))
	}

	var response directoryResponse
	if err := json.Unmarshal(data, &response); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal person directory response",
			"error", err,
			"examiner", examiner.String(),
		)
		return nil, errors.NewUnexpected("invalid person directory response", err)
	}
	if response.Error != "" {
		slog.WarnContext(ctx, "person directory responded with an error",
			"examiner", examiner.String(),
			"error", response.Error,
		)
		return nil, errors.NewUnexpected(response.Error)
	}
	if response.ID == "" {
		return nil, errors.NewNotFound(fmt.Sprintf("examiner %s not found", examiner))
	}

	person := response.Person
	if person.Affiliation == "" {
		person.Affiliation = examiner.Affiliation()
	}

	slog.DebugContext(ctx, "examiner resolved",
		"examiner", examiner.String(),
		"institution", person.Institution,
	)
	return &person, nil
}

// NewPersonDirectory creates a person directory that resolves examiners over NATS request/reply
func NewPersonDirectory(client *NATSClient) port.PersonDirectory {
	return &messageRequest{
		client: client,
	}
}
