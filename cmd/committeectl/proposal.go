// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
)

// proposal is the YAML document describing a committee to validate or create
type proposal struct {
	CandidateUID string           `yaml:"candidate_uid"`
	ProgramUID   string           `yaml:"program_uid"`
	Title        string           `yaml:"title"`
	Type         string           `yaml:"type"`
	Iteration    int              `yaml:"iteration"`
	ScheduledAt  time.Time        `yaml:"scheduled_at"`
	Location     string           `yaml:"location"`
	Mode         string           `yaml:"mode"`
	Members      []proposalMember `yaml:"members"`
}

// proposalMember names exactly one of internal or external
type proposalMember struct {
	Internal          string `yaml:"internal,omitempty"`
	External          string `yaml:"external,omitempty"`
	Kind              string `yaml:"kind"`
	Role              string `yaml:"role"`
	PresentationOrder *int   `yaml:"presentation_order,omitempty"`
	Notes             string `yaml:"notes,omitempty"`
}

// decodeProposal reads a single proposal, rejecting unknown keys
func decodeProposal(r io.Reader) (*proposal, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read proposal: %w", err)
	}

	var p proposal
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, errs.NewValidation("malformed committee proposal", err)
	}
	if p.Iteration == 0 {
		p.Iteration = 1
	}
	if p.Mode == "" {
		p.Mode = string(model.ModeInPerson)
	}
	return &p, nil
}

// committee converts the proposal into an unsaved committee. Members get
// fresh UIDs so the proposal can be validated before it is stored.
func (p *proposal) committee() (*model.Committee, error) {
	members := make([]model.CommitteeMember, 0, len(p.Members))
	for i, m := range p.Members {
		examiner, err := model.NewExaminer(m.Internal, m.External)
		if err != nil {
			return nil, errs.NewValidation(fmt.Sprintf("member %d: %v", i+1, err))
		}
		members = append(members, model.CommitteeMember{
			UID:               uuid.NewString(),
			Examiner:          examiner,
			Kind:              model.MemberKind(m.Kind),
			Role:              model.MemberRole(m.Role),
			InvitationStatus:  model.InvitationPending,
			PresentationOrder: m.PresentationOrder,
			Notes:             m.Notes,
		})
	}

	return &model.Committee{
		CandidateUID: p.CandidateUID,
		ProgramUID:   p.ProgramUID,
		Title:        p.Title,
		Type:         model.CommitteeType(p.Type),
		Iteration:    p.Iteration,
		ScheduledAt:  p.ScheduledAt.UTC(),
		Location:     p.Location,
		Mode:         model.CommitteeMode(p.Mode),
		Members:      members,
	}, nil
}

// personFile is the YAML document imported by "person import"
type personFile struct {
	People []personEntry `yaml:"people"`
}

type personEntry struct {
	ID          string `yaml:"id"`
	Affiliation string `yaml:"affiliation"`
	Name        string `yaml:"name"`
	Institution string `yaml:"institution"`
	Email       string `yaml:"email,omitempty"`
}

func (e personEntry) person() *model.Person {
	return &model.Person{
		ID:          e.ID,
		Name:        e.Name,
		Institution: e.Institution,
		Email:       e.Email,
		Affiliation: model.Affiliation(e.Affiliation),
	}
}
