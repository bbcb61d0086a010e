// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradoffice/examining-committee-service/internal/domain/composition"
	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
)

const validProposal = `candidate_uid: cand-1
program_uid: program-cs
title: Scheduling Examining Committees
type: defense-masters
scheduled_at: 2030-06-01T14:30:00Z
location: Room 204
mode: hybrid
members:
  - internal: prof-1
    kind: titular
    role: president
  - internal: prof-2
    kind: titular
    role: internal-member
  - external: ext-1
    kind: titular
    role: external-member
    presentation_order: 1
`

const people = `people:
  - id: prof-1
    affiliation: internal
    name: Ana Lima
    institution: UFX
  - id: prof-2
    affiliation: internal
    name: Bruno Costa
    institution: UFX
  - id: ext-1
    affiliation: external
    name: Elena Souza
    institution: Other University
`

// execute runs committeectl with args and returns what it printed
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDecodeProposal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, c *model.Committee)
	}{
		{
			name:  "valid proposal",
			input: validProposal,
			check: func(t *testing.T, c *model.Committee) {
				assert.Equal(t, model.TypeDefenseMasters, c.Type)
				assert.Equal(t, 1, c.Iteration, "iteration defaults to 1")
				require.Len(t, c.Members, 3)
				assert.Equal(t, model.ExternalExaminer("ext-1"), c.Members[2].Examiner)
				require.NotNil(t, c.Members[2].PresentationOrder)
				assert.Equal(t, 1, *c.Members[2].PresentationOrder)
				for _, m := range c.Members {
					assert.NotEmpty(t, m.UID)
				}
				assert.NoError(t, c.ValidateBasicFields())
			},
		},
		{
			name:  "mode defaults to in-person",
			input: "candidate_uid: cand-1\ntype: qualification-masters\n",
			check: func(t *testing.T, c *model.Committee) {
				assert.Equal(t, model.ModeInPerson, c.Mode)
			},
		},
		{
			name:    "unknown key",
			input:   "candidate_uid: cand-1\nboard: []\n",
			wantErr: true,
		},
		{
			name:    "member with both identifiers",
			input:   "candidate_uid: cand-1\nmembers:\n  - internal: a\n    external: b\n    kind: titular\n    role: president\n",
			wantErr: true,
		},
		{
			name:    "member without identifier",
			input:   "candidate_uid: cand-1\nmembers:\n  - kind: titular\n    role: president\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := decodeProposal(strings.NewReader(tt.input))
			if err == nil {
				var committee *model.Committee
				committee, err = p.committee()
				if err == nil && tt.check != nil {
					tt.check(t, committee)
				}
			}
			if tt.wantErr {
				assert.True(t, errs.IsValidation(err), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name     string
		proposal string
		wantErr  bool
		wantOut  string
	}{
		{
			name:     "valid defense",
			proposal: validProposal,
			wantOut:  "result:     valid",
		},
		{
			name:     "defense without external titular",
			proposal: strings.Replace(validProposal, "external: ext-1", "internal: prof-3", 1),
			wantErr:  true,
			wantOut:  "rule " + composition.RuleMinExternalTitulars,
		},
		{
			name:     "qualification may be all internal",
			proposal: strings.NewReplacer("defense-masters", "qualification-masters", "external: ext-1", "internal: prof-3").Replace(validProposal),
			wantOut:  "result:     valid",
		},
		{
			name:     "missing schedule",
			proposal: strings.Replace(validProposal, "scheduled_at: 2030-06-01T14:30:00Z\n", "", 1),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.proposal, "validate", "-")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestValidateCommand_CheckExaminers(t *testing.T) {
	db := filepath.Join(t.TempDir(), "committees.db")

	_, err := execute(t, validProposal, "--db", db, "validate", "--check-examiners", "-")
	assert.True(t, errs.IsNotFound(err), "examiners are not in the database yet")

	_, err = execute(t, "", "--db", db, "person", "import", writeFile(t, "people.yaml", people))
	require.NoError(t, err)

	out, err := execute(t, validProposal, "--db", db, "validate", "--check-examiners", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "result:     valid")
}

func TestCreateShowList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "committees.db")
	proposalPath := writeFile(t, "proposal.yaml", validProposal)

	_, err := execute(t, "", "--db", db, "create", proposalPath)
	assert.True(t, errs.IsValidation(err), "unknown examiners are rejected")

	out, err := execute(t, "", "--db", db, "person", "import", writeFile(t, "people.yaml", people))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 examiners")

	out, err = execute(t, "", "--db", db, "create", proposalPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Created committee "))
	uid := strings.Fields(out)[2]

	_, err = execute(t, "", "--db", db, "create", proposalPath)
	assert.True(t, errs.IsConflict(err), "same candidate, type and iteration")

	out, err = execute(t, "", "--db", db, "show", uid)
	require.NoError(t, err)
	assert.Contains(t, out, "uid: "+uid)
	assert.Contains(t, out, "status: scheduled")
	assert.Contains(t, out, "name: Elena Souza")
	assert.Contains(t, out, "event: create")

	out, err = execute(t, "", "--db", db, "list", "cand-1")
	require.NoError(t, err)
	assert.Contains(t, out, uid)
	assert.Contains(t, out, "defense-masters")

	out, err = execute(t, "", "--db", db, "list", "cand-404")
	require.NoError(t, err)
	assert.Contains(t, out, "No committees found")

	_, err = execute(t, "", "--db", db, "show", "missing")
	assert.True(t, errs.IsNotFound(err))
}

func TestPersonAddCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "committees.db")

	out, err := execute(t, "", "--db", db, "person", "add", "--id", "ext-9", "--affiliation", "external", "--name", "Iris Prado")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored external examiner ext-9")

	_, err = execute(t, "", "--db", db, "person", "add", "--id", "x", "--affiliation", "visitor")
	assert.True(t, errs.IsValidation(err))

	_, err = execute(t, "", "--db", db, "person", "add", "--name", "nobody")
	assert.Error(t, err, "id and affiliation are required")
}
