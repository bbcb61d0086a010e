// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/internal/infrastructure/sqlite"
	"github.com/gradoffice/examining-committee-service/internal/service"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
	"github.com/gradoffice/examining-committee-service/pkg/utils"
)

func (a *app) newValidateCmd() *cobra.Command {
	var checkExaminers bool

	cmd := &cobra.Command{
		Use:   "validate [proposal.yaml]",
		Short: "Check a committee proposal against its composition policy",
		Long: `Check the fields and the composition of a committee proposal without storing it.
Use "-" to read the proposal from stdin. With --check-examiners every examiner
must also exist in the people table of the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			committee, err := readProposal(cmd, args[0])
			if err != nil {
				return err
			}
			if err := committee.ValidateBasicFields(); err != nil {
				return err
			}

			validate := func(reader service.CommitteeReader) error {
				report, err := reader.ValidateProposal(ctx, committee.Type, committee.Members)
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), report)
				if !report.Valid {
					return report.Violation
				}
				return nil
			}

			if !checkExaminers {
				return validate(newReader(nil))
			}
			return a.withStore(ctx, func(store *sqlite.Store) error {
				for _, m := range committee.Members {
					if _, err := store.ResolveExaminer(ctx, m.Examiner); err != nil {
						return err
					}
				}
				return validate(newReader(store))
			})
		},
	}
	cmd.Flags().BoolVar(&checkExaminers, "check-examiners", false, "Also resolve every examiner in the database")
	return cmd
}

func (a *app) newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [proposal.yaml]",
		Short: "Validate a proposal and store it as a scheduled committee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			committee, err := readProposal(cmd, args[0])
			if err != nil {
				return err
			}

			return a.withStore(ctx, func(store *sqlite.Store) error {
				created, revision, err := newWriter(store).CreateCommittee(ctx, committee)
				if err != nil {
					return err
				}
				cmd.Printf("Created committee %s (revision %d)\n", created.UID, revision)
				return nil
			})
		},
	}
}

func (a *app) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [committee-uid]",
		Short: "Print a stored committee and its roster as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return a.withStore(ctx, func(store *sqlite.Store) error {
				reader := newReader(store)
				committee, revision, err := reader.GetCommittee(ctx, args[0])
				if err != nil {
					return err
				}
				roster, err := reader.GetCommitteeRoster(ctx, args[0])
				if err != nil {
					return err
				}

				encoder := yaml.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent(2)
				if err := encoder.Encode(newCommitteeView(committee, revision, roster)); err != nil {
					return fmt.Errorf("encode committee: %w", err)
				}
				return encoder.Close()
			})
		},
	}
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [candidate-uid]",
		Short: "List the committees of a candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return a.withStore(ctx, func(store *sqlite.Store) error {
				committees, err := newReader(store).ListCommitteesByCandidate(ctx, args[0])
				if err != nil {
					return err
				}
				if len(committees) == 0 {
					cmd.Printf("No committees found for candidate: %s\n", args[0])
					return nil
				}

				cmd.Println(committeeTable(committees))
				return nil
			})
		},
	}
}

// readProposal decodes the proposal at path, or stdin for "-"
func readProposal(cmd *cobra.Command, path string) (*model.Committee, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errs.NewValidation(fmt.Sprintf("cannot open proposal %s", path), err)
		}
		defer f.Close()
		r = f
	}

	p, err := decodeProposal(r)
	if err != nil {
		return nil, err
	}
	return p.committee()
}

func printReport(w io.Writer, report *service.ValidationReport) {
	fmt.Fprintf(w, "type:       %s\n", report.Type)
	fmt.Fprintf(w, "policy:     %s\n", report.Policy)
	fmt.Fprintf(w, "titulars:   %d (internal %d, external %d)\n",
		report.Titulars, report.InternalTitulars, report.ExternalTitulars)
	fmt.Fprintf(w, "presidents: %d\n", report.Presidents)
	if report.Valid {
		fmt.Fprintln(w, "result:     valid")
		return
	}
	fmt.Fprintf(w, "result:     invalid, rule %s expected %d observed %d\n",
		report.Violation.Rule, report.Violation.Expected, report.Violation.Observed)
}

// committeeView is the YAML rendering of a stored committee
type committeeView struct {
	UID                string        `yaml:"uid"`
	Revision           uint64        `yaml:"revision"`
	CandidateUID       string        `yaml:"candidate_uid"`
	ProgramUID         string        `yaml:"program_uid,omitempty"`
	Title              string        `yaml:"title,omitempty"`
	Type               string        `yaml:"type"`
	Iteration          int           `yaml:"iteration"`
	ScheduledAt        string        `yaml:"scheduled_at"`
	Location           string        `yaml:"location,omitempty"`
	Mode               string        `yaml:"mode"`
	Status             string        `yaml:"status"`
	Result             string        `yaml:"result,omitempty"`
	MinutesDocumentRef string        `yaml:"minutes_document_ref,omitempty"`
	CancellationReason string        `yaml:"cancellation_reason,omitempty"`
	RescheduleCount    int           `yaml:"reschedule_count,omitempty"`
	Roster             []rosterView  `yaml:"roster"`
	History            []historyView `yaml:"history"`
}

type rosterView struct {
	MemberUID   string  `yaml:"member_uid"`
	Examiner    string  `yaml:"examiner"`
	Name        string  `yaml:"name,omitempty"`
	Institution string  `yaml:"institution,omitempty"`
	Kind        string  `yaml:"kind"`
	Role        string  `yaml:"role"`
	Invitation  string  `yaml:"invitation"`
	RespondedAt *string `yaml:"responded_at,omitempty"`
}

type historyView struct {
	At     string `yaml:"at"`
	Event  string `yaml:"event"`
	From   string `yaml:"from,omitempty"`
	To     string `yaml:"to"`
	Reason string `yaml:"reason,omitempty"`
}

func newCommitteeView(c *model.Committee, revision uint64, roster []model.RosterEntry) committeeView {
	view := committeeView{
		UID:                c.UID,
		Revision:           revision,
		CandidateUID:       c.CandidateUID,
		ProgramUID:         c.ProgramUID,
		Title:              c.Title,
		Type:               string(c.Type),
		Iteration:          c.Iteration,
		ScheduledAt:        utils.FormatTime(c.ScheduledAt),
		Location:           c.Location,
		Mode:               string(c.Mode),
		Status:             string(c.Status),
		Result:             string(c.Result),
		MinutesDocumentRef: c.MinutesDocumentRef,
		CancellationReason: c.CancellationReason,
		RescheduleCount:    c.RescheduleCount,
	}

	for _, entry := range roster {
		row := rosterView{
			MemberUID:   entry.Member.UID,
			Examiner:    entry.Member.Examiner.String(),
			Kind:        string(entry.Member.Kind),
			Role:        string(entry.Member.Role),
			Invitation:  string(entry.Member.InvitationStatus),
			RespondedAt: utils.FormatTimePtr(entry.Member.RespondedAt),
		}
		if entry.Person != nil {
			row.Name = entry.Person.Name
			row.Institution = entry.Person.Institution
		}
		view.Roster = append(view.Roster, row)
	}

	for _, change := range c.History {
		view.History = append(view.History, historyView{
			At:     utils.FormatTime(change.At),
			Event:  change.Event,
			From:   string(change.From),
			To:     string(change.To),
			Reason: change.Reason,
		})
	}
	return view
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

// committeeTable renders one row per committee in schedule order
func committeeTable(committees []*model.Committee) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("UID", "TYPE", "ITERATION", "SCHEDULED AT", "STATUS", "RESULT").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, c := range committees {
		result := string(c.Result)
		if result == "" {
			result = "-"
		}
		t.Row(c.UID, string(c.Type), strconv.Itoa(c.Iteration), utils.FormatTime(c.ScheduledAt), string(c.Status), result)
	}
	return t.Render()
}
