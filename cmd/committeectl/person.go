// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gradoffice/examining-committee-service/internal/infrastructure/sqlite"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
)

func (a *app) newPersonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person",
		Short: "Manage the examiners known to the local database",
	}
	cmd.AddCommand(a.newPersonAddCmd(), a.newPersonImportCmd())
	return cmd
}

func (a *app) newPersonAddCmd() *cobra.Command {
	var entry personEntry

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a single examiner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(store *sqlite.Store) error {
				if err := store.PutPerson(ctx, entry.person()); err != nil {
					return err
				}
				cmd.Printf("Stored %s examiner %s\n", entry.Affiliation, entry.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&entry.ID, "id", "", "Examiner identifier")
	cmd.Flags().StringVar(&entry.Affiliation, "affiliation", "", "internal or external")
	cmd.Flags().StringVar(&entry.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&entry.Institution, "institution", "", "Home institution")
	cmd.Flags().StringVar(&entry.Email, "email", "", "Contact email")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("affiliation")
	return cmd
}

func (a *app) newPersonImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [people.yaml]",
		Short: "Add or update every examiner listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return errs.NewValidation(fmt.Sprintf("cannot read %s", args[0]), err)
			}
			var file personFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return errs.NewValidation("malformed people file", err)
			}

			return a.withStore(ctx, func(store *sqlite.Store) error {
				for i, entry := range file.People {
					if err := store.PutPerson(ctx, entry.person()); err != nil {
						return fmt.Errorf("person %d (%s): %w", i+1, entry.ID, err)
					}
				}
				cmd.Printf("Imported %d examiners\n", len(file.People))
				return nil
			})
		},
	}
}
