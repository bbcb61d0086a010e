// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gradoffice/examining-committee-service/internal/domain/composition"
	"github.com/gradoffice/examining-committee-service/internal/infrastructure/sqlite"
	"github.com/gradoffice/examining-committee-service/internal/service"
	logging "github.com/gradoffice/examining-committee-service/pkg/log"
)

const defaultDatabasePath = "committees.db"

// app holds the flags shared by every subcommand
type app struct {
	dbPath  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:              "committeectl",
		Short:            "Validate and manage examining committees",
		Long:             `Validate committee proposals against the composition policies and manage committees and examiners stored in a local SQLite file.`,
		SilenceUsage:     true,
		PersistentPreRun: a.configureLogging,
	}

	dbPath := os.Getenv("SQLITE_PATH")
	if dbPath == "" {
		dbPath = defaultDatabasePath
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", dbPath, "Path to the SQLite database (env SQLITE_PATH)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		a.newValidateCmd(),
		a.newCreateCmd(),
		a.newShowCmd(),
		a.newListCmd(),
		a.newPersonCmd(),
	)
	return root
}

// configureLogging sends logs to stderr so command output stays parseable
func (a *app) configureLogging(cmd *cobra.Command, _ []string) {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(logging.NewHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}

// withStore opens the database for the duration of fn
func (a *app) withStore(ctx context.Context, fn func(store *sqlite.Store) error) error {
	store, err := sqlite.Open(ctx, a.dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.WarnContext(ctx, "failed to close sqlite store", "error", closeErr)
		}
	}()
	return fn(store)
}

func newReader(store *sqlite.Store) service.CommitteeReader {
	if store == nil {
		return service.NewCommitteeReaderOrchestrator(
			service.WithReaderRegistry(composition.DefaultRegistry()),
		)
	}
	return service.NewCommitteeReaderOrchestrator(
		service.WithReader(store),
		service.WithReaderDirectory(store),
		service.WithReaderRegistry(composition.DefaultRegistry()),
	)
}

func newWriter(store *sqlite.Store) service.CommitteeWriter {
	return service.NewCommitteeWriterOrchestrator(
		service.WithCommitteeReader(store),
		service.WithCommitteeWriter(store),
		service.WithPersonDirectory(store),
		service.WithCompositionRegistry(composition.DefaultRegistry()),
	)
}
