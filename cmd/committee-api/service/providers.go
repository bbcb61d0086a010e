// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service wires the committee-api adapters and orchestrators from configuration.
package service

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"sync"

	"github.com/gradoffice/examining-committee-service/cmd/committee-api/config"
	"github.com/gradoffice/examining-committee-service/internal/domain/composition"
	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/internal/domain/port"
	infrastructure "github.com/gradoffice/examining-committee-service/internal/infrastructure/mock"
	"github.com/gradoffice/examining-committee-service/internal/infrastructure/nats"
	"github.com/gradoffice/examining-committee-service/internal/infrastructure/sqlite"
	internalService "github.com/gradoffice/examining-committee-service/internal/service"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
)

var (
	natsClient    *nats.NATSClient
	natsStorage   port.CommitteeRepository
	natsDirectory port.PersonDirectory
	natsPublisher port.MessagePublisher
	natsDoOnce    sync.Once

	sqliteStore  *sqlite.Store
	sqliteDoOnce sync.Once

	mockRepository *infrastructure.MockRepository
	mockDoOnce     sync.Once

	registry       *composition.Registry
	registryDoOnce sync.Once
)

func natsInit(ctx context.Context, cfg config.Config) {
	natsDoOnce.Do(func() {
		client, errNewClient := nats.NewClient(ctx, cfg.NATS())
		if errNewClient != nil {
			log.Fatalf("failed to create NATS client: %v", errNewClient)
		}
		natsClient = client
		natsStorage = nats.NewStorage(client)
		natsDirectory = nats.NewPersonDirectory(client)
		natsPublisher = nats.NewMessagePublisher(client)
	})
}

func sqliteInit(ctx context.Context, cfg config.Config) {
	sqliteDoOnce.Do(func() {
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite store %s: %v", cfg.SQLitePath, err)
		}
		sqliteStore = store
	})
}

func mockInit() {
	mockDoOnce.Do(func() {
		mockRepository = infrastructure.NewMockRepository()
	})
}

// GetNATSClient returns the shared NATS client, connecting on first use
func GetNATSClient(ctx context.Context, cfg config.Config) *nats.NATSClient {
	natsInit(ctx, cfg)
	return natsClient
}

// CommitteeRepository initializes the committee repository based on the repository source
func CommitteeRepository(ctx context.Context, cfg config.Config) port.CommitteeRepository {
	var repository port.CommitteeRepository

	switch cfg.RepositorySource {
	case constants.SourceMock:
		slog.InfoContext(ctx, "initializing mock committee repository")
		mockInit()
		repository = infrastructure.NewMockCommitteeRepository(mockRepository)
	case constants.SourceSQLite:
		slog.InfoContext(ctx, "initializing sqlite committee repository", "path", cfg.SQLitePath)
		sqliteInit(ctx, cfg)
		repository = sqliteStore
	case constants.SourceNATS:
		slog.InfoContext(ctx, "initializing NATS committee repository")
		natsInit(ctx, cfg)
		repository = natsStorage
	default:
		log.Fatalf("unsupported committee repository implementation: %s", cfg.RepositorySource)
	}

	return repository
}

// PersonDirectory initializes the examiner directory based on the directory source
func PersonDirectory(ctx context.Context, cfg config.Config) port.PersonDirectory {
	var directory port.PersonDirectory

	switch cfg.DirectorySource {
	case constants.SourceMock:
		slog.InfoContext(ctx, "initializing mock person directory")
		mockInit()
		directory = infrastructure.NewMockPersonDirectory(mockRepository)
	case constants.SourceSQLite:
		slog.InfoContext(ctx, "initializing sqlite person directory", "path", cfg.SQLitePath)
		sqliteInit(ctx, cfg)
		directory = sqliteStore
	case constants.SourceNATS:
		slog.InfoContext(ctx, "initializing NATS person directory")
		natsInit(ctx, cfg)
		directory = natsDirectory
	default:
		log.Fatalf("unsupported person directory implementation: %s", cfg.DirectorySource)
	}

	return directory
}

// MessagePublisher publishes over NATS when a connection is configured and
// records messages in memory otherwise
func MessagePublisher(ctx context.Context, cfg config.Config) port.MessagePublisher {
	if cfg.UsesNATS() {
		slog.InfoContext(ctx, "initializing NATS message publisher")
		natsInit(ctx, cfg)
		return natsPublisher
	}
	slog.WarnContext(ctx, "no NATS connection configured, committee events are kept in memory")
	return infrastructure.NewMockMessagePublisher()
}

// CompositionRegistry returns the composition policies shared by both sides of
// the service and logs them once at startup
func CompositionRegistry(ctx context.Context) *composition.Registry {
	registryDoOnce.Do(func() {
		registry = composition.DefaultRegistry()
		for _, v := range registry.Validators() {
			slog.InfoContext(ctx, "composition policy registered",
				"policy", v.Name(),
				"types", v.Types(),
			)
		}
		for _, t := range model.ValidCommitteeTypes() {
			if _, err := registry.Resolve(t); err != nil {
				slog.WarnContext(ctx, "committee type has no composition policy", "type", t)
			}
		}
	})
	return registry
}

// CommitteeReaderOrchestrator builds the read side of the committee service
func CommitteeReaderOrchestrator(ctx context.Context, cfg config.Config) internalService.CommitteeReader {
	return internalService.NewCommitteeReaderOrchestrator(
		internalService.WithReader(CommitteeRepository(ctx, cfg)),
		internalService.WithReaderRegistry(CompositionRegistry(ctx)),
		internalService.WithReaderDirectory(PersonDirectory(ctx, cfg)),
	)
}

// CommitteeWriterOrchestrator builds the write side of the committee service
func CommitteeWriterOrchestrator(ctx context.Context, cfg config.Config) internalService.CommitteeWriter {
	repository := CommitteeRepository(ctx, cfg)
	return internalService.NewCommitteeWriterOrchestrator(
		internalService.WithCommitteeReader(repository),
		internalService.WithCommitteeWriter(repository),
		internalService.WithPersonDirectory(PersonDirectory(ctx, cfg)),
		internalService.WithPublisher(MessagePublisher(ctx, cfg)),
		internalService.WithCompositionRegistry(CompositionRegistry(ctx)),
	)
}

// Close releases the connections opened by the providers
func Close(ctx context.Context) error {
	var errs []error
	if natsClient != nil {
		slog.InfoContext(ctx, "closing NATS connection")
		errs = append(errs, natsClient.Close())
	}
	if sqliteStore != nil {
		slog.InfoContext(ctx, "closing sqlite store")
		errs = append(errs, sqliteStore.Close())
	}
	return errors.Join(errs...)
}
