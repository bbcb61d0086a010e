// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// The committee-api command runs the examining committee service: it wires the
// configured repository, directory and publisher, and consumes invitation replies.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gradoffice/examining-committee-service/cmd/committee-api/config"
	"github.com/gradoffice/examining-committee-service/cmd/committee-api/service"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
	logging "github.com/gradoffice/examining-committee-service/pkg/log"
	"github.com/gradoffice/examining-committee-service/pkg/utils"
)

func init() {
	logging.InitStructureLogConfig()
}

func main() {
	if err := run(); err != nil {
		slog.Error("committee-api stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err = errors.Join(err, service.Close(shutdownCtx), otelShutdown(shutdownCtx))
		slog.InfoContext(shutdownCtx, "graceful shutdown completed")
	}()

	slog.InfoContext(ctx, "starting service",
		"service", constants.ServiceName,
		"repository_source", cfg.RepositorySource,
		"directory_source", cfg.DirectorySource,
	)

	repository := service.CommitteeRepository(ctx, cfg)
	if readyErr := repository.IsReady(ctx); readyErr != nil {
		return readyErr
	}

	var wg sync.WaitGroup
	if replyErr := handleInvitationReplies(ctx, &wg, cfg); replyErr != nil {
		return replyErr
	}

	<-ctx.Done()
	slog.Info("shutdown signal received")
	wg.Wait()
	return nil
}
