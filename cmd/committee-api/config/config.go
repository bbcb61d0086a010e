// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package config loads the committee-api process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/gradoffice/examining-committee-service/internal/infrastructure/nats"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
)

// Config is the committee-api configuration
type Config struct {
	RepositorySource string `env:"REPOSITORY_SOURCE" envDefault:"nats"`
	// DirectorySource defaults to RepositorySource
	DirectorySource  string `env:"DIRECTORY_SOURCE"`

	NATSURL           string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSTimeout       time.Duration `env:"NATS_TIMEOUT" envDefault:"10s"`
	NATSMaxReconnect  int           `env:"NATS_MAX_RECONNECT" envDefault:"3"`
	NATSReconnectWait time.Duration `env:"NATS_RECONNECT_WAIT" envDefault:"2s"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"committees.db"`

	// ReplyTimeout bounds the processing of a single invitation reply
	ReplyTimeout time.Duration `env:"REPLY_TIMEOUT" envDefault:"30s"`
	// ShutdownTimeout bounds draining and telemetry flush on exit
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"25s"`
}

// Load parses the environment and validates the source selections
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DirectorySource == "" {
		cfg.DirectorySource = cfg.RepositorySource
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown repository or directory sources
func (c Config) Validate() error {
	switch c.RepositorySource {
	case constants.SourceNATS, constants.SourceSQLite, constants.SourceMock:
	default:
		return fmt.Errorf("unsupported repository source: %q", c.RepositorySource)
	}
	switch c.DirectorySource {
	case constants.SourceNATS, constants.SourceSQLite, constants.SourceMock:
	default:
		return fmt.Errorf("unsupported directory source: %q", c.DirectorySource)
	}
	if c.NATSTimeout <= 0 {
		return fmt.Errorf("NATS_TIMEOUT must be positive, got %s", c.NATSTimeout)
	}
	return nil
}

// NATS returns the client configuration
func (c Config) NATS() nats.Config {
	return nats.Config{
		URL:           c.NATSURL,
		Timeout:       c.NATSTimeout,
		MaxReconnect:  c.NATSMaxReconnect,
		ReconnectWait: c.NATSReconnectWait,
	}
}

// UsesNATS reports whether any adapter needs a NATS connection
func (c Config) UsesNATS() bool {
	return c.RepositorySource == constants.SourceNATS || c.DirectorySource == constants.SourceNATS
}
