package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/villagebank/internal/config"
	"github.com/mmynk/villagebank/internal/storage"
	"github.com/mmynk/villagebank/internal/storage/postgres"
	"github.com/mmynk/villagebank/internal/storage/sqlite"
	"github.com/mmynk/villagebank/pkg/logging"
)

// loadConfig reads the configuration and installs the logger.
func loadConfig(envFile string) (*config.Config, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel)
	return cfg, nil
}

// openStore opens the configured backend. Both backends apply pending
// migrations on open.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		store, err := postgres.New(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		slog.Info("Storage initialized", "driver", "postgres")
		return store, nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		slog.Info("Storage initialized", "driver", "sqlite", "database", cfg.DBPath)
		return store, nil
	}
}
