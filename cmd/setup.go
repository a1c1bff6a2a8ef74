package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the template when missing, then initializes the store.
//
// For SQLite this runs migrations; for Redis it only checks the connection.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	switch config.Store.Backend {
	case shared.StoreRedis:
		r.logger.Info("checking redis connection", "url", config.Redis.URL)
		client, err := repositories.NewRedisClient(ctx, config.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		r.logger.Info("setup complete for redis store")

	case shared.StoreSQLite:
		r.logger.Info("initializing database", "path", config.Database.Path)

		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer db.Close()

		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.logger.Infof("setup complete for database: %v", config.Database.Path)

	default:
		return fmt.Errorf("%w: unknown store backend %q", shared.ErrInvalidConfig, config.Store.Backend)
	}

	if err := config.Validate(); err != nil {
		r.logger.Warn("config is incomplete", "error", err)
		r.writePlain("Edit %s (or set SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET) before running 'nowplaying serve'\n", configPath)
	}

	return nil
}
