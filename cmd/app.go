package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/tasks"
)

// app is the set of components built from one config.
type app struct {
	spotify *services.SpotifyService
	manager *tasks.CredentialManager
	poller  *tasks.Poller
	close   func() error
}

// openApp validates config, opens the configured store and wires the services on top of it.
func (r *Runner) openApp(ctx context.Context, config *shared.Config) (*app, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	spotify, err := services.NewSpotifyService(
		config.Credentials.Spotify,
		services.WithHTTPClient(r.httpClient),
		services.WithSafetyMargin(config.Widget.SafetyMargin.Duration),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}

	keys, err := tasks.NewKeyStrategy(config.Widget.KeyStrategy, spotify)
	if err != nil {
		return nil, err
	}

	credentials, cache, closeStore, err := r.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	manager := tasks.NewCredentialManager(
		repositories.NewCredentialRepository(credentials), spotify, keys,
		tasks.WithLogger(r.logger),
	)
	poller := tasks.NewPoller(
		repositories.NewCacheRepository(cache), manager, spotify,
		tasks.WithLogger(r.logger),
		tasks.WithCacheWindow(config.Widget.CacheWindow.Duration),
	)

	r.logger.Debug("components ready", "store", config.Store.Backend, "keys", keys.Name())

	return &app{spotify: spotify, manager: manager, poller: poller, close: closeStore}, nil
}

// openStore returns the credential and cache namespaces of the configured backend.
func (r *Runner) openStore(ctx context.Context, config *shared.Config) (credentials, cache repositories.KV, closer func() error, err error) {
	switch config.Store.Backend {
	case shared.StoreRedis:
		client, err := repositories.NewRedisClient(ctx, config.Redis.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		return repositories.NewRedisKV(client, repositories.CredentialNamespace),
			repositories.NewRedisKV(client, repositories.CacheNamespace),
			client.Close, nil

	case shared.StoreSQLite:
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

		if err := shared.RunMigrations(db); err != nil {
			return nil, nil, nil, errors.Join(fmt.Errorf("failed to run migrations: %w", err), db.Close())
		}
		return repositories.NewSQLiteKV(db, repositories.CredentialNamespace),
			repositories.NewSQLiteKV(db, repositories.CacheNamespace),
			db.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown store backend %q", shared.ErrInvalidConfig, config.Store.Backend)
	}
}

// Close releases the store connection.
func (a *app) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}
