package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Status prints one now-playing snapshot for --key.
//
// By default it asks a running service; --local reads through the configured store instead.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	key := cmd.String("key")
	pretty := cmd.Bool("pretty")

	format := formatter.Format(cmd.String("format"))
	if cmd.Bool("json") {
		format = formatter.JSON
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	var source tasks.SnapshotSource
	if cmd.Bool("local") {
		a, err := r.openApp(ctx, config)
		if err != nil {
			return err
		}
		defer a.Close()
		source = a.poller
	} else {
		source = r.widgetClient(cmd, config)
	}

	r.logger.Debug("fetching now playing", "key", key)

	snap, err := source.NowPlaying(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to fetch now playing for %s: %w", key, err)
	}

	data, err := formatter.Export(snap, format, pretty)
	if err != nil {
		return err
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	return r.writePlain("%s", data)
}

// Disconnect deletes the stored credential for --key and marks its cached snapshot stale.
//
// With --url the request goes to a running service instead of the store.
func (r *Runner) Disconnect(ctx context.Context, cmd *cli.Command) error {
	key := cmd.String("key")

	if base := cmd.String("url"); base != "" {
		if err := services.NewWidgetClient(base, r.httpClient).Disconnect(ctx, key); err != nil {
			return fmt.Errorf("failed to disconnect %s: %w", key, err)
		}
		return r.writePlain("✓ Disconnected %s\n", key)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := r.openApp(ctx, config)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.poller.Disconnect(ctx, key); err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", key, err)
	}

	r.logger.Info("credential deleted", "key", key)
	return r.writePlain("✓ Disconnected %s\n", key)
}

// widgetClient targets --url, or the configured listen address.
func (r *Runner) widgetClient(cmd *cli.Command, config *shared.Config) *services.WidgetClient {
	base := cmd.String("url")
	if base == "" {
		base = "http://" + config.Server.Addr()
	}
	return services.NewWidgetClient(base, r.httpClient)
}
