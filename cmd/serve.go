package main

import (
	"context"

	"github.com/desertthunder/nowplaying/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP service until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = int(port)
	}

	a, err := r.openApp(ctx, config)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(config.Server, server.Deps{
		Poller:     a.poller,
		Connector:  a.manager,
		Authorizer: a.spotify,
		Logger:     r.logger,
	})

	r.logger.Info("starting now-playing service",
		"addr", config.Server.Addr(),
		"store", config.Store.Backend,
		"keys", config.Widget.KeyStrategy,
	)
	return srv.Run(ctx)
}
