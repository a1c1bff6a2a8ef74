package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch opens the terminal widget against a running service.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	client := r.widgetClient(cmd, config)
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("service at %s is not reachable: %w", client.BaseURL(), err)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, client, cmd.String("key"), client.BaseURL(), cmd.Duration("interval"))
	if err := ui.Run(ctx, model); err != nil {
		return fmt.Errorf("error running widget: %w", err)
	}

	return nil
}
