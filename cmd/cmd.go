// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/nowplaying/internal/tasks"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func keyFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "key",
		Aliases:  []string{"k"},
		Usage:    "Widget key the credential is stored under",
		Sources:  cli.EnvVars("NOWPLAYING_KEY"),
		Required: required,
	}
}

func urlFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "url",
		Usage: "Base URL of a running service (defaults to the configured host and port)",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Write config.toml and initialize the store",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Run the now-playing HTTP service",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override the configured listen host",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override the configured listen port",
			},
		},
		Action: r.Serve,
	}
}

func connectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Authorize a Spotify account and store its credential",
		Flags: []cli.Flag{
			configFlag(),
			keyFlag(false),
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the login URL instead of opening a browser",
			},
		},
		Action: r.Connect,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"now"},
		Usage:   "Show what is playing for a key",
		Flags: []cli.Flag{
			configFlag(),
			keyFlag(true),
			urlFlag(),
			&cli.BoolFlag{
				Name:  "local",
				Usage: "Read through the store directly instead of a running service",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown or json",
				Value:   "text",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Status,
	}
}

func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Open a terminal widget that polls the now-playing endpoint",
		Flags: []cli.Flag{
			configFlag(),
			keyFlag(true),
			urlFlag(),
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Poll interval",
				Value:   tasks.DefaultWatchInterval,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the widget is open",
				Value: "./tmp/nowplaying-watch.log",
			},
		},
		Action: r.Watch,
	}
}

func disconnectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "disconnect",
		Usage: "Delete the stored credential for a key",
		Flags: []cli.Flag{
			configFlag(),
			keyFlag(true),
			&cli.StringFlag{
				Name:  "url",
				Usage: "Base URL of a running service; the store is used directly when empty",
			},
		},
		Action: r.Disconnect,
	}
}
