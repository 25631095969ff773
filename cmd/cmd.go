// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// newApp builds the root command. Flags declared here are visible to every subcommand.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotdiff",
		Usage:   "Watch a Spotify playlist and announce new tracks and likely duplicates",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: r.register(),
	}
}

func playlistFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "playlist",
		Aliases: []string{"p"},
		Usage:   "Spotify playlist ID (default: watch.playlist_id)",
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Action: r.SetupConfig,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// runCommand performs a single pass.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Fetch the playlist once, classify tracks and notify sinks",
		Flags: []cli.Flag{
			playlistFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print notices to the console instead of sending them",
			},
		},
		Action: r.RunPass,
	}
}

// watchCommand polls the playlist until interrupted.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run passes on an interval and answer Discord commands",
		Flags: []cli.Flag{
			playlistFlag(),
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Wait between passes (default: watch.interval_minutes)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print notices to the console instead of sending them",
			},
		},
		Action: r.Watch,
	}
}

// statusCommand summarizes the stored snapshot.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the high-water mark, stored tracks and recent passes",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of recent passes to show",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// tracksCommand handles stored track operations.
func tracksCommand(r *Runner) *cli.Command {
	formatFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (text, csv, markdown)",
			Value:   "text",
		}
	}

	return &cli.Command{
		Name:  "tracks",
		Usage: "Inspect the stored playlist snapshot",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored tracks in playlist order",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.TracksList,
			},
			{
				Name:  "export",
				Usage: "Write stored tracks to a file",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: {playlist}_tracks.{ext})",
					},
				},
				Action: r.TracksExport,
			},
			{
				Name:  "conflicts",
				Usage: "List stored tracks sharing a title",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Exact track title",
						Required: true,
					},
				},
				Action: r.TracksConflicts,
			},
		},
	}
}

// channelsCommand manages the Discord channel registry.
func channelsCommand(r *Runner) *cli.Command {
	registryFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "guild", Usage: "Discord guild ID", Required: true},
			&cli.StringFlag{Name: "channel", Usage: "Discord channel ID", Required: true},
		}
	}

	return &cli.Command{
		Name:  "channels",
		Usage: "Manage the Discord channels notices are posted to",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List registered channels",
				Action: r.ChannelsList,
			},
			{
				Name:   "add",
				Usage:  "Register a channel for a guild (same as !here)",
				Flags:  registryFlags(),
				Action: r.ChannelsAdd,
			},
			{
				Name:   "remove",
				Usage:  "Unregister a guild's channel (same as !bye)",
				Flags:  registryFlags(),
				Action: r.ChannelsRemove,
			},
		},
	}
}

// browseCommand launches the interactive terminal UI.
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "browse",
		Aliases: []string{"tui"},
		Usage:   "Browse stored tracks and run passes interactively",
		Flags: []cli.Flag{
			playlistFlag(),
			&cli.BoolFlag{
				Name:  "notify",
				Usage: "Send notices to configured sinks after a pass",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the UI is open",
				Value: "./tmp/spotdiff-tui.log",
			},
		},
		Action: r.Browse,
	}
}
