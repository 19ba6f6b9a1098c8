package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/m3rciful/playlistbot/core/buildinfo"
	corecmd "github.com/m3rciful/playlistbot/core/cmd"
	coredatabase "github.com/m3rciful/playlistbot/core/database"
	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/internal/app"
	"github.com/m3rciful/playlistbot/internal/playlistbot"
	"github.com/m3rciful/playlistbot/migrations"
)

const (
	configEnv     = "CONFIG_PATH"
	defaultConfig = "config.yaml"
)

func main() {
	root := &cli.Command{
		Name:    "playlistbot",
		Usage:   "Telegram bot that keeps audio files in playlists",
		Version: fmt.Sprintf("%s (%s, %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfig,
				Sources: cli.EnvVars(configEnv),
			},
		},
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Apply migrations and run the bot",
				Action: runBot,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Commands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "Apply all pending migrations",
						Action: migrateAction(coredatabase.Up),
					},
					{
						Name:   "down",
						Usage:  "Roll back the last migration",
						Action: migrateAction(coredatabase.Down),
					},
				},
			},
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("playlistbot: %v", err)
	}
}

func runBot(_ context.Context, cmd *cli.Command) error {
	return corecmd.Run(corecmd.Options{
		ConfigPath:        cmd.String("config"),
		ConfigEnvVar:      configEnv,
		DefaultConfigPath: defaultConfig,
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
}

func migrateAction(dir coredatabase.Direction) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		cfg, err := playlistbot.LoadMigrateConfig(cmd.String("config"))
		if err != nil {
			return err
		}
		if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
			return err
		}
		defer func() { _ = logger.Shutdown() }()
		return coredatabase.Migrate(cfg.Database, migrations.FS, dir)
	}
}
