// Package app assembles the playlist bot from configuration.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/playlistbot/core/bootstrap"
	corecmd "github.com/m3rciful/playlistbot/core/cmd"
	coredatabase "github.com/m3rciful/playlistbot/core/database"
	coretelegram "github.com/m3rciful/playlistbot/core/telegram"
	"github.com/m3rciful/playlistbot/core/telegram/router"
	"github.com/m3rciful/playlistbot/internal/observability"
	"github.com/m3rciful/playlistbot/internal/playlistbot"
	"github.com/m3rciful/playlistbot/internal/storage"
	"github.com/m3rciful/playlistbot/migrations"
)

// App holds the wired components of a running bot.
type App struct {
	cfg     *playlistbot.Config
	db      *sqlx.DB
	metrics *observability.Metrics
	machine *playlistbot.Machine
	bot     *playlistbot.Bot
}

var (
	_ corecmd.TelegramApp   = (*App)(nil)
	_ corecmd.BackgroundApp = (*App)(nil)
)

// LoadConfig adapts playlistbot.LoadConfig to the runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := playlistbot.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap initialises logging, migrates and opens the database, and wires the machine.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*playlistbot.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: migrations.FS,
	})
	if err != nil {
		return nil, err
	}
	return New(cfg, res.DB), nil
}

// New wires an App over an open database.
func New(cfg *playlistbot.Config, db *sqlx.DB) *App {
	ns := cfg.Metrics.Namespace
	metrics := observability.NewMetrics(ns)
	machine := playlistbot.NewMachine(storage.New(db),
		playlistbot.WithValidator(playlistbot.NewPolicy(cfg.Playlists)),
		playlistbot.WithObserver(metrics),
	)
	metrics.TrackSessions(ns, machine.Sessions)
	return &App{
		cfg:     cfg,
		db:      db,
		metrics: metrics,
		machine: machine,
		bot:     playlistbot.NewBot(machine),
	}
}

// TelegramRunOptions builds the registry, routes and middleware chain.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.MessageRoutes(reg, router.MessageOptions{})...)

	core := a.cfg.CoreConfig()
	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(core, a.metrics.Telegram, a.bot.OnLimited),
		Routes:      routes,
	}, nil
}

// Background returns the metrics and health server when metrics.listen is set.
func (a *App) Background() []func(ctx context.Context) error {
	addr := strings.TrimSpace(a.cfg.Metrics.Listen)
	if addr == "" {
		return nil
	}
	handler := observability.Router(a.metrics.Registry, func(ctx context.Context) error {
		return coredatabase.Ping(ctx, a.db)
	})
	return []func(ctx context.Context) error{observability.NewServer(addr, handler).Run}
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
