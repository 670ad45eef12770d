// Package app wires configuration, storage and handlers into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/dmbot/core/bootstrap"
	coredatabase "github.com/m3rciful/dmbot/core/database"
	"github.com/m3rciful/dmbot/core/logger"
	coretelegram "github.com/m3rciful/dmbot/core/telegram"
	"github.com/m3rciful/dmbot/core/telegram/router"
	"github.com/m3rciful/dmbot/core/telegram/sender"
	"github.com/m3rciful/dmbot/internal/admin"
	"github.com/m3rciful/dmbot/internal/handlers"
	"github.com/m3rciful/dmbot/internal/locales"
	"github.com/m3rciful/dmbot/internal/membership"
	"github.com/m3rciful/dmbot/internal/users"
)

// App holds the long-lived services of a running bot.
type App struct {
	cfg     *Config
	db      *sqlx.DB
	store   users.Store
	rights  *admin.Rights
	texts   *locales.Bundle
	archive *admin.LogArchive
}

// Bootstrap initializes logging, reporting, storage and translations.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}

	var dbCfg *coredatabase.Config
	if cfg.Storage.Driver == DriverPostgres {
		dbCfg = &cfg.Database
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:     &cfg.Core,
		Database:   dbCfg,
		Migrations: coredatabase.Source{FS: users.Migrations, Dir: users.MigrationsDir},
	})
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Storage, res.DB)
	if err != nil {
		if res.DB != nil {
			_ = res.DB.Close()
		}
		return nil, err
	}

	texts, err := locales.New(cfg.Settings.Language)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		db:     res.DB,
		store:  store,
		rights: admin.NewRights(cfg.Settings.Admins),
		texts:  texts,
		archive: admin.NewLogArchive(admin.ArchiveOptions{
			Flush: logger.Flush,
			Log:   logger.Component("admin"),
		}),
	}

	logger.Info(logger.Background(), "app", "app.bootstrap",
		slog.String("status", "ok"),
		slog.String("storage", cfg.Storage.Driver),
		slog.Int("admins", len(cfg.Settings.Admins)),
		slog.String("language", texts.Language().String()),
	)
	return a, nil
}

func openStore(cfg StorageConfig, db *sqlx.DB) (users.Store, error) {
	switch cfg.Driver {
	case DriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("app: postgres storage without a database connection")
		}
		return users.NewPostgresStore(db), nil
	case DriverMemory:
		return users.NewMemoryStore(), nil
	default:
		store, err := users.OpenBolt(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("app: open user registry: %w", err)
		}
		return store, nil
	}
}

// TelegramRunOptions builds the bot runtime: commands, routes and hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	cmdOpts := router.CommandRouteOptions{Rights: a.rights}

	return coretelegram.RunOptions{
		Config:            &a.cfg.Core,
		Registry:          coretelegram.NewRegistry(),
		DispatcherOptions: sender.OptionsFromConfig(a.cfg.Core.Sender),
		Middlewares:       coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		RoutesFunc: func(rt coretelegram.Runtime) []coretelegram.Route {
			h := a.newHandlers(handlers.NewBotAPI(rt.Bot))
			h.Register(rt.Registry)

			routes := router.CommandRoutes(rt.Registry, cmdOpts)
			routes = append(routes, router.TextRoutes(rt.Registry, router.TextOptions{UnknownText: h.UnknownText}, cmdOpts)...)
			routes = append(routes,
				router.CallbackRoute(rt.Registry, router.CallbackOptions{}),
				router.MemberRoute(h.MyChatMember),
			)
			return routes
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.Close()
		},
	}, nil
}

func (a *App) newHandlers(api handlers.BotAPI) *handlers.Handlers {
	return handlers.New(handlers.Deps{
		Store:        a.store,
		Rights:       a.rights,
		Archive:      a.archive,
		Notifier:     admin.NewNotifier(a.rights, api, logger.Component("admin")),
		Tracker:      membership.NewTracker(a.store, api, logger.Component("members")),
		Texts:        a.texts,
		InfoLogPath:  a.cfg.Core.Logging.InfoPath(),
		ErrorLogPath: a.cfg.Core.Logging.ErrorsPath(),
	})
}

// Close releases the registry and the database connection.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
