package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/JINL2/mystorecluade-sub001/internal/cli"
	"github.com/JINL2/mystorecluade-sub001/internal/config"
	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/registry"
	"github.com/JINL2/mystorecluade-sub001/internal/rpc"
	"github.com/JINL2/mystorecluade-sub001/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	app := &cli.App{
		Logger:      logger,
		LogLevel:    level,
		UserID:      cfg.UserID,
		CompanyID:   cfg.CompanyID,
		StoreID:     cfg.StoreID,
		ServeAPIKey: cfg.ServeAPIKey,
		ServeAddr:   cfg.ServeAddr,
	}

	switch cfg.Backend {
	case config.BackendRemote:
		app.Backend = rpc.NewRemoteClient(rpc.ClientConfig{
			BaseURL: cfg.RemoteURL,
			APIKey:  cfg.RemoteAPIKey,
			Timeout: cfg.RemoteTimeout(),
		}, logger)
	default:
		database, err := db.OpenDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		var observers []service.UseCaseObserver
		if cfg.LogCalls {
			observers = append(observers, service.NewSlogUseCaseObserver(logger))
		}
		backend := service.NewLocalBackend(database, db.NewSQLiteUnitOfWork(database),
			service.BackendOptions{SearchMinLength: cfg.SearchMinLength}, observers...)
		app.Backend = backend
		app.Admin = backend
	}

	// Shared registry and submit lock when several terminals work one store.
	if cfg.RedisURL != "" {
		store, err := registry.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer store.Close()
		app.Registry = store
		app.Guard = registry.NewRedisGuard(store.Client(), registry.DefaultLockTTL)
	}

	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).Execute()
}
