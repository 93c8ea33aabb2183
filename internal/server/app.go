// Package server wires the application together: config, database,
// migrations, crypto primitives, services and the HTTP transport, plus
// signal-driven graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/config"
	"github.com/dmitrijs2005/passvault/internal/server/httpapi"
	"github.com/dmitrijs2005/passvault/internal/server/notify"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/passvault/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

// NewApp builds the full dependency graph. Missing or malformed keys
// are a startup failure, never a degraded mode.
func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	encryptionKey, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	vault, err := cryptox.NewVault(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key error: %w", err)
	}
	hasher := cryptox.NewHasher(cfg.HashCost)
	sink := notify.NewLogSink(logger)

	accountService := services.NewAccountService(db, m, hasher, sink, logger, cfg)
	vaultService := services.NewVaultService(db, m, vault, sink, logger)

	srv := httpapi.NewServer(cfg.EndpointAddrHTTP, logger, accountService, vaultService)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

// Run serves until an OS signal or a server failure stops the app.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()
	defer app.db.Close()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddrHTTP)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped", "error", err.Error())
		return err
	}

	app.logger.Info(ctx, "shutdown complete")
	return nil
}
