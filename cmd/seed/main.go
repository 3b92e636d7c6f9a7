// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

// Command seed applies migrations and upserts the RBAC catalogue and the
// bootstrap administrator. It is safe to run repeatedly.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hydroline/hydroline-services/internal/platform/config"
	"github.com/hydroline/hydroline-services/internal/platform/constants"
	"github.com/hydroline/hydroline-services/internal/platform/migration"
	pgstore "github.com/hydroline/hydroline-services/internal/platform/postgres"
	"github.com/hydroline/hydroline-services/internal/platform/sec"
	"github.com/hydroline/hydroline-services/internal/users/rbac"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).
		With(slog.String(constants.FieldApp, constants.AppName), slog.String("command", "seed"))

	if err := run(log); err != nil {
		log.Error("seed_failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("seed_completed")
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, pgstore.PoolOptions{
		MaxConns:         2,
		StatementTimeout: cfg.DatabaseStatementTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return err
	}

	catalogue, err := rbac.DefaultCatalogue()
	if err != nil {
		return err
	}

	return rbac.NewSeeder(pool, sec.NewPasswordHasher(cfg.BcryptCost), log).Seed(ctx, catalogue)
}
