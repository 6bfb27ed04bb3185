package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerbook/api/internal/config"
	"github.com/ledgerbook/api/internal/database"
	"github.com/ledgerbook/api/internal/logger"
	"github.com/ledgerbook/api/internal/router"
	"github.com/ledgerbook/api/internal/worker"
	"github.com/ledgerbook/api/internal/ws"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)
	log := logger.WithComponent("server")

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	queries := database.New(pool)
	hub := ws.NewHub()
	go hub.Run()

	// In-process worker so queued jobs publish progress on this hub.
	// A standalone worker (cmd/worker) can replace it when scaling out.
	w := worker.New(pool, func(db database.DBTX) worker.Store {
		return database.New(db)
	}, hub, cfg.WorkerInterval)
	go w.Run(ctx)

	r := router.New(cfg, queries, hub)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info().Str("addr", addr).Msg("server listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// runMigrations applies pending migrations at startup. The migrate driver
// speaks database/sql, so it gets its own short-lived connection.
func runMigrations(databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
