package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerbook/api/internal/config"
	"github.com/ledgerbook/api/internal/database"
	"github.com/ledgerbook/api/internal/logger"
	"github.com/ledgerbook/api/internal/worker"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)
	log := logger.WithComponent("worker-main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	// The worker runs headless; job progress still reaches API clients by
	// polling GET /jobs/{id}. Deployments that colocate worker and server
	// in one process pass the server's hub here instead.
	w := worker.New(pool, func(db database.DBTX) worker.Store {
		return database.New(db)
	}, nil, cfg.WorkerInterval)

	w.Run(ctx)
}
