package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stemsi/exstem-games/internal/cli"
	"github.com/stemsi/exstem-games/internal/config"
	"github.com/stemsi/exstem-games/internal/database"
	"github.com/stemsi/exstem-games/internal/logger"
	"github.com/stemsi/exstem-games/internal/repository"
	"github.com/stemsi/exstem-games/internal/validator"
)

func main() {
	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := cli.Deps{
		Config: config.Load,
		OpenStore: func(ctx context.Context) (cli.GameStore, func(), error) {
			cfg := config.Load()
			log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
			pool, err := database.NewPostgresPool(ctx, cfg, log)
			if err != nil {
				return nil, nil, err
			}
			return repository.NewGameRepository(pool), pool.Close, nil
		},
	}

	if err := cli.Execute(ctx, deps); err != nil {
		os.Exit(1)
	}
}
