package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/techrules"
	"github.com/meikuraledutech/techrules/config"
	"github.com/meikuraledutech/techrules/memory"
	"github.com/meikuraledutech/techrules/postgres"
)

func main() {
	cfg := config.Load()
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	var store techrules.Store
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, graphs are kept in memory")
		store = memory.New()
	} else {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	exporter := techrules.NewExporter(
		techrules.WithProductCode(cfg.ProductCode),
		techrules.WithLogger(logger),
	)

	app := fiber.New()
	register(app, &handlers{store: store, exporter: exporter, logger: logger})

	logger.Info("listening", "addr", cfg.Port)
	if err := app.Listen(cfg.Port); err != nil {
		logger.Error("listen", "err", err)
		os.Exit(1)
	}
}
