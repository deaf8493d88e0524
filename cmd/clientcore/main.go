package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/you/clientcore/internal/app"
	"github.com/you/clientcore/internal/config"
	"github.com/you/clientcore/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New(logging.Config{})
		l.Fatal().Err(err).Msg("config")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, logger); err != nil {
		stop()
		logger.Fatal().Err(err).Msg("app")
	}
}
