package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jose-valero/psforever-bot/internal/di"
	"github.com/jose-valero/psforever-bot/internal/infra/config"
	"github.com/jose-valero/psforever-bot/internal/infra/logging"
)

func main() {
	boot := logging.New(os.Stderr, "info", false)

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, cleanup, err := di.InitBot(ctx, cfg)
	if err != nil {
		boot.Fatal().Err(err).Msg("wiring")
	}
	defer cleanup()

	if err := bot.Run(ctx); err != nil {
		bot.Log.Error().Err(err).Msg("stopped with errors")
		cleanup()
		os.Exit(1)
	}
	bot.Log.Info().Msg("bye")
}
