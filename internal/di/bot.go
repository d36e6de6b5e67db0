package di

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/adapters/discord"
	"github.com/jose-valero/psforever-bot/internal/adapters/httpapi"
	"github.com/jose-valero/psforever-bot/internal/app"
	"github.com/jose-valero/psforever-bot/internal/app/service"
	"github.com/jose-valero/psforever-bot/internal/app/stats"
	"github.com/jose-valero/psforever-bot/internal/infra/config"
)

const shutdownTimeout = 30 * time.Second

// Bot es el proceso armado: sesión, módulos, poller y HTTP.
type Bot struct {
	Config  config.Config
	Log     zerolog.Logger
	Session *discordgo.Session
	Poller  *stats.Poller
	App     *app.App
	Router  *discord.Router
	Setup   *service.AlertSetup
	HTTP    *httpapi.Server
}

func NewBot(
	cfg config.Config,
	log zerolog.Logger,
	s *discordgo.Session,
	poller *stats.Poller,
	a *app.App,
	router *discord.Router,
	setup *service.AlertSetup,
	http *httpapi.Server,
) *Bot {
	return &Bot{Config: cfg, Log: log, Session: s, Poller: poller, App: a, Router: router, Setup: setup, HTTP: http}
}

// Run conecta, inicializa los módulos y bloquea hasta que ctx se cancela.
func (b *Bot) Run(ctx context.Context) error {
	b.Router.Handlers()
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	b.Log.Info().Str("user", b.Session.State.User.String()).Str("id", b.Session.State.User.ID).Msg("connected")

	n := b.App.Initialize(ctx)
	b.Log.Info().Int("modules", n).Strs("active", b.App.ActiveNames()).Msg("modules ready")
	b.Poller.Start()

	httpErr := make(chan error, 1)
	if b.Config.HTTPAddr != "" {
		go func() { httpErr <- b.HTTP.Start(ctx, b.Config.HTTPAddr) }()
	}

	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if err != nil {
			b.Log.Error().Err(err).Msg("http server stopped")
		}
		<-ctx.Done()
	}
	return b.shutdown()
}

func (b *Bot) shutdown() error {
	b.Log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	b.Poller.Stop()
	b.Router.Close()
	b.Setup.Close()
	err := b.App.Teardown(ctx)
	if cerr := b.Session.Close(); cerr != nil {
		b.Log.Warn().Err(cerr).Msg("discord close")
	}
	return err
}
