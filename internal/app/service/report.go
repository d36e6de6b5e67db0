package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNotConfigured: el módulo no tiene lo mínimo para arrancar y se saltea.
var ErrNotConfigured = errors.New("not configured")

const reportUsage = "The !report command is used to report players to the support representatives.\n" +
	"**!report <playername> <reason...>**\n" +
	"Report player with <playername> for <reason...>\n" +
	"Example: `!report NotNotNick They are an imposter`"

// ReportService reenvía los reportes de jugadores al canal de soporte.
type ReportService struct {
	chat    ChannelAdapter
	channel func() string
	log     zerolog.Logger
}

// NewReportService: channel resuelve el canal en cada uso (config.json primero, env después).
func NewReportService(chat ChannelAdapter, channel func() string, log zerolog.Logger) *ReportService {
	return &ReportService{chat: chat, channel: channel, log: log}
}

func (r *ReportService) Name() string { return "report" }

func (r *ReportService) Initialize(context.Context) error {
	if r.channel() == "" {
		return fmt.Errorf("report channel: %w", ErrNotConfigured)
	}
	return nil
}

// Report devuelve el texto de uso si faltan argumentos; si no, un texto vacío.
func (r *ReportService) Report(ctx context.Context, from User, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return reportUsage, nil
	}
	name := fields[0]
	reason := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), name))

	ch := r.channel()
	if ch == "" {
		return "", fmt.Errorf("report channel: %w", ErrNotConfigured)
	}
	text := fmt.Sprintf("@here Report from <@%s> for player `%s` for reason: `%s`", from.ID, name, reason)
	if _, err := r.chat.SendText(ctx, ch, text); err != nil {
		return "", fmt.Errorf("forward report: %w", err)
	}
	r.log.Info().Str("from", from.Tag).Str("player", name).Msg("report forwarded")
	return "", nil
}

func (r *ReportService) Teardown(context.Context) error { return nil }
