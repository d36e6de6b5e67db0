package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// replyTo responde en el mismo canal citando el mensaje original.
func replyTo(ctx context.Context, s *discordgo.Session, m *discordgo.Message, text string, log zerolog.Logger) {
	_, err := s.ChannelMessageSendReply(m.ChannelID, truncate(text, maxMessageLen), m.Reference(), discordgo.WithContext(ctx))
	if err != nil {
		log.Warn().Err(err).Str("channel", m.ChannelID).Msg("reply failed")
	}
}
