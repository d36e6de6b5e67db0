package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/app/service"
)

// reactionPage es el máximo que acepta la API por request.
const reactionPage = 100

// Platform implementa los puertos de chat del servicio sobre una sesión de discordgo.
type Platform struct {
	s   *discordgo.Session
	dms dmCache
	log zerolog.Logger
}

var (
	_ service.ChannelAdapter  = (*Platform)(nil)
	_ service.DirectMessenger = (*Platform)(nil)
	_ service.PresenceSource  = (*Platform)(nil)
)

func NewPlatform(s *discordgo.Session, dmCacheMB int, log zerolog.Logger) *Platform {
	return &Platform{s: s, dms: newDMCache(dmCacheMB), log: log}
}

func (p *Platform) SelfID() string {
	if p.s.State == nil || p.s.State.User == nil {
		return ""
	}
	return p.s.State.User.ID
}

func (p *Platform) RecentMessages(ctx context.Context, channelID string, limit int) ([]service.Message, error) {
	msgs, err := p.s.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("channel messages: %w", err)
	}
	out := make([]service.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, fromMessage(m))
	}
	return out, nil
}

func (p *Platform) SendEmbed(ctx context.Context, channelID string, e service.Embed) (service.Message, error) {
	m, err := p.s.ChannelMessageSendEmbed(channelID, toMessageEmbed(e), discordgo.WithContext(ctx))
	if err != nil {
		return service.Message{}, fmt.Errorf("send embed: %w", err)
	}
	return fromMessage(m), nil
}

func (p *Platform) EditEmbed(ctx context.Context, channelID, messageID string, e service.Embed) error {
	if _, err := p.s.ChannelMessageEditEmbed(channelID, messageID, toMessageEmbed(e), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit embed: %w", err)
	}
	return nil
}

func (p *Platform) SendText(ctx context.Context, channelID, text string) (service.Message, error) {
	m, err := p.s.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return service.Message{}, fmt.Errorf("send message: %w", err)
	}
	return fromMessage(m), nil
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return p.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (p *Platform) AddReaction(ctx context.Context, channelID, messageID string, e service.Emoji) error {
	return p.s.MessageReactionAdd(channelID, messageID, e.APIName(), discordgo.WithContext(ctx))
}

func (p *Platform) RemoveReaction(ctx context.Context, channelID, messageID string, e service.Emoji, userID string) error {
	return p.s.MessageReactionRemove(channelID, messageID, e.APIName(), userID, discordgo.WithContext(ctx))
}

func (p *Platform) RemoveEmoji(ctx context.Context, channelID, messageID string, e service.Emoji) error {
	return p.s.MessageReactionsRemoveEmoji(channelID, messageID, e.APIName(), discordgo.WithContext(ctx))
}

// Reactions trae el mensaje y pagina los usuarios de cada emoji.
func (p *Platform) Reactions(ctx context.Context, channelID, messageID string) ([]service.Reaction, error) {
	m, err := p.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	out := make([]service.Reaction, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		if r == nil || r.Emoji == nil {
			continue
		}
		e := fromEmoji(r.Emoji)
		users, err := p.reactionUsers(ctx, channelID, messageID, e)
		if err != nil {
			return nil, err
		}
		out = append(out, service.Reaction{Emoji: e, Users: users})
	}
	return out, nil
}

func (p *Platform) reactionUsers(ctx context.Context, channelID, messageID string, e service.Emoji) ([]service.User, error) {
	var (
		out   []service.User
		after string
	)
	for {
		page, err := p.s.MessageReactions(channelID, messageID, e.APIName(), reactionPage, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("reaction users %s: %w", e.APIName(), err)
		}
		for _, u := range page {
			out = append(out, fromUser(u))
		}
		if len(page) < reactionPage {
			return out, nil
		}
		after = page[len(page)-1].ID
	}
}

// SendDM abre (o reutiliza) el canal privado con el usuario.
func (p *Platform) SendDM(ctx context.Context, userID, text string) error {
	channelID, ok := p.dms.Get(userID)
	if !ok {
		ch, err := p.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("open dm: %w", err)
		}
		channelID = ch.ID
		p.dms.Set(userID, channelID)
	}
	if _, err := p.s.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

// Presence busca al usuario en los guilds cacheados; sin datos devuelve PresenceUnknown.
func (p *Platform) Presence(userID string) service.Presence {
	st := p.s.State
	if st == nil {
		return service.PresenceUnknown
	}
	st.RLock()
	guilds := make([]string, 0, len(st.Guilds))
	for _, g := range st.Guilds {
		guilds = append(guilds, g.ID)
	}
	st.RUnlock()

	for _, id := range guilds {
		pr, err := st.Presence(id, userID)
		if err == nil && pr != nil {
			return toPresence(pr.Status)
		}
	}
	return service.PresenceUnknown
}
