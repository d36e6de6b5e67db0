package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/psforever-bot/internal/app/service"
)

func fromUser(u *discordgo.User) service.User {
	if u == nil {
		return service.User{}
	}
	return service.User{ID: u.ID, Tag: u.String(), Bot: u.Bot}
}

func fromEmoji(e *discordgo.Emoji) service.Emoji {
	if e == nil {
		return service.Emoji{}
	}
	return service.Emoji{ID: e.ID, Name: e.Name}
}

func fromMessage(m *discordgo.Message) service.Message {
	out := service.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		HasEmbed:  len(m.Embeds) > 0,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
	}
	return out
}

func toMessageEmbed(e service.Embed) *discordgo.MessageEmbed {
	me := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
	}
	if e.Author != nil {
		me.Author = &discordgo.MessageEmbedAuthor{Name: e.Author.Name, URL: e.Author.URL, IconURL: e.Author.IconURL}
	}
	for _, f := range e.Fields {
		me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return me
}

func toPresence(s discordgo.Status) service.Presence {
	switch s {
	case discordgo.StatusOnline:
		return service.PresenceOnline
	case discordgo.StatusIdle:
		return service.PresenceIdle
	case discordgo.StatusDoNotDisturb:
		return service.PresenceDND
	case discordgo.StatusInvisible:
		return service.PresenceInvisible
	case discordgo.StatusOffline:
		return service.PresenceOffline
	}
	return service.PresenceUnknown
}
