package service

import (
	"context"
	"time"

	"github.com/jose-valero/psforever-bot/internal/domain"
)

type User struct {
	ID  string
	Tag string
	Bot bool
}

type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
	HasEmbed  bool
	CreatedAt time.Time
}

// Emoji: los custom se identifican por ID, los unicode por Name.
type Emoji struct {
	ID   string
	Name string
}

// APIName es el formato que espera la API de reacciones ("name:id" o el unicode).
func (e Emoji) APIName() string {
	if e.ID != "" {
		return e.Name + ":" + e.ID
	}
	return e.Name
}

func (e Emoji) Same(o Emoji) bool {
	if e.ID != "" || o.ID != "" {
		return e.ID == o.ID
	}
	return e.Name == o.Name
}

// Reaction: una emoji del mensaje con todos los usuarios que la aplicaron.
type Reaction struct {
	Emoji Emoji
	Users []User
}

type ReactionEvent struct {
	ChannelID string
	MessageID string
	User      User
	Emoji     Emoji
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type EmbedAuthor struct {
	Name    string
	IconURL string
	URL     string
}

type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	Author      *EmbedAuthor
	Fields      []EmbedField
}

type Presence string

const (
	PresenceUnknown   Presence = ""
	PresenceOnline    Presence = "online"
	PresenceIdle      Presence = "idle"
	PresenceDND       Presence = "dnd"
	PresenceInvisible Presence = "invisible"
	PresenceOffline   Presence = "offline"
)

// Lo implementa internal/adapters/discord.Platform
type ChannelAdapter interface {
	SelfID() string
	// RecentMessages devuelve los últimos limit mensajes, el más nuevo primero.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
	SendEmbed(ctx context.Context, channelID string, e Embed) (Message, error)
	EditEmbed(ctx context.Context, channelID, messageID string, e Embed) error
	SendText(ctx context.Context, channelID, text string) (Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID string, emoji Emoji) error
	RemoveReaction(ctx context.Context, channelID, messageID string, emoji Emoji, userID string) error
	RemoveEmoji(ctx context.Context, channelID, messageID string, emoji Emoji) error
	Reactions(ctx context.Context, channelID, messageID string) ([]Reaction, error)
}

// Lo implementa internal/adapters/discord.Platform
type DirectMessenger interface {
	SendDM(ctx context.Context, userID, text string) error
}

// Opcional; sin implementación no se filtra por presencia.
type PresenceSource interface {
	Presence(userID string) Presence
}

// Lo implementa internal/app/stats.Poller
type StatsSource interface {
	Fetch(ctx context.Context) (domain.StatsSnapshot, error)
	Last() (domain.StatsSnapshot, bool)
	Subscribe(fn func(domain.StatsSnapshot)) (unsubscribe func())
}

type QuorumRecorder interface {
	IncQuorumBroadcast()
	SetQuorumSubscribers(n int)
}

type AlertRecorder interface {
	IncAlertNotification(ok bool)
	SetAlertSubscriptions(n int)
}

type Clock func() time.Time

type noopRecorder struct{}

func (noopRecorder) IncQuorumBroadcast()       {}
func (noopRecorder) SetQuorumSubscribers(int)  {}
func (noopRecorder) IncAlertNotification(bool) {}
func (noopRecorder) SetAlertSubscriptions(int) {}
