package discord

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/app/service"
)

type Ctx struct {
	Log       zerolog.Logger
	User      service.User
	GuildID   string
	ChannelID string
	// Admin: dueño del guild o permiso Administrator en el canal.
	Admin bool
	// Args: todo lo que sigue al nombre del comando
	Args  string
	Reply func(text string)
}

type CommandHandler func(ctx context.Context, c *Ctx) error

type Command struct {
	Name string
	// Module: el comando sólo existe si ese módulo quedó activo.
	Module    string
	AdminOnly bool
	Handler   CommandHandler
}
