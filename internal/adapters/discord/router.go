package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/app/service"
)

const handlerTimeout = 15 * time.Second

// Services que atiende el router; cada uno se consulta sólo si su módulo está activo.
type Services struct {
	Quorum *service.QuorumTracker
	Alerts *service.AlertScheduler
	Setup  *service.AlertSetup
	Report *service.ReportService
	Config *service.ConfigService
}

type Router struct {
	s       *discordgo.Session
	log     zerolog.Logger
	dm      service.DirectMessenger
	svc     Services
	active  func(module string) bool
	limiter *userLimiter
	cmds    map[string]Command

	removers []func()
}

func NewRouter(
	s *discordgo.Session,
	dm service.DirectMessenger,
	svc Services,
	active func(module string) bool,
	log zerolog.Logger,
) *Router {
	if active == nil {
		active = func(string) bool { return true }
	}
	r := &Router{
		s:       s,
		log:     log,
		dm:      dm,
		svc:     svc,
		active:  active,
		limiter: newUserLimiter(2*time.Second, 3),
	}
	r.cmds = r.commands()
	return r
}

func (r *Router) Handlers() {
	r.removers = append(r.removers,
		r.s.AddHandler(r.onMessageCreate),
		r.s.AddHandler(r.onReactionAdd),
		r.s.AddHandler(r.onReactionRemove),
	)
}

// Close quita los handlers registrados.
func (r *Router) Close() {
	for _, remove := range r.removers {
		remove()
	}
	r.removers = nil
}

func (r *Router) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	// DM con una conversación de alertas abierta
	if m.GuildID == "" && r.active("alert") && r.svc.Setup.Deliver(m.Author.ID, m.Content) {
		return
	}

	c := &Ctx{
		Log:       r.log,
		User:      fromUser(m.Author),
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Reply:     func(text string) { replyTo(ctx, s, m.Message, text, r.log) },
	}
	if name, _, ok := parseCommand(m.Content, Prefix); ok {
		if cmd, found := r.cmds[name]; found && cmd.AdminOnly {
			c.Admin = r.isAdmin(m)
		}
	}
	r.dispatch(ctx, c, m.Content)
}
