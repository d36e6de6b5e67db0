// reacciones sobre el mensaje de estado del quorum
package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/psforever-bot/internal/app/service"
)

func (r *Router) onReactionAdd(s *discordgo.Session, ev *discordgo.MessageReactionAdd) {
	if ev.MessageReaction == nil || !r.active("enlist") {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	defer r.recoverReaction("add")

	u := r.reactionUser(ctx, ev.GuildID, ev.UserID, ev.Member)
	if err := r.svc.Quorum.HandleReactionAdd(ctx, reactionEvent(ev.MessageReaction, u)); err != nil {
		r.log.Warn().Err(err).Str("user", u.ID).Msg("reaction add not handled")
	}
}

func (r *Router) onReactionRemove(s *discordgo.Session, ev *discordgo.MessageReactionRemove) {
	if ev.MessageReaction == nil || !r.active("enlist") {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	defer r.recoverReaction("remove")

	u := r.reactionUser(ctx, ev.GuildID, ev.UserID, nil)
	if err := r.svc.Quorum.HandleReactionRemove(ctx, reactionEvent(ev.MessageReaction, u)); err != nil {
		r.log.Warn().Err(err).Str("user", u.ID).Msg("reaction remove not handled")
	}
}

func (r *Router) recoverReaction(kind string) {
	if rec := recover(); rec != nil {
		r.log.Error().Interface("panic", rec).Str("reaction", kind).Msg("panic in reaction handler")
	}
}

func reactionEvent(mr *discordgo.MessageReaction, u service.User) service.ReactionEvent {
	return service.ReactionEvent{
		ChannelID: mr.ChannelID,
		MessageID: mr.MessageID,
		User:      u,
		Emoji:     service.Emoji{ID: mr.Emoji.ID, Name: mr.Emoji.Name},
	}
}

// reactionUser resuelve tag y flag de bot: evento, luego state, luego API.
func (r *Router) reactionUser(ctx context.Context, guildID, userID string, member *discordgo.Member) service.User {
	if member != nil && member.User != nil {
		return fromUser(member.User)
	}
	if guildID != "" {
		if m, err := r.s.State.Member(guildID, userID); err == nil && m.User != nil {
			return fromUser(m.User)
		}
	}
	if u, err := r.s.User(userID, discordgo.WithContext(ctx)); err == nil {
		return fromUser(u)
	}
	return service.User{ID: userID, Tag: userID}
}
