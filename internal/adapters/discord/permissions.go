package discord

import "github.com/bwmarrin/discordgo"

// isAdmin: dueño del guild o permiso Administrator. En DMs nunca.
func (r *Router) isAdmin(m *discordgo.MessageCreate) bool {
	if m.GuildID == "" || m.Author == nil {
		return false
	}
	// Owner
	if g, _ := r.s.State.Guild(m.GuildID); g != nil && g.OwnerID == m.Author.ID {
		return true
	}

	// Administrator bit
	perms, err := r.s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		perms, err = r.s.UserChannelPermissions(m.Author.ID, m.ChannelID)
		if err != nil {
			r.log.Debug().Err(err).Str("user", m.Author.ID).Msg("could not resolve permissions")
			return false
		}
	}
	return perms&discordgo.PermissionAdministrator != 0
}
