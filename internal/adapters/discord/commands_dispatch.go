// lógica de los comandos de texto; aquí sólo parseamos y despachamos a los servicios
package discord

import (
	"context"
	"strings"

	json "github.com/goccy/go-json"
)

// dispatch corre el comando si el contenido lo es. Devuelve false si no era un comando conocido.
func (r *Router) dispatch(ctx context.Context, c *Ctx, content string) bool {
	name, args, ok := parseCommand(content, Prefix)
	if !ok {
		return false
	}
	cmd, ok := r.cmds[name]
	if !ok || !r.active(cmd.Module) {
		return false
	}
	if !r.limiter.Allow(c.User.ID) {
		c.Log.Debug().Str("cmd", name).Msg("command rate limited")
		return true
	}
	if cmd.AdminOnly && !c.Admin {
		c.Reply(msgAdminOnly)
		return true
	}

	c.Args = args
	c.Log = c.Log.With().Str("cmd", name).Logger()
	c.Log.Info().Str("by", c.User.Tag).Str("guild", c.GuildID).Msg("command")

	defer func() {
		if rec := recover(); rec != nil {
			c.Log.Error().Interface("panic", rec).Msg("panic in command")
			c.Reply(msgCommandFailed)
		}
	}()
	defer step(c.Log, name)()

	if err := cmd.Handler(ctx, c); err != nil {
		c.Log.Error().Err(err).Msg("command failed")
		c.Reply(msgCommandFailed)
	}
	return true
}

func (r *Router) alertCommand(ctx context.Context, c *Ctx) error {
	sub, _ := nextWord(c.Args)
	switch strings.ToLower(sub) {
	case "help":
		c.Reply(alertHelp)

	//--> la conversación sigue por DM
	case "subscribe":
		r.svc.Setup.Begin(c.User)

	case "unsubscribe":
		msg := msgNotSubscribed
		if r.svc.Alerts.Unsubscribe(ctx, c.User) {
			msg = msgUnsubscribed
		}
		return r.dm.SendDM(ctx, c.User.ID, msg)

	case "status":
		s, ok := r.svc.Alerts.Status(c.User.ID)
		if !ok {
			return r.dm.SendDM(ctx, c.User.ID, msgNotSubscribed)
		}
		if err := r.dm.SendDM(ctx, c.User.ID, msgSubscribed); err != nil {
			return err
		}
		body, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return r.dm.SendDM(ctx, c.User.ID, string(body))

	case "debug":
		rep, ok := r.svc.Alerts.Debug(c.User.ID)
		if !ok {
			return r.dm.SendDM(ctx, c.User.ID, msgNotSubscribed)
		}
		return r.dm.SendDM(ctx, c.User.ID, formatDebug(rep))

	default:
		c.Reply(msgUnknownCommand)
	}
	return nil
}

func (r *Router) reportCommand(ctx context.Context, c *Ctx) error {
	reply, err := r.svc.Report.Report(ctx, c.User, c.Args)
	if err != nil {
		return err
	}
	if reply != "" {
		c.Reply(reply)
	}
	return nil
}

func (r *Router) configCommand(_ context.Context, c *Ctx) error {
	sub, rest := nextWord(c.Args)
	switch strings.ToLower(sub) {
	case "get":
		path, _ := nextWord(rest)
		out, err := r.svc.Config.Get(path)
		if err != nil {
			c.Reply("⚠️ " + err.Error())
			return nil
		}
		c.Reply(codeBlock("json", out))

	case "set":
		path, value := nextWord(rest)
		if path == "" || value == "" {
			c.Reply(configUsage)
			return nil
		}
		// Set sólo falla por entrada inválida
		if err := r.svc.Config.Set(path, value); err != nil {
			c.Reply("⚠️ " + err.Error())
			return nil
		}
		c.Reply(msgConfigUpdated)

	default:
		c.Reply(configUsage)
	}
	return nil
}
