package discord

const Prefix = "!"

const (
	alertHelp = "The !alert command is used to set up a permanent subscription to online player notifications.\n" +
		"**!alert subscribe**\n" +
		"Create or update a subscription.\n" +
		"**!alert status**\n" +
		"Show your current subscription status.\n" +
		"**!alert debug**\n" +
		"Check your subscription against the current server population.\n" +
		"**!alert unsubscribe**\n" +
		"Remove your subscription."

	configUsage = "**!config get [path]**\n" +
		"Show the value at path (dot separated), or the whole config.\n" +
		"**!config set <path> <value>**\n" +
		"Set the value at path. Objects, arrays, quoted strings, true, false and null are read as JSON."

	msgUnknownCommand = "Unknown command. See `!alert help` for usage."
	msgSubscribed     = "You are subscribed."
	msgNotSubscribed  = "You are not subscribed."
	msgUnsubscribed   = "You are now unsubscribed."
	msgConfigUpdated  = "Config updated."
	msgAdminOnly      = "🔒 This command is restricted to server administrators."
	msgCommandFailed  = "⚠️ Something went wrong while running this command."
)

// commands: la tabla de comandos de texto. Los módulos inactivos no responden.
func (r *Router) commands() map[string]Command {
	return map[string]Command{
		"alert":  {Name: "alert", Module: "alert", Handler: r.alertCommand},
		"report": {Name: "report", Module: "report", Handler: r.reportCommand},
		"config": {Name: "config", Module: "config", AdminOnly: true, Handler: r.configCommand},
	}
}
