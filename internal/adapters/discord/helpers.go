package discord

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jose-valero/psforever-bot/internal/app/service"
)

// límite de Discord para el contenido de un mensaje
const maxMessageLen = 2000

// parseCommand separa "!alert status" en ("alert", "status"). Nombre en minúsculas.
func parseCommand(content, prefix string) (name, args string, ok bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	name, args = nextWord(strings.TrimPrefix(content, prefix))
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), args, true
}

// nextWord devuelve la primera palabra y el resto sin espacios al borde.
func nextWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' })
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func codeBlock(lang, body string) string {
	return truncate("```"+lang+"\n"+body+"\n```", maxMessageLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const ellipsis = "…"
	cut := n - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

func formatDebug(rep service.AlertReport) string {
	var b strings.Builder
	if !rep.HasSnapshot {
		b.WriteString("No stats received yet.\n")
	}
	for _, c := range rep.Checks {
		mark := "✅"
		if !c.Passed {
			mark = "❌"
		}
		fmt.Fprintf(&b, "%s **%s**", mark, c.Name)
		if c.Detail != "" {
			fmt.Fprintf(&b, ": %s", c.Detail)
		}
		b.WriteByte('\n')
	}
	if rep.WouldNotify {
		b.WriteString("You would be notified now.")
	} else {
		b.WriteString("You would not be notified now.")
	}
	return b.String()
}
