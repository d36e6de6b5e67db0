package service

import (
	"fmt"
	"time"

	"github.com/jose-valero/psforever-bot/internal/domain"
)

const (
	PlayURL   = "https://play.psforever.net"
	guideURL  = "https://docs.google.com/document/d/1ZMx1NUylVZCXJNRyhkuVWT0eUKSVYu0JXsU-y3f93BY/edit"
	logoURL   = "https://psforever.net/index_files/logo_crop.png"
	colorUp   = 0x0099ff
	colorDown = 0xff0000
)

func emojiTag(e Emoji) string {
	if e.ID == "" {
		return e.Name
	}
	return fmt.Sprintf("<:%s:%s>", e.Name, e.ID)
}

// RenderStatus arma el embed del mensaje de estado.
func RenderStatus(snap domain.StatsSnapshot, cfg QuorumConfig) Embed {
	cfg = cfg.withDefaults()
	if !snap.IsUp() {
		return Embed{Title: "Server is Offline", URL: PlayURL, Color: colorDown}
	}

	counts := []int{snap.Empires.TR, snap.Empires.NC, snap.Empires.VS}
	desc := fmt.Sprintf("**Online Players: %d (", snap.Online())
	for i, n := range counts {
		if i > 0 {
			desc += " "
		}
		desc += fmt.Sprintf("%d", n)
		if i < len(cfg.Emojis) {
			desc += " " + emojiTag(cfg.Emojis[i])
		}
	}
	desc += ")**"

	return Embed{
		Title:       "Server is Online",
		URL:         PlayURL,
		Color:       colorUp,
		Description: desc,
		Author:      &EmbedAuthor{Name: "How to play", IconURL: logoURL, URL: guideURL},
		Fields: []EmbedField{{
			Name: "Want to start a battle?",
			Value: fmt.Sprintf("React with your faction of choice and we will notify you if %d players total do the same within the next %s.\n",
				cfg.MinPlayers, humanize(cfg.Expiry)),
		}},
	}
}

func humanize(d time.Duration) string {
	h := d.Hours()
	switch {
	case h == 1:
		return "hour"
	case h == float64(int(h)):
		return fmt.Sprintf("%d hours", int(h))
	default:
		return fmt.Sprintf("%.0f minutes", h*60)
	}
}
