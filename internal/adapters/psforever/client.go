// Package psforever es el cliente HTTP del feed de estadísticas del servidor.
package psforever

import (
	"context"
	"net/http"
	"strings"

	"github.com/jose-valero/psforever-bot/internal/domain"
)

type statsDTO struct {
	Status  string `json:"status"`
	Players []struct {
		Name string `json:"name"`
	} `json:"players"`
	Empires struct {
		TR int `json:"TR"`
		NC int `json:"NC"`
		VS int `json:"VS"`
	} `json:"empires"`
}

// FetchStats: GET {baseUrl}/api/stats.
func (c *Client) FetchStats(ctx context.Context) (domain.StatsSnapshot, error) {
	var dto statsDTO
	if err := c.doJSON(ctx, http.MethodGet, "/api/stats", &dto); err != nil {
		return domain.StatsSnapshot{}, err
	}

	players := make([]domain.Player, 0, len(dto.Players))
	seen := make(map[string]struct{}, len(dto.Players))
	for _, p := range dto.Players {
		// únicos por nombre
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		players = append(players, domain.Player{Name: p.Name})
	}

	status := domain.StatusDown
	if strings.EqualFold(dto.Status, string(domain.StatusUp)) {
		status = domain.StatusUp
	}
	return domain.StatsSnapshot{
		Status:  status,
		Players: players,
		Empires: domain.Empires{TR: dto.Empires.TR, NC: dto.Empires.NC, VS: dto.Empires.VS},
	}, nil
}
