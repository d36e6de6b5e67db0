package domain

// ServerStatus es el estado que reporta /api/stats.
type ServerStatus string

const (
	StatusUp   ServerStatus = "UP"
	StatusDown ServerStatus = "DOWN"
)

type Player struct {
	Name string `json:"name"`
}

// Empires: jugadores online por facción.
type Empires struct {
	TR int `json:"TR"`
	NC int `json:"NC"`
	VS int `json:"VS"`
}

// StatsSnapshot es inmutable una vez leído; cada poll lo reemplaza entero.
type StatsSnapshot struct {
	Status  ServerStatus `json:"status"`
	Players []Player     `json:"players"`
	Empires Empires      `json:"empires"`
}

func (s StatsSnapshot) Online() int { return len(s.Players) }

func (s StatsSnapshot) IsUp() bool { return s.Status == StatusUp }

// HasPlayer compara case-sensitive, igual que el juego.
func (s StatsSnapshot) HasPlayer(name string) bool {
	for _, p := range s.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// SameHeadline: true si el embed de estado no necesita re-render.
func (s StatsSnapshot) SameHeadline(o StatsSnapshot) bool {
	return s.Status == o.Status && s.Empires == o.Empires && len(s.Players) == len(o.Players)
}
