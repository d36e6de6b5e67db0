package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// DaysPerWeek: timeframes indexados Lunes=0 .. Domingo=6.
const DaysPerWeek = 7

var reClock = regexp.MustCompile(`^(\d{2}):(\d{2})(?::(\d{2}))?$`)

// Clock es una hora local del día, sin zona.
type Clock struct {
	Hour, Minute, Second int
}

// ParseClock acepta HH:MM o HH:MM:SS. "24:00" se normaliza a 23:59:59 (24:00 no existe).
func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	if raw == "24:00" || raw == "24:00:00" {
		return Clock{23, 59, 59}, nil
	}
	m := reClock.FindStringSubmatch(raw)
	if m == nil {
		return Clock{}, fmt.Errorf("invalid time %q", raw)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	s := 0
	if m[3] != "" {
		s, _ = strconv.Atoi(m[3])
	}
	if h > 23 || mi > 59 || s > 59 {
		return Clock{}, fmt.Errorf("invalid time %q", raw)
	}
	return Clock{h, mi, s}, nil
}

func (c Clock) seconds() int { return c.Hour*3600 + c.Minute*60 + c.Second }

func (c Clock) After(o Clock) bool { return c.seconds() > o.seconds() }

// On devuelve ese reloj en el día calendario de t, en la zona de t.
func (c Clock) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, c.Second, 0, t.Location())
}

func (c Clock) String() string {
	if c.Second == 0 {
		return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
	}
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// TimeWindow se persiste como ["HH:MM","HH:MM"].
type TimeWindow struct {
	From string
	To   string
}

// ParseWindow parsea "HH:MM[:SS]-HH:MM[:SS]". Invariante: from <= to.
func ParseWindow(raw string) (TimeWindow, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return TimeWindow{}, fmt.Errorf("invalid time frame %q", raw)
	}
	from, err := ParseClock(parts[0])
	if err != nil {
		return TimeWindow{}, err
	}
	to, err := ParseClock(parts[1])
	if err != nil {
		return TimeWindow{}, err
	}
	if from.After(to) {
		return TimeWindow{}, fmt.Errorf("time frame %q ends before it starts", raw)
	}
	return TimeWindow{From: from.String(), To: to.String()}, nil
}

// Contains evalúa now (ya convertido a la zona del usuario) contra la ventana de ese día.
func (w TimeWindow) Contains(now time.Time) (bool, error) {
	from, err := ParseClock(w.From)
	if err != nil {
		return false, err
	}
	to, err := ParseClock(w.To)
	if err != nil {
		return false, err
	}
	if now.Before(from.On(now)) || now.After(to.On(now)) {
		return false, nil
	}
	return true, nil
}

func (w TimeWindow) String() string { return w.From + "-" + w.To }

func (w TimeWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{w.From, w.To})
}

func (w *TimeWindow) UnmarshalJSON(b []byte) error {
	var pair []string
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errors.New("time frame must have exactly two entries")
	}
	w.From, w.To = pair[0], pair[1]
	return nil
}

// WeekdayIndex: Lunes=0 .. Domingo=6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % DaysPerWeek
}

// WeeklyWindows arma los 7 timeframes: los 5 días hábiles comparten weekday, sábado y domingo weekend.
func WeeklyWindows(weekday, weekend TimeWindow) []TimeWindow {
	return []TimeWindow{weekday, weekday, weekday, weekday, weekday, weekend, weekend}
}

// AlertSubscription es una alerta persistente por usuario (alert.json).
type AlertSubscription struct {
	UserID           string       `json:"id"`
	Tag              string       `json:"tag"`
	Players          int          `json:"players"`
	Characters       []string     `json:"characters"`
	Timezone         string       `json:"timezone"`
	Timeframes       []TimeWindow `json:"timeframes"`
	LastNotification Millis       `json:"lastNotification"`
}

// WindowFor devuelve la ventana del día de la semana de now (en la zona del usuario).
func (a AlertSubscription) WindowFor(now time.Time) (TimeWindow, bool) {
	i := WeekdayIndex(now)
	if i >= len(a.Timeframes) {
		return TimeWindow{}, false
	}
	return a.Timeframes[i], true
}

type AlertDocument struct {
	Subscriptions []AlertSubscription `json:"subscriptions"`
}

func (d AlertDocument) Find(userID string) (AlertSubscription, bool) {
	for _, s := range d.Subscriptions {
		if s.UserID == userID {
			return s, true
		}
	}
	return AlertSubscription{}, false
}

// Replace reemplaza (o agrega) la suscripción completa del usuario.
func (d AlertDocument) Replace(s AlertSubscription) AlertDocument {
	out := make([]AlertSubscription, 0, len(d.Subscriptions)+1)
	for _, cur := range d.Subscriptions {
		if cur.UserID != s.UserID {
			out = append(out, cur)
		}
	}
	return AlertDocument{Subscriptions: append(out, s)}
}

func (d AlertDocument) Without(userID string) AlertDocument {
	out := make([]AlertSubscription, 0, len(d.Subscriptions))
	for _, cur := range d.Subscriptions {
		if cur.UserID != userID {
			out = append(out, cur)
		}
	}
	return AlertDocument{Subscriptions: out}
}

// Touch actualiza lastNotification sólo de ese usuario.
func (d AlertDocument) Touch(userID string, at Millis) AlertDocument {
	out := make([]AlertSubscription, len(d.Subscriptions))
	copy(out, d.Subscriptions)
	for i := range out {
		if out[i].UserID == userID {
			out[i].LastNotification = at
		}
	}
	return AlertDocument{Subscriptions: out}
}
