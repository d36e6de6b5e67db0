package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	// zonas IANA embebidas: las imágenes sin zoneinfo también validan
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jose-valero/psforever-bot/internal/domain"
	"github.com/jose-valero/psforever-bot/internal/infra/docstore"
)

const (
	AlertCooldown = 12 * time.Hour
	MinThreshold  = 5
	MaxThreshold  = 500
	MaxCharacters = 10
)

// ValidationError lleva un mensaje apto para mostrarle al usuario.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// AlertConfig es lo que el usuario elige en el setup.
type AlertConfig struct {
	Players    int
	Characters []string
	Timezone   string
	Timeframes []domain.TimeWindow
}

func ParsePlayers(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalid("players", "Please enter a number.")
	}
	return n, checkPlayers(n)
}

func checkPlayers(n int) error {
	if n > MaxThreshold {
		return invalid("players", "That seems unlikely. Please enter a lower number.")
	}
	if n < MinThreshold {
		return invalid("players", fmt.Sprintf("Please enter a higher number (%d or higher).", MinThreshold))
	}
	return nil
}

// ParseCharacters separa por espacios; la lista puede quedar vacía.
func ParseCharacters(raw string) ([]string, error) {
	names := strings.Fields(raw)
	if len(names) > MaxCharacters {
		return nil, invalid("characters", fmt.Sprintf("Please enter no more than %d characters.", MaxCharacters))
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func ParseTimezone(raw string) (string, error) {
	tz := strings.TrimSpace(raw)
	// LoadLocation acepta "" y "Local", que no son zonas IANA
	if tz == "" || tz == "Local" {
		return "", invalid("timezone", "Invalid time zone, please try again.")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", invalid("timezone", "Invalid time zone, please try again.")
	}
	return tz, nil
}

func ParseTimeframe(raw string) (domain.TimeWindow, error) {
	w, err := domain.ParseWindow(raw)
	if err != nil {
		return domain.TimeWindow{}, invalid("timeframes", "Invalid time format, please try again.")
	}
	return w, nil
}

// Validate revisa la configuración completa; nada se guarda si falla.
func (c AlertConfig) Validate() error {
	if err := checkPlayers(c.Players); err != nil {
		return err
	}
	if len(c.Characters) > MaxCharacters {
		return invalid("characters", fmt.Sprintf("Please enter no more than %d characters.", MaxCharacters))
	}
	if _, err := ParseTimezone(c.Timezone); err != nil {
		return err
	}
	if len(c.Timeframes) != domain.DaysPerWeek {
		return invalid("timeframes", fmt.Sprintf("Expected %d time frames, got %d.", domain.DaysPerWeek, len(c.Timeframes)))
	}
	for _, w := range c.Timeframes {
		if _, err := ParseTimeframe(w.String()); err != nil {
			return err
		}
	}
	return nil
}

type AlertOption func(*AlertScheduler)

func WithAlertClock(now Clock) AlertOption { return func(a *AlertScheduler) { a.now = now } }

func WithAlertRecorder(r AlertRecorder) AlertOption { return func(a *AlertScheduler) { a.rec = r } }

func WithPresence(p PresenceSource) AlertOption { return func(a *AlertScheduler) { a.presence = p } }

// WithDMLimiter: nil deja los DMs sin límite.
func WithDMLimiter(l *rate.Limiter) AlertOption { return func(a *AlertScheduler) { a.limiter = l } }

// AlertScheduler evalúa las alertas persistentes en cada snapshot y manda un DM
// a cada usuario cuyas condiciones se cumplen.
type AlertScheduler struct {
	doc      *docstore.Document[domain.AlertDocument]
	dm       DirectMessenger
	stats    StatsSource
	presence PresenceSource
	limiter  *rate.Limiter
	log      zerolog.Logger
	rec      AlertRecorder
	now      Clock

	evalMu sync.Mutex

	zonesMu sync.Mutex
	zones   map[string]*time.Location

	subMu       sync.Mutex
	unsubscribe func()
}

func NewAlertScheduler(doc *docstore.Document[domain.AlertDocument], dm DirectMessenger, stats StatsSource, log zerolog.Logger, opts ...AlertOption) *AlertScheduler {
	a := &AlertScheduler{
		doc:     doc,
		dm:      dm,
		stats:   stats,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		log:     log,
		rec:     noopRecorder{},
		now:     time.Now,
		zones:   map[string]*time.Location{},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *AlertScheduler) Name() string { return "alert" }

func (a *AlertScheduler) Initialize(ctx context.Context) error {
	if err := a.doc.Restore(ctx); err != nil {
		a.log.Warn().Err(err).Msg("using empty alert list")
	}
	a.subMu.Lock()
	defer a.subMu.Unlock()
	if a.unsubscribe == nil {
		a.unsubscribe = a.stats.Subscribe(func(s domain.StatsSnapshot) {
			a.OnStatsUpdate(context.Background(), s)
		})
	}
	a.rec.SetAlertSubscriptions(len(a.doc.Get().Subscriptions))
	a.log.Info().Int("subscriptions", len(a.doc.Get().Subscriptions)).Msg("alert scheduler ready")
	return nil
}

// Subscribe reemplaza la suscripción del usuario entera y arranca el cooldown desde ahora.
func (a *AlertScheduler) Subscribe(_ context.Context, u User, cfg AlertConfig) (domain.AlertSubscription, error) {
	if err := cfg.Validate(); err != nil {
		return domain.AlertSubscription{}, err
	}
	chars := append([]string{}, cfg.Characters...)
	frames := append([]domain.TimeWindow(nil), cfg.Timeframes...)
	sub := domain.AlertSubscription{
		UserID:           u.ID,
		Tag:              u.Tag,
		Players:          cfg.Players,
		Characters:       chars,
		Timezone:         cfg.Timezone,
		Timeframes:       frames,
		LastNotification: domain.MillisOf(a.now()),
	}
	doc := a.doc.Update(func(d domain.AlertDocument) domain.AlertDocument { return d.Replace(sub) })
	a.rec.SetAlertSubscriptions(len(doc.Subscriptions))
	a.log.Info().Str("user", u.Tag).Int("players", cfg.Players).Str("timezone", cfg.Timezone).Msg("alert subscribe")
	return sub, nil
}

// Unsubscribe devuelve false si el usuario no tenía suscripción.
func (a *AlertScheduler) Unsubscribe(_ context.Context, u User) bool {
	if _, ok := a.doc.Get().Find(u.ID); !ok {
		return false
	}
	doc := a.doc.Update(func(d domain.AlertDocument) domain.AlertDocument { return d.Without(u.ID) })
	a.rec.SetAlertSubscriptions(len(doc.Subscriptions))
	a.log.Info().Str("user", u.Tag).Msg("alert unsubscribe")
	return true
}

func (a *AlertScheduler) Status(userID string) (domain.AlertSubscription, bool) {
	return a.doc.Get().Find(userID)
}

// AlertCheck es una de las condiciones evaluadas, en orden.
type AlertCheck struct {
	Name   string
	Passed bool
	Detail string
}

type AlertReport struct {
	Subscription domain.AlertSubscription
	HasSnapshot  bool
	Checks       []AlertCheck
	WouldNotify  bool
}

// Debug evalúa todas las condiciones contra el último snapshot, sin cortar en la primera.
func (a *AlertScheduler) Debug(userID string) (AlertReport, bool) {
	sub, ok := a.doc.Get().Find(userID)
	if !ok {
		return AlertReport{}, false
	}
	snap, has := a.stats.Last()
	checks, notify := a.evaluate(sub, snap, a.now(), false)
	return AlertReport{Subscription: sub, HasSnapshot: has, Checks: checks, WouldNotify: has && notify}, true
}

// OnStatsUpdate devuelve la cantidad de DMs enviados.
func (a *AlertScheduler) OnStatsUpdate(ctx context.Context, snap domain.StatsSnapshot) int {
	a.evalMu.Lock()
	defer a.evalMu.Unlock()

	now := a.now()
	sent := 0
	for _, sub := range a.doc.Get().Subscriptions {
		if _, notify := a.evaluate(sub, snap, now, true); !notify {
			continue
		}
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				a.log.Warn().Err(err).Msg("alert evaluation interrupted")
				return sent
			}
		}
		// los envíos previos y la espera pueden cruzarse con un unsubscribe o un re-subscribe
		fresh, ok := a.doc.Get().Find(sub.UserID)
		if !ok {
			continue
		}
		if _, notify := a.evaluate(fresh, snap, now, true); !notify {
			continue
		}
		sub = fresh
		if err := a.dm.SendDM(ctx, sub.UserID, AlertText(snap.Online())); err != nil {
			a.rec.IncAlertNotification(false)
			a.log.Warn().Err(err).Str("user", sub.Tag).Msg("could not deliver alert")
			continue
		}
		a.rec.IncAlertNotification(true)
		at := domain.MillisOf(now)
		a.doc.Update(func(d domain.AlertDocument) domain.AlertDocument { return d.Touch(sub.UserID, at) })
		a.log.Info().Str("user", sub.Tag).Int("online", snap.Online()).Msg("alert sent")
		sent++
	}
	return sent
}

func AlertText(online int) string {
	return fmt.Sprintf("%d players are online on PSForever. Join the battle now!\n"+
		"You subscribed to this message. To unsubscribe, reply with `!alert unsubscribe`.", online)
}

// evaluate corre las condiciones en orden: umbral, cooldown, personajes, ventana, presencia.
// Con stopEarly corta en la primera que falla.
func (a *AlertScheduler) evaluate(sub domain.AlertSubscription, snap domain.StatsSnapshot, now time.Time, stopEarly bool) ([]AlertCheck, bool) {
	var checks []AlertCheck
	ok := true
	add := func(c AlertCheck) bool {
		checks = append(checks, c)
		if !c.Passed {
			ok = false
		}
		return !c.Passed && stopEarly
	}

	online := snap.Online()
	if add(AlertCheck{"threshold", online >= sub.Players, fmt.Sprintf("%d online, threshold %d", online, sub.Players)}) {
		return checks, false
	}

	since := now.Sub(sub.LastNotification.Time())
	if add(AlertCheck{"cooldown", since >= AlertCooldown, fmt.Sprintf("last notification %s ago", since.Truncate(time.Minute))}) {
		return checks, false
	}

	var onlineChars []string
	for _, c := range sub.Characters {
		if snap.HasPlayer(c) {
			onlineChars = append(onlineChars, c)
		}
	}
	detail := "none of your characters are online"
	if len(onlineChars) > 0 {
		detail = "online: " + strings.Join(onlineChars, ", ")
	}
	if add(AlertCheck{"characters", len(onlineChars) == 0, detail}) {
		return checks, false
	}

	if add(a.windowCheck(sub, now)) {
		return checks, false
	}

	if a.presence != nil {
		p := a.presence.Presence(sub.UserID)
		blocked := p == PresenceOffline || p == PresenceDND
		shown := string(p)
		if p == PresenceUnknown {
			shown = "unknown"
		}
		if add(AlertCheck{"presence", !blocked, shown}) {
			return checks, false
		}
	}
	return checks, ok
}

func (a *AlertScheduler) windowCheck(sub domain.AlertSubscription, now time.Time) AlertCheck {
	loc, err := a.location(sub.Timezone)
	if err != nil {
		return AlertCheck{"window", false, "invalid time zone " + sub.Timezone}
	}
	local := now.In(loc)
	w, found := sub.WindowFor(local)
	if !found {
		return AlertCheck{"window", false, "no time frame for " + local.Weekday().String()}
	}
	in, err := w.Contains(local)
	if err != nil {
		return AlertCheck{"window", false, err.Error()}
	}
	return AlertCheck{"window", in, fmt.Sprintf("%s %s, window %s", local.Weekday(), local.Format("15:04:05"), w)}
}

func (a *AlertScheduler) location(tz string) (*time.Location, error) {
	a.zonesMu.Lock()
	defer a.zonesMu.Unlock()
	if loc, ok := a.zones[tz]; ok {
		return loc, nil
	}
	if tz == "" {
		return nil, errors.New("empty time zone")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	a.zones[tz] = loc
	return loc, nil
}

func (a *AlertScheduler) Teardown(ctx context.Context) error {
	a.subMu.Lock()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	a.subMu.Unlock()
	return a.doc.Close(ctx)
}
