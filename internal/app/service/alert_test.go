package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/psforever-bot/internal/domain"
	"github.com/jose-valero/psforever-bot/internal/infra/storage"
)

// t0 es lunes 2024-01-01 10:00 UTC.

type alertFixture struct {
	clock  *fakeClock
	dm     *fakeDM
	stats  *fakeStats
	alerts *AlertScheduler
}

func newAlertFixture(t *testing.T, opts ...AlertOption) *alertFixture {
	t.Helper()
	f := &alertFixture{clock: newClock(t0), dm: newFakeDM(), stats: newFakeStats(crowd(0))}
	doc := newDoc(t, storage.NewMemoryBlobs(), "alert", domain.AlertDocument{Subscriptions: []domain.AlertSubscription{}})
	opts = append([]AlertOption{WithAlertClock(f.clock.Now), WithDMLimiter(nil)}, opts...)
	f.alerts = NewAlertScheduler(doc, f.dm, f.stats, zerolog.Nop(), opts...)
	t.Cleanup(func() { _ = f.alerts.Teardown(context.Background()) })
	return f
}

func window(raw string) domain.TimeWindow {
	w, err := domain.ParseWindow(raw)
	if err != nil {
		panic(err)
	}
	return w
}

func officeHours(players int, chars ...string) AlertConfig {
	return AlertConfig{
		Players:    players,
		Characters: chars,
		Timezone:   "UTC",
		Timeframes: domain.WeeklyWindows(window("09:00-17:00"), window("09:00-17:00")),
	}
}

func anytime(players int) AlertConfig {
	return AlertConfig{
		Players:    players,
		Characters: []string{},
		Timezone:   "UTC",
		Timeframes: domain.WeeklyWindows(window("00:00-24:00"), window("00:00-24:00")),
	}
}

// subscribeAt guarda la suscripción con el reloj en at y lo devuelve a t0.
func (f *alertFixture) subscribeAt(t *testing.T, at time.Time, u User, cfg AlertConfig) {
	t.Helper()
	f.clock.Set(at)
	_, err := f.alerts.Subscribe(context.Background(), u, cfg)
	require.NoError(t, err)
	f.clock.Set(t0)
}

func TestAlert_ExclusionThenNotify(t *testing.T) {
	f := newAlertFixture(t)
	u := user("u1")
	f.subscribeAt(t, t0.Add(-13*time.Hour), u, officeHours(20, "Foo"))

	assert.Equal(t, 0, f.alerts.OnStatsUpdate(context.Background(), crowd(24, "Foo")))
	assert.Equal(t, 0, f.dm.count("u1"))

	assert.Equal(t, 1, f.alerts.OnStatsUpdate(context.Background(), crowd(25)))
	require.Equal(t, 1, f.dm.count("u1"))
	assert.Equal(t, AlertText(25), f.dm.sent["u1"][0])

	sub, ok := f.alerts.Status("u1")
	require.True(t, ok)
	assert.Equal(t, t0.UnixMilli(), int64(sub.LastNotification))
}

func TestAlert_Threshold(t *testing.T) {
	f := newAlertFixture(t)
	f.subscribeAt(t, t0.Add(-13*time.Hour), user("u1"), anytime(20))

	assert.Equal(t, 0, f.alerts.OnStatsUpdate(context.Background(), crowd(19)))
	assert.Equal(t, 1, f.alerts.OnStatsUpdate(context.Background(), crowd(20)))
}

func TestAlert_CooldownTwelveHours(t *testing.T) {
	f := newAlertFixture(t)
	f.subscribeAt(t, t0.Add(-13*time.Hour), user("u1"), anytime(5))
	ctx := context.Background()

	require.Equal(t, 1, f.alerts.OnStatsUpdate(ctx, crowd(10)))

	f.clock.Advance(AlertCooldown - time.Minute)
	assert.Equal(t, 0, f.alerts.OnStatsUpdate(ctx, crowd(10)))

	f.clock.Advance(time.Minute)
	assert.Equal(t, 1, f.alerts.OnStatsUpdate(ctx, crowd(10)))
	assert.Equal(t, 2, f.dm.count("u1"))
}

func TestAlert_SubscribeStartsCooldown(t *testing.T) {
	f := newAlertFixture(t)
	_, err := f.alerts.Subscribe(context.Background(), user("u1"), anytime(5))
	require.NoError(t, err)
	assert.Equal(t, 0, f.alerts.OnStatsUpdate(context.Background(), crowd(50)))
}

func TestAlert_OutsideWindow(t *testing.T) {
	f := newAlertFixture(t)
	f.subscribeAt(t, t0.Add(-24*time.Hour), user("u1"), officeHours(5))

	f.clock.Set(time.Date(2024, 1, 1, 17, 0, 1, 0, time.UTC))
	assert.Equal(t, 0, f.alerts.OnStatsUpdate(context.Background(), crowd(10)))

	f.clock.Set(time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, f.alerts.OnStatsUpdate(context.Background(), crowd(10)))
}

func TestAlert_TimezoneAndWeekend(t *testing.T) {
	f := newAlertFixture(t)
	cfg := officeHours(5)
	cfg.Timezone = "America/New_York"
	cfg.Timeframes = domain.WeeklyWindows(window("09:00-17:00"), window("20:00-23:00"))
	f.subscribeAt(t, t0.Add(-24*time.Hour), user("u1"), cfg)

	// lunes 10:00 UTC son las 05:00 en Nueva York
	assert.Equal(t, 0, f.alerts.OnStatsUpdate(context.Background(), crowd(10)))

	// domingo 7 de enero 02:00 UTC es sábado 21:00 en Nueva York
	f.clock.Set(time.Date(2024, 1, 7, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, f.alerts.OnStatsUpdate(context.Background(), crowd(10)))
}

func TestAlert_Presence(t *testing.T) {
	presence := fakePresence{"busy": PresenceDND, "gone": PresenceOffline, "here": PresenceOnline}
	f := newAlertFixture(t, WithPresence(presence))
	for _, id := range []string{"busy", "gone", "here", "ghost"} {
		f.subscribeAt(t, t0.Add(-13*time.Hour), user(id), anytime(5))
	}

	assert.Equal(t, 2, f.alerts.OnStatsUpdate(context.Background(), crowd(10)))
	assert.Equal(t, 0, f.dm.count("busy"))
	assert.Equal(t, 0, f.dm.count("gone"))
	assert.Equal(t, 1, f.dm.count("here"))
	assert.Equal(t, 1, f.dm.count("ghost"))
}

func TestAlert_FailedDMKeepsLastNotification(t *testing.T) {
	f := newAlertFixture(t)
	f.subscribeAt(t, t0.Add(-13*time.Hour), user("u1"), anytime(5))
	f.dm.fail = true

	assert.Equal(t, 0, f.alerts.OnStatsUpdate(context.Background(), crowd(10)))
	sub, _ := f.alerts.Status("u1")
	assert.Equal(t, t0.Add(-13*time.Hour).UnixMilli(), int64(sub.LastNotification))

	f.dm.fail = false
	assert.Equal(t, 1, f.alerts.OnStatsUpdate(context.Background(), crowd(10)))
}

func TestAlert_SubscriptionChangesDuringCycle(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()
	f.subscribeAt(t, t0.Add(-13*time.Hour), user("u1"), anytime(5))
	f.subscribeAt(t, t0.Add(-13*time.Hour), user("u2"), anytime(5))
	f.subscribeAt(t, t0.Add(-13*time.Hour), user("u3"), anytime(5))

	f.dm.onSend = func(userID string) {
		if userID != "u1" {
			return
		}
		f.alerts.Unsubscribe(ctx, user("u2"))
		_, err := f.alerts.Subscribe(ctx, user("u3"), anytime(50))
		assert.NoError(t, err)
	}

	assert.Equal(t, 1, f.alerts.OnStatsUpdate(ctx, crowd(10)))
	assert.Equal(t, 1, f.dm.count("u1"))
	assert.Zero(t, f.dm.count("u2"))
	assert.Zero(t, f.dm.count("u3"))

	_, ok := f.alerts.Status("u2")
	assert.False(t, ok)
	sub, ok := f.alerts.Status("u3")
	require.True(t, ok)
	assert.Equal(t, 50, sub.Players)
}

func TestAlert_SubscribeValidation(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	bad := []AlertConfig{
		officeHours(4),
		officeHours(501),
		officeHours(10, "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"),
		func() AlertConfig { c := officeHours(10); c.Timezone = "Mars/Olympus"; return c }(),
		func() AlertConfig { c := officeHours(10); c.Timeframes = c.Timeframes[:6]; return c }(),
		func() AlertConfig {
			c := officeHours(10)
			c.Timeframes[2] = domain.TimeWindow{From: "18:00", To: "09:00"}
			return c
		}(),
	}
	for _, cfg := range bad {
		_, err := f.alerts.Subscribe(ctx, user("u1"), cfg)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve), "%+v", cfg)
	}
	_, ok := f.alerts.Status("u1")
	assert.False(t, ok)
}

func TestAlert_ResubscribeReplaces(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()
	_, err := f.alerts.Subscribe(ctx, user("u1"), officeHours(10, "Foo"))
	require.NoError(t, err)
	_, err = f.alerts.Subscribe(ctx, user("u1"), anytime(30))
	require.NoError(t, err)

	sub, ok := f.alerts.Status("u1")
	require.True(t, ok)
	assert.Equal(t, 30, sub.Players)
	assert.Empty(t, sub.Characters)

	assert.True(t, f.alerts.Unsubscribe(ctx, user("u1")))
	assert.False(t, f.alerts.Unsubscribe(ctx, user("u1")))
}

func TestAlert_Debug(t *testing.T) {
	f := newAlertFixture(t)
	f.stats.set(crowd(30, "Foo"))
	f.subscribeAt(t, t0.Add(-13*time.Hour), user("u1"), officeHours(20, "Foo"))

	rep, ok := f.alerts.Debug("u1")
	require.True(t, ok)
	assert.False(t, rep.WouldNotify)
	require.Len(t, rep.Checks, 4)
	assert.True(t, rep.Checks[0].Passed)
	assert.True(t, rep.Checks[1].Passed)
	assert.False(t, rep.Checks[2].Passed)
	assert.Equal(t, "online: Foo", rep.Checks[2].Detail)
	assert.True(t, rep.Checks[3].Passed)

	_, ok = f.alerts.Debug("nobody")
	assert.False(t, ok)
}

func TestAlert_ListensToStatsBus(t *testing.T) {
	f := newAlertFixture(t)
	require.NoError(t, f.alerts.Initialize(context.Background()))
	f.subscribeAt(t, t0.Add(-13*time.Hour), user("u1"), anytime(5))

	f.stats.bus.Publish(crowd(10))
	assert.Equal(t, 1, f.dm.count("u1"))

	require.NoError(t, f.alerts.Teardown(context.Background()))
	assert.Zero(t, f.stats.bus.Len())
}

func TestParsers(t *testing.T) {
	n, err := ParsePlayers(" 10 ")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	for raw, msg := range map[string]string{
		"ten": "Please enter a number.",
		"501": "That seems unlikely. Please enter a lower number.",
		"4":   "Please enter a higher number (5 or higher).",
	} {
		_, err := ParsePlayers(raw)
		assert.EqualError(t, err, msg)
	}

	chars, err := ParseCharacters("  Foo   Bar ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo", "Bar"}, chars)
	chars, err = ParseCharacters("")
	require.NoError(t, err)
	assert.Empty(t, chars)

	_, err = ParseTimezone("Europe/Berlin")
	assert.NoError(t, err)
	_, err = ParseTimezone("Local")
	assert.Error(t, err)

	w, err := ParseTimeframe("00:00-24:00")
	require.NoError(t, err)
	assert.Equal(t, "23:59:59", w.To)
	_, err = ParseTimeframe("later")
	assert.EqualError(t, err, "Invalid time format, please try again.")
}

func TestParseTimezone_IANAZones(t *testing.T) {
	for _, tz := range []string{"America/New_York", "Europe/Madrid", "Asia/Kathmandu", "Australia/Lord_Howe", "UTC"} {
		got, err := ParseTimezone(" " + tz + " ")
		require.NoError(t, err, tz)
		assert.Equal(t, tz, got)
	}
	_, err := ParseTimezone("Europe/Atlantis")
	assert.Error(t, err)
}
