package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/psforever-bot/internal/domain"
	"github.com/jose-valero/psforever-bot/internal/infra/docstore"
	"github.com/jose-valero/psforever-bot/internal/infra/storage"
)

func newSetup(t *testing.T, timeout time.Duration) (*AlertSetup, *AlertScheduler, *fakeDM) {
	t.Helper()
	f := newAlertFixture(t)
	setup := NewAlertSetup(f.alerts, f.dm, zerolog.Nop(), timeout)
	t.Cleanup(setup.Close)
	return setup, f.alerts, f.dm
}

func answer(t *testing.T, s *AlertSetup, userID, text string) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Deliver(userID, text) }, time.Second, 5*time.Millisecond)
}

func TestAlertSetup_FullConversation(t *testing.T) {
	setup, alerts, dm := newSetup(t, time.Second)
	u := user("u1")

	require.True(t, setup.Begin(u))
	assert.Contains(t, dm.next(t), "At what player threshold")

	answer(t, setup, "u1", "3")
	assert.Equal(t, "Please enter a higher number (5 or higher).", dm.next(t))
	answer(t, setup, "u1", "10")
	assert.Contains(t, dm.next(t), "character names")
	answer(t, setup, "u1", "Foo Bar")
	assert.Contains(t, dm.next(t), "time zone")
	answer(t, setup, "u1", "Mars/Base")
	assert.Equal(t, "Invalid time zone, please try again.", dm.next(t))
	answer(t, setup, "u1", "Europe/Berlin")
	assert.Contains(t, dm.next(t), "**weekdays**")
	answer(t, setup, "u1", "17:00-22:00")
	assert.Contains(t, dm.next(t), "**weekends**")
	answer(t, setup, "u1", "00:00-24:00")
	assert.Equal(t, msgSetupDone, dm.next(t))

	sub, ok := alerts.Status("u1")
	require.True(t, ok)
	assert.Equal(t, 10, sub.Players)
	assert.Equal(t, []string{"Foo", "Bar"}, sub.Characters)
	assert.Equal(t, "Europe/Berlin", sub.Timezone)
	require.Len(t, sub.Timeframes, domain.DaysPerWeek)
	assert.Equal(t, domain.TimeWindow{From: "17:00", To: "22:00"}, sub.Timeframes[0])
	assert.Equal(t, domain.TimeWindow{From: "00:00", To: "23:59:59"}, sub.Timeframes[6])

	require.Eventually(t, func() bool { return !setup.Active("u1") }, time.Second, 5*time.Millisecond)
}

func TestAlertSetup_Exit(t *testing.T) {
	setup, alerts, dm := newSetup(t, time.Second)
	require.True(t, setup.Begin(user("u1")))
	dm.next(t)

	answer(t, setup, "u1", "exit")
	assert.Equal(t, msgSetupCancelled, dm.next(t))
	_, ok := alerts.Status("u1")
	assert.False(t, ok)
}

func TestAlertSetup_Timeout(t *testing.T) {
	setup, _, dm := newSetup(t, 30*time.Millisecond)
	require.True(t, setup.Begin(user("u1")))
	dm.next(t)
	assert.Equal(t, msgSetupTimedOut, dm.next(t))
}

func TestAlertSetup_OneSessionPerUser(t *testing.T) {
	setup, _, dm := newSetup(t, time.Second)
	require.True(t, setup.Begin(user("u1")))
	dm.next(t)

	assert.False(t, setup.Begin(user("u1")))
	assert.Equal(t, msgSetupBusy, dm.next(t))
	assert.False(t, setup.Deliver("u2", "10"))
}

func TestReport(t *testing.T) {
	chat := newFakeChat(newClock(t0))
	channel := "support"
	r := NewReportService(chat, func() string { return channel }, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, r.Initialize(ctx))

	reply, err := r.Report(ctx, user("u1"), "NotNotNick")
	require.NoError(t, err)
	assert.Equal(t, reportUsage, reply)
	assert.Empty(t, chat.sentTexts())

	reply, err = r.Report(ctx, user("u1"), "NotNotNick They are an imposter")
	require.NoError(t, err)
	assert.Empty(t, reply)
	assert.Equal(t, []string{"@here Report from <@u1> for player `NotNotNick` for reason: `They are an imposter`"}, chat.sentTexts())

	channel = ""
	assert.ErrorIs(t, r.Initialize(ctx), ErrNotConfigured)
}

func TestConfigService(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemoryBlobs()
	doc := docstore.New(blobs, "test", "config", DefaultConfigTree())
	c := NewConfigService(doc, zerolog.Nop())
	require.NoError(t, c.Initialize(ctx))

	assert.Equal(t, "", c.String(ReportChannelPath))
	require.NoError(t, c.Set(ReportChannelPath, "123456789012345678"))
	assert.Equal(t, "123456789012345678", c.String(ReportChannelPath))

	require.NoError(t, c.Set("alerts", `{"enabled": true}`))
	out, err := c.Get("alerts.enabled")
	require.NoError(t, err)
	assert.Equal(t, "true", out)

	_, err = c.Get("missing.key")
	assert.ErrorIs(t, err, ErrUnknownPath)
	assert.Error(t, c.Set("", "x"))
	assert.Error(t, c.Set("bad", "{nope"))

	require.NoError(t, c.Teardown(ctx))
	body, err := blobs.Get(ctx, storage.ObjectKey("test", "config"))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"channelId":"123456789012345678"`)
}
