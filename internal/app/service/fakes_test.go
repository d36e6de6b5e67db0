package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jose-valero/psforever-bot/internal/app/stats"
	"github.com/jose-valero/psforever-bot/internal/domain"
	"github.com/jose-valero/psforever-bot/internal/infra/docstore"
	"github.com/jose-valero/psforever-bot/internal/infra/storage"
)

const botID = "bot"

var errFake = errors.New("adapter unavailable")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// fakeChat guarda un canal en memoria con sus mensajes y reacciones.
type fakeChat struct {
	mu            sync.Mutex
	clock         *fakeClock
	seq           int
	messages      []Message // el más viejo primero
	embeds        map[string]Embed
	edits         int
	reactions     map[string][]Reaction
	texts         []string
	deleted       []string
	retracted     []string
	failReactions bool
	failSend      bool
}

func newFakeChat(clock *fakeClock) *fakeChat {
	return &fakeChat{clock: clock, embeds: map[string]Embed{}, reactions: map[string][]Reaction{}}
}

func (f *fakeChat) SelfID() string { return botID }

func (f *fakeChat) RecentMessages(_ context.Context, _ string, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for i := len(f.messages) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.messages[i])
	}
	return out, nil
}

func (f *fakeChat) post(author, content string, embed bool) Message {
	f.seq++
	m := Message{
		ID:        fmt.Sprintf("m%d", f.seq),
		ChannelID: "chan",
		AuthorID:  author,
		Content:   content,
		HasEmbed:  embed,
		CreatedAt: f.clock.Now(),
	}
	f.messages = append(f.messages, m)
	return m
}

func (f *fakeChat) SendEmbed(_ context.Context, _ string, e Embed) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.post(botID, "", true)
	f.embeds[m.ID] = e
	return m, nil
}

func (f *fakeChat) EditEmbed(_ context.Context, _ string, id string, e Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds[id] = e
	f.edits++
	return nil
}

func (f *fakeChat) SendText(_ context.Context, _ string, text string) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return Message{}, errFake
	}
	f.texts = append(f.texts, text)
	return f.post(botID, text, false), nil
}

func (f *fakeChat) DeleteMessage(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.messages {
		if m.ID == id {
			f.messages = append(f.messages[:i:i], f.messages[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return errFake
}

func (f *fakeChat) react(msgID string, e Emoji, u User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rs := f.reactions[msgID]
	for i := range rs {
		if rs[i].Emoji.Same(e) {
			for _, cur := range rs[i].Users {
				if cur.ID == u.ID {
					return
				}
			}
			rs[i].Users = append(rs[i].Users, u)
			return
		}
	}
	f.reactions[msgID] = append(rs, Reaction{Emoji: e, Users: []User{u}})
}

func (f *fakeChat) unreact(msgID string, e Emoji, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	rs := f.reactions[msgID]
	for i := range rs {
		if !rs[i].Emoji.Same(e) {
			continue
		}
		for j, u := range rs[i].Users {
			if u.ID == userID {
				rs[i].Users = append(rs[i].Users[:j:j], rs[i].Users[j+1:]...)
				return true
			}
		}
	}
	return false
}

func (f *fakeChat) AddReaction(_ context.Context, _ string, id string, e Emoji) error {
	f.react(id, e, User{ID: botID, Tag: "bot#0001", Bot: true})
	return nil
}

func (f *fakeChat) RemoveReaction(_ context.Context, _ string, id string, e Emoji, userID string) error {
	if !f.unreact(id, e, userID) {
		return errFake
	}
	f.mu.Lock()
	f.retracted = append(f.retracted, e.Name+":"+userID)
	f.mu.Unlock()
	return nil
}

func (f *fakeChat) RemoveEmoji(_ context.Context, _ string, id string, e Emoji) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rs := f.reactions[id]
	for i := range rs {
		if rs[i].Emoji.Same(e) {
			f.reactions[id] = append(rs[:i:i], rs[i+1:]...)
			return nil
		}
	}
	return errFake
}

func (f *fakeChat) Reactions(_ context.Context, _ string, id string) ([]Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReactions {
		return nil, errFake
	}
	var out []Reaction
	for _, r := range f.reactions[id] {
		if len(r.Users) == 0 {
			continue
		}
		out = append(out, Reaction{Emoji: r.Emoji, Users: append([]User(nil), r.Users...)})
	}
	return out, nil
}

func (f *fakeChat) emojiUsers(msgID string, e Emoji) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, r := range f.reactions[msgID] {
		if r.Emoji.Same(e) {
			for _, u := range r.Users {
				ids = append(ids, u.ID)
			}
		}
	}
	return ids
}

func (f *fakeChat) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// fakeDM registra los DMs por usuario.
type fakeDM struct {
	mu   sync.Mutex
	sent map[string][]string
	ch   chan string
	fail bool
	// onSend corre tras registrar cada DM, fuera del lock
	onSend func(userID string)
}

func newFakeDM() *fakeDM { return &fakeDM{sent: map[string][]string{}, ch: make(chan string, 32)} }

func (d *fakeDM) SendDM(_ context.Context, userID, text string) error {
	d.mu.Lock()
	if d.fail {
		d.mu.Unlock()
		return errFake
	}
	d.sent[userID] = append(d.sent[userID], text)
	hook := d.onSend
	d.mu.Unlock()
	if hook != nil {
		hook(userID)
	}
	select {
	case d.ch <- text:
	default:
	}
	return nil
}

func (d *fakeDM) count(userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent[userID])
}

func (d *fakeDM) next(t *testing.T) string {
	t.Helper()
	select {
	case s := <-d.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no direct message sent")
		return ""
	}
}

type fakeStats struct {
	mu   sync.Mutex
	bus  *stats.Bus[domain.StatsSnapshot]
	snap domain.StatsSnapshot
	has  bool
	err  error
}

func newFakeStats(s domain.StatsSnapshot) *fakeStats {
	return &fakeStats{bus: stats.NewBus[domain.StatsSnapshot](), snap: s, has: true}
}

func (f *fakeStats) Fetch(context.Context) (domain.StatsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.StatsSnapshot{}, f.err
	}
	return f.snap, nil
}

func (f *fakeStats) Last() (domain.StatsSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.has
}

func (f *fakeStats) Subscribe(fn func(domain.StatsSnapshot)) func() { return f.bus.Subscribe(fn) }

func (f *fakeStats) set(s domain.StatsSnapshot) {
	f.mu.Lock()
	f.snap, f.has = s, true
	f.mu.Unlock()
}

type fakePresence map[string]Presence

func (p fakePresence) Presence(userID string) Presence { return p[userID] }

func snapshot(names ...string) domain.StatsSnapshot {
	players := make([]domain.Player, len(names))
	for i, n := range names {
		players[i] = domain.Player{Name: n}
	}
	return domain.StatsSnapshot{Status: domain.StatusUp, Players: players}
}

func crowd(n int, extra ...string) domain.StatsSnapshot {
	names := make([]string, 0, n+len(extra))
	for i := 0; i < n; i++ {
		names = append(names, fmt.Sprintf("player%02d", i))
	}
	return snapshot(append(names, extra...)...)
}

func newDoc[T any](t *testing.T, blobs storage.BlobStore, name string, initial T) *docstore.Document[T] {
	t.Helper()
	return docstore.New(blobs, "test", name, initial, docstore.WithPolicy(docstore.Policy{Mode: docstore.Debounce, Interval: time.Hour}))
}

func user(id string) User { return User{ID: id, Tag: id + "#0001"} }
