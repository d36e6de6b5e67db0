package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/domain"
	"github.com/jose-valero/psforever-bot/internal/infra/docstore"
)

const (
	DefaultMinPlayers  = 20
	DefaultQuorumTTL   = 2 * time.Hour
	defaultSearchDepth = 10
)

// DefaultFactionEmojis: terran, newcon y vanu del servidor de la comunidad.
func DefaultFactionEmojis() []Emoji {
	return []Emoji{
		{ID: "444448298657513482", Name: "terran"},
		{ID: "231260160511705088", Name: "newcon"},
		{ID: "231260169676390403", Name: "vanu"},
	}
}

type QuorumConfig struct {
	ChannelID   string
	MinPlayers  int
	Expiry      time.Duration
	Emojis      []Emoji
	SearchDepth int
}

func (c QuorumConfig) withDefaults() QuorumConfig {
	if c.MinPlayers <= 0 {
		c.MinPlayers = DefaultMinPlayers
	}
	if c.Expiry <= 0 {
		c.Expiry = DefaultQuorumTTL
	}
	if len(c.Emojis) == 0 {
		c.Emojis = DefaultFactionEmojis()
	}
	if c.SearchDepth <= 0 {
		c.SearchDepth = defaultSearchDepth
	}
	return c
}

type QuorumOption func(*QuorumTracker)

func WithQuorumClock(now Clock) QuorumOption {
	return func(q *QuorumTracker) { q.now = now }
}

func WithQuorumRecorder(r QuorumRecorder) QuorumOption {
	return func(q *QuorumTracker) { q.rec = r }
}

// QuorumTracker mantiene el mensaje de estado del canal y la lista de gente que reaccionó
// para jugar. Cuando suscriptores + online alcanzan el mínimo, avisa a todos y vacía la lista.
type QuorumTracker struct {
	cfg   QuorumConfig
	chat  ChannelAdapter
	stats StatsSource
	doc   *docstore.Document[domain.EnlistDocument]
	log   zerolog.Logger
	rec   QuorumRecorder
	now   Clock

	q *serial

	// sólo se tocan dentro de q
	messageID   string
	headline    domain.StatsSnapshot
	hasHeadline bool
	unsubscribe func()
}

func NewQuorumTracker(cfg QuorumConfig, chat ChannelAdapter, stats StatsSource, doc *docstore.Document[domain.EnlistDocument], log zerolog.Logger, opts ...QuorumOption) *QuorumTracker {
	t := &QuorumTracker{
		cfg:   cfg.withDefaults(),
		chat:  chat,
		stats: stats,
		doc:   doc,
		log:   log,
		rec:   noopRecorder{},
		now:   time.Now,
		q:     newSerial(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *QuorumTracker) Name() string { return "enlist" }

// MessageID del mensaje de estado; vacío antes de Initialize.
func (t *QuorumTracker) MessageID() string {
	var id string
	_ = t.q.exec(context.Background(), func(context.Context) error {
		id = t.messageID
		return nil
	})
	return id
}

func (t *QuorumTracker) Subscribers() []domain.QuorumSubscriber {
	return t.doc.Get().Subscriptions
}

// Initialize busca el último embed propio en el canal o publica uno nuevo, reconcilia
// sus reacciones y se suscribe al poller.
func (t *QuorumTracker) Initialize(ctx context.Context) error {
	return t.q.exec(ctx, t.initialize)
}

func (t *QuorumTracker) initialize(ctx context.Context) error {
	if err := t.doc.Restore(ctx); err != nil {
		t.log.Warn().Err(err).Msg("using empty subscriber list")
	}

	snap, err := t.stats.Fetch(ctx)
	if err != nil {
		t.log.Warn().Err(err).Msg("bootstrap fetch failed, using last snapshot")
		snap, _ = t.stats.Last()
	}

	msgs, err := t.chat.RecentMessages(ctx, t.cfg.ChannelID, t.cfg.SearchDepth)
	if err != nil {
		return fmt.Errorf("fetch channel %s: %w", t.cfg.ChannelID, err)
	}

	self := t.chat.SelfID()
	embed := RenderStatus(snap, t.cfg)
	found := false
	for _, m := range msgs {
		if m.AuthorID == self && m.HasEmbed {
			found = true
			t.messageID = m.ID
			break
		}
	}

	if found {
		if err := t.chat.EditEmbed(ctx, t.cfg.ChannelID, t.messageID, embed); err != nil {
			t.log.Warn().Err(err).Str("message", t.messageID).Msg("could not edit status message")
		}
		reactions, err := t.chat.Reactions(ctx, t.cfg.ChannelID, t.messageID)
		if err != nil {
			t.log.Warn().Err(err).Msg("could not read reactions")
		} else if len(reactions) > 0 {
			t.reconcile(ctx, reactions, snap)
		}
	} else {
		m, err := t.chat.SendEmbed(ctx, t.cfg.ChannelID, embed)
		if err != nil {
			return fmt.Errorf("post status message: %w", err)
		}
		t.messageID = m.ID
	}
	t.headline, t.hasHeadline = snap, true

	for _, e := range t.cfg.Emojis {
		if err := t.chat.AddReaction(ctx, t.cfg.ChannelID, t.messageID, e); err != nil {
			t.log.Warn().Err(err).Str("emoji", e.Name).Msg("could not add faction reaction")
		}
	}

	if t.unsubscribe == nil {
		t.unsubscribe = t.stats.Subscribe(func(s domain.StatsSnapshot) {
			if err := t.OnStatsUpdate(context.Background(), s); err != nil {
				t.log.Error().Err(err).Msg("stats update failed")
			}
		})
	}
	t.rec.SetQuorumSubscribers(len(t.doc.Get().Subscriptions))
	t.log.Info().Str("message", t.messageID).Bool("reused", found).Msg("quorum tracker ready")
	return nil
}

// OnStatsUpdate: reconcile, broadcast si hay quórum, expiración y limpieza de avisos viejos.
func (t *QuorumTracker) OnStatsUpdate(ctx context.Context, snap domain.StatsSnapshot) error {
	return t.q.exec(ctx, func(ctx context.Context) error {
		return t.onStatsUpdate(ctx, snap)
	})
}

func (t *QuorumTracker) onStatsUpdate(ctx context.Context, snap domain.StatsSnapshot) error {
	if t.messageID == "" {
		return nil
	}

	if !t.hasHeadline || !t.headline.SameHeadline(snap) {
		if err := t.chat.EditEmbed(ctx, t.cfg.ChannelID, t.messageID, RenderStatus(snap, t.cfg)); err != nil {
			t.log.Warn().Err(err).Msg("could not edit status message")
		} else {
			t.headline, t.hasHeadline = snap, true
		}
	}

	reactions, err := t.chat.Reactions(ctx, t.cfg.ChannelID, t.messageID)
	if err != nil {
		// sin el estado real de reacciones no se puede reconciliar; queda para el próximo ciclo
		t.log.Warn().Err(err).Msg("could not read reactions, skipping reconcile")
	} else {
		t.reconcile(ctx, reactions, snap)
	}

	if subs := t.doc.Get().Subscriptions; len(subs) > 0 && len(subs)+snap.Online() >= t.cfg.MinPlayers {
		t.broadcast(ctx, subs, snap)
	}

	now := t.now()
	for _, s := range t.doc.Get().Subscriptions {
		if now.Sub(s.SubscribedAt.Time()) > t.cfg.Expiry {
			t.log.Info().Str("user", s.Tag).Msg("subscription expired")
			t.remove(ctx, s.UserID, s.Tag, true)
		}
	}

	t.cleanup(ctx, now)
	t.rec.SetQuorumSubscribers(len(t.doc.Get().Subscriptions))
	return nil
}

// Reconcile re-deriva la lista de suscriptores a partir de las reacciones vivas del mensaje.
func (t *QuorumTracker) Reconcile(ctx context.Context, reactions []Reaction, snap domain.StatsSnapshot) error {
	return t.q.exec(ctx, func(ctx context.Context) error {
		t.reconcile(ctx, reactions, snap)
		return nil
	})
}

func (t *QuorumTracker) reconcile(ctx context.Context, reactions []Reaction, snap domain.StatsSnapshot) {
	self := t.chat.SelfID()
	live := map[string]User{}
	for _, r := range reactions {
		if !t.recognized(r.Emoji) {
			if err := t.chat.RemoveEmoji(ctx, t.cfg.ChannelID, t.messageID, r.Emoji); err != nil {
				t.log.Warn().Err(err).Str("emoji", r.Emoji.APIName()).Msg("could not remove stray reaction")
			}
			continue
		}
		for _, u := range r.Users {
			if u.ID == self || u.Bot {
				continue
			}
			live[u.ID] = u
		}
	}

	ids := make([]string, 0, len(live))
	for id := range live {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, ok := t.doc.Get().Find(id); ok {
			continue
		}
		u := live[id]
		if snap.Online() < t.cfg.MinPlayers {
			t.subscribe(u)
		} else {
			// con el servidor lleno la reacción sobra
			t.remove(ctx, u.ID, u.Tag, true)
		}
	}

	for _, s := range t.doc.Get().Subscriptions {
		if _, ok := live[s.UserID]; !ok {
			t.remove(ctx, s.UserID, s.Tag, false)
		}
	}
}

// HandleReactionAdd suscribe a quien reaccione con una facción al mensaje de estado.
func (t *QuorumTracker) HandleReactionAdd(ctx context.Context, ev ReactionEvent) error {
	return t.q.exec(ctx, func(ctx context.Context) error {
		if ev.MessageID == "" || ev.MessageID != t.messageID || ev.User.ID == t.chat.SelfID() || ev.User.Bot {
			return nil
		}
		if !t.recognized(ev.Emoji) {
			if err := t.chat.RemoveReaction(ctx, ev.ChannelID, ev.MessageID, ev.Emoji, ev.User.ID); err != nil {
				t.log.Debug().Err(err).Msg("could not remove stray reaction")
			}
			return nil
		}

		snap, _ := t.stats.Last()
		if snap.Online() < t.cfg.MinPlayers {
			t.subscribe(ev.User)
		} else {
			t.remove(ctx, ev.User.ID, ev.User.Tag, true)
		}
		t.rec.SetQuorumSubscribers(len(t.doc.Get().Subscriptions))
		return nil
	})
}

// HandleReactionRemove baja al usuario sólo si ya no le queda ninguna reacción de facción.
func (t *QuorumTracker) HandleReactionRemove(ctx context.Context, ev ReactionEvent) error {
	return t.q.exec(ctx, func(ctx context.Context) error {
		if ev.MessageID == "" || ev.MessageID != t.messageID || !t.recognized(ev.Emoji) {
			return nil
		}
		if _, ok := t.doc.Get().Find(ev.User.ID); !ok {
			return nil
		}
		reactions, err := t.chat.Reactions(ctx, t.cfg.ChannelID, t.messageID)
		if err != nil {
			t.log.Warn().Err(err).Msg("could not read reactions, leaving it to the next reconcile")
			return nil
		}
		for _, r := range reactions {
			if !t.recognized(r.Emoji) {
				continue
			}
			for _, u := range r.Users {
				if u.ID == ev.User.ID {
					return nil
				}
			}
		}
		t.remove(ctx, ev.User.ID, ev.User.Tag, false)
		t.rec.SetQuorumSubscribers(len(t.doc.Get().Subscriptions))
		return nil
	})
}

func (t *QuorumTracker) subscribe(u User) {
	t.log.Info().Str("user", u.Tag).Msg("subscribe")
	at := domain.MillisOf(t.now())
	t.doc.Update(func(d domain.EnlistDocument) domain.EnlistDocument {
		return d.Upsert(domain.QuorumSubscriber{UserID: u.ID, Tag: u.Tag, SubscribedAt: at})
	})
}

// remove saca al usuario de la lista y, si retract, intenta quitar sus reacciones del mensaje.
func (t *QuorumTracker) remove(ctx context.Context, userID, tag string, retract bool) {
	t.log.Info().Str("user", tag).Msg("unsubscribe")
	t.doc.Update(func(d domain.EnlistDocument) domain.EnlistDocument {
		return d.Without(userID)
	})
	if !retract {
		return
	}
	for _, e := range t.cfg.Emojis {
		if err := t.chat.RemoveReaction(ctx, t.cfg.ChannelID, t.messageID, e, userID); err != nil {
			t.log.Debug().Err(err).Str("user", tag).Str("emoji", e.Name).Msg("could not retract reaction")
		}
	}
}

func (t *QuorumTracker) broadcast(ctx context.Context, subs []domain.QuorumSubscriber, snap domain.StatsSnapshot) {
	pings := make([]string, 0, len(subs))
	for _, s := range subs {
		pings = append(pings, "<@"+s.UserID+">")
	}
	text := fmt.Sprintf(
		"Your shuttle has arrived! %d players are ready to play and %d players are already online. "+
			"We hope to see you on the battlefield.\n%s",
		len(subs), snap.Online(), strings.Join(pings, " "),
	)
	if _, err := t.chat.SendText(ctx, t.cfg.ChannelID, text); err != nil {
		// la lista queda intacta; se vuelve a intentar en el próximo ciclo
		t.log.Error().Err(err).Msg("could not send quorum broadcast")
		return
	}
	for _, s := range subs {
		t.remove(ctx, s.UserID, s.Tag, true)
	}
	t.rec.IncQuorumBroadcast()
	t.log.Info().Int("subscribers", len(subs)).Int("online", snap.Online()).Msg("quorum reached, notified")
}

// cleanup borra los avisos de texto propios más viejos que expiry/10.
func (t *QuorumTracker) cleanup(ctx context.Context, now time.Time) {
	msgs, err := t.chat.RecentMessages(ctx, t.cfg.ChannelID, t.cfg.SearchDepth)
	if err != nil {
		t.log.Warn().Err(err).Msg("could not list messages for cleanup")
		return
	}
	self := t.chat.SelfID()
	maxAge := t.cfg.Expiry / 10
	for _, m := range msgs {
		if m.AuthorID != self || m.HasEmbed || now.Sub(m.CreatedAt) <= maxAge {
			continue
		}
		if err := t.chat.DeleteMessage(ctx, t.cfg.ChannelID, m.ID); err != nil {
			t.log.Warn().Err(err).Str("message", m.ID).Msg("could not delete old notification")
		}
	}
}

func (t *QuorumTracker) recognized(e Emoji) bool {
	for _, f := range t.cfg.Emojis {
		if f.Same(e) {
			return true
		}
	}
	return false
}

// Teardown se desuscribe del poller, frena la cola y hace el último flush.
func (t *QuorumTracker) Teardown(ctx context.Context) error {
	_ = t.q.exec(ctx, func(context.Context) error {
		if t.unsubscribe != nil {
			t.unsubscribe()
			t.unsubscribe = nil
		}
		return nil
	})
	t.q.stop()
	return t.doc.Close(ctx)
}
