// Package stats consulta periódicamente el feed del servidor y reparte cada snapshot a los listeners.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/domain"
)

const DefaultInterval = time.Minute

// Lo implementa internal/adapters/psforever.Client
type Fetcher interface {
	FetchStats(ctx context.Context) (domain.StatsSnapshot, error)
}

type Recorder interface {
	ObserveFetch(err error)
	SetPlayersOnline(n int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveFetch(error)   {}
func (noopRecorder) SetPlayersOnline(int) {}

type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("stats fetch failed: %v", e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	timeout  time.Duration
	bus      *Bus[domain.StatsSnapshot]
	log      zerolog.Logger
	rec      Recorder

	mu      sync.RWMutex
	last    domain.StatsSnapshot
	hasLast bool

	cronMu sync.Mutex
	cron   *cron.Cron
}

func NewPoller(f Fetcher, interval time.Duration, log zerolog.Logger, rec Recorder) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if rec == nil {
		rec = noopRecorder{}
	}
	return &Poller{
		fetcher:  f,
		interval: interval,
		timeout:  15 * time.Second,
		bus:      NewBus[domain.StatsSnapshot](),
		log:      log,
		rec:      rec,
	}
}

func (p *Poller) Interval() time.Duration { return p.interval }

// Subscribe registra un listener para cada snapshot exitoso del ciclo periódico.
func (p *Poller) Subscribe(fn func(domain.StatsSnapshot)) (unsubscribe func()) {
	return p.bus.Subscribe(fn)
}

// Fetch hace un GET y actualiza Last; no emite evento.
func (p *Poller) Fetch(ctx context.Context) (domain.StatsSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snap, err := p.fetcher.FetchStats(ctx)
	p.rec.ObserveFetch(err)
	if err != nil {
		return domain.StatsSnapshot{}, &FetchError{Err: err}
	}

	p.mu.Lock()
	p.last, p.hasLast = snap, true
	p.mu.Unlock()
	p.rec.SetPlayersOnline(snap.Online())
	return snap, nil
}

func (p *Poller) Last() (domain.StatsSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.hasLast
}

// Poll es un ciclo: fetch y publish. Si falla, se loguea y el próximo tick es el reintento.
func (p *Poller) Poll(ctx context.Context) {
	snap, err := p.Fetch(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("could not fetch server stats")
		return
	}
	p.log.Debug().Str("status", string(snap.Status)).Int("online", snap.Online()).Msg("stats updated")
	p.bus.Publish(snap)
}

func (p *Poller) Start() {
	p.cronMu.Lock()
	defer p.cronMu.Unlock()
	if p.cron != nil {
		return
	}

	cl := cronLogger{log: p.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(cron.Every(p.interval), cron.FuncJob(func() { p.Poll(context.Background()) }))
	c.Start()
	p.cron = c
	p.log.Info().Dur("interval", p.interval).Msg("stats poller started")
}

// Stop frena el cron y espera al job en curso.
func (p *Poller) Stop() {
	p.cronMu.Lock()
	c := p.cron
	p.cron = nil
	p.cronMu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	p.log.Info().Msg("stats poller stopped")
}

// cronLogger adapta zerolog a cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
