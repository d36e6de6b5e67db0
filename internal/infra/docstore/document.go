// Package docstore guarda documentos JSON tipados con cache en memoria,
// dirty flag y escritura diferida (debounce o throttle) contra un BlobStore.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/infra/storage"
)

type FlushObserver interface {
	ObserveFlush(document string, d time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveFlush(string, time.Duration, error) {}

type Option func(*options)

type options struct {
	policy   Policy
	log      zerolog.Logger
	observer FlushObserver
	timeout  time.Duration
}

func WithPolicy(p Policy) Option              { return func(o *options) { o.policy = p } }
func WithLogger(l zerolog.Logger) Option      { return func(o *options) { o.log = l } }
func WithObserver(f FlushObserver) Option     { return func(o *options) { o.observer = f } }
func WithWriteTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// Document es dueño de una sola key del BlobStore.
// Lo que devuelve Get no se debe mutar: los cambios van por Set/Update con valores nuevos.
type Document[T any] struct {
	name  string
	key   string
	blobs storage.BlobStore
	opts  options

	mu       sync.Mutex
	data     T
	extra    map[string]json.RawMessage // keys remotas que T no conoce; se reescriben tal cual
	dirty    bool
	version  uint64
	timer    *time.Timer
	timerSeq uint64
	closed   bool

	putMu sync.Mutex
}

func New[T any](blobs storage.BlobStore, prefix, name string, initial T, opts ...Option) *Document[T] {
	o := options{
		policy:   DefaultPolicy(),
		log:      zerolog.Nop(),
		observer: noopObserver{},
		timeout:  30 * time.Second,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &Document[T]{
		name:  name,
		key:   storage.ObjectKey(prefix, name),
		blobs: blobs,
		opts:  o,
		data:  initial,
	}
}

func (d *Document[T]) Name() string { return d.name }
func (d *Document[T]) Key() string  { return d.key }

func (d *Document[T]) Get() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data
}

func (d *Document[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = v
	d.markLocked()
}

// Update aplica fn sobre el valor actual de forma atómica respecto a otros Set/Update.
func (d *Document[T]) Update(fn func(T) T) T {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = fn(d.data)
	d.markLocked()
	return d.data
}

func (d *Document[T]) Dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

func (d *Document[T]) markLocked() {
	d.dirty = true
	d.version++
	if d.closed {
		return
	}
	d.scheduleLocked()
}

func (d *Document[T]) scheduleLocked() {
	if d.opts.policy.Mode == Throttle && d.timer != nil {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timerSeq++
	seq := d.timerSeq
	d.timer = time.AfterFunc(d.opts.policy.Interval, func() { d.fire(seq) })
}

func (d *Document[T]) fire(seq uint64) {
	d.mu.Lock()
	// Stop perdió la carrera: ya hay otro timer a cargo del flush
	if seq != d.timerSeq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.timeout)
	defer cancel()
	if err := d.Put(ctx); err != nil {
		// sigue dirty: se reintenta en el próximo flush programado
		d.mu.Lock()
		if d.dirty && !d.closed && d.timer == nil {
			d.scheduleLocked()
		}
		d.mu.Unlock()
	}
}

// Put escribe el documento entero, sólo si está dirty.
func (d *Document[T]) Put(ctx context.Context) error {
	d.putMu.Lock()
	defer d.putMu.Unlock()

	d.mu.Lock()
	if !d.dirty {
		d.mu.Unlock()
		return nil
	}
	body, err := encode(d.data, d.extra)
	version := d.version
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.name, err)
	}

	start := time.Now()
	err = d.blobs.Put(ctx, d.key, body)
	d.opts.observer.ObserveFlush(d.name, time.Since(start), err)
	if err != nil {
		d.opts.log.Error().Err(err).Str("document", d.key).Msg("could not store document")
		return fmt.Errorf("store %s: %w", d.name, err)
	}

	d.mu.Lock()
	// si hubo un Set durante la escritura, queda dirty para la próxima
	if d.version == version {
		d.dirty = false
	}
	d.mu.Unlock()
	d.opts.log.Debug().Str("document", d.key).Int("bytes", len(body)).Msg("document stored")
	return nil
}

// Restore hace merge shallow (top-level) del blob remoto sobre el valor actual.
// Si no hay blob, quedan los defaults.
func (d *Document[T]) Restore(ctx context.Context) error {
	body, err := d.blobs.Get(ctx, d.key)
	if errors.Is(err, storage.ErrNotFound) {
		d.opts.log.Info().Str("document", d.key).Msg("no stored document, using defaults")
		return nil
	}
	if err != nil {
		d.opts.log.Warn().Err(err).Str("document", d.key).Msg("could not restore document")
		return fmt.Errorf("restore %s: %w", d.name, err)
	}

	var remote map[string]json.RawMessage
	if err := json.Unmarshal(body, &remote); err != nil {
		d.opts.log.Warn().Err(err).Str("document", d.key).Msg("stored document is not a JSON object")
		return fmt.Errorf("restore %s: %w", d.name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	base, err := toObject(d.data)
	if err != nil {
		return fmt.Errorf("restore %s: %w", d.name, err)
	}
	for k, v := range remote {
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("restore %s: %w", d.name, err)
	}
	var next T
	if err := json.Unmarshal(merged, &next); err != nil {
		d.opts.log.Warn().Err(err).Str("document", d.key).Msg("stored document does not match schema")
		return fmt.Errorf("restore %s: %w", d.name, err)
	}

	known, err := toObject(next)
	if err != nil {
		return fmt.Errorf("restore %s: %w", d.name, err)
	}
	extra := map[string]json.RawMessage{}
	for k, v := range remote {
		if _, ok := known[k]; !ok {
			extra[k] = v
		}
	}
	d.data = next
	d.extra = extra
	d.opts.log.Info().Str("document", d.key).Int("keys", len(remote)).Msg("document restored")
	return nil
}

// Close frena el timer y hace el último Put.
func (d *Document[T]) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	return d.Put(ctx)
}

func toObject(v any) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	return m, nil
}

func encode[T any](v T, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return json.Marshal(v)
	}
	top, err := toObject(v)
	if err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := top[k]; !ok {
			top[k] = raw
		}
	}
	return json.Marshal(top)
}
