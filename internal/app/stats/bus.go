package stats

import (
	"sync"
	"sync/atomic"
)

// Bus es un fan-out tipado y sincrónico: Publish llama a cada listener en orden de registro,
// en la goroutine de quien publica. Un listener lento demora a los siguientes.
type Bus[T any] struct {
	mu   sync.RWMutex
	subs map[uint64]func(T)
	ids  []uint64
	seq  atomic.Uint64
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: map[uint64]func(T){}}
}

// Subscribe devuelve la función para desuscribirse; es idempotente.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = fn
	b.ids = append(b.ids, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, cur := range b.ids {
				if cur == id {
					b.ids = append(b.ids[:i:i], b.ids[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	fns := make([]func(T), 0, len(b.ids))
	for _, id := range b.ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}
