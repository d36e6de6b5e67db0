package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryBlobs no persiste nada entre procesos; sirve para tests y STORAGE_DRIVER=memory.
type MemoryBlobs struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes map[string]int
}

func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{data: map[string][]byte{}, writes: map[string]int{}}
}

func (m *MemoryBlobs) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryBlobs) Put(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), body...)
	m.writes[key]++
	return nil
}

func (m *MemoryBlobs) Keys(_ context.Context, prefix string) ([]string, error) {
	p := dirPrefix(prefix)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryBlobs) DeleteExcept(_ context.Context, prefix string, keep []string) (int64, error) {
	p := dirPrefix(prefix)
	keepSet := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		keepSet[k] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if _, ok := keepSet[k]; ok || !strings.HasPrefix(k, p) {
			continue
		}
		delete(m.data, k)
		n++
	}
	return n, nil
}

// Writes: cantidad de Put sobre key.
func (m *MemoryBlobs) Writes(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[key]
}

func (m *MemoryBlobs) Close() error { return nil }
