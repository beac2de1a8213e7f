package kv

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryBackend is an in-process Backend backed by a sorted map, used
// for tests and small datasets. Grounded on pkg/storage/memory.go's
// mutex-guarded map idiom, generalized from a labeled-property-graph
// engine to a flat ordered byte store.
type MemoryBackend struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(cf string, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(namespacedKey(cf, key))]
	if !ok {
		return nil, wrapNotFound(cf, key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) Exists(cf string, key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(namespacedKey(cf, key))]
	return ok, nil
}

func (m *MemoryBackend) Put(cf string, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(namespacedKey(cf, key))] = v
	return nil
}

func (m *MemoryBackend) Delete(cf string, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(namespacedKey(cf, key)))
	return nil
}

func (m *MemoryBackend) Iterate(cf string, prefix []byte, fn IterFunc) error {
	m.mu.RLock()
	physPrefix := namespacedPrefix(cf, prefix)
	keys := make([]string, 0)
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), physPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	// Snapshot the matching values under the lock, then call fn outside
	// it so a callback that touches the backend again cannot deadlock.
	type kv struct{ k, v []byte }
	entries := make([]kv, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, kv{k: []byte(k), v: m.data[k]})
	}
	m.mu.RUnlock()

	for _, e := range entries {
		if !fn(splitNamespaced(cf, e.k), e.v) {
			break
		}
	}
	return nil
}

func (m *MemoryBackend) NewBatch() Batch {
	return &memoryBatch{backend: m}
}

func (m *MemoryBackend) NewSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clone := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		cv := make([]byte, len(v))
		copy(cv, v)
		clone[k] = cv
	}
	return &memorySnapshot{data: clone}
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memoryWrite struct {
	cf     string
	key    []byte
	value  []byte
	delete bool
}

type memoryBatch struct {
	backend *MemoryBackend
	writes  []memoryWrite
}

func (b *memoryBatch) Put(cf string, key, value []byte) {
	b.writes = append(b.writes, memoryWrite{cf: cf, key: key, value: value})
}

func (b *memoryBatch) Delete(cf string, key []byte) {
	b.writes = append(b.writes, memoryWrite{cf: cf, key: key, delete: true})
}

func (b *memoryBatch) Commit() error {
	b.backend.mu.Lock()
	defer b.backend.mu.Unlock()
	for _, w := range b.writes {
		physical := string(namespacedKey(w.cf, w.key))
		if w.delete {
			delete(b.backend.data, physical)
			continue
		}
		v := make([]byte, len(w.value))
		copy(v, w.value)
		b.backend.data[physical] = v
	}
	return nil
}

type memorySnapshot struct {
	data map[string][]byte
}

func (s *memorySnapshot) Get(cf string, key []byte) ([]byte, error) {
	v, ok := s.data[string(namespacedKey(cf, key))]
	if !ok {
		return nil, wrapNotFound(cf, key)
	}
	return v, nil
}

func (s *memorySnapshot) Exists(cf string, key []byte) (bool, error) {
	_, ok := s.data[string(namespacedKey(cf, key))]
	return ok, nil
}

func (s *memorySnapshot) Iterate(cf string, prefix []byte, fn IterFunc) error {
	physPrefix := namespacedPrefix(cf, prefix)
	keys := make([]string, 0)
	for k := range s.data {
		if bytes.HasPrefix([]byte(k), physPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn(splitNamespaced(cf, k), s.data[k]) {
			break
		}
	}
	return nil
}

func (s *memorySnapshot) Close() error { return nil }
