package kvstore

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Value: append([]byte(nil), entry.Value...), Version: entry.Version}, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Entry{
		Value:   append([]byte(nil), value...),
		Version: m.entries[key].Version + 1,
	}
	return nil
}

func (m *MemoryStore) SetIfVersion(_ context.Context, key string, value []byte, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, exists := m.entries[key]
	if (!exists && version != 0) || (exists && current.Version != version) {
		return ErrVersionConflict
	}
	m.entries[key] = Entry{
		Value:   append([]byte(nil), value...),
		Version: version + 1,
	}
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
