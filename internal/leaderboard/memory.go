package leaderboard

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Seeded returns a memory store holding rows under key. The socket transport uses it to
// run a submission against the board a browser keeps in its own localStorage.
func Seeded(key string, rows []Entry) *MemoryStore {
	m := NewMemoryStore()
	if len(rows) > 0 {
		if raw, err := json.Marshal(rows); err == nil {
			m.data[key] = string(raw)
		}
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
