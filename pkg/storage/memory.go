package storage

import "sync"

// MemoryStore is an in-memory Store. Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string][]byte
	commits int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Load implements Store.
func (m *MemoryStore) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

// Commit implements Store.
func (m *MemoryStore) Commit(batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = batch.apply(m.values)
	m.commits++
	return nil
}

// Commits returns the number of successful commits.
func (m *MemoryStore) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}
