package imagecache

import (
	"context"
	"sync"
)

// Store is the persistent key -> image handle namespace.
// Entries never expire; they live until Delete is called.
type Store interface {
	// Get returns the stored handle and true, or "" and false when absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set overwrites any existing entry for key.
	Set(ctx context.Context, key, handle string) error

	// Delete removes the entry; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by stores backed by an external database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryStore keeps entries in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.entries[key]
	return h, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = handle
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len reports the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
