package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory implementation of the ObjectStore interface.
// It keeps all objects in a map, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	baseUrl string
	objects map[string][]byte
	types   map[string]string
	mu      sync.RWMutex
}

func NewMemoryStore(baseUrl string) *MemoryStore {
	return &MemoryStore{
		baseUrl: strings.TrimSuffix(baseUrl, "/"),
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *MemoryStore) Put(_ context.Context, key string, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: storing the same key again overwrites
	m.objects[key] = data
	m.types[key] = contentType
	return m.baseUrl + "/" + key, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

// Get returns the stored object and its content type, for assertions in tests.
func (m *MemoryStore) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	return data, m.types[key], ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.objects)
}

// Compile-time check that MemoryStore implements ObjectStore
var _ ObjectStore = (*MemoryStore)(nil)
