package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/go-training/oauth2-implicit/pkg/core"
)

// MemoryStore implements the core.TokenStore interface using an in-memory map.
// It provides thread-safe storage for serialized tokens.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]string),
	}
}

// Set stores a value in memory, overwriting any prior entry.
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return core.ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = value
	return nil
}

// Get retrieves a value from memory.
// It returns core.ErrNotFound if the key does not exist.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", core.ErrEmptyKey
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.entries[key]
	if !exists {
		return "", core.ErrNotFound
	}

	return value, nil
}

// Remove deletes a key from memory. Removing a missing key is not an error.
func (m *MemoryStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return core.ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Keys returns every stored key in sorted order.
func (m *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.entries)), nil
}

// Clear removes every entry.
func (m *MemoryStore) Clear(ctx context.Context) error {
	return ClearKeys(ctx, m)
}
