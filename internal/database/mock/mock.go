// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"
)

// MockKeyValueStore is an in-memory implementation of database.KeyValueStore
type MockKeyValueStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// Error injection
	GetError    error
	SetError    error
	DeleteError error

	// Call counters
	SetCalls    int
	DeleteCalls int
}

// NewMockKeyValueStore creates a new empty mock store
func NewMockKeyValueStore() *MockKeyValueStore {
	return &MockKeyValueStore{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value, or nil if absent
func (m *MockKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value
func (m *MockKeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if m.SetError != nil {
		return m.SetError
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes a key
func (m *MockKeyValueStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteError != nil {
		return m.DeleteError
	}
	delete(m.data, key)
	return nil
}

// Keys returns the stored keys
func (m *MockKeyValueStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// Close is a no-op
func (m *MockKeyValueStore) Close() error {
	return nil
}
