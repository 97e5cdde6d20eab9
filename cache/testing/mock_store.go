package testing

import (
	"sync"
	"sync/atomic"

	"github.com/talkwire/talkhttp/cache"
)

// MockStore is an in-memory cache.Store for testing.
// It is thread-safe and tracks all operations for assertion purposes.
type MockStore struct {
	data sync.Map // key: string, value: []byte

	getCalls    atomic.Int64
	setCalls    atomic.Int64
	deleteCalls atomic.Int64
	hits        atomic.Int64
	misses      atomic.Int64
}

var (
	_ cache.Store         = (*MockStore)(nil)
	_ cache.StatsProvider = (*MockStore)(nil)
	_ cache.Purger        = (*MockStore)(nil)
)

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// Get retrieves a value from the store.
func (m *MockStore) Get(key string) ([]byte, bool) {
	m.getCalls.Add(1)

	val, ok := m.data.Load(key)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)

	stored := val.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, true
}

// Set stores a copy of value.
func (m *MockStore) Set(key string, value []byte) {
	m.setCalls.Add(1)

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data.Store(key, stored)
}

// Delete removes key.
func (m *MockStore) Delete(key string) {
	m.deleteCalls.Add(1)
	m.data.Delete(key)
}

// Purge removes every entry.
func (m *MockStore) Purge() error {
	m.data.Clear()
	return nil
}

// Keys returns the keys currently stored, in no particular order.
func (m *MockStore) Keys() []string {
	var keys []string
	m.data.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}

// Stats reports operation counts.
func (m *MockStore) Stats() map[string]any {
	return map[string]any{
		"entries": len(m.Keys()),
		"hits":    m.hits.Load(),
		"misses":  m.misses.Load(),
	}
}

// GetCalls returns the number of Get calls.
func (m *MockStore) GetCalls() int64 { return m.getCalls.Load() }

// SetCalls returns the number of Set calls.
func (m *MockStore) SetCalls() int64 { return m.setCalls.Load() }

// DeleteCalls returns the number of Delete calls.
func (m *MockStore) DeleteCalls() int64 { return m.deleteCalls.Load() }
