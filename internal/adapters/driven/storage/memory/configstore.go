package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/config"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in memory for tests and dry runs. Values keep
// the Go type they were set with.
type ConfigStore struct {
	config.Typed

	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore returns an empty store.
func NewConfigStore() *ConfigStore {
	s := &ConfigStore{values: make(map[string]any)}
	s.Typed = config.Typed{Lookup: s.Get}
	return s
}

// NewConfigStoreFrom returns a store seeded with values.
func NewConfigStoreFrom(values map[string]any) *ConfigStore {
	s := NewConfigStore()
	maps.Copy(s.values, values)
	return s
}

// Get returns the value stored under key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// Set stores value under key.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Save is a no-op.
func (s *ConfigStore) Save() error { return nil }

// Path reports the store as in-memory.
func (s *ConfigStore) Path() string { return ":memory:" }
