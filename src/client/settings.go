package client

import (
	"context"
	"sync"

	"shader-lsp/src/config"
	"shader-lsp/src/utils/configloader"
)

// SettingsStore supplies the value answered to requestConfiguration
type SettingsStore interface {
	Settings(ctx context.Context) (interface{}, error)
}

// MemorySettings is a SettingsStore holding a settings map. An empty store
// answers {}.
type MemorySettings struct {
	mu     sync.RWMutex
	values map[string]interface{}
	served int
}

// NewMemorySettings creates a store answering values
func NewMemorySettings(values map[string]interface{}) *MemorySettings {
	s := &MemorySettings{}
	s.Set(values)
	return s
}

// LoadSettings builds a store from a YAML settings file, or from the client
// section of cfg when path is empty.
func LoadSettings(path string, cfg *config.Config) (*MemorySettings, error) {
	values, err := configloader.LoadClientSettings(path, cfg)
	if err != nil {
		return nil, err
	}
	return NewMemorySettings(values), nil
}

// Set replaces the stored settings
func (s *MemorySettings) Set(values map[string]interface{}) {
	if values == nil {
		values = map[string]interface{}{}
	}
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
}

// Settings returns the stored map
func (s *MemorySettings) Settings(context.Context) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.served++
	return s.values, nil
}

// Served returns how many requestConfiguration calls the store answered
func (s *MemorySettings) Served() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.served
}
