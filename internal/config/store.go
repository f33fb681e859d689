package config

import (
	"fmt"
	"strings"
	"sync"
)

// Store is the runtime view of the persisted settings.
//
// The generation pipeline reads the endpoint and model through it on
// every run, and the settings API writes changes back through Update,
// which persists them before they become visible to readers. Keeping
// this explicit — instead of components reading ambient viper state —
// is what lets tests substitute fakes.
type Store struct {
	mu  sync.RWMutex
	cfg Config

	// save persists a snapshot; overridable in tests.
	save func(*Config) error
}

// NewStore wraps a loaded configuration.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: *cfg, save: Save}
}

// NewStoreWithSave wraps a configuration with a custom persistence
// function. Tests use this to avoid touching the real config file.
func NewStoreWithSave(cfg *Config, save func(*Config) error) *Store {
	if save == nil {
		save = func(*Config) error { return nil }
	}
	return &Store{cfg: *cfg, save: save}
}

// Generation returns the current endpoint and model.
func (s *Store) Generation() (endpoint, model string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Endpoint, s.cfg.ModelName
}

// Snapshot returns a copy of the full configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update validates and persists a new model/endpoint pair, then makes
// it visible to subsequent readers. A persistence failure leaves the
// in-memory settings unchanged.
func (s *Store) Update(model, endpoint string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	next.ModelName = model
	next.Endpoint = endpoint

	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.save(&next); err != nil {
		return fmt.Errorf("persisting settings: %w", err)
	}

	s.cfg = next
	return nil
}
