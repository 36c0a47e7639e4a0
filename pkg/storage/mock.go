package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/content"
	"github.com/jwebster45206/choice-engine/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	saves     map[uuid.UUID]*state.GameSave
	bundles   map[string]*content.Bundle
	pingError error
	saveError error
	loadError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		saves:   make(map[uuid.UUID]*state.GameSave),
		bundles: make(map[string]*content.Bundle),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every SaveGame fail with err
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SetLoadError makes every LoadGame fail with err
func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveGame mocks saving a game
func (m *MockStorage) SaveGame(ctx context.Context, id uuid.UUID, gs *state.GameSave) error {
	if gs == nil {
		return errors.New("game save cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.saves[id] = gs
	return nil
}

// LoadGame mocks loading a game
func (m *MockStorage) LoadGame(ctx context.Context, id uuid.UUID) (*state.GameSave, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadError != nil {
		return nil, m.loadError
	}
	gs, ok := m.saves[id]
	if !ok {
		return nil, nil
	}
	return gs, nil
}

// DeleteGame mocks deleting a game
func (m *MockStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saves, id)
	return nil
}

// ListGames mocks listing saves
func (m *MockStorage) ListGames(ctx context.Context) ([]SaveSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SaveSummary, 0, len(m.saves))
	for id, gs := range m.saves {
		out = append(out, SaveSummary{ID: id, Version: gs.Version, SavedAt: gs.SavedAt()})
	}
	SortSummaries(out)
	return out, nil
}

// ListBundles mocks listing content bundles
func (m *MockStorage) ListBundles(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bundles := make(map[string]string, len(m.bundles))
	for _, filename := range slices.Sorted(maps.Keys(m.bundles)) {
		bundles[m.bundles[filename].Title] = filename
	}
	return bundles, nil
}

// GetBundle mocks loading a content bundle
func (m *MockStorage) GetBundle(ctx context.Context, filename string) (*content.Bundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bundles[filename]
	if !ok {
		return nil, fmt.Errorf("bundle not found: %s", filename)
	}
	return b, nil
}

// AddBundle adds a bundle to the mock storage
func (m *MockStorage) AddBundle(filename string, b *content.Bundle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundles[filename] = b
}

// SortSummaries orders saves newest first, then by ID for stability.
func SortSummaries(s []SaveSummary) {
	slices.SortFunc(s, func(a, b SaveSummary) int {
		if c := b.SavedAt.Compare(a.SavedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}
