package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/content"
	"github.com/jwebster45206/choice-engine/pkg/state"
)

// SaveSummary describes a stored game without loading it.
type SaveSummary struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title,omitempty"`
	Version string    `json:"version"`
	SavedAt time.Time `json:"saved_at"`
}

// SaveStore persists game saves.
type SaveStore interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// SaveGame overwrites any save with the same ID
	SaveGame(ctx context.Context, id uuid.UUID, gs *state.GameSave) error
	// LoadGame returns (nil, nil) when no save exists
	LoadGame(ctx context.Context, id uuid.UUID) (*state.GameSave, error)
	DeleteGame(ctx context.Context, id uuid.UUID) error
	// ListGames returns summaries, most recently saved first
	ListGames(ctx context.Context) ([]SaveSummary, error)
}

// ContentStore loads content bundles (filesystem-backed)
type ContentStore interface {
	// ListBundles maps bundle titles to filenames
	ListBundles(ctx context.Context) (map[string]string, error)
	GetBundle(ctx context.Context, filename string) (*content.Bundle, error)
}

// Storage combines save persistence with content loading
type Storage interface {
	SaveStore
	ContentStore
}
