package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/state"
	"github.com/jwebster45206/choice-engine/pkg/storage"
)

const saveFileExt = ".json"

// FileStorage keeps one JSON file per save in a directory.
type FileStorage struct {
	dir    string
	logger *slog.Logger
}

var _ storage.SaveStore = (*FileStorage)(nil)

// NewFileStorage creates the save directory if needed.
func NewFileStorage(dir string, logger *slog.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileStorage{dir: dir, logger: logger}, nil
}

func (f *FileStorage) path(id uuid.UUID) string {
	return filepath.Join(f.dir, id.String()+saveFileExt)
}

func (f *FileStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("save directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("save path %s is not a directory", f.dir)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

func (f *FileStorage) SaveGame(ctx context.Context, id uuid.UUID, gs *state.GameSave) error {
	if gs == nil {
		return errors.New("game save cannot be nil")
	}
	data, err := json.MarshalIndent(gs, "", "  ")
	if err != nil {
		f.logger.Error("Failed to marshal game save", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal game save: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves a torn save
	tmp, err := os.CreateTemp(f.dir, id.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp save file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		f.logger.Error("Failed to write game save", "uuid", id, "error", err)
		return fmt.Errorf("failed to write game save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(id)); err != nil {
		f.logger.Error("Failed to save game", "uuid", id, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}

	f.logger.Debug("Game saved", "uuid", id, "path", f.path(id))
	return nil
}

func (f *FileStorage) LoadGame(ctx context.Context, id uuid.UUID) (*state.GameSave, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("Game save not found", "uuid", id)
			return nil, nil
		}
		f.logger.Error("Failed to read game save", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to read game save: %w", err)
	}

	var gs state.GameSave
	if err := json.Unmarshal(data, &gs); err != nil {
		f.logger.Error("Failed to unmarshal game save", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal game save: %w", err)
	}
	return &gs, nil
}

func (f *FileStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if err := os.Remove(f.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.logger.Error("Failed to delete game save", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete game save: %w", err)
	}
	return nil
}

func (f *FileStorage) ListGames(ctx context.Context) ([]storage.SaveSummary, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}

	out := make([]storage.SaveSummary, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, saveFileExt) {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, saveFileExt))
		if err != nil {
			continue
		}
		gs, err := f.LoadGame(ctx, id)
		if err != nil || gs == nil {
			f.logger.Warn("Skipping unreadable save", "file", name, "error", err)
			continue
		}
		out = append(out, storage.SaveSummary{ID: id, Version: gs.Version, SavedAt: gs.SavedAt()})
	}
	storage.SortSummaries(out)
	return out, nil
}
