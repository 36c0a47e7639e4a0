package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/state"
	"github.com/jwebster45206/choice-engine/pkg/storage"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS saves (
	id       TEXT PRIMARY KEY,
	version  TEXT NOT NULL,
	saved_at TEXT NOT NULL,
	data     TEXT NOT NULL
);`

// SQLiteStorage keeps saves in a single table, one row per save.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.SaveStore = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens the database and creates the schema.
func NewSQLiteStorage(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA journal_mode = WAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{db: db, logger: logger}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) SaveGame(ctx context.Context, id uuid.UUID, gs *state.GameSave) error {
	if gs == nil {
		return errors.New("game save cannot be nil")
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("failed to marshal game save: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saves (id, version, saved_at, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			saved_at = excluded.saved_at,
			data = excluded.data`,
		id.String(), gs.Version, gs.Timestamp, string(data))
	if err != nil {
		s.logger.Error("Failed to save game", "uuid", id, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadGame(ctx context.Context, id uuid.UUID) (*state.GameSave, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM saves WHERE id = ?`, id.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Game save not found", "uuid", id)
			return nil, nil
		}
		s.logger.Error("Failed to load game save", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load game save: %w", err)
	}

	var gs state.GameSave
	if err := json.Unmarshal([]byte(data), &gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game save: %w", err)
	}
	return &gs, nil
}

func (s *SQLiteStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE id = ?`, id.String()); err != nil {
		s.logger.Error("Failed to delete game save", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete game save: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListGames(ctx context.Context) ([]storage.SaveSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, version, saved_at FROM saves`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer rows.Close()

	out := make([]storage.SaveSummary, 0)
	for rows.Next() {
		var rawID, version, savedAt string
		if err := rows.Scan(&rawID, &version, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to scan save row: %w", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			s.logger.Warn("Skipping save with bad ID", "id", rawID)
			continue
		}
		at, _ := time.Parse(time.RFC3339, savedAt)
		out = append(out, storage.SaveSummary{ID: id, Version: version, SavedAt: at})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saves: %w", err)
	}

	storage.SortSummaries(out)
	return out, nil
}
