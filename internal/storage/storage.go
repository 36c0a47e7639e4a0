package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jwebster45206/choice-engine/internal/config"
	"github.com/jwebster45206/choice-engine/pkg/storage"
)

// Store pairs a save backend with the content directory.
type Store struct {
	storage.SaveStore
	*ContentDir
}

var _ storage.Storage = (*Store)(nil)

// New opens the save backend selected by cfg.SaveBackend. Redis is waited on
// briefly since it usually starts alongside the game in development.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	saves, err := newSaveStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Save storage ready", "backend", cfg.SaveBackend)
	return &Store{
		SaveStore:  saves,
		ContentDir: NewContentDir(contentDir(cfg.ContentPath), logger),
	}, nil
}

func newSaveStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.SaveStore, error) {
	switch cfg.SaveBackend {
	case config.BackendFile, "":
		return NewFileStorage(cfg.SaveDir, logger)
	case config.BackendRedis:
		rs, err := NewRedisStorage(cfg.RedisURL, cfg.SaveTTL, logger)
		if err != nil {
			return nil, err
		}
		if err := rs.WaitForConnection(ctx, 5, time.Second); err != nil {
			rs.Close()
			return nil, err
		}
		return rs, nil
	case config.BackendSQLite:
		return NewSQLiteStorage(ctx, cfg.SQLiteDSN, logger)
	default:
		return nil, fmt.Errorf("unknown save backend: %s", cfg.SaveBackend)
	}
}

// contentDir resolves a content path that may name a single file
func contentDir(path string) string {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		return filepath.Dir(path)
	}
	return path
}
