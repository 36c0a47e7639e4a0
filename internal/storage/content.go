package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwebster45206/choice-engine/pkg/content"
)

// ContentDir serves content bundles from a directory tree.
type ContentDir struct {
	dir    string
	logger *slog.Logger
}

// NewContentDir creates a content store rooted at dir
func NewContentDir(dir string, logger *slog.Logger) *ContentDir {
	if dir == "" {
		dir = "./data/content"
	}
	return &ContentDir{dir: dir, logger: logger}
}

func (c *ContentDir) ListBundles(ctx context.Context) (map[string]string, error) {
	bundles := make(map[string]string)

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !content.IsContentFile(path) {
			return nil
		}

		b, err := content.LoadFile(path)
		if err != nil {
			c.logger.Warn("Failed to load content file", "path", path, "error", err)
			return nil
		}

		rel, err := filepath.Rel(c.dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		title := b.Title
		if title == "" {
			title = rel
		}
		bundles[title] = rel
		return nil
	})

	if err != nil {
		c.logger.Error("Failed to walk content directory", "error", err)
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}

	return bundles, nil
}

func (c *ContentDir) GetBundle(ctx context.Context, filename string) (*content.Bundle, error) {
	if !filepath.IsLocal(filename) {
		return nil, fmt.Errorf("invalid bundle filename: %s", filename)
	}
	path := filepath.Join(c.dir, filename)
	c.logger.Debug("Loading bundle", "filename", filename, "full_path", path)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			c.logger.Error("Bundle file not found", "path", path)
			return nil, fmt.Errorf("bundle not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to stat bundle file: %w", err)
	}

	b, err := content.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}
	return b, nil
}
