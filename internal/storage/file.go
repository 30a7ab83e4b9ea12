package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nirujan123/risk-engine/internal/risk"
)

// FileCache keeps one JSON file per fingerprint under a directory.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &FileCache{dir: dir}, nil
}

// Path returns the file that backs key.
func (c *FileCache) Path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *FileCache) Get(_ context.Context, key string) (risk.PriceMatrix, bool, error) {
	b, err := os.ReadFile(c.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return risk.PriceMatrix{}, false, nil
	}
	if err != nil {
		return risk.PriceMatrix{}, false, fmt.Errorf("failed to read cache file: %w", err)
	}
	pm, err := decodePrices(b)
	if err != nil {
		return risk.PriceMatrix{}, false, err
	}
	return pm, true, nil
}

// Put writes through a temp file so readers never see a partial entry.
func (c *FileCache) Put(_ context.Context, key string, pm risk.PriceMatrix) error {
	b, err := encodePrices(pm)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}

func (c *FileCache) Close() error { return nil }
