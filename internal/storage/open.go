package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nirujan123/risk-engine/internal/risk"
)

// Cache is a closable price cache.
type Cache interface {
	Get(ctx context.Context, key string) (risk.PriceMatrix, bool, error)
	Put(ctx context.Context, key string, pm risk.PriceMatrix) error
	Close() error
}

// Options selects and configures a cache backend.
type Options struct {
	Backend   string
	Dir       string
	RedisAddr string
}

// Open returns the configured backend: "file", "sqlite", "badger" or "redis".
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", "file":
		return NewFileCache(opts.Dir)
	case "sqlite":
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir %s: %w", opts.Dir, err)
		}
		db, err := OpenSQLite("file:" + filepath.Join(opts.Dir, "prices.db") + "?_busy_timeout=5000")
		if err != nil {
			return nil, err
		}
		if err := InitSchema(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to init sqlite schema: %w", err)
		}
		return NewStore(db), nil
	case "badger":
		return OpenBadger(filepath.Join(opts.Dir, "badger"))
	case "redis":
		return NewRedisCache(ctx, opts.RedisAddr, 0)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
