package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/nirujan123/risk-engine/internal/risk"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Store is a price cache backed by a single sqlite table.
type Store struct{ db DB }

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(ctx context.Context, db DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS price_cache(
		key TEXT PRIMARY KEY, payload BLOB NOT NULL, created_at INTEGER NOT NULL
	)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

func (s *Store) Put(ctx context.Context, key string, pm risk.PriceMatrix) error {
	b, err := encodePrices(pm)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO price_cache(key,payload,created_at) VALUES(?,?,?)
		ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, created_at=excluded.created_at`,
		key, b, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (risk.PriceMatrix, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM price_cache WHERE key=?`, key)
	if err != nil {
		return risk.PriceMatrix{}, false, fmt.Errorf("failed to query %s: %w", key, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return risk.PriceMatrix{}, false, rows.Err()
	}
	var payload []byte
	if err := rows.Scan(&payload); err != nil {
		return risk.PriceMatrix{}, false, fmt.Errorf("failed to scan %s: %w", key, err)
	}
	pm, err := decodePrices(payload)
	if err != nil {
		return risk.PriceMatrix{}, false, err
	}
	return pm, true, nil
}

// Keys lists cached fingerprints, newest first.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM price_cache ORDER BY created_at DESC, key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err == nil && k != "" {
			out = append(out, k)
		}
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
