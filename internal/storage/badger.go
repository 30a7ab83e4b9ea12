package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/nirujan123/risk-engine/internal/risk"
)

// BadgerCache stores price entries in an embedded badger database.
type BadgerCache struct {
	db *badger.DB
}

func OpenBadger(path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}
	return &BadgerCache{db: db}, nil
}

func (c *BadgerCache) Get(_ context.Context, key string) (risk.PriceMatrix, bool, error) {
	var payload []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return risk.PriceMatrix{}, false, nil
	}
	if err != nil {
		return risk.PriceMatrix{}, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	pm, err := decodePrices(payload)
	if err != nil {
		return risk.PriceMatrix{}, false, err
	}
	return pm, true, nil
}

func (c *BadgerCache) Put(_ context.Context, key string, pm risk.PriceMatrix) error {
	b, err := encodePrices(pm)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), b)
	})
}

func (c *BadgerCache) Close() error { return c.db.Close() }
