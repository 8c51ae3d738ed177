// Package history persists filled trades to Pebble so the dashboard can show
// transaction history across restarts. The ledger itself is never persisted;
// a paper-trading session lives and dies in memory, only its fills survive.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/pmoretti/papertrade/pkg/sim"
)

// Store is an append-only trade log on Pebble
type Store struct {
	db *pebble.DB
}

// NewStore opens a Pebble database at the given path
func NewStore(dbPath string) (*Store, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Append persists a filled trade under both the global and per-symbol keys
func (s *Store) Append(rec sim.TradeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal trade %s: %w", rec.ID, err)
	}

	ts := rec.Timestamp.UnixMilli()
	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(tradeKey(ts, rec.ID), data, nil); err != nil {
		return fmt.Errorf("failed to stage trade %s: %w", rec.ID, err)
	}
	if err := batch.Set(symbolKey(rec.Symbol, ts, rec.ID), data, nil); err != nil {
		return fmt.Errorf("failed to stage symbol index for %s: %w", rec.ID, err)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit trade %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit most-recent trades, newest first
func (s *Store) Recent(limit int) ([]sim.TradeRecord, error) {
	prefix := []byte(prefixTrade)
	return s.scanNewest(prefix, keyUpperBound(prefix), limit)
}

// RecentBySymbol returns up to limit most-recent trades for one symbol, newest first
func (s *Store) RecentBySymbol(symbol string, limit int) ([]sim.TradeRecord, error) {
	prefix := symbolPrefix(symbol)
	return s.scanNewest(prefix, keyUpperBound(prefix), limit)
}

func (s *Store) scanNewest(lower, upper []byte, limit int) ([]sim.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	out := make([]sim.TradeRecord, 0, limit)
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var rec sim.TradeRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // Skip invalid entries
		}
		out = append(out, rec)
	}
	return out, nil
}
