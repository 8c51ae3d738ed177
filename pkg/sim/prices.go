package sim

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// PriceTable holds the per-symbol reference prices orders are quoted against.
// Prices are static for the session unless a feed refreshes them.
type PriceTable struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewPriceTable creates a price table seeded with the given symbols.
// Non-positive seed prices are rejected.
func NewPriceTable(seed map[string]decimal.Decimal) (*PriceTable, error) {
	pt := &PriceTable{prices: make(map[string]decimal.Decimal, len(seed))}
	for sym, price := range seed {
		if !price.IsPositive() {
			return nil, fmt.Errorf("reference price for %s must be positive, got %s", sym, price)
		}
		pt.prices[sym] = price
	}
	return pt, nil
}

// Get returns the reference price for a symbol
func (pt *PriceTable) Get(symbol string) (decimal.Decimal, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	p, ok := pt.prices[symbol]
	return p, ok
}

// Set updates the reference price for a known symbol.
// Unknown symbols are ignored: the tradeable universe is fixed at startup,
// a feed only refreshes it.
func (pt *PriceTable) Set(symbol string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("reference price for %s must be positive, got %s", symbol, price)
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()

	if _, ok := pt.prices[symbol]; !ok {
		return fmt.Errorf("symbol %s not in price table", symbol)
	}
	pt.prices[symbol] = price
	return nil
}

// Symbols returns all known symbols, sorted
func (pt *PriceTable) Symbols() []string {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	syms := make([]string, 0, len(pt.prices))
	for s := range pt.prices {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// Snapshot returns a copy of the full table
func (pt *PriceTable) Snapshot() map[string]decimal.Decimal {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(pt.prices))
	for s, p := range pt.prices {
		out[s] = p
	}
	return out
}
