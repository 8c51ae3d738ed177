package sim

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Position is one held symbol in the ledger
type Position struct {
	Symbol string

	// Quantity held, strictly positive while the entry exists.
	// The entry is removed the moment it would reach zero.
	Quantity decimal.Decimal

	// AveragePrice is the volume-weighted average entry cost per unit.
	// Updated on BUY: newAvg = (oldCost + fillNotional) / (oldQty + fillQty)
	// Unchanged on SELL: exits realize P&L, they do not re-average.
	AveragePrice decimal.Decimal

	// CostBasis = Quantity x AveragePrice at all times (ledger invariant)
	CostBasis decimal.Decimal
}

// UnrealizedPnL computes open profit/loss against a mark price.
// Formula: (markPrice - averagePrice) x quantity
func (p Position) UnrealizedPnL(markPrice decimal.Decimal) decimal.Decimal {
	return markPrice.Sub(p.AveragePrice).Mul(p.Quantity)
}

// MarketValue returns quantity x mark price
func (p Position) MarketValue(markPrice decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(markPrice)
}

// Ledger is the in-memory portfolio: one cash balance plus one position per
// held symbol. It carries no lock of its own - the executor is the single
// writer and guards every access.
type Ledger struct {
	seedCash  decimal.Decimal
	cash      decimal.Decimal
	realized  decimal.Decimal
	positions map[string]*Position
}

// NewLedger creates a ledger holding only seed cash
func NewLedger(seedCash decimal.Decimal) *Ledger {
	return &Ledger{
		seedCash:  seedCash,
		cash:      seedCash,
		positions: make(map[string]*Position),
	}
}

// Cash returns the current cash balance
func (l *Ledger) Cash() decimal.Decimal { return l.cash }

// SeedCash returns the session's starting balance
func (l *Ledger) SeedCash() decimal.Decimal { return l.seedCash }

// RealizedPnL returns cumulative realized profit/loss across all SELLs
func (l *Ledger) RealizedPnL() decimal.Decimal { return l.realized }

// Position returns a copy of the position for symbol, if held
func (l *Ledger) Position(symbol string) (Position, bool) {
	pos, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns copies of all held positions, sorted by symbol
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// applyBuy debits cash and re-averages the position.
// Caller has already checked funds against the same notional.
func (l *Ledger) applyBuy(symbol string, qty, price decimal.Decimal) {
	notional := qty.Mul(price)
	l.cash = l.cash.Sub(notional)

	pos, ok := l.positions[symbol]
	if !ok {
		l.positions[symbol] = &Position{
			Symbol:       symbol,
			Quantity:     qty,
			AveragePrice: price,
			CostBasis:    notional,
		}
		return
	}

	pos.Quantity = pos.Quantity.Add(qty)
	pos.CostBasis = pos.CostBasis.Add(notional)
	pos.AveragePrice = pos.CostBasis.Div(pos.Quantity)
}

// applySell credits cash, reduces the position, and returns realized P&L.
// Average price is untouched; the cost basis is rescaled to the remaining
// quantity. A missing position here means validation was bypassed - that is
// corrupted state, not a rejectable order, so it panics.
func (l *Ledger) applySell(symbol string, qty, price decimal.Decimal) decimal.Decimal {
	pos, ok := l.positions[symbol]
	if !ok {
		panic(fmt.Sprintf("sell of %s with no position: validator bypassed", symbol))
	}

	notional := qty.Mul(price)
	l.cash = l.cash.Add(notional)

	// Realized P&L = (exit price - average cost) x quantity sold
	realized := price.Sub(pos.AveragePrice).Mul(qty)
	l.realized = l.realized.Add(realized)

	pos.Quantity = pos.Quantity.Sub(qty)
	if pos.Quantity.Sign() <= 0 {
		delete(l.positions, symbol)
		return realized
	}
	pos.CostBasis = pos.Quantity.Mul(pos.AveragePrice)
	return realized
}
