package sim

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pmoretti/papertrade/pkg/util"
)

// Executor owns the ledger and serializes every order: validate, price, and
// mutate run as one critical section, so two orders can never both pass
// validation against the same pre-trade balance. The funds check inside
// Execute uses the same slippage draw as the fill.
type Executor struct {
	// OnTrade, if set, is invoked after each fill with the lock released.
	// Wire history persistence and WebSocket broadcast here.
	OnTrade func(TradeRecord)

	// Logger defaults to a nop logger
	Logger *zap.SugaredLogger

	mu     sync.Mutex
	prices *PriceTable
	slip   *Slippage
	ledger *Ledger
	clock  util.Clock
}

// NewExecutor creates an executor over the given price table and slippage
// model, with a fresh ledger seeded at seedCash.
func NewExecutor(prices *PriceTable, slip *Slippage, seedCash decimal.Decimal, clock util.Clock) *Executor {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Executor{
		Logger: zap.NewNop().Sugar(),
		prices: prices,
		slip:   slip,
		ledger: NewLedger(seedCash),
		clock:  clock,
	}
}

// Execute fills the order in full or rejects it without touching state.
// Rejections come back as *RejectError; anything else is malformed input.
func (e *Executor) Execute(o Order) (TradeRecord, error) {
	if !o.Side.Valid() {
		return TradeRecord{}, fmt.Errorf("unknown order side %q", o.Side)
	}

	e.mu.Lock()

	ref, err := e.check(o)
	if err != nil {
		e.mu.Unlock()
		e.Logger.Infow("order_rejected", "symbol", o.Symbol, "side", o.Side, "qty", o.Quantity, "err", err)
		return TradeRecord{}, err
	}

	// One draw covers both the funds check and the fill
	px := e.slip.Fill(ref)
	notional := o.Quantity.Mul(px)

	switch o.Side {
	case Buy:
		if notional.GreaterThan(e.ledger.Cash()) {
			e.mu.Unlock()
			err := reject(RejectInsufficientFunds, "need %s, have %s", notional, e.ledger.Cash())
			e.Logger.Infow("order_rejected", "symbol", o.Symbol, "side", o.Side, "qty", o.Quantity, "err", err)
			return TradeRecord{}, err
		}
	case Sell:
		held := decimal.Zero
		if pos, ok := e.ledger.Position(o.Symbol); ok {
			held = pos.Quantity
		}
		if o.Quantity.GreaterThan(held) {
			e.mu.Unlock()
			err := reject(RejectInsufficientHoldings, "selling %s, holding %s", o.Quantity, held)
			e.Logger.Infow("order_rejected", "symbol", o.Symbol, "side", o.Side, "qty", o.Quantity, "err", err)
			return TradeRecord{}, err
		}
	}

	rec := TradeRecord{
		ID:        uuid.NewString(),
		Symbol:    o.Symbol,
		Side:      o.Side,
		Quantity:  o.Quantity,
		Price:     px,
		Notional:  notional,
		Status:    StatusFilled,
		Timestamp: e.clock.Now(),
	}

	switch o.Side {
	case Buy:
		e.ledger.applyBuy(o.Symbol, o.Quantity, px)
	case Sell:
		realized := e.ledger.applySell(o.Symbol, o.Quantity, px)
		rec.RealizedPnL = &realized
	}

	e.mu.Unlock()

	e.Logger.Infow("order_filled",
		"id", rec.ID, "symbol", rec.Symbol, "side", rec.Side,
		"qty", rec.Quantity, "price", rec.Price, "notional", rec.Notional)

	if e.OnTrade != nil {
		e.OnTrade(rec)
	}
	return rec, nil
}

// Validate is the advisory precondition check: same verdict logic as Execute,
// but the funds estimate is quoted at the raw reference price since the real
// slippage draw only happens inside Execute. No state is touched, so calling
// it twice with no intervening trade yields the same verdict.
func (e *Executor) Validate(o Order) error {
	if !o.Side.Valid() {
		return fmt.Errorf("unknown order side %q", o.Side)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ref, err := e.check(o)
	if err != nil {
		return err
	}

	switch o.Side {
	case Buy:
		estimate := o.Quantity.Mul(ref)
		if estimate.GreaterThan(e.ledger.Cash()) {
			return reject(RejectInsufficientFunds, "need ~%s, have %s", estimate, e.ledger.Cash())
		}
	case Sell:
		held := decimal.Zero
		if pos, ok := e.ledger.Position(o.Symbol); ok {
			held = pos.Quantity
		}
		if o.Quantity.GreaterThan(held) {
			return reject(RejectInsufficientHoldings, "selling %s, holding %s", o.Quantity, held)
		}
	}
	return nil
}

// check runs the side-independent preconditions and returns the reference
// price. Caller holds the lock.
func (e *Executor) check(o Order) (decimal.Decimal, error) {
	if o.Quantity.Sign() <= 0 {
		return decimal.Zero, reject(RejectInvalidQuantity, "quantity %s must be positive", o.Quantity)
	}
	ref, ok := e.prices.Get(o.Symbol)
	if !ok {
		return decimal.Zero, reject(RejectUnknownSymbol, "no reference price for %q", o.Symbol)
	}
	return ref, nil
}

// Cash returns the current cash balance
func (e *Executor) Cash() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Cash()
}

// SeedCash returns the session's starting balance
func (e *Executor) SeedCash() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.SeedCash()
}

// RealizedPnL returns cumulative realized profit/loss
func (e *Executor) RealizedPnL() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.RealizedPnL()
}

// Position returns a copy of the held position for symbol
func (e *Executor) Position(symbol string) (Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Position(symbol)
}

// Positions returns copies of all held positions, sorted by symbol
func (e *Executor) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Positions()
}

// Equity returns cash plus the reference-price value of every position
func (e *Executor) Equity() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	equity := e.ledger.Cash()
	for _, pos := range e.ledger.Positions() {
		if ref, ok := e.prices.Get(pos.Symbol); ok {
			equity = equity.Add(pos.MarketValue(ref))
		}
	}
	return equity
}
