package sim

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side represents order side (buy or sell)
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Valid reports whether the side is one of the two known values
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Order is a request to trade quantity of symbol at the current simulated price.
// The model has no limit orders: everything fills in full immediately or is
// rejected before any state changes.
type Order struct {
	Symbol   string
	Side     Side
	Quantity decimal.Decimal
}

// TradeStatus is the terminal state of an executed order.
// An order either fills completely or never produces a record,
// so FILLED is the only status a TradeRecord carries.
type TradeStatus string

const StatusFilled TradeStatus = "FILLED"

// TradeRecord is the immutable result of a filled order
type TradeRecord struct {
	ID       string
	Symbol   string
	Side     Side
	Quantity decimal.Decimal
	// Price is the executed (slipped) price, not the reference price
	Price    decimal.Decimal
	Notional decimal.Decimal
	Status   TradeStatus
	// RealizedPnL is set on SELL only: (executed price - average cost) x quantity
	RealizedPnL *decimal.Decimal
	Timestamp   time.Time
}
