package api

import (
	"github.com/shopspring/decimal"

	"github.com/pmoretti/papertrade/pkg/sim"
)

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// PriceInfo is one reference-price entry
type PriceInfo struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// PositionInfo represents one held position
type PositionInfo struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AveragePrice  decimal.Decimal `json:"averagePrice"`
	CostBasis     decimal.Decimal `json:"costBasis"`
	MarkPrice     decimal.Decimal `json:"markPrice"`     // current reference price
	MarketValue   decimal.Decimal `json:"marketValue"`   // quantity x markPrice
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnl"` // (markPrice - averagePrice) x quantity
}

// PortfolioResponse is the full dashboard portfolio view
type PortfolioResponse struct {
	Cash      decimal.Decimal `json:"cash"`
	Equity    decimal.Decimal `json:"equity"` // cash + market value of all positions
	Positions []PositionInfo  `json:"positions"`
}

// WalletResponse is the wallet balance view
type WalletResponse struct {
	Cash        decimal.Decimal `json:"cash"`
	SeedCash    decimal.Decimal `json:"seedCash"`
	RealizedPnL decimal.Decimal `json:"realizedPnl"`
}

// TradeInfo is a filled order as rendered to the dashboard
type TradeInfo struct {
	ID          string           `json:"id"`
	Symbol      string           `json:"symbol"`
	Side        string           `json:"side"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       decimal.Decimal  `json:"price"` // executed price, slippage included
	Notional    decimal.Decimal  `json:"notional"`
	Status      string           `json:"status"` // always "FILLED"
	RealizedPnL *decimal.Decimal `json:"realizedPnl,omitempty"`
	Timestamp   int64            `json:"timestamp"` // Unix milliseconds
}

func tradeInfo(rec sim.TradeRecord) TradeInfo {
	return TradeInfo{
		ID:          rec.ID,
		Symbol:      rec.Symbol,
		Side:        string(rec.Side),
		Quantity:    rec.Quantity,
		Price:       rec.Price,
		Notional:    rec.Notional,
		Status:      string(rec.Status),
		RealizedPnL: rec.RealizedPnL,
		Timestamp:   rec.Timestamp.UnixMilli(),
	}
}

// ErrorResponse is returned for all errors.
// Reason carries the rejection code (INVALID_QUANTITY, UNKNOWN_SYMBOL,
// INSUFFICIENT_FUNDS, INSUFFICIENT_HOLDINGS) when the order was rejected.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// ==============================
// REST Request Types
// ==============================

// OrderRequest is the payload for POST /api/v1/orders.
// Quantity accepts a JSON number or numeric string.
type OrderRequest struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by clients to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g. ["trades", "trades:BTCUSDT", "prices"]
}

// TradeUpdate is broadcast on the trades channels after every fill
type TradeUpdate struct {
	Type  string    `json:"type"` // "trade"
	Trade TradeInfo `json:"trade"`
}

// PriceUpdate is broadcast on the prices channel when the feed refreshes
type PriceUpdate struct {
	Type      string          `json:"type"` // "price"
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
}
