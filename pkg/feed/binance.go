// Package feed refreshes the session's reference prices from Binance spot
// tickers on a fixed interval. The engine never requires it - with the feed
// disabled the table keeps its seeded session prices and stays deterministic.
package feed

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pmoretti/papertrade/pkg/sim"
)

// Refresher polls ticker prices and writes them into the price table
type Refresher struct {
	// OnUpdate, if set, is invoked for every accepted price change.
	// Wire the WebSocket prices channel here.
	OnUpdate func(symbol string, price decimal.Decimal)

	client   *binance.Client
	prices   *sim.PriceTable
	interval time.Duration
	log      *zap.SugaredLogger
}

// NewRefresher creates a refresher over the public ticker endpoint.
// No API keys needed for market data.
func NewRefresher(prices *sim.PriceTable, interval time.Duration, logger *zap.SugaredLogger) *Refresher {
	return &Refresher{
		client:   binance.NewClient("", ""),
		prices:   prices,
		interval: interval,
		log:      logger,
	}
}

// Run polls until the context is cancelled. Overlapping refreshes cannot
// happen (one loop), and a failed poll just keeps the previous prices.
func (r *Refresher) Run(ctx context.Context) {
	r.log.Infow("price_feed_started", "interval", r.interval.String(), "symbols", r.prices.Symbols())

	// Prime once at startup so the session doesn't trade on stale seeds
	r.refreshOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("price_feed_stopped")
			return
		case <-ticker.C:
			r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tickers, err := r.client.NewListPricesService().Do(reqCtx)
	if err != nil {
		r.log.Warnw("price_poll_failed", "err", err)
		return
	}

	wanted := make(map[string]bool)
	for _, s := range r.prices.Symbols() {
		wanted[s] = true
	}

	updated := 0
	for _, t := range tickers {
		if !wanted[t.Symbol] {
			continue
		}
		price, err := decimal.NewFromString(t.Price)
		if err != nil || !price.IsPositive() {
			r.log.Warnw("bad_ticker_price", "symbol", t.Symbol, "price", t.Price)
			continue
		}
		if err := r.prices.Set(t.Symbol, price); err != nil {
			continue
		}
		updated++
		if r.OnUpdate != nil {
			r.OnUpdate(t.Symbol, price)
		}
	}
	r.log.Debugw("prices_refreshed", "updated", updated)
}
