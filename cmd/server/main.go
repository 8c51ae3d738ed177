package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pmoretti/papertrade/params"
	"github.com/pmoretti/papertrade/pkg/api"
	"github.com/pmoretti/papertrade/pkg/feed"
	"github.com/pmoretti/papertrade/pkg/history"
	"github.com/pmoretti/papertrade/pkg/sim"
	"github.com/pmoretti/papertrade/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	var logger *zap.Logger
	var err error
	if cfg.LogFile != "" {
		logger, err = util.NewLoggerWithFile(cfg.LogFile, zap.InfoLevel)
	} else {
		logger, err = util.NewLogger(zap.InfoLevel)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// ---- Simulation engine ----
	prices, err := sim.NewPriceTable(cfg.Sim.Symbols)
	if err != nil {
		sugar.Fatalw("price_table_init_failed", "err", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	exec := sim.NewExecutor(prices, sim.NewSlippage(cfg.Sim.SlippageBps, rng), cfg.Sim.SeedCash, util.RealClock{})
	exec.Logger = sugar

	sugar.Infow("engine_initialized",
		"seed_cash", cfg.Sim.SeedCash,
		"slippage_bps", cfg.Sim.SlippageBps,
		"symbols", prices.Symbols())

	// ---- Trade history ----
	store, err := history.NewStore(filepath.Join(cfg.DataDir, "trades.db"))
	if err != nil {
		sugar.Fatalw("history_store_init_failed", "err", err)
	}
	defer store.Close()

	// ---- API ----
	server := api.NewServer(exec, prices, store, cfg.API.OrderRateLimit, sugar)

	// Every fill goes to history and out over WebSocket
	exec.OnTrade = func(rec sim.TradeRecord) {
		if err := store.Append(rec); err != nil {
			sugar.Errorw("trade_persist_failed", "id", rec.ID, "err", err)
		}
		server.BroadcastTrade(rec)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Price feed (optional) ----
	if cfg.Feed.Enabled {
		refresher := feed.NewRefresher(prices, cfg.Feed.Interval, sugar)
		refresher.OnUpdate = server.BroadcastPrice
		go refresher.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.API.Addr) }()

	select {
	case <-ctx.Done():
		sugar.Info("shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			sugar.Warnw("shutdown_error", "err", err)
		}
	case err := <-errCh:
		if err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}
}
