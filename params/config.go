package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type API struct {
	Addr string
	// OrderRateLimit caps POST /orders per client IP (requests per second).
	// Burst is fixed at 2x the rate.
	OrderRateLimit float64
}

type Sim struct {
	// SeedCash is the cash balance every fresh session starts with.
	SeedCash decimal.Decimal
	// SlippageBps bounds the random fill perturbation. 50 bps = ±0.5%.
	SlippageBps int64
	// Symbols tradeable in this session, with their session reference prices.
	Symbols map[string]decimal.Decimal
}

type Feed struct {
	// Enabled turns on live reference-price refresh from Binance spot.
	// Off by default so the engine stays deterministic.
	Enabled  bool
	Interval time.Duration
}

type Config struct {
	API     API
	Sim     Sim
	Feed    Feed
	DataDir string
	LogFile string
}

func Default() Config {
	return Config{
		API: API{
			Addr:           ":8080",
			OrderRateLimit: 5,
		},
		Sim: Sim{
			SeedCash:    decimal.NewFromInt(10000),
			SlippageBps: 50,
			Symbols: map[string]decimal.Decimal{
				"BTCUSDT": decimal.NewFromInt(40000),
				"ETHUSDT": decimal.NewFromInt(2200),
				"SOLUSDT": decimal.NewFromInt(95),
				"BNBUSDT": decimal.NewFromInt(310),
			},
		},
		Feed: Feed{
			Enabled:  false,
			Interval: 30 * time.Second,
		},
		DataDir: "data",
		LogFile: "",
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}

	if rl := os.Getenv("ORDER_RATE_LIMIT"); rl != "" {
		if v, err := strconv.ParseFloat(rl, 64); err == nil && v > 0 {
			cfg.API.OrderRateLimit = v
		}
	}

	if seed := os.Getenv("SEED_CASH"); seed != "" {
		if v, err := decimal.NewFromString(seed); err == nil && v.IsPositive() {
			cfg.Sim.SeedCash = v
		}
	}

	if bps := os.Getenv("SLIPPAGE_BPS"); bps != "" {
		if v, err := strconv.ParseInt(bps, 10, 64); err == nil && v >= 0 {
			cfg.Sim.SlippageBps = v
		}
	}

	// Symbols from comma-separated list, e.g. "BTCUSDT:40000,ETHUSDT:2200".
	// Entries without a price keep the default if one exists.
	if syms := os.Getenv("SYMBOLS"); syms != "" {
		table := make(map[string]decimal.Decimal)
		for _, entry := range strings.Split(syms, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			sym, priceStr, hasPrice := strings.Cut(entry, ":")
			sym = strings.ToUpper(sym)
			if hasPrice {
				if p, err := decimal.NewFromString(priceStr); err == nil && p.IsPositive() {
					table[sym] = p
					continue
				}
			}
			if p, ok := cfg.Sim.Symbols[sym]; ok {
				table[sym] = p
			}
		}
		if len(table) > 0 {
			cfg.Sim.Symbols = table
		}
	}

	if enabled := os.Getenv("FEED_ENABLED"); enabled != "" {
		cfg.Feed.Enabled = enabled == "true"
	}

	if sec := os.Getenv("FEED_INTERVAL_SEC"); sec != "" {
		if v, err := strconv.Atoi(sec); err == nil && v > 0 {
			cfg.Feed.Interval = time.Duration(v) * time.Second
		}
	}

	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	cfg.LogFile = os.Getenv("LOG_FILE")

	return cfg
}
