package params

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.API.Addr != ":8080" {
		t.Errorf("addr = %s, want :8080", cfg.API.Addr)
	}
	if !cfg.Sim.SeedCash.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("seed cash = %s, want 10000", cfg.Sim.SeedCash)
	}
	if cfg.Sim.SlippageBps != 50 {
		t.Errorf("slippage = %d bps, want 50", cfg.Sim.SlippageBps)
	}
	if cfg.Feed.Enabled {
		t.Error("feed should be off by default")
	}
	if _, ok := cfg.Sim.Symbols["BTCUSDT"]; !ok {
		t.Error("default symbols missing BTCUSDT")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9999")
	t.Setenv("SEED_CASH", "2500.50")
	t.Setenv("SLIPPAGE_BPS", "10")
	t.Setenv("FEED_ENABLED", "true")
	t.Setenv("FEED_INTERVAL_SEC", "60")
	t.Setenv("DATA_DIR", "/tmp/papertrade")

	cfg := LoadFromEnv("")

	if cfg.API.Addr != ":9999" {
		t.Errorf("addr = %s, want :9999", cfg.API.Addr)
	}
	if !cfg.Sim.SeedCash.Equal(decimal.RequireFromString("2500.50")) {
		t.Errorf("seed cash = %s, want 2500.50", cfg.Sim.SeedCash)
	}
	if cfg.Sim.SlippageBps != 10 {
		t.Errorf("slippage = %d bps, want 10", cfg.Sim.SlippageBps)
	}
	if !cfg.Feed.Enabled {
		t.Error("feed should be enabled")
	}
	if cfg.Feed.Interval != 60*time.Second {
		t.Errorf("interval = %s, want 60s", cfg.Feed.Interval)
	}
	if cfg.DataDir != "/tmp/papertrade" {
		t.Errorf("data dir = %s", cfg.DataDir)
	}
}

func TestLoadFromEnvSymbols(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want map[string]string
	}{
		{
			name: "explicit prices",
			env:  "BTCUSDT:50000,ETHUSDT:3000",
			want: map[string]string{"BTCUSDT": "50000", "ETHUSDT": "3000"},
		},
		{
			name: "known symbol keeps default price",
			env:  "SOLUSDT",
			want: map[string]string{"SOLUSDT": "95"},
		},
		{
			name: "lowercase normalized",
			env:  "btcusdt:41000",
			want: map[string]string{"BTCUSDT": "41000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SYMBOLS", tt.env)

			cfg := LoadFromEnv("")

			if len(cfg.Sim.Symbols) != len(tt.want) {
				t.Fatalf("got %d symbols, want %d: %v", len(cfg.Sim.Symbols), len(tt.want), cfg.Sim.Symbols)
			}
			for sym, priceStr := range tt.want {
				got, ok := cfg.Sim.Symbols[sym]
				if !ok {
					t.Fatalf("missing symbol %s", sym)
				}
				if !got.Equal(decimal.RequireFromString(priceStr)) {
					t.Errorf("%s price = %s, want %s", sym, got, priceStr)
				}
			}
		})
	}
}

func TestLoadFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("SEED_CASH", "-100")
	t.Setenv("SLIPPAGE_BPS", "abc")
	t.Setenv("FEED_INTERVAL_SEC", "0")

	cfg := LoadFromEnv("")
	def := Default()

	if !cfg.Sim.SeedCash.Equal(def.Sim.SeedCash) {
		t.Errorf("negative seed cash accepted: %s", cfg.Sim.SeedCash)
	}
	if cfg.Sim.SlippageBps != def.Sim.SlippageBps {
		t.Errorf("garbage slippage accepted: %d", cfg.Sim.SlippageBps)
	}
	if cfg.Feed.Interval != def.Feed.Interval {
		t.Errorf("zero interval accepted: %s", cfg.Feed.Interval)
	}
}
