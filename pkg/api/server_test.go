package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pmoretti/papertrade/pkg/history"
	"github.com/pmoretti/papertrade/pkg/sim"
)

func newTestServer(t *testing.T, ratePerSec float64) *Server {
	t.Helper()

	prices, err := sim.NewPriceTable(map[string]decimal.Decimal{
		"BTCUSDT": decimal.NewFromInt(40000),
		"ETHUSDT": decimal.NewFromInt(2200),
	})
	if err != nil {
		t.Fatalf("price table: %v", err)
	}

	exec := sim.NewExecutor(prices, sim.NewSlippage(50, rand.New(rand.NewSource(1))), decimal.NewFromInt(10000), nil)

	store, err := history.NewStore(t.TempDir() + "/trades.db")
	if err != nil {
		t.Fatalf("history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := NewServer(exec, prices, store, ratePerSec, zap.NewNop().Sugar())

	// Same wiring as main: fills go to history
	exec.OnTrade = func(rec sim.TradeRecord) {
		if err := store.Append(rec); err != nil {
			t.Errorf("append: %v", err)
		}
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestGetPrices(t *testing.T) {
	srv := newTestServer(t, 1000)

	w := doJSON(t, srv, "GET", "/api/v1/prices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var prices []PriceInfo
	if err := json.Unmarshal(w.Body.Bytes(), &prices); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("got %d prices, want 2", len(prices))
	}
	// Sorted by symbol
	if prices[0].Symbol != "BTCUSDT" || prices[1].Symbol != "ETHUSDT" {
		t.Errorf("symbols = [%s %s]", prices[0].Symbol, prices[1].Symbol)
	}
}

func TestGetPriceUnknownSymbol(t *testing.T) {
	srv := newTestServer(t, 1000)

	w := doJSON(t, srv, "GET", "/api/v1/prices/DOGEUSDT", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Reason != string(sim.RejectUnknownSymbol) {
		t.Errorf("reason = %s, want UNKNOWN_SYMBOL", resp.Reason)
	}
}

func TestSubmitOrderFills(t *testing.T) {
	srv := newTestServer(t, 1000)

	w := doJSON(t, srv, "POST", "/api/v1/orders", `{"symbol":"BTCUSDT","side":"BUY","quantity":"0.1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var trade TradeInfo
	if err := json.Unmarshal(w.Body.Bytes(), &trade); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if trade.Status != "FILLED" {
		t.Errorf("status = %s, want FILLED", trade.Status)
	}
	if trade.ID == "" {
		t.Error("missing trade id")
	}

	// The fill shows up in portfolio and history
	w = doJSON(t, srv, "GET", "/api/v1/portfolio", "")
	var pf PortfolioResponse
	json.Unmarshal(w.Body.Bytes(), &pf)
	if len(pf.Positions) != 1 || pf.Positions[0].Symbol != "BTCUSDT" {
		t.Errorf("portfolio positions = %+v", pf.Positions)
	}

	w = doJSON(t, srv, "GET", "/api/v1/trades", "")
	var trades []TradeInfo
	json.Unmarshal(w.Body.Bytes(), &trades)
	if len(trades) != 1 || trades[0].ID != trade.ID {
		t.Errorf("history = %+v", trades)
	}
}

func TestSubmitOrderQuantityAsNumber(t *testing.T) {
	srv := newTestServer(t, 1000)

	w := doJSON(t, srv, "POST", "/api/v1/orders", `{"symbol":"ETHUSDT","side":"BUY","quantity":0.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestSubmitOrderRejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantReason string
	}{
		{
			name:       "insufficient funds",
			body:       `{"symbol":"BTCUSDT","side":"BUY","quantity":"100"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantReason: "INSUFFICIENT_FUNDS",
		},
		{
			name:       "insufficient holdings",
			body:       `{"symbol":"ETHUSDT","side":"SELL","quantity":"1"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantReason: "INSUFFICIENT_HOLDINGS",
		},
		{
			name:       "unknown symbol",
			body:       `{"symbol":"DOGEUSDT","side":"BUY","quantity":"1"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantReason: "UNKNOWN_SYMBOL",
		},
		{
			name:       "zero quantity",
			body:       `{"symbol":"BTCUSDT","side":"BUY","quantity":"0"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantReason: "INVALID_QUANTITY",
		},
		{
			name:       "non-numeric quantity",
			body:       `{"symbol":"BTCUSDT","side":"BUY","quantity":"lots"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantReason: "INVALID_QUANTITY",
		},
		{
			name:       "bad side",
			body:       `{"symbol":"BTCUSDT","side":"HODL","quantity":"1"}`,
			wantStatus: http.StatusBadRequest,
			wantReason: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, 1000)

			w := doJSON(t, srv, "POST", "/api/v1/orders", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			var resp ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", resp.Reason, tt.wantReason)
			}

			// Rejected orders leave the wallet untouched
			w = doJSON(t, srv, "GET", "/api/v1/wallet", "")
			var wallet WalletResponse
			json.Unmarshal(w.Body.Bytes(), &wallet)
			if !wallet.Cash.Equal(decimal.NewFromInt(10000)) {
				t.Errorf("cash = %s, want 10000", wallet.Cash)
			}
		})
	}
}

func TestOrderRateLimit(t *testing.T) {
	srv := newTestServer(t, 1) // burst 2

	body := `{"symbol":"ETHUSDT","side":"BUY","quantity":"0.01"}`
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, doJSON(t, srv, "POST", "/api/v1/orders", body).Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("first two orders = %v, want 200s", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third order = %d, want 429", codes[2])
	}

	// Reads are never limited
	if w := doJSON(t, srv, "GET", "/api/v1/portfolio", ""); w.Code != http.StatusOK {
		t.Errorf("portfolio after limit = %d, want 200", w.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, 1000)

	w := doJSON(t, srv, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
