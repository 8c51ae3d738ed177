package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pmoretti/papertrade/pkg/history"
	"github.com/pmoretti/papertrade/pkg/sim"
)

// Server handles REST API and WebSocket connections for the dashboard
type Server struct {
	exec   *sim.Executor
	prices *sim.PriceTable
	trades *history.Store
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger

	orderLimiter *ipRateLimiter
	httpSrv      *http.Server
}

// NewServer creates the API server. ratePerSec caps order submissions per
// client IP; burst is twice the rate.
func NewServer(exec *sim.Executor, prices *sim.PriceTable, trades *history.Store, ratePerSec float64, logger *zap.SugaredLogger) *Server {
	s := &Server{
		exec:         exec,
		prices:       prices,
		trades:       trades,
		router:       mux.NewRouter(),
		hub:          NewHub(logger),
		log:          logger,
		orderLimiter: newIPRateLimiter(rate.Limit(ratePerSec), int(2*ratePerSec)),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Reference prices
	api.HandleFunc("/prices", s.handleGetPrices).Methods("GET")
	api.HandleFunc("/prices/{symbol}", s.handleGetPrice).Methods("GET")

	// Portfolio and wallet
	api.HandleFunc("/portfolio", s.handleGetPortfolio).Methods("GET")
	api.HandleFunc("/wallet", s.handleGetWallet).Methods("GET")

	// Order submission (rate limited)
	api.Handle("/orders", s.limitOrders(http.HandlerFunc(s.handleSubmitOrder))).Methods("POST")

	// Trade history
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/trades/{symbol}", s.handleGetTradesBySymbol).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server and blocks until Shutdown or failure
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.httpSrv = &http.Server{Addr: addr, Handler: c.Handler(s.router)}

	s.log.Infow("api_server_starting", "addr", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	table := s.prices.Snapshot()

	response := make([]PriceInfo, 0, len(table))
	for _, sym := range s.prices.Symbols() {
		response = append(response, PriceInfo{Symbol: sym, Price: table[sym]})
	}

	respondJSON(w, response)
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	price, ok := s.prices.Get(symbol)
	if !ok {
		respondError(w, http.StatusNotFound, "symbol not found", string(sim.RejectUnknownSymbol), symbol)
		return
	}

	respondJSON(w, PriceInfo{Symbol: symbol, Price: price})
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	positions := s.exec.Positions()

	infos := make([]PositionInfo, 0, len(positions))
	for _, pos := range positions {
		mark, ok := s.prices.Get(pos.Symbol)
		if !ok {
			mark = pos.AveragePrice // symbol dropped from table mid-session; mark at cost
		}
		infos = append(infos, PositionInfo{
			Symbol:        pos.Symbol,
			Quantity:      pos.Quantity,
			AveragePrice:  pos.AveragePrice,
			CostBasis:     pos.CostBasis,
			MarkPrice:     mark,
			MarketValue:   pos.MarketValue(mark),
			UnrealizedPnL: pos.UnrealizedPnL(mark),
		})
	}

	respondJSON(w, PortfolioResponse{
		Cash:      s.exec.Cash(),
		Equity:    s.exec.Equity(),
		Positions: infos,
	})
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, WalletResponse{
		Cash:        s.exec.Cash(),
		SeedCash:    s.exec.SeedCash(),
		RealizedPnL: s.exec.RealizedPnL(),
	})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// A non-numeric quantity fails decimal unmarshalling and lands here
		respondError(w, http.StatusUnprocessableEntity, "order rejected", string(sim.RejectInvalidQuantity), err.Error())
		return
	}

	order := sim.Order{
		Symbol:   req.Symbol,
		Side:     sim.Side(req.Side),
		Quantity: req.Quantity,
	}

	rec, err := s.exec.Execute(order)
	if err != nil {
		if reason, ok := sim.ReasonOf(err); ok {
			respondError(w, http.StatusUnprocessableEntity, "order rejected", string(reason), err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "invalid order", "", err.Error())
		return
	}

	respondJSON(w, tradeInfo(rec))
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	recs, err := s.trades.Recent(parseLimit(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history unavailable", "", err.Error())
		return
	}
	respondJSON(w, tradeInfos(recs))
}

func (s *Server) handleGetTradesBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	recs, err := s.trades.RecentBySymbol(symbol, parseLimit(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history unavailable", "", err.Error())
		return
	}
	respondJSON(w, tradeInfos(recs))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods
// ==============================

// BroadcastTrade pushes a fill to the trades channels
func (s *Server) BroadcastTrade(rec sim.TradeRecord) {
	update := TradeUpdate{Type: "trade", Trade: tradeInfo(rec)}
	s.hub.BroadcastToChannel("trades", update)
	s.hub.BroadcastToChannel("trades:"+rec.Symbol, update)
}

// BroadcastPrice pushes a reference-price refresh to the prices channel
func (s *Server) BroadcastPrice(symbol string, price decimal.Decimal) {
	s.hub.BroadcastToChannel("prices", PriceUpdate{
		Type:      "price",
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now().UnixMilli(),
	})
}

// ==============================
// Rate limiting
// ==============================

// ipRateLimiter keeps one token bucket per client IP
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newIPRateLimiter(limit rate.Limit, burst int) *ipRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (rl *ipRateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[ip] = lim
	}
	return lim
}

func (s *Server) limitOrders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !s.orderLimiter.get(ip).Allow() {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded", "", "slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ==============================
// Helper Functions
// ==============================

func tradeInfos(recs []sim.TradeRecord) []TradeInfo {
	out := make([]TradeInfo, len(recs))
	for i, rec := range recs {
		out[i] = tradeInfo(rec)
	}
	return out
}

func parseLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return 50
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, reason string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Reason:  reason,
		Message: message,
	})
}
