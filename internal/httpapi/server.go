package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"stocktrends/internal/domain"
	"stocktrends/internal/engine"
	"stocktrends/internal/marketdata"
	"stocktrends/internal/store"
)

// Server serves the stocktrends HTTP API.
type Server struct {
	engine *engine.Engine
	ledger store.Ledger
	source marketdata.Source
	log    *slog.Logger
}

// NewServer creates a new API server.
func NewServer(e *engine.Engine, ledger store.Ledger, source marketdata.Source, log *slog.Logger) *Server {
	return &Server{
		engine: e,
		ledger: ledger,
		source: source,
		log:    log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users", s.handleRegister)
	mux.HandleFunc("GET /api/users/{id}/account", s.handleAccount)
	mux.HandleFunc("POST /api/users/{id}/deposit", s.handleDeposit)
	mux.HandleFunc("POST /api/users/{id}/trades", s.handleTrade)
	mux.HandleFunc("GET /api/quotes/{symbol}", s.handleQuote)
	mux.HandleFunc("GET /api/quotes/{symbol}/daily", s.handleDailyBars)
	mux.HandleFunc("GET /api/quotes/{symbol}/intraday", s.handleIntradayBars)
	mux.HandleFunc("GET /api/news/{symbol}", s.handleNews)
	mux.HandleFunc("GET /api/symbols", s.handleSearchSymbols)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP statuses. Unknown errors are internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, marketdata.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidSymbol),
		errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, domain.ErrInvalidUsername):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func userIDFrom(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", r.PathValue("id"))
	}
	return id, nil
}

// validPassword enforces the registration password policy: at least 8
// characters with one upper-case letter, one lower-case letter, and one
// digit.
func validPassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// ---------------------------------------------------------------------------
// Account handlers
// ---------------------------------------------------------------------------

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if !validPassword(req.Password) {
		writeError(w, http.StatusBadRequest,
			"password must be at least 8 characters with an upper-case letter, a lower-case letter, and a digit")
		return
	}

	user, err := s.ledger.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.log.Info("user registered", "user", user.Username, "id", user.ID)
	writeJSON(w, http.StatusCreated, convertUser(user))
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, positions, err := s.engine.Account(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{
		UserID:    user.ID,
		Username:  user.Username,
		Balance:   user.Balance,
		Positions: convertPositions(positions),
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance, err := s.engine.Deposit(r.Context(), userID, req.Amount)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.log.Info("deposit", "user_id", userID, "amount", req.Amount)
	writeJSON(w, http.StatusOK, BalanceResponse{UserID: userID, Balance: balance})
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action, err := domain.ParseTradeAction(req.Action)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	intent := domain.TradeIntent{
		UserID: userID,
		Symbol: symbol,
		Shares: req.Shares,
		Action: action,
	}
	if err := intent.Validate(); err != nil {
		s.writeDomainError(w, err)
		return
	}

	// A provider failure aborts the intent before any mutation.
	price, err := s.source.CurrentPrice(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrUnknownSymbol) {
			s.writeDomainError(w, err)
			return
		}
		s.log.Error("price lookup failed", "symbol", symbol, "error", err)
		writeError(w, http.StatusBadGateway, "market data unavailable")
		return
	}

	result, err := s.engine.ExecuteTrade(r.Context(), intent, price)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.log.Info("trade settled",
		"user_id", userID,
		"symbol", symbol,
		"action", action,
		"shares", intent.Shares,
		"price", price,
	)
	writeJSON(w, http.StatusOK, TradeResponse{
		UserID:    userID,
		Symbol:    symbol,
		Action:    string(action),
		Shares:    intent.Shares,
		Price:     price,
		Balance:   result.Balance,
		Positions: convertPositions(result.Positions),
	})
}

// ---------------------------------------------------------------------------
// Market data handlers (thin pass-through)
// ---------------------------------------------------------------------------

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	price, err := s.source.CurrentPrice(r.Context(), symbol)
	if err != nil {
		s.writeMarketDataError(w, symbol, err)
		return
	}

	writeJSON(w, http.StatusOK, QuoteResponse{Symbol: symbol, Price: price})
}

func (s *Server) handleDailyBars(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 30
	}

	bars, err := s.source.DailyBars(r.Context(), symbol, days)
	if err != nil {
		s.writeMarketDataError(w, symbol, err)
		return
	}

	writeJSON(w, http.StatusOK, BarsResponse{Symbol: symbol, Bars: convertBars(bars)})
}

func (s *Server) handleIntradayBars(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	interval, _ := strconv.Atoi(r.URL.Query().Get("interval"))
	if interval <= 0 {
		interval = 5
	}

	bars, err := s.source.IntradayBars(r.Context(), symbol, interval)
	if err != nil {
		s.writeMarketDataError(w, symbol, err)
		return
	}

	writeJSON(w, http.StatusOK, BarsResponse{Symbol: symbol, Bars: convertBars(bars)})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	articles, err := s.source.News(r.Context(), symbol, limit)
	if err != nil {
		s.writeMarketDataError(w, symbol, err)
		return
	}

	writeJSON(w, http.StatusOK, NewsResponse{Symbol: symbol, Articles: convertArticles(articles)})
}

func (s *Server) handleSearchSymbols(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	infos, err := s.source.SearchSymbols(r.Context(), query, limit)
	if err != nil {
		s.log.Error("symbol search failed", "query", query, "error", err)
		writeError(w, http.StatusBadGateway, "market data unavailable")
		return
	}

	writeJSON(w, http.StatusOK, SymbolsResponse{Symbols: convertSymbols(infos)})
}

func (s *Server) writeMarketDataError(w http.ResponseWriter, symbol string, err error) {
	if errors.Is(err, marketdata.ErrUnknownSymbol) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error("market data request failed", "symbol", symbol, "error", err)
	writeError(w, http.StatusBadGateway, "market data unavailable")
}
