package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"stocktrends/internal/engine"
	"stocktrends/internal/marketdata"
	"stocktrends/internal/store"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	source := marketdata.NewStaticSource(map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(100),
		"MSFT": decimal.NewFromInt(50),
	})

	srv := NewServer(engine.New(st), st, source, slog.New(slog.DiscardHandler))
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func registerUser(t *testing.T, h http.Handler, username string) int64 {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/users",
		fmt.Sprintf(`{"username":%q,"password":"Sup3rSecret"}`, username))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %q = %d, want %d: %s", username, rec.Code, http.StatusCreated, rec.Body.String())
	}
	return decode[UserJSON](t, rec).ID
}

func TestRegister(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, "POST", "/api/users", `{"username":"alice","password":"Sup3rSecret"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	user := decode[UserJSON](t, rec)
	if user.Username != "alice" {
		t.Errorf("username = %q, want %q", user.Username, "alice")
	}
	if !user.Balance.IsZero() {
		t.Errorf("initial balance = %s, want 0", user.Balance)
	}

	rec = doJSON(t, h, "POST", "/api/users", `{"username":"alice","password":"Sup3rSecret"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRegisterPasswordPolicy(t *testing.T) {
	h := newTestHandler(t)

	for _, pw := range []string{"", "short1A", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
		rec := doJSON(t, h, "POST", "/api/users",
			fmt.Sprintf(`{"username":"bob","password":%q}`, pw))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("register with password %q = %d, want %d", pw, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestAccount(t *testing.T) {
	h := newTestHandler(t)
	id := registerUser(t, h, "alice")

	rec := doJSON(t, h, "GET", fmt.Sprintf("/api/users/%d/account", id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("account = %d: %s", rec.Code, rec.Body.String())
	}
	acct := decode[AccountResponse](t, rec)
	if acct.Username != "alice" || len(acct.Positions) != 0 {
		t.Errorf("account = %+v, want alice with no positions", acct)
	}

	rec = doJSON(t, h, "GET", "/api/users/999/account", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing user account = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = doJSON(t, h, "GET", "/api/users/abc/account", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad user id = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDeposit(t *testing.T) {
	h := newTestHandler(t)
	id := registerUser(t, h, "alice")

	rec := doJSON(t, h, "POST", fmt.Sprintf("/api/users/%d/deposit", id), `{"amount":"250.75"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit = %d: %s", rec.Code, rec.Body.String())
	}
	bal := decode[BalanceResponse](t, rec)
	if want := decimal.RequireFromString("250.75"); !bal.Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", bal.Balance, want)
	}

	rec = doJSON(t, h, "POST", fmt.Sprintf("/api/users/%d/deposit", id), `{"amount":"-5"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative deposit = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestTradeBuySell(t *testing.T) {
	h := newTestHandler(t)
	id := registerUser(t, h, "alice")
	doJSON(t, h, "POST", fmt.Sprintf("/api/users/%d/deposit", id), `{"amount":"2000"}`)

	// Two buys create two separate lots.
	rec := doJSON(t, h, "POST", fmt.Sprintf("/api/users/%d/trades", id),
		`{"symbol":"aapl","shares":"10","action":"buy"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("buy = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[TradeResponse](t, rec)
	if resp.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", resp.Symbol)
	}
	if want := decimal.NewFromInt(1000); !resp.Balance.Equal(want) {
		t.Errorf("balance after first buy = %s, want %s", resp.Balance, want)
	}

	rec = doJSON(t, h, "POST", fmt.Sprintf("/api/users/%d/trades", id),
		`{"symbol":"AAPL","shares":"5","action":"buy"}`)
	resp = decode[TradeResponse](t, rec)
	if len(resp.Positions) != 2 {
		t.Fatalf("positions after two buys = %d, want 2", len(resp.Positions))
	}

	// Selling 12 consumes the oldest lot and leaves 3 in the second.
	rec = doJSON(t, h, "POST", fmt.Sprintf("/api/users/%d/trades", id),
		`{"symbol":"AAPL","shares":"12","action":"sell"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("sell = %d: %s", rec.Code, rec.Body.String())
	}
	resp = decode[TradeResponse](t, rec)
	if len(resp.Positions) != 1 {
		t.Fatalf("positions after sell = %d, want 1", len(resp.Positions))
	}
	if want := decimal.NewFromInt(3); !resp.Positions[0].Shares.Equal(want) {
		t.Errorf("remaining shares = %s, want %s", resp.Positions[0].Shares, want)
	}
	if want := decimal.NewFromInt(1700); !resp.Balance.Equal(want) {
		t.Errorf("balance after sell = %s, want %s", resp.Balance, want)
	}
}

func TestTradeRejections(t *testing.T) {
	h := newTestHandler(t)
	id := registerUser(t, h, "alice")
	doJSON(t, h, "POST", fmt.Sprintf("/api/users/%d/deposit", id), `{"amount":"100"}`)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"insufficient funds", `{"symbol":"AAPL","shares":"5","action":"buy"}`, http.StatusUnprocessableEntity},
		{"insufficient shares", `{"symbol":"MSFT","shares":"1","action":"sell"}`, http.StatusUnprocessableEntity},
		{"unknown symbol", `{"symbol":"NOPE","shares":"1","action":"buy"}`, http.StatusNotFound},
		{"bad action", `{"symbol":"AAPL","shares":"1","action":"hold"}`, http.StatusBadRequest},
		{"zero shares", `{"symbol":"AAPL","shares":"0","action":"buy"}`, http.StatusBadRequest},
		{"negative shares", `{"symbol":"AAPL","shares":"-2","action":"buy"}`, http.StatusBadRequest},
		{"bad body", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, "POST", fmt.Sprintf("/api/users/%d/trades", id), tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}

	// None of the rejected intents may have touched the account.
	rec := doJSON(t, h, "GET", fmt.Sprintf("/api/users/%d/account", id), "")
	acct := decode[AccountResponse](t, rec)
	if want := decimal.NewFromInt(100); !acct.Balance.Equal(want) {
		t.Errorf("balance after rejections = %s, want %s", acct.Balance, want)
	}
	if len(acct.Positions) != 0 {
		t.Errorf("positions after rejections = %d, want 0", len(acct.Positions))
	}
}

func TestQuote(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, "GET", "/api/quotes/aapl", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("quote = %d: %s", rec.Code, rec.Body.String())
	}
	quote := decode[QuoteResponse](t, rec)
	if quote.Symbol != "AAPL" || !quote.Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("quote = %+v, want AAPL at 100", quote)
	}

	rec = doJSON(t, h, "GET", "/api/quotes/NOPE", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown quote = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSearchSymbols(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, "GET", "/api/symbols?q=AA", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("symbols = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[SymbolsResponse](t, rec)
	if len(resp.Symbols) != 1 || resp.Symbols[0].Symbol != "AAPL" {
		t.Errorf("symbols = %+v, want [AAPL]", resp.Symbols)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest("OPTIONS", "/api/quotes/AAPL", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestValidPassword(t *testing.T) {
	cases := []struct {
		pw   string
		want bool
	}{
		{"Sup3rSecret", true},
		{"Aa1bcdef", true},
		{"short1A", false},
		{"nouppercase1", false},
		{"NOLOWERCASE1", false},
		{"NoDigitsAtAll", false},
	}
	for _, tc := range cases {
		if got := validPassword(tc.pw); got != tc.want {
			t.Errorf("validPassword(%q) = %v, want %v", tc.pw, got, tc.want)
		}
	}
}
