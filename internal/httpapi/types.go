// Package httpapi provides the JSON HTTP API over the trade engine, ledger,
// and market-data gateway. It renders no HTML and keeps no session state:
// the acting user is always an explicit path parameter.
package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"stocktrends/internal/domain"
	"stocktrends/internal/marketdata"
)

// RegisterRequest is the body of POST /api/users.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserJSON is the public representation of a user account.
type UserJSON struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PositionJSON is the public representation of one purchase lot.
type PositionJSON struct {
	ID            int64           `json:"id"`
	Symbol        string          `json:"symbol"`
	Shares        decimal.Decimal `json:"shares"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// AccountResponse is the response of GET /api/users/{id}/account.
type AccountResponse struct {
	UserID    int64           `json:"userId"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	Positions []PositionJSON  `json:"positions"`
}

// DepositRequest is the body of POST /api/users/{id}/deposit.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// BalanceResponse carries an updated cash balance.
type BalanceResponse struct {
	UserID  int64           `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
}

// TradeRequest is the body of POST /api/users/{id}/trades.
type TradeRequest struct {
	Symbol string          `json:"symbol"`
	Shares decimal.Decimal `json:"shares"`
	Action string          `json:"action"` // "buy" or "sell"
}

// TradeResponse is the post-settlement account view.
type TradeResponse struct {
	UserID    int64           `json:"userId"`
	Symbol    string          `json:"symbol"`
	Action    string          `json:"action"`
	Shares    decimal.Decimal `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Balance   decimal.Decimal `json:"balance"`
	Positions []PositionJSON  `json:"positions"`
}

// QuoteResponse is the response of GET /api/quotes/{symbol}.
type QuoteResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// BarJSON is one OHLCV aggregate.
type BarJSON struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// BarsResponse holds bars for a symbol.
type BarsResponse struct {
	Symbol string    `json:"symbol"`
	Bars   []BarJSON `json:"bars"`
}

// ArticleJSON is a single news article.
type ArticleJSON struct {
	Time     time.Time `json:"time"`
	Source   string    `json:"source"`
	Headline string    `json:"headline"`
	Summary  string    `json:"summary,omitempty"`
	URL      string    `json:"url,omitempty"`
}

// NewsResponse holds news articles for a symbol.
type NewsResponse struct {
	Symbol   string        `json:"symbol"`
	Articles []ArticleJSON `json:"articles"`
}

// SymbolJSON is one ticker search suggestion.
type SymbolJSON struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Exchange string `json:"exchange,omitempty"`
}

// SymbolsResponse lists ticker suggestions.
type SymbolsResponse struct {
	Symbols []SymbolJSON `json:"symbols"`
}

func convertUser(u *domain.User) UserJSON {
	return UserJSON{
		ID:        u.ID,
		Username:  u.Username,
		Balance:   u.Balance,
		CreatedAt: u.CreatedAt,
	}
}

func convertPositions(positions []domain.Position) []PositionJSON {
	out := make([]PositionJSON, 0, len(positions))
	for _, p := range positions {
		out = append(out, PositionJSON{
			ID:            p.ID,
			Symbol:        p.Symbol,
			Shares:        p.Shares,
			PurchasePrice: p.PurchasePrice,
			CreatedAt:     p.CreatedAt,
		})
	}
	return out
}

func convertBars(bars []marketdata.Bar) []BarJSON {
	out := make([]BarJSON, 0, len(bars))
	for _, b := range bars {
		out = append(out, BarJSON{
			Time:   b.Time,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return out
}

func convertArticles(articles []marketdata.Article) []ArticleJSON {
	out := make([]ArticleJSON, 0, len(articles))
	for _, a := range articles {
		out = append(out, ArticleJSON{
			Time:     a.Time,
			Source:   a.Source,
			Headline: a.Headline,
			Summary:  a.Summary,
			URL:      a.URL,
		})
	}
	return out
}

func convertSymbols(infos []marketdata.SymbolInfo) []SymbolJSON {
	out := make([]SymbolJSON, 0, len(infos))
	for _, info := range infos {
		out = append(out, SymbolJSON{
			Symbol:   info.Symbol,
			Name:     info.Name,
			Exchange: info.Exchange,
		})
	}
	return out
}
