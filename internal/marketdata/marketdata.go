// Package marketdata supplies current prices, bars, news, and ticker
// suggestions from an external provider. It is a thin pass-through gateway:
// trade settlement consumes only CurrentPrice, and a provider failure aborts
// the trade intent before any mutation.
package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnknownSymbol indicates the provider has no data for the requested
// ticker.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Bar is one OHLCV aggregate.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Article is a single news article for a symbol.
type Article struct {
	Time     time.Time
	Source   string
	Headline string
	Summary  string
	URL      string
}

// SymbolInfo is one entry of a ticker search result.
type SymbolInfo struct {
	Symbol   string
	Name     string
	Exchange string
}

// Source abstracts a market-data provider.
type Source interface {
	// CurrentPrice returns the latest trade price for the symbol. This is
	// the one lookup trade settlement depends on.
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// DailyBars returns daily bars for the last n calendar days.
	DailyBars(ctx context.Context, symbol string, days int) ([]Bar, error)

	// IntradayBars returns today's bars at the given minute interval.
	IntradayBars(ctx context.Context, symbol string, intervalMinutes int) ([]Bar, error)

	// News returns recent articles for the symbol, newest last, up to limit.
	News(ctx context.Context, symbol string, limit int) ([]Article, error)

	// SearchSymbols returns tradable tickers starting with prefix.
	SearchSymbols(ctx context.Context, prefix string, limit int) ([]SymbolInfo, error)
}
