package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Compile-time interface check.
var _ Source = (*StaticSource)(nil)

// StaticSource serves prices from a fixed in-memory table. It backs tests
// and offline runs where no provider credentials are configured.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticSource creates a StaticSource with the given symbol→price table.
func NewStaticSource(prices map[string]decimal.Decimal) *StaticSource {
	table := make(map[string]decimal.Decimal, len(prices))
	for sym, p := range prices {
		table[strings.ToUpper(sym)] = p
	}
	return &StaticSource{prices: table}
}

// SetPrice adds or updates a symbol's price.
func (s *StaticSource) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[strings.ToUpper(symbol)] = price
}

// CurrentPrice returns the fixed price for the symbol.
func (s *StaticSource) CurrentPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return price, nil
}

// DailyBars returns no bars; the static source carries prices only.
func (s *StaticSource) DailyBars(_ context.Context, _ string, _ int) ([]Bar, error) {
	return nil, nil
}

// IntradayBars returns no bars; the static source carries prices only.
func (s *StaticSource) IntradayBars(_ context.Context, _ string, _ int) ([]Bar, error) {
	return nil, nil
}

// News returns no articles; the static source carries prices only.
func (s *StaticSource) News(_ context.Context, _ string, _ int) ([]Article, error) {
	return nil, nil
}

// SearchSymbols filters the price table's symbols by prefix.
func (s *StaticSource) SearchSymbols(_ context.Context, prefix string, limit int) ([]SymbolInfo, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var symbols []string
	for sym := range s.prices {
		if strings.HasPrefix(sym, prefix) {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	if len(symbols) > limit {
		symbols = symbols[:limit]
	}

	infos := make([]SymbolInfo, 0, len(symbols))
	for _, sym := range symbols {
		infos = append(infos, SymbolInfo{Symbol: sym})
	}
	return infos, nil
}
