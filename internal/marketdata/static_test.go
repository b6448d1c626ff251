package marketdata

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStaticSourceCurrentPrice(t *testing.T) {
	s := NewStaticSource(map[string]decimal.Decimal{
		"aapl": decimal.NewFromInt(100),
		"MSFT": decimal.NewFromInt(50),
	})
	ctx := context.Background()

	// Keys and lookups are both case-insensitive.
	price, err := s.CurrentPrice(ctx, "AAPL")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("price = %s, want 100", price)
	}
	if _, err := s.CurrentPrice(ctx, "msft"); err != nil {
		t.Errorf("lowercase lookup: %v", err)
	}

	if _, err := s.CurrentPrice(ctx, "NOPE"); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("unknown symbol err = %v, want ErrUnknownSymbol", err)
	}
}

func TestStaticSourceSetPrice(t *testing.T) {
	s := NewStaticSource(nil)
	ctx := context.Background()

	s.SetPrice("tsla", decimal.NewFromInt(250))
	price, err := s.CurrentPrice(ctx, "TSLA")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(250)) {
		t.Errorf("price = %s, want 250", price)
	}
}

func TestStaticSourceSearchSymbols(t *testing.T) {
	s := NewStaticSource(map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(100),
		"AMZN": decimal.NewFromInt(185),
		"MSFT": decimal.NewFromInt(50),
	})
	ctx := context.Background()

	infos, err := s.SearchSymbols(ctx, "a", 10)
	if err != nil {
		t.Fatalf("SearchSymbols: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}

	infos, err = s.SearchSymbols(ctx, "A", 1)
	if err != nil {
		t.Fatalf("SearchSymbols with limit: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("len(infos) = %d, want 1", len(infos))
	}
}
