package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseTradeAction(t *testing.T) {
	cases := []struct {
		in      string
		want    TradeAction
		wantErr bool
	}{
		{"buy", ActionBuy, false},
		{"sell", ActionSell, false},
		{"BUY", "", true},
		{"hold", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseTradeAction(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAction) {
				t.Errorf("ParseTradeAction(%q) err = %v, want ErrInvalidAction", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseTradeAction(%q) = %q, %v, want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestTradeIntentValidate(t *testing.T) {
	valid := TradeIntent{
		UserID: 1,
		Symbol: "AAPL",
		Shares: decimal.NewFromInt(5),
		Action: ActionBuy,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	cases := []struct {
		name   string
		mutate func(*TradeIntent)
		want   error
	}{
		{"empty symbol", func(ti *TradeIntent) { ti.Symbol = "" }, ErrInvalidSymbol},
		{"zero shares", func(ti *TradeIntent) { ti.Shares = decimal.Zero }, ErrInvalidAmount},
		{"negative shares", func(ti *TradeIntent) { ti.Shares = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"bad action", func(ti *TradeIntent) { ti.Action = "hold" }, ErrInvalidAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ti := valid
			tc.mutate(&ti)
			if err := ti.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTradeIntentFractionalShares(t *testing.T) {
	ti := TradeIntent{
		UserID: 1,
		Symbol: "AAPL",
		Shares: decimal.RequireFromString("0.5"),
		Action: ActionSell,
	}
	if err := ti.Validate(); err != nil {
		t.Errorf("fractional shares Validate() = %v, want nil", err)
	}
}
