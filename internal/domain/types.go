// Package domain defines the core value types shared across the paper-trading
// system: users, position lots, and trade intents.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeAction is the direction of a trade intent.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// ParseTradeAction parses the wire representation of a trade action.
func ParseTradeAction(s string) (TradeAction, error) {
	switch TradeAction(s) {
	case ActionBuy:
		return ActionBuy, nil
	case ActionSell:
		return ActionSell, nil
	default:
		return "", ErrInvalidAction
	}
}

// User is an account holder with a cash balance. The password credential is
// stored as a bcrypt hash, never in the clear.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Balance      decimal.Decimal
	CreatedAt    time.Time
}

// Position is a single purchase lot: shares of one symbol bought at one
// price. Every purchase creates a new lot; lots are never merged. The ID is
// monotonically increasing and doubles as the FIFO ordering key: sales
// consume lots in ascending ID order.
type Position struct {
	ID            int64
	UserID        int64
	Symbol        string
	Shares        decimal.Decimal
	PurchasePrice decimal.Decimal
	CreatedAt     time.Time
}

// TradeIntent is a caller-supplied request to buy or sell shares. The market
// price is supplied separately by the caller; the engine never fetches it.
type TradeIntent struct {
	UserID int64
	Symbol string
	Shares decimal.Decimal
	Action TradeAction
}

// Validate checks the intent's fields before any state is touched.
func (ti TradeIntent) Validate() error {
	if ti.Symbol == "" {
		return ErrInvalidSymbol
	}
	if !ti.Shares.IsPositive() {
		return ErrInvalidAmount
	}
	if ti.Action != ActionBuy && ti.Action != ActionSell {
		return ErrInvalidAction
	}
	return nil
}

// TradeResult is the post-settlement account view returned to the caller:
// the updated cash balance and the refreshed position list.
type TradeResult struct {
	Balance   decimal.Decimal
	Positions []Position
}
