// Package engine implements the trade engine: given a buy or sell intent and
// an externally supplied market price, it computes and applies the resulting
// ledger and position-book mutations atomically.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"stocktrends/internal/domain"
	"stocktrends/internal/store"
)

// Engine executes trade intents against a TradeStore. It holds no state of
// its own beyond per-user mutexes: two concurrent trades for the same user
// would otherwise both pass the sufficiency check on the same snapshot, so
// same-user mutation is serialized while different users proceed in parallel.
type Engine struct {
	store store.TradeStore
	locks userLocks
}

// New creates an Engine backed by the given store.
func New(s store.TradeStore) *Engine {
	return &Engine{store: s}
}

// ExecuteTrade validates the intent, then settles it: balance check and
// position mutation for a buy, FIFO lot consumption for a sell. The price is
// an input; the engine never fetches market data itself. On success the
// updated balance and refreshed position list are returned. On any error no
// mutation is left visible.
//
// Trades are not idempotent: calling ExecuteTrade twice with identical
// arguments settles two independent trades.
func (e *Engine) ExecuteTrade(ctx context.Context, intent domain.TradeIntent, price decimal.Decimal) (*domain.TradeResult, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrInvalidAmount)
	}

	unlock := e.locks.lock(intent.UserID)
	defer unlock()

	balance, err := e.store.GetBalance(ctx, intent.UserID)
	if err != nil {
		return nil, err
	}

	switch intent.Action {
	case domain.ActionBuy:
		return e.buy(ctx, intent, price, balance)
	case domain.ActionSell:
		return e.sell(ctx, intent, price, balance)
	default:
		return nil, domain.ErrInvalidAction
	}
}

// buy debits the cost and records a new lot. The intent is rejected whole if
// funds are insufficient; nothing is clamped to fit the balance.
func (e *Engine) buy(ctx context.Context, intent domain.TradeIntent, price, balance decimal.Decimal) (*domain.TradeResult, error) {
	cost := price.Mul(intent.Shares)
	newBalance := balance.Sub(cost)
	if newBalance.IsNegative() {
		return nil, domain.ErrInsufficientFunds
	}

	err := e.store.RunInTrade(ctx, func(tx store.TradeTx) error {
		if err := tx.SetBalance(ctx, intent.UserID, newBalance); err != nil {
			return err
		}
		_, err := tx.AddPosition(ctx, intent.UserID, intent.Symbol, intent.Shares, price)
		return err
	})
	if err != nil {
		return nil, err
	}

	return e.result(ctx, intent.UserID, newBalance)
}

// sell settles a FIFO sale in two phases: a pure planning phase over the
// current lot snapshot, then a transactional apply of the balance credit and
// the planned lot deletions/reductions.
func (e *Engine) sell(ctx context.Context, intent domain.TradeIntent, price, balance decimal.Decimal) (*domain.TradeResult, error) {
	positions, err := e.store.ListPositions(ctx, intent.UserID)
	if err != nil {
		return nil, err
	}

	plan, err := buildSellPlan(positions, intent.Symbol, intent.Shares)
	if err != nil {
		return nil, err
	}

	newBalance := balance.Add(price.Mul(intent.Shares))

	err = e.store.RunInTrade(ctx, func(tx store.TradeTx) error {
		if err := tx.SetBalance(ctx, intent.UserID, newBalance); err != nil {
			return err
		}
		for _, change := range plan {
			if err := tx.ReducePosition(ctx, change.positionID, change.remaining); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return e.result(ctx, intent.UserID, newBalance)
}

// Deposit adds a positive amount to the user's balance. Serialized against
// trades for the same user.
func (e *Engine) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	return e.store.Deposit(ctx, userID, amount)
}

// Account returns the user's ledger entry and current positions.
func (e *Engine) Account(ctx context.Context, userID int64) (*domain.User, []domain.Position, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	positions, err := e.store.ListPositions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, positions, nil
}

func (e *Engine) result(ctx context.Context, userID int64, balance decimal.Decimal) (*domain.TradeResult, error) {
	positions, err := e.store.ListPositions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.TradeResult{Balance: balance, Positions: positions}, nil
}

// userLocks hands out one mutex per user ID. The map only ever grows, which
// is acceptable at this system's scale.
type userLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[int64]*sync.Mutex)
	}
	um, ok := l.m[userID]
	if !ok {
		um = &sync.Mutex{}
		l.m[userID] = um
	}
	l.mu.Unlock()

	um.Lock()
	return um.Unlock
}
