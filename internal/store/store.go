// Package store defines the persistence contracts for the account ledger and
// the position book, plus the SQLite implementation backing both.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"stocktrends/internal/domain"
)

// Ledger persists user accounts and cash balances. Writes are durable and
// visible to subsequent reads immediately; there is no caching layer.
type Ledger interface {
	// CreateUser registers a new user with a zero balance. The password is
	// stored as a bcrypt hash. Returns domain.ErrUsernameTaken if the
	// username is already registered.
	CreateUser(ctx context.Context, username, password string) (*domain.User, error)

	// GetUser returns the user with the given ID, or domain.ErrNotFound.
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	// GetUserByUsername returns the user with the given username, or
	// domain.ErrNotFound. Usernames are case-sensitive.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetBalance returns the user's cash balance, or domain.ErrNotFound.
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)

	// SetBalance persists a new balance. The ledger performs no sign
	// validation; callers are responsible for never writing a negative
	// balance. Returns domain.ErrNotFound for unknown users.
	SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error

	// Deposit adds a positive amount to the user's balance and returns the
	// new balance. Returns domain.ErrInvalidAmount for non-positive amounts.
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
}

// PositionBook persists purchase lots. Retrieval order is an explicit
// contract, not an accident of storage: ListPositions returns lots in
// ascending ID order, which is insertion order, because sales consume lots
// oldest-first.
type PositionBook interface {
	// ListPositions returns all of the user's lots in creation order.
	ListPositions(ctx context.Context, userID int64) ([]domain.Position, error)

	// AddPosition records a new lot. It never merges with an existing lot
	// for the same symbol.
	AddPosition(ctx context.Context, userID int64, symbol string, shares, price decimal.Decimal) (*domain.Position, error)

	// ReducePosition sets the lot's share count to remaining, deleting the
	// row outright when remaining is zero. Returns domain.ErrNotFound if the
	// lot does not exist.
	ReducePosition(ctx context.Context, positionID int64, remaining decimal.Decimal) error
}

// TradeTx is the mutation surface available inside a settlement transaction.
// All writes issued through it commit or roll back together.
type TradeTx interface {
	SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error
	AddPosition(ctx context.Context, userID int64, symbol string, shares, price decimal.Decimal) (*domain.Position, error)
	ReducePosition(ctx context.Context, positionID int64, remaining decimal.Decimal) error
}

// TradeStore combines the ledger and the position book with transactional
// settlement: RunInTrade executes fn inside a single database transaction so
// the balance write and the position mutations of one trade either both land
// or neither does.
type TradeStore interface {
	Ledger
	PositionBook

	// RunInTrade runs fn inside one transaction, committing on nil and
	// rolling back on error.
	RunInTrade(ctx context.Context, fn func(tx TradeTx) error) error
}
