package domain

import "errors"

// Sentinel errors surfaced verbatim to the caller. None of these are retried
// automatically: trade intents are not idempotent, so replaying a call after
// a failure would create a duplicate trade.
var (
	// ErrNotFound indicates a referenced user or position does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAmount indicates a non-positive or non-finite quantity or
	// cash amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidSymbol indicates an empty or malformed ticker symbol.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrInvalidAction indicates a trade action other than buy or sell.
	ErrInvalidAction = errors.New("invalid trade action")

	// ErrInvalidUsername indicates an empty or malformed username at
	// registration.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInsufficientFunds indicates a buy that would drive the balance
	// negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares indicates a sell of more shares of a symbol than
	// are held in aggregate across all lots.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrUsernameTaken indicates a registration with an already-used
	// username.
	ErrUsernameTaken = errors.New("username already registered")
)
