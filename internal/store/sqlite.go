package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"stocktrends/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ Ledger = (*SQLiteStore)(nil)
var _ PositionBook = (*SQLiteStore)(nil)
var _ TradeStore = (*SQLiteStore)(nil)
var _ TradeTx = (*sqliteTx)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	username   TEXT    NOT NULL UNIQUE,
	password   TEXT    NOT NULL,
	balance    TEXT    NOT NULL DEFAULT '0',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id        INTEGER NOT NULL REFERENCES users(id),
	symbol         TEXT    NOT NULL,
	shares         TEXT    NOT NULL,
	purchase_price TEXT    NOT NULL,
	created_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_user ON positions(user_id);
`

// SQLiteStore implements Ledger, PositionBook, and TradeStore backed by a
// SQLite database. Balances, share counts, and prices are stored as exact
// decimal strings; lot IDs are AUTOINCREMENT, which makes ascending ID the
// guaranteed creation-order retrieval key.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema if needed, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// modernc.org/sqlite connections do not share an in-memory page cache;
	// a single connection keeps writes serialized at the driver level.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so the query helpers below
// can serve the plain methods and the transactional ones.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ---------------------------------------------------------------------------
// Ledger implementation
// ---------------------------------------------------------------------------

// CreateUser registers a new user with a bcrypt-hashed password and a zero
// balance.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, domain.ErrInvalidUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, balance, created_at) VALUES (?, ?, '0', ?)`,
		username, string(hash), now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}

	return &domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		Balance:      decimal.Zero,
		CreatedAt:    now,
	}, nil
}

// GetUser retrieves a single user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password, balance, created_at FROM users WHERE id = ?`, userID))
}

// GetUserByUsername retrieves a single user by username (case-sensitive).
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password, balance, created_at FROM users WHERE username = ?`, username))
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u       domain.User
		balance string
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &balance, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parsing balance %q: %w", balance, err)
	}
	return &u, nil
}

// GetBalance returns the user's current cash balance.
func (s *SQLiteStore) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance string
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("querying balance: %w", err)
	}
	d, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing balance %q: %w", balance, err)
	}
	return d, nil
}

// SetBalance persists a new balance for the user.
func (s *SQLiteStore) SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	return setBalance(ctx, s.db, userID, balance)
}

// Deposit adds amount to the user's balance inside a transaction and returns
// the new balance.
func (s *SQLiteStore) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	var newBalance decimal.Decimal
	err := s.RunInTrade(ctx, func(tx TradeTx) error {
		stx := tx.(*sqliteTx)
		var balance string
		err := stx.tx.QueryRowContext(ctx,
			`SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying balance: %w", err)
		}
		current, err := decimal.NewFromString(balance)
		if err != nil {
			return fmt.Errorf("parsing balance %q: %w", balance, err)
		}
		newBalance = current.Add(amount)
		return tx.SetBalance(ctx, userID, newBalance)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// ---------------------------------------------------------------------------
// PositionBook implementation
// ---------------------------------------------------------------------------

// ListPositions returns all of the user's lots ordered by ascending ID, i.e.
// creation order.
func (s *SQLiteStore) ListPositions(ctx context.Context, userID int64) ([]domain.Position, error) {
	return listPositions(ctx, s.db, userID)
}

// AddPosition inserts a new lot row.
func (s *SQLiteStore) AddPosition(ctx context.Context, userID int64, symbol string, shares, price decimal.Decimal) (*domain.Position, error) {
	return addPosition(ctx, s.db, userID, symbol, shares, price)
}

// ReducePosition updates the lot's share count, or deletes the row when
// remaining is zero.
func (s *SQLiteStore) ReducePosition(ctx context.Context, positionID int64, remaining decimal.Decimal) error {
	return reducePosition(ctx, s.db, positionID, remaining)
}

// ---------------------------------------------------------------------------
// Transactional settlement
// ---------------------------------------------------------------------------

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	return setBalance(ctx, t.tx, userID, balance)
}

func (t *sqliteTx) AddPosition(ctx context.Context, userID int64, symbol string, shares, price decimal.Decimal) (*domain.Position, error) {
	return addPosition(ctx, t.tx, userID, symbol, shares, price)
}

func (t *sqliteTx) ReducePosition(ctx context.Context, positionID int64, remaining decimal.Decimal) error {
	return reducePosition(ctx, t.tx, positionID, remaining)
}

// RunInTrade executes fn inside a single transaction.
func (s *SQLiteStore) RunInTrade(ctx context.Context, fn func(tx TradeTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Shared query helpers (work on *sql.DB and *sql.Tx alike)
// ---------------------------------------------------------------------------

func setBalance(ctx context.Context, q dbtx, userID int64, balance decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		`UPDATE users SET balance = ? WHERE id = ?`, balance.String(), userID)
	if err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking balance update: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func listPositions(ctx context.Context, q dbtx, userID int64) ([]domain.Position, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, symbol, shares, purchase_price, created_at
		 FROM positions WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var (
			p             domain.Position
			shares, price string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Symbol, &shares, &price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		if p.Shares, err = decimal.NewFromString(shares); err != nil {
			return nil, fmt.Errorf("parsing shares %q: %w", shares, err)
		}
		if p.PurchasePrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing purchase price %q: %w", price, err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func addPosition(ctx context.Context, q dbtx, userID int64, symbol string, shares, price decimal.Decimal) (*domain.Position, error) {
	if !shares.IsPositive() || !price.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	res, err := q.ExecContext(ctx,
		`INSERT INTO positions (user_id, symbol, shares, purchase_price, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, symbol, shares.String(), price.String(), now)
	if err != nil {
		return nil, fmt.Errorf("inserting position: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading position id: %w", err)
	}

	return &domain.Position{
		ID:            id,
		UserID:        userID,
		Symbol:        symbol,
		Shares:        shares,
		PurchasePrice: price,
		CreatedAt:     now,
	}, nil
}

func reducePosition(ctx context.Context, q dbtx, positionID int64, remaining decimal.Decimal) error {
	if remaining.IsNegative() {
		return domain.ErrInvalidAmount
	}

	var (
		res sql.Result
		err error
	)
	if remaining.IsZero() {
		res, err = q.ExecContext(ctx, `DELETE FROM positions WHERE id = ?`, positionID)
	} else {
		res, err = q.ExecContext(ctx,
			`UPDATE positions SET shares = ? WHERE id = ?`, remaining.String(), positionID)
	}
	if err != nil {
		return fmt.Errorf("reducing position: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking position update: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
