package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS customers (
    id         TEXT PRIMARY KEY,
    name       TEXT,
    email      TEXT UNIQUE,
    phone      TEXT UNIQUE,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS wallets (
    customer_id      TEXT PRIMARY KEY REFERENCES customers (id),
    stamps           INTEGER NOT NULL DEFAULT 0,
    last_stamped_at  TIMESTAMP,
    last_redeemed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_customers_email ON customers (email);
CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers (phone);
`

// SQLiteStore is the embedded single-file store variant. It exposes the
// same statement semantics as the Postgres store.
type SQLiteStore struct {
	db  *sql.DB
	now NowFunc
}

// NewSQLiteStore opens (creating if needed) the database file at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection serializes writers and guarantees read-your-writes
	// within the process.
	sqldb.SetMaxOpenConns(1)

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return &SQLiteStore{db: sqldb, now: defaultNow}, nil
}

// InitSchema creates the tables and indexes. Safe to re-run.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, identifier string) (Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, created_at FROM customers WHERE email = ? OR phone = ?`,
		identifier, identifier,
	)
	return scanCustomer(row)
}

func (s *SQLiteStore) CreateCustomer(ctx context.Context, params CreateCustomerParams) (Customer, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (id, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?)`,
		params.ID, params.Name, params.Email, params.Phone, s.now(),
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return Customer{}, ErrConflict
		}
		return Customer{}, fmt.Errorf("failed to create customer: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, created_at FROM customers WHERE id = ?`, params.ID)
	return scanCustomer(row)
}

func (s *SQLiteStore) GetWallet(ctx context.Context, customerID string) (Wallet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT customer_id, stamps, last_stamped_at, last_redeemed_at FROM wallets WHERE customer_id = ?`,
		customerID,
	)
	return scanWallet(row)
}

func (s *SQLiteStore) CreateWallet(ctx context.Context, customerID string) (Wallet, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (customer_id, stamps) VALUES (?, 0)
         ON CONFLICT (customer_id) DO NOTHING`,
		customerID,
	)
	if err != nil {
		return Wallet{}, fmt.Errorf("failed to create wallet: %w", err)
	}
	return s.GetWallet(ctx, customerID)
}

func (s *SQLiteStore) UpdateWallet(ctx context.Context, params UpdateWalletParams) (Wallet, error) {
	// IS gives null-safe equality, matching IS NOT DISTINCT FROM on the
	// Postgres side.
	res, err := s.db.ExecContext(ctx,
		`UPDATE wallets
         SET stamps = ?, last_stamped_at = ?, last_redeemed_at = ?
         WHERE customer_id = ? AND last_stamped_at IS ?`,
		params.Stamps, params.LastStampedAt, params.LastRedeemedAt, params.CustomerID, params.PrevLastStampedAt,
	)
	if err != nil {
		return Wallet{}, fmt.Errorf("failed to update wallet: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Wallet{}, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetWallet(ctx, params.CustomerID); errors.Is(getErr, ErrNotFound) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, ErrConflict
	}
	return s.GetWallet(ctx, params.CustomerID)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row rowScanner) (Customer, error) {
	var c Customer
	var name, email, phone sql.NullString
	err := row.Scan(&c.ID, &name, &email, &phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("failed to scan customer: %w", err)
	}
	if name.Valid {
		c.Name = &name.String
	}
	if email.Valid {
		c.Email = &email.String
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	return c, nil
}

func scanWallet(row rowScanner) (Wallet, error) {
	var w Wallet
	var stamped, redeemed sql.NullTime
	err := row.Scan(&w.CustomerID, &w.Stamps, &stamped, &redeemed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("failed to scan wallet: %w", err)
	}
	if stamped.Valid {
		t := stamped.Time
		w.LastStampedAt = &t
	}
	if redeemed.Valid {
		t := redeemed.Time
		w.LastRedeemedAt = &t
	}
	return w, nil
}

func isSQLiteConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint")
}
