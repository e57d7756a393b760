package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS customers (
    id         TEXT PRIMARY KEY,
    name       TEXT,
    email      TEXT UNIQUE,
    phone      TEXT UNIQUE,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS wallets (
    customer_id      TEXT PRIMARY KEY REFERENCES customers (id),
    stamps           INTEGER NOT NULL DEFAULT 0,
    last_stamped_at  TIMESTAMPTZ,
    last_redeemed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_customers_email ON customers (email);
CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers (phone);
`

// PostgresStore is the networked store variant backed by a pgx connection
// pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  NowFunc
}

// NewPostgresStore connects to Postgres and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool, now: defaultNow}, nil
}

// InitSchema creates the tables and indexes. Safe to re-run.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCustomer(ctx context.Context, identifier string) (Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, created_at FROM customers WHERE email = $1 OR phone = $1`,
		identifier,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, params CreateCustomerParams) (Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx,
		`INSERT INTO customers (id, name, email, phone, created_at)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, name, email, phone, created_at`,
		params.ID, params.Name, params.Email, params.Phone, s.now(),
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return Customer{}, ErrConflict
		}
		return Customer{}, fmt.Errorf("failed to create customer: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetWallet(ctx context.Context, customerID string) (Wallet, error) {
	var w Wallet
	err := s.pool.QueryRow(ctx,
		`SELECT customer_id, stamps, last_stamped_at, last_redeemed_at FROM wallets WHERE customer_id = $1`,
		customerID,
	).Scan(&w.CustomerID, &w.Stamps, &w.LastStampedAt, &w.LastRedeemedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) CreateWallet(ctx context.Context, customerID string) (Wallet, error) {
	// ON CONFLICT keeps creation at-most-once when two requests resolve the
	// same new customer concurrently.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wallets (customer_id, stamps) VALUES ($1, 0)
         ON CONFLICT (customer_id) DO NOTHING`,
		customerID,
	)
	if err != nil {
		return Wallet{}, fmt.Errorf("failed to create wallet: %w", err)
	}
	return s.GetWallet(ctx, customerID)
}

func (s *PostgresStore) UpdateWallet(ctx context.Context, params UpdateWalletParams) (Wallet, error) {
	var w Wallet
	err := s.pool.QueryRow(ctx,
		`UPDATE wallets
         SET stamps = $2, last_stamped_at = $3, last_redeemed_at = $4
         WHERE customer_id = $1 AND last_stamped_at IS NOT DISTINCT FROM $5
         RETURNING customer_id, stamps, last_stamped_at, last_redeemed_at`,
		params.CustomerID, params.Stamps, params.LastStampedAt, params.LastRedeemedAt, params.PrevLastStampedAt,
	).Scan(&w.CustomerID, &w.Stamps, &w.LastStampedAt, &w.LastRedeemedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Zero rows means either the wallet is gone or another request
			// moved last_stamped_at since our read.
			if _, getErr := s.GetWallet(ctx, params.CustomerID); errors.Is(getErr, ErrNotFound) {
				return Wallet{}, ErrNotFound
			}
			return Wallet{}, ErrConflict
		}
		return Wallet{}, fmt.Errorf("failed to update wallet: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
