package db

import (
	"context"
	"errors"
	"time"
)

// NowFunc supplies row timestamps. Stores default to UTC wall-clock time.
type NowFunc func() time.Time

func defaultNow() time.Time {
	return time.Now().UTC()
}

// Backend-neutral sentinels. Both store implementations translate their
// driver errors into these so nothing backend-specific leaks into the
// resolver, guard, or ledger.
var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("db: not found")

	// ErrConflict is returned when a guarded update loses the race or an
	// insert hits a uniqueness constraint.
	ErrConflict = errors.New("db: conflict")
)

// Store is the uniform surface over the embedded single-file store and the
// networked Postgres store. Both provide read-your-writes visibility for
// the single-process case, and every write is all-or-nothing.
type Store interface {
	// InitSchema creates tables and indexes. Idempotent: re-running it on an
	// already-initialized store is a no-op.
	InitSchema(ctx context.Context) error

	// GetCustomer looks a customer up by exact match on stored email OR
	// phone. Returns ErrNotFound when no row matches.
	GetCustomer(ctx context.Context, identifier string) (Customer, error)

	// CreateCustomer inserts a new customer row. Returns ErrConflict when a
	// row with the same ID, email, or phone already exists.
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (Customer, error)

	// GetWallet returns the wallet for a customer. Returns ErrNotFound when
	// the customer has no wallet row yet.
	GetWallet(ctx context.Context, customerID string) (Wallet, error)

	// CreateWallet inserts a zero-stamp wallet row for a customer if one
	// does not exist, and returns the row either way.
	CreateWallet(ctx context.Context, customerID string) (Wallet, error)

	// UpdateWallet applies a full wallet transition atomically. The write is
	// conditional on params.PrevLastStampedAt still matching the row;
	// ErrConflict is returned when it does not, ErrNotFound when the wallet
	// row does not exist.
	UpdateWallet(ctx context.Context, params UpdateWalletParams) (Wallet, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close()
}
