package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/stampcard/stampcard-api/internal/db"
)

// MemStore is a thread-safe in-memory db.Store for tests. It mirrors the
// SQL stores' semantics exactly: backend-neutral sentinels, at-most-once
// wallet creation, and the null-safe conditional wallet update.
type MemStore struct {
	mu        sync.Mutex
	customers map[string]db.Customer
	wallets   map[string]db.Wallet
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		customers: make(map[string]db.Customer),
		wallets:   make(map[string]db.Wallet),
	}
}

func (s *MemStore) InitSchema(ctx context.Context) error {
	return nil
}

func (s *MemStore) GetCustomer(ctx context.Context, identifier string) (db.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if (c.Email != nil && *c.Email == identifier) || (c.Phone != nil && *c.Phone == identifier) {
			return c, nil
		}
	}
	return db.Customer{}, db.ErrNotFound
}

func (s *MemStore) CreateCustomer(ctx context.Context, params db.CreateCustomerParams) (db.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[params.ID]; ok {
		return db.Customer{}, db.ErrConflict
	}
	for _, c := range s.customers {
		if params.Email != nil && c.Email != nil && *c.Email == *params.Email {
			return db.Customer{}, db.ErrConflict
		}
		if params.Phone != nil && c.Phone != nil && *c.Phone == *params.Phone {
			return db.Customer{}, db.ErrConflict
		}
	}
	customer := db.Customer{
		ID:        params.ID,
		Name:      params.Name,
		Email:     params.Email,
		Phone:     params.Phone,
		CreatedAt: time.Now().UTC(),
	}
	s.customers[params.ID] = customer
	return customer, nil
}

func (s *MemStore) GetWallet(ctx context.Context, customerID string) (db.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[customerID]
	if !ok {
		return db.Wallet{}, db.ErrNotFound
	}
	return w, nil
}

func (s *MemStore) CreateWallet(ctx context.Context, customerID string) (db.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[customerID]; ok {
		return w, nil
	}
	w := db.Wallet{CustomerID: customerID}
	s.wallets[customerID] = w
	return w, nil
}

func (s *MemStore) UpdateWallet(ctx context.Context, params db.UpdateWalletParams) (db.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[params.CustomerID]
	if !ok {
		return db.Wallet{}, db.ErrNotFound
	}
	if !timesEqual(w.LastStampedAt, params.PrevLastStampedAt) {
		return db.Wallet{}, db.ErrConflict
	}
	w.Stamps = params.Stamps
	w.LastStampedAt = params.LastStampedAt
	w.LastRedeemedAt = params.LastRedeemedAt
	s.wallets[params.CustomerID] = w
	return w, nil
}

func (s *MemStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemStore) Close() {}

// CustomerCount reports how many customer rows exist.
func (s *MemStore) CustomerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.customers)
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
