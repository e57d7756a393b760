package services

import (
	"context"
	"errors"
	"strings"

	"github.com/stampcard/stampcard-api/internal/apperrors"
	"github.com/stampcard/stampcard-api/internal/db"
	"github.com/stampcard/stampcard-api/internal/logger"
	"go.uber.org/zap"
)

// IdentityService maps a loose identifier (email or phone) to a canonical
// customer record, creating the customer and its wallet on first sight.
type IdentityService struct {
	store  db.Store
	logger *zap.Logger
}

// NewIdentityService creates a new identity service
func NewIdentityService(store db.Store) *IdentityService {
	return &IdentityService{
		store:  store,
		logger: logger.Log,
	}
}

// ResolveOrCreate resolves identifier to an existing customer or creates a
// new one whose ID equals the identifier. The paired wallet row is
// guaranteed to exist before returning. For existing customers the stored
// name is never overwritten.
//
// The identifier is taken verbatim as the natural key: two textual variants
// of the same phone number ("+4912345" vs "012345") resolve to two
// customers. Known limitation, kept on purpose.
func (s *IdentityService) ResolveOrCreate(ctx context.Context, identifier, name string) (db.Customer, db.Wallet, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return db.Customer{}, db.Wallet{}, apperrors.Validationf("identifier is required")
	}

	customer, err := s.store.GetCustomer(ctx, identifier)
	switch {
	case err == nil:
		// Existing customer, nothing to update.
	case errors.Is(err, db.ErrNotFound):
		customer, err = s.createCustomer(ctx, identifier, name)
		if err != nil {
			return db.Customer{}, db.Wallet{}, err
		}
	default:
		s.logger.Error("Failed to look up customer",
			zap.String("identifier", identifier),
			zap.Error(err))
		return db.Customer{}, db.Wallet{}, apperrors.Storagef(err, "failed to look up customer")
	}

	wallet, err := s.ensureWallet(ctx, customer.ID)
	if err != nil {
		return db.Customer{}, db.Wallet{}, err
	}

	return customer, wallet, nil
}

func (s *IdentityService) createCustomer(ctx context.Context, identifier, name string) (db.Customer, error) {
	params := db.CreateCustomerParams{ID: identifier}
	if strings.Contains(identifier, "@") {
		params.Email = &identifier
	} else {
		params.Phone = &identifier
	}
	if name = strings.TrimSpace(name); name != "" {
		params.Name = &name
	}

	customer, err := s.store.CreateCustomer(ctx, params)
	if err == nil {
		s.logger.Info("Customer created",
			zap.String("customer_id", customer.ID))
		return customer, nil
	}

	// A concurrent request may have created the row between our lookup and
	// the insert; resolve to the winner.
	if errors.Is(err, db.ErrConflict) {
		existing, getErr := s.store.GetCustomer(ctx, identifier)
		if getErr == nil {
			return existing, nil
		}
	}

	s.logger.Error("Failed to create customer",
		zap.String("identifier", identifier),
		zap.Error(err))
	return db.Customer{}, apperrors.Storagef(err, "failed to create customer")
}

func (s *IdentityService) ensureWallet(ctx context.Context, customerID string) (db.Wallet, error) {
	wallet, err := s.store.GetWallet(ctx, customerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		s.logger.Error("Failed to get wallet",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return db.Wallet{}, apperrors.Storagef(err, "failed to get wallet")
	}

	wallet, err = s.store.CreateWallet(ctx, customerID)
	if err != nil {
		s.logger.Error("Failed to create wallet",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return db.Wallet{}, apperrors.Storagef(err, "failed to create wallet")
	}
	return wallet, nil
}

// Lookup returns the customer and wallet for an identifier without implied
// creation. Returns apperrors.ErrNotFound when the customer does not exist.
func (s *IdentityService) Lookup(ctx context.Context, identifier string) (db.Customer, db.Wallet, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return db.Customer{}, db.Wallet{}, apperrors.Validationf("identifier is required")
	}

	customer, err := s.store.GetCustomer(ctx, identifier)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Customer{}, db.Wallet{}, apperrors.NotFoundf("customer %s", identifier)
		}
		return db.Customer{}, db.Wallet{}, apperrors.Storagef(err, "failed to look up customer")
	}

	wallet, err := s.ensureWallet(ctx, customer.ID)
	if err != nil {
		return db.Customer{}, db.Wallet{}, err
	}
	return customer, wallet, nil
}
