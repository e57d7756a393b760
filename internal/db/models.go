package db

import "time"

// Customer is the canonical customer record. ID is derived from the
// first-seen identifier and never changes after creation. At least one of
// Email and Phone is always set.
type Customer struct {
	ID        string     `json:"id"`
	Name      *string    `json:"name"`
	Email     *string    `json:"email"`
	Phone     *string    `json:"phone"`
	CreatedAt time.Time  `json:"created_at"`
}

// Wallet is the one-row-per-customer stamp ledger. Stamps stays within
// [0, threshold); the counter resets at the instant it would reach the
// threshold and that instant is the only point a redemption is recorded.
type Wallet struct {
	CustomerID     string     `json:"customer_id"`
	Stamps         int32      `json:"stamps"`
	LastStampedAt  *time.Time `json:"last_stamped_at"`
	LastRedeemedAt *time.Time `json:"last_redeemed_at"`
}

// CreateCustomerParams carries the fields for a new customer row.
type CreateCustomerParams struct {
	ID    string
	Name  *string
	Email *string
	Phone *string
}

// UpdateWalletParams carries a full wallet transition. PrevLastStampedAt is
// the last_stamped_at value observed when the wallet was read; the update
// is rejected with ErrConflict when the row no longer matches, which closes
// the read-check-write race between concurrent stamp requests.
type UpdateWalletParams struct {
	CustomerID        string
	Stamps            int32
	LastStampedAt     *time.Time
	LastRedeemedAt    *time.Time
	PrevLastStampedAt *time.Time
}
