package pass

import (
	"time"

	"github.com/google/uuid"
	"github.com/stampcard/stampcard-api/internal/db"
)

// Artifact is a platform-neutral wallet-pass payload built from a
// {customer, wallet} snapshot. Platform-specific issuers (Apple, Google)
// would render this into their own formats; the API serves it as JSON.
type Artifact struct {
	Format           string     `json:"format"`
	SerialNumber     string     `json:"serialNumber"`
	OrganizationName string     `json:"organizationName"`
	CustomerID       string     `json:"customerId"`
	CustomerName     *string    `json:"customerName"`
	Stamps           int32      `json:"stamps"`
	Threshold        int32      `json:"threshold"`
	LastStampedAt    *time.Time `json:"lastStampedAt"`
	LastRedeemedAt   *time.Time `json:"lastRedeemedAt"`
	IssuedAt         time.Time  `json:"issuedAt"`
	Barcode          Barcode    `json:"barcode"`
}

// Barcode carries the scannable payload, the customer's identifier.
type Barcode struct {
	Format  string `json:"format"`
	Message string `json:"message"`
}

// Issuer builds pass artifacts. Stateless.
type Issuer struct {
	orgName   string
	threshold int32
}

// NewIssuer creates a pass issuer for the given organization.
func NewIssuer(orgName string, threshold int32) *Issuer {
	return &Issuer{orgName: orgName, threshold: threshold}
}

// Issue builds a fresh artifact from the snapshot. Serial numbers are
// unique per issuance, not per customer.
func (i *Issuer) Issue(customer db.Customer, wallet db.Wallet) Artifact {
	return Artifact{
		Format:           "stampcard.v1",
		SerialNumber:     uuid.New().String(),
		OrganizationName: i.orgName,
		CustomerID:       customer.ID,
		CustomerName:     customer.Name,
		Stamps:           wallet.Stamps,
		Threshold:        i.threshold,
		LastStampedAt:    wallet.LastStampedAt,
		LastRedeemedAt:   wallet.LastRedeemedAt,
		IssuedAt:         time.Now().UTC(),
		Barcode: Barcode{
			Format:  "QR",
			Message: customer.ID,
		},
	}
}
