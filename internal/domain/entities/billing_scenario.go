package entities

import (
	"time"

	"github.com/google/uuid"
)

// BillingScenario is a clinic-defined receipt line item (e.g. "自費/初診"):
// a name, price, and insurance code pass-through. The scheduling core never
// computes totals; it only stores and diff-syncs these catalog rows for the
// out-of-scope billing/receipt subsystem to read. Grounded on spec §4.6's
// "bundle diff-sync by id" description; no direct teacher analogue.
type BillingScenario struct {
	ID       uuid.UUID `json:"id" db:"id"`
	ClinicID uuid.UUID `json:"clinic_id" db:"clinic_id"`

	Name          string  `json:"name" db:"name"`
	Price         int64   `json:"price_cents" db:"price_cents"`
	InsuranceCode *string `json:"insurance_code,omitempty" db:"insurance_code"`
	DisplayOrder  int     `json:"display_order" db:"display_order"`

	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

func (b *BillingScenario) Validate() error {
	if b.Name == "" {
		return ErrInvalidBillingScenarioName
	}
	return nil
}

// IsDeleted reports whether the scenario is soft-deleted.
func (b *BillingScenario) IsDeleted() bool {
	return b.DeletedAt != nil
}
