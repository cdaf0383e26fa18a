package entities

import (
	"time"

	"github.com/google/uuid"
)

// FollowUpMessage is a clinic-authored template sent some number of days
// after a completed appointment (post-treatment check-ins, review
// requests). Diff-synced by id alongside BillingScenario, per spec §4.6.
type FollowUpMessage struct {
	ID       uuid.UUID `json:"id" db:"id"`
	ClinicID uuid.UUID `json:"clinic_id" db:"clinic_id"`

	Name          string `json:"name" db:"name"`
	Body          string `json:"body" db:"body"`
	DaysAfter     int    `json:"days_after" db:"days_after"`
	Enabled       bool   `json:"enabled" db:"enabled"`
	DisplayOrder  int    `json:"display_order" db:"display_order"`

	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

func (f *FollowUpMessage) Validate() error {
	if f.Body == "" {
		return ErrInvalidFollowUpMessageBody
	}
	return nil
}

func (f *FollowUpMessage) IsDeleted() bool {
	return f.DeletedAt != nil
}
