package entities

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a clinic-scoped person record, optionally linked to a LineUser.
// Grounded on original_source/backend/src/models/patient.py and the
// teacher's entities/patient.go soft-delete convention.
type Patient struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ClinicID    uuid.UUID  `json:"clinic_id" db:"clinic_id"`
	LineUserID  *uuid.UUID `json:"line_user_id,omitempty" db:"line_user_id"`
	Name        string     `json:"name" db:"name"`
	Phone       *string    `json:"phone,omitempty" db:"phone"`
	Birthday    *time.Time `json:"birthday,omitempty" db:"birthday"`
	Gender      *string    `json:"gender,omitempty" db:"gender"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate checks patient invariants.
func (p *Patient) Validate() error {
	if p.Name == "" {
		return ErrInvalidPatientName
	}
	return nil
}

// IsDeleted reports whether the patient record is soft-deleted.
func (p *Patient) IsDeleted() bool {
	return p.DeletedAt != nil
}

// LineUser is a messaging-platform identity, scoped per clinic: one row per
// (external user id, clinic). Grounded on
// original_source/backend/src/models/line_user.py.
type LineUser struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	ClinicID            uuid.UUID  `json:"clinic_id" db:"clinic_id"`
	ExternalUserID      string     `json:"external_user_id" db:"external_user_id"`
	DisplayName         string     `json:"display_name" db:"display_name"`
	DisplayNameOverride *string    `json:"display_name_override,omitempty" db:"display_name_override"`
	AIDisabled          bool       `json:"ai_disabled" db:"ai_disabled"`
	AIDisabledByUserID  *uuid.UUID `json:"ai_disabled_by_user_id,omitempty" db:"ai_disabled_by_user_id"`
	AIDisabledAt        *time.Time `json:"ai_disabled_at,omitempty" db:"ai_disabled_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// EffectiveDisplayName prefers the clinic-overridden name over the raw
// messaging-platform display name.
func (l *LineUser) EffectiveDisplayName() string {
	if l.DisplayNameOverride != nil && *l.DisplayNameOverride != "" {
		return *l.DisplayNameOverride
	}
	return l.DisplayName
}
