package entities

import (
	"time"

	"github.com/google/uuid"
)

// SignupToken lets a prospective clinic admin complete registration without
// a pre-existing account. LIFF-token regeneration does not use it (that
// token lives on Clinic). Grounded on the teacher's main.go token-based
// invite pattern, generalized per spec §4.6/§6.
type SignupToken struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Token     string     `json:"token" db:"token"`
	ClinicID  *uuid.UUID `json:"clinic_id,omitempty" db:"clinic_id"`
	Email     string     `json:"email" db:"email"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty" db:"used_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the token's validity window has passed.
func (s *SignupToken) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsUsed reports whether the token has already been redeemed.
func (s *SignupToken) IsUsed() bool {
	return s.UsedAt != nil
}

// Validate checks whether the token may still be redeemed.
func (s *SignupToken) Validate(now time.Time) error {
	if s.IsUsed() {
		return ErrSignupTokenUsed
	}
	if s.IsExpired(now) {
		return ErrSignupTokenExpired
	}
	return nil
}
