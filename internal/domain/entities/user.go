package entities

import (
	"time"

	"github.com/google/uuid"
)

// Role is a clinic-scoped permission granted to a User via a
// UserClinicAssociation.
type Role string

const (
	RoleAdmin        Role = "admin"
	RolePractitioner Role = "practitioner"
	RoleReadOnly     Role = "read-only"
)

// User is a staff account authenticated by an external identity provider;
// this core never validates credentials, only consumes the resulting
// CallerContext (defined below in this file).
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ExternalID string   `json:"external_id" db:"external_id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserClinicAssociation links a User to a Clinic with clinic-specific roles
// and display name. Invariant: every clinic keeps at least one active
// association with RoleAdmin. Validate does not check it;
// UserClinicAssociationRepository.CountActiveAdmins supplies the count.
type UserClinicAssociation struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	ClinicID    uuid.UUID `json:"clinic_id" db:"clinic_id"`
	Roles       []Role    `json:"roles" db:"roles"`
	DisplayName string    `json:"display_name" db:"display_name"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// HasRole reports whether the association carries the given role.
func (a *UserClinicAssociation) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether this association grants admin permissions.
func (a *UserClinicAssociation) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// IsPractitioner reports whether this association grants practitioner
// permissions (may take appointments).
func (a *UserClinicAssociation) IsPractitioner() bool {
	return a.HasRole(RolePractitioner)
}

// Validate checks association invariants.
func (a *UserClinicAssociation) Validate() error {
	if len(a.Roles) == 0 {
		return ErrInvalidRoles
	}
	return nil
}

// ActorKind distinguishes a patient-originated request from a staff- or
// system-originated one; the Booking Policy Evaluator only runs for
// ActorPatient, and the Notification Engine's decision matrix keys off it.
type ActorKind string

const (
	ActorPatient      ActorKind = "patient"
	ActorClinicStaff  ActorKind = "clinic-staff"
	ActorCron         ActorKind = "cron"
)

// CallerContext is the authenticated caller identity this core receives from
// the (out-of-scope) auth layer: OAuth-based admin/staff login or
// LIFF-token patient login.
type CallerContext struct {
	ActorKind ActorKind
	ClinicID  uuid.UUID
	UserID    *uuid.UUID // set when ActorKind != ActorPatient
	PatientID *uuid.UUID // set when ActorKind == ActorPatient
	Roles     []Role
}

// HasRole reports whether the caller carries the given clinic role.
func (c *CallerContext) HasRole(role Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
