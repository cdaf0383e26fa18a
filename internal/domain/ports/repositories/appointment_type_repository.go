package repositories

import (
	"context"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
)

// AppointmentTypeRepository defines persistence operations for the service
// catalog.
type AppointmentTypeRepository interface {
	Create(ctx context.Context, at *entities.AppointmentType) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.AppointmentType, error)
	GetByClinic(ctx context.Context, clinicID uuid.UUID, includeDeleted bool) ([]*entities.AppointmentType, error)

	// GetActiveByName looks up a non-deleted appointment type by exact name,
	// used to enforce the name-uniqueness-among-active-rows invariant.
	GetActiveByName(ctx context.Context, clinicID uuid.UUID, name string) (*entities.AppointmentType, error)

	Update(ctx context.Context, at *entities.AppointmentType) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// PractitionerAppointmentTypeRepository defines persistence operations for
// practitioner-to-service assignments, which are hard-synced (replace-all)
// on every catalog update.
type PractitionerAppointmentTypeRepository interface {
	GetByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) ([]*entities.PractitionerAppointmentType, error)
	GetByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*entities.PractitionerAppointmentType, error)

	// ReplaceAll atomically overwrites the full practitioner assignment set
	// for an appointment type (spec §4.6 hard-sync rule).
	ReplaceAll(ctx context.Context, appointmentTypeID uuid.UUID, practitionerIDs []uuid.UUID) error
}
