package repositories

import (
	"context"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
)

// PatientFilters narrows a clinic's patient list by search term and
// soft-delete visibility.
type PatientFilters struct {
	Search         string
	IncludeDeleted bool
	Page           int
	Limit          int
}

// PatientRepository defines persistence operations for patients.
type PatientRepository interface {
	Create(ctx context.Context, patient *entities.Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Patient, error)

	// GetByIDs bulk-loads patients for calendar assembly, avoiding an N+1
	// lookup per appointment.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Patient, error)
	GetByClinic(ctx context.Context, clinicID uuid.UUID, filters PatientFilters) ([]*entities.Patient, int, error)
	GetByLineUserID(ctx context.Context, lineUserID uuid.UUID) ([]*entities.Patient, error)
	Update(ctx context.Context, patient *entities.Patient) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// HasConfirmedAppointment reports whether the patient has ever had an
	// appointment reach a confirmed/completed state, feeding
	// AppointmentType.AllowsPatient.
	HasConfirmedAppointment(ctx context.Context, patientID uuid.UUID) (bool, error)
}

// LineUserRepository defines persistence operations for messaging-platform
// identities.
type LineUserRepository interface {
	Create(ctx context.Context, lineUser *entities.LineUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.LineUser, error)
	GetByExternalUserID(ctx context.Context, clinicID uuid.UUID, externalUserID string) (*entities.LineUser, error)
	Update(ctx context.Context, lineUser *entities.LineUser) error
}
