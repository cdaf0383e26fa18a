package repositories

import (
	"context"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
)

// UserRepository defines persistence operations for staff accounts.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*entities.User, error)
}

// UserClinicAssociationRepository defines persistence operations for the
// per-clinic roles a user holds.
type UserClinicAssociationRepository interface {
	Create(ctx context.Context, assoc *entities.UserClinicAssociation) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.UserClinicAssociation, error)
	GetByUserAndClinic(ctx context.Context, userID, clinicID uuid.UUID) (*entities.UserClinicAssociation, error)
	GetByClinic(ctx context.Context, clinicID uuid.UUID) ([]*entities.UserClinicAssociation, error)
	Update(ctx context.Context, assoc *entities.UserClinicAssociation) error

	// CountActiveAdmins counts active associations carrying RoleAdmin for a
	// clinic, used to enforce the last-admin-cannot-be-removed invariant.
	CountActiveAdmins(ctx context.Context, clinicID uuid.UUID) (int, error)
}
