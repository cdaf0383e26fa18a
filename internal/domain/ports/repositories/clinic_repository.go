package repositories

import (
	"context"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
)

// ClinicRepository defines persistence operations for clinics.
type ClinicRepository interface {
	Create(ctx context.Context, clinic *entities.Clinic) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Clinic, error)
	GetByLiffAccessToken(ctx context.Context, token string) (*entities.Clinic, error)
	Update(ctx context.Context, clinic *entities.Clinic) error
	GetAll(ctx context.Context) ([]*entities.Clinic, error)
}
