package repositories

import (
	"context"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
)

// BillingScenarioRepository defines persistence operations for the
// clinic-defined receipt line-item catalog.
type BillingScenarioRepository interface {
	GetByClinic(ctx context.Context, clinicID uuid.UUID, includeDeleted bool) ([]*entities.BillingScenario, error)

	// ReplaceAll performs the spec §4.6 diff-sync by id: rows present in
	// scenarios are created or updated in place, rows missing from
	// scenarios are soft-deleted, preserving ids so outstanding references
	// from historical receipts stay valid.
	ReplaceAll(ctx context.Context, clinicID uuid.UUID, scenarios []entities.BillingScenario) error
}

// FollowUpMessageRepository defines persistence operations for the
// post-appointment follow-up message catalog.
type FollowUpMessageRepository interface {
	GetByClinic(ctx context.Context, clinicID uuid.UUID, includeDeleted bool) ([]*entities.FollowUpMessage, error)
	ReplaceAll(ctx context.Context, clinicID uuid.UUID, messages []entities.FollowUpMessage) error
}

// SignupTokenRepository defines persistence operations for clinic-admin
// signup tokens.
type SignupTokenRepository interface {
	Create(ctx context.Context, token *entities.SignupToken) error
	GetByToken(ctx context.Context, token string) (*entities.SignupToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
}
