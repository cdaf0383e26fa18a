package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
)

// BillingScenarioPostgresRepository implements repositories.BillingScenarioRepository.
type BillingScenarioPostgresRepository struct {
	db *sql.DB
}

func NewBillingScenarioPostgresRepository(db *sql.DB) repositories.BillingScenarioRepository {
	return &BillingScenarioPostgresRepository{db: db}
}

const billingScenarioColumns = `id, clinic_id, name, price_cents, insurance_code, display_order, deleted_at, created_at, updated_at`

func (r *BillingScenarioPostgresRepository) GetByClinic(ctx context.Context, clinicID uuid.UUID, includeDeleted bool) ([]*entities.BillingScenario, error) {
	query := `SELECT ` + billingScenarioColumns + ` FROM billing_scenarios WHERE clinic_id = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY display_order, name`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list billing scenarios: %w", err)
	}
	defer rows.Close()

	var out []*entities.BillingScenario
	for rows.Next() {
		var b entities.BillingScenario
		if err := rows.Scan(&b.ID, &b.ClinicID, &b.Name, &b.Price, &b.InsuranceCode, &b.DisplayOrder, &b.DeletedAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan billing scenario: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// ReplaceAll diff-syncs by id: rows present in scenarios are upserted,
// clinic rows whose id is absent from scenarios are soft-deleted. Ids are
// never reused for a different row, so historical receipts referencing a
// soft-deleted scenario keep resolving.
func (r *BillingScenarioPostgresRepository) ReplaceAll(ctx context.Context, clinicID uuid.UUID, scenarios []entities.BillingScenario) error {
	q := dbFrom(ctx, r.db)

	keep := make([]uuid.UUID, 0, len(scenarios))
	for i := range scenarios {
		s := &scenarios[i]
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		keep = append(keep, s.ID)
		query := `
			INSERT INTO billing_scenarios (` + billingScenarioColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, price_cents = EXCLUDED.price_cents,
				insurance_code = EXCLUDED.insurance_code, display_order = EXCLUDED.display_order,
				deleted_at = NULL, updated_at = EXCLUDED.updated_at`
		_, err := q.ExecContext(ctx, query,
			s.ID, clinicID, s.Name, s.Price, s.InsuranceCode, s.DisplayOrder, s.DeletedAt, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert billing scenario: %w", err)
		}
	}

	deleteQuery := `UPDATE billing_scenarios SET deleted_at = now(), updated_at = now() WHERE clinic_id = $1 AND deleted_at IS NULL`
	args := []interface{}{clinicID}
	if len(keep) > 0 {
		deleteQuery += ` AND NOT (id = ANY($2))`
		args = append(args, pqUUIDArray(keep))
	}
	if _, err := q.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("failed to evict stale billing scenarios: %w", err)
	}
	return nil
}

// FollowUpMessagePostgresRepository implements repositories.FollowUpMessageRepository.
type FollowUpMessagePostgresRepository struct {
	db *sql.DB
}

func NewFollowUpMessagePostgresRepository(db *sql.DB) repositories.FollowUpMessageRepository {
	return &FollowUpMessagePostgresRepository{db: db}
}

const followUpMessageColumns = `id, clinic_id, name, body, days_after, enabled, display_order, deleted_at, created_at, updated_at`

func (r *FollowUpMessagePostgresRepository) GetByClinic(ctx context.Context, clinicID uuid.UUID, includeDeleted bool) ([]*entities.FollowUpMessage, error) {
	query := `SELECT ` + followUpMessageColumns + ` FROM follow_up_messages WHERE clinic_id = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY display_order, name`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-up messages: %w", err)
	}
	defer rows.Close()

	var out []*entities.FollowUpMessage
	for rows.Next() {
		var f entities.FollowUpMessage
		if err := rows.Scan(&f.ID, &f.ClinicID, &f.Name, &f.Body, &f.DaysAfter, &f.Enabled, &f.DisplayOrder, &f.DeletedAt, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up message: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *FollowUpMessagePostgresRepository) ReplaceAll(ctx context.Context, clinicID uuid.UUID, messages []entities.FollowUpMessage) error {
	q := dbFrom(ctx, r.db)

	keep := make([]uuid.UUID, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		keep = append(keep, m.ID)
		query := `
			INSERT INTO follow_up_messages (` + followUpMessageColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, body = EXCLUDED.body, days_after = EXCLUDED.days_after,
				enabled = EXCLUDED.enabled, display_order = EXCLUDED.display_order,
				deleted_at = NULL, updated_at = EXCLUDED.updated_at`
		_, err := q.ExecContext(ctx, query,
			m.ID, clinicID, m.Name, m.Body, m.DaysAfter, m.Enabled, m.DisplayOrder, m.DeletedAt, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert follow-up message: %w", err)
		}
	}

	deleteQuery := `UPDATE follow_up_messages SET deleted_at = now(), updated_at = now() WHERE clinic_id = $1 AND deleted_at IS NULL`
	args := []interface{}{clinicID}
	if len(keep) > 0 {
		deleteQuery += ` AND NOT (id = ANY($2))`
		args = append(args, pqUUIDArray(keep))
	}
	if _, err := q.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("failed to evict stale follow-up messages: %w", err)
	}
	return nil
}

// SignupTokenPostgresRepository implements repositories.SignupTokenRepository.
type SignupTokenPostgresRepository struct {
	db *sql.DB
}

func NewSignupTokenPostgresRepository(db *sql.DB) repositories.SignupTokenRepository {
	return &SignupTokenPostgresRepository{db: db}
}

func (r *SignupTokenPostgresRepository) Create(ctx context.Context, token *entities.SignupToken) error {
	query := `
		INSERT INTO signup_tokens (id, token, clinic_id, email, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		token.ID, token.Token, token.ClinicID, token.Email, token.ExpiresAt, token.UsedAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create signup token: %w", err)
	}
	return nil
}

func (r *SignupTokenPostgresRepository) GetByToken(ctx context.Context, token string) (*entities.SignupToken, error) {
	query := `
		SELECT id, token, clinic_id, email, expires_at, used_at, created_at
		FROM signup_tokens WHERE token = $1`
	var s entities.SignupToken
	err := dbFrom(ctx, r.db).QueryRowContext(ctx, query, token).Scan(
		&s.ID, &s.Token, &s.ClinicID, &s.Email, &s.ExpiresAt, &s.UsedAt, &s.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrSignupTokenNotFound
		}
		return nil, fmt.Errorf("failed to get signup token: %w", err)
	}
	return &s, nil
}

func (r *SignupTokenPostgresRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE signup_tokens SET used_at = now() WHERE id = $1 AND used_at IS NULL`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark signup token used: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrSignupTokenUsed
	}
	return nil
}
