package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
)

// ClinicPostgresRepository implements repositories.ClinicRepository.
// Grounded on the teacher's clinic_repository.go column layout, with the
// settings document stored as a single JSONB column (spec §3's
// ClinicSettings nests five independently-versioned sections).
type ClinicPostgresRepository struct {
	db *sql.DB
}

func NewClinicPostgresRepository(db *sql.DB) repositories.ClinicRepository {
	return &ClinicPostgresRepository{db: db}
}

func (r *ClinicPostgresRepository) Create(ctx context.Context, clinic *entities.Clinic) error {
	settingsJSON, err := json.Marshal(clinic.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal clinic settings: %w", err)
	}
	query := `
		INSERT INTO clinics (id, name, settings, liff_access_token, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = dbFrom(ctx, r.db).ExecContext(ctx, query,
		clinic.ID, clinic.Name, settingsJSON, clinic.LiffAccessToken, clinic.IsActive, clinic.CreatedAt, clinic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinic: %w", err)
	}
	return nil
}

// GetByID locks the row FOR UPDATE when called inside a transaction opened
// by UnitOfWork, per spec §5's "settings writes take FOR UPDATE on the
// clinic row" rule; the plain-db path (no active tx) does a normal read.
func (r *ClinicPostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Clinic, error) {
	q := dbFrom(ctx, r.db)
	forUpdate := ""
	if _, inTx := ctx.Value(txKey{}).(*sql.Tx); inTx {
		forUpdate = " FOR UPDATE"
	}
	query := `
		SELECT id, name, settings, liff_access_token, is_active, created_at, updated_at,
		       subscription_status, trial_ends_at, stripe_customer_id
		FROM clinics WHERE id = $1` + forUpdate
	return scanClinic(q.QueryRowContext(ctx, query, id))
}

func (r *ClinicPostgresRepository) GetByLiffAccessToken(ctx context.Context, token string) (*entities.Clinic, error) {
	query := `
		SELECT id, name, settings, liff_access_token, is_active, created_at, updated_at,
		       subscription_status, trial_ends_at, stripe_customer_id
		FROM clinics WHERE liff_access_token = $1`
	return scanClinic(dbFrom(ctx, r.db).QueryRowContext(ctx, query, token))
}

func (r *ClinicPostgresRepository) Update(ctx context.Context, clinic *entities.Clinic) error {
	settingsJSON, err := json.Marshal(clinic.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal clinic settings: %w", err)
	}
	query := `
		UPDATE clinics
		SET name = $2, settings = $3, liff_access_token = $4, is_active = $5, updated_at = $6
		WHERE id = $1`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		clinic.ID, clinic.Name, settingsJSON, clinic.LiffAccessToken, clinic.IsActive, clinic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update clinic: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrClinicNotFound
	}
	return nil
}

func (r *ClinicPostgresRepository) GetAll(ctx context.Context) ([]*entities.Clinic, error) {
	query := `
		SELECT id, name, settings, liff_access_token, is_active, created_at, updated_at,
		       subscription_status, trial_ends_at, stripe_customer_id
		FROM clinics ORDER BY name`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinics: %w", err)
	}
	defer rows.Close()

	var clinics []*entities.Clinic
	for rows.Next() {
		c, err := scanClinicRow(rows)
		if err != nil {
			return nil, err
		}
		clinics = append(clinics, c)
	}
	return clinics, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClinic(row rowScanner) (*entities.Clinic, error) {
	var c entities.Clinic
	var settingsJSON []byte
	err := row.Scan(
		&c.ID, &c.Name, &settingsJSON, &c.LiffAccessToken, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		&c.SubscriptionStatus, &c.TrialEndsAt, &c.StripeCustomerID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrClinicNotFound
		}
		return nil, fmt.Errorf("failed to scan clinic: %w", err)
	}
	if err := json.Unmarshal(settingsJSON, &c.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal clinic settings: %w", err)
	}
	return &c, nil
}

func scanClinicRow(rows *sql.Rows) (*entities.Clinic, error) {
	return scanClinic(rows)
}
