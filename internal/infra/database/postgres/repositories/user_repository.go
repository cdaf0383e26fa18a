package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UserPostgresRepository implements repositories.UserRepository.
type UserPostgresRepository struct {
	db *sql.DB
}

func NewUserPostgresRepository(db *sql.DB) repositories.UserRepository {
	return &UserPostgresRepository{db: db}
}

func (r *UserPostgresRepository) Create(ctx context.Context, user *entities.User) error {
	query := `INSERT INTO users (id, external_id, email, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query, user.ID, user.ExternalID, user.Email, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserPostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	query := `SELECT id, external_id, email, created_at, updated_at FROM users WHERE id = $1`
	var u entities.User
	err := dbFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&u.ID, &u.ExternalID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *UserPostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*entities.User, error) {
	query := `SELECT id, external_id, email, created_at, updated_at FROM users WHERE external_id = $1`
	var u entities.User
	err := dbFrom(ctx, r.db).QueryRowContext(ctx, query, externalID).Scan(&u.ID, &u.ExternalID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by external id: %w", err)
	}
	return &u, nil
}

// UserClinicAssociationPostgresRepository implements
// repositories.UserClinicAssociationRepository.
type UserClinicAssociationPostgresRepository struct {
	db *sql.DB
}

func NewUserClinicAssociationPostgresRepository(db *sql.DB) repositories.UserClinicAssociationRepository {
	return &UserClinicAssociationPostgresRepository{db: db}
}

func (r *UserClinicAssociationPostgresRepository) Create(ctx context.Context, assoc *entities.UserClinicAssociation) error {
	query := `
		INSERT INTO user_clinic_associations (id, user_id, clinic_id, roles, display_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		assoc.ID, assoc.UserID, assoc.ClinicID, rolesToArray(assoc.Roles), assoc.DisplayName, assoc.IsActive, assoc.CreatedAt, assoc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user clinic association: %w", err)
	}
	return nil
}

func (r *UserClinicAssociationPostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.UserClinicAssociation, error) {
	query := `
		SELECT id, user_id, clinic_id, roles, display_name, is_active, created_at, updated_at
		FROM user_clinic_associations WHERE id = $1`
	return scanAssociation(dbFrom(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *UserClinicAssociationPostgresRepository) GetByUserAndClinic(ctx context.Context, userID, clinicID uuid.UUID) (*entities.UserClinicAssociation, error) {
	query := `
		SELECT id, user_id, clinic_id, roles, display_name, is_active, created_at, updated_at
		FROM user_clinic_associations WHERE user_id = $1 AND clinic_id = $2`
	return scanAssociation(dbFrom(ctx, r.db).QueryRowContext(ctx, query, userID, clinicID))
}

func (r *UserClinicAssociationPostgresRepository) GetByClinic(ctx context.Context, clinicID uuid.UUID) ([]*entities.UserClinicAssociation, error) {
	query := `
		SELECT id, user_id, clinic_id, roles, display_name, is_active, created_at, updated_at
		FROM user_clinic_associations WHERE clinic_id = $1 ORDER BY display_name`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user clinic associations: %w", err)
	}
	defer rows.Close()

	var out []*entities.UserClinicAssociation
	for rows.Next() {
		a, err := scanAssociation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *UserClinicAssociationPostgresRepository) Update(ctx context.Context, assoc *entities.UserClinicAssociation) error {
	query := `
		UPDATE user_clinic_associations
		SET roles = $2, display_name = $3, is_active = $4, updated_at = $5
		WHERE id = $1`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		assoc.ID, rolesToArray(assoc.Roles), assoc.DisplayName, assoc.IsActive, assoc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user clinic association: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrUserClinicAssociationNotFound
	}
	return nil
}

func (r *UserClinicAssociationPostgresRepository) CountActiveAdmins(ctx context.Context, clinicID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM user_clinic_associations
		WHERE clinic_id = $1 AND is_active = true AND roles @> ARRAY['admin']::text[]`
	var count int
	if err := dbFrom(ctx, r.db).QueryRowContext(ctx, query, clinicID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active admins: %w", err)
	}
	return count, nil
}

func rolesToArray(roles []entities.Role) pq.StringArray {
	out := make(pq.StringArray, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func scanAssociation(row rowScanner) (*entities.UserClinicAssociation, error) {
	var a entities.UserClinicAssociation
	var roles pq.StringArray
	err := row.Scan(&a.ID, &a.UserID, &a.ClinicID, &roles, &a.DisplayName, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrUserClinicAssociationNotFound
		}
		return nil, fmt.Errorf("failed to scan user clinic association: %w", err)
	}
	a.Roles = make([]entities.Role, len(roles))
	for i, r := range roles {
		a.Roles[i] = entities.Role(r)
	}
	return &a, nil
}
