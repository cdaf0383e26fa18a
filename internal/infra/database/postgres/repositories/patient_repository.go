package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PatientPostgresRepository implements repositories.PatientRepository.
type PatientPostgresRepository struct {
	db *sql.DB
}

func NewPatientPostgresRepository(db *sql.DB) repositories.PatientRepository {
	return &PatientPostgresRepository{db: db}
}

func (r *PatientPostgresRepository) Create(ctx context.Context, patient *entities.Patient) error {
	query := `
		INSERT INTO patients (id, clinic_id, line_user_id, name, phone, birthday, gender, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		patient.ID, patient.ClinicID, patient.LineUserID, patient.Name, patient.Phone, patient.Birthday, patient.Gender,
		patient.CreatedAt, patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *PatientPostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Patient, error) {
	query := `
		SELECT id, clinic_id, line_user_id, name, phone, birthday, gender, deleted_at, created_at, updated_at
		FROM patients WHERE id = $1`
	return scanPatient(dbFrom(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *PatientPostgresRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Patient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, clinic_id, line_user_id, name, phone, birthday, gender, deleted_at, created_at, updated_at
		FROM patients WHERE id = ANY($1)`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to bulk load patients: %w", err)
	}
	defer rows.Close()

	var out []*entities.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PatientPostgresRepository) GetByClinic(ctx context.Context, clinicID uuid.UUID, filters repositories.PatientFilters) ([]*entities.Patient, int, error) {
	var conditions []string
	var args []interface{}
	args = append(args, clinicID)
	conditions = append(conditions, "clinic_id = $1")

	if !filters.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	countQuery := "SELECT COUNT(*) FROM patients WHERE " + where
	var total int
	if err := dbFrom(ctx, r.db).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	limit, offset := pagination(filters.Page, filters.Limit)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, clinic_id, line_user_id, name, phone, birthday, gender, deleted_at, created_at, updated_at
		FROM patients WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var out []*entities.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *PatientPostgresRepository) GetByLineUserID(ctx context.Context, lineUserID uuid.UUID) ([]*entities.Patient, error) {
	query := `
		SELECT id, clinic_id, line_user_id, name, phone, birthday, gender, deleted_at, created_at, updated_at
		FROM patients WHERE line_user_id = $1 AND deleted_at IS NULL ORDER BY name`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, lineUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients by line user: %w", err)
	}
	defer rows.Close()

	var out []*entities.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PatientPostgresRepository) Update(ctx context.Context, patient *entities.Patient) error {
	query := `
		UPDATE patients
		SET line_user_id = $2, name = $3, phone = $4, birthday = $5, gender = $6, updated_at = $7
		WHERE id = $1`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		patient.ID, patient.LineUserID, patient.Name, patient.Phone, patient.Birthday, patient.Gender, patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrPatientNotFound
	}
	return nil
}

func (r *PatientPostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE patients SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete patient: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrPatientNotFound
	}
	return nil
}

func (r *PatientPostgresRepository) HasConfirmedAppointment(ctx context.Context, patientID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM appointments WHERE patient_id = $1 AND status = 'confirmed')`
	var exists bool
	if err := dbFrom(ctx, r.db).QueryRowContext(ctx, query, patientID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check confirmed appointment history: %w", err)
	}
	return exists, nil
}

func scanPatient(row rowScanner) (*entities.Patient, error) {
	var p entities.Patient
	err := row.Scan(
		&p.ID, &p.ClinicID, &p.LineUserID, &p.Name, &p.Phone, &p.Birthday, &p.Gender, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}
	return &p, nil
}

// pagination converts 1-indexed page/limit filters into SQL LIMIT/OFFSET,
// defaulting to a page size of 20 when unset.
func pagination(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// LineUserPostgresRepository implements repositories.LineUserRepository.
type LineUserPostgresRepository struct {
	db *sql.DB
}

func NewLineUserPostgresRepository(db *sql.DB) repositories.LineUserRepository {
	return &LineUserPostgresRepository{db: db}
}

func (r *LineUserPostgresRepository) Create(ctx context.Context, lineUser *entities.LineUser) error {
	query := `
		INSERT INTO line_users (id, clinic_id, external_user_id, display_name, display_name_override,
		                         ai_disabled, ai_disabled_by_user_id, ai_disabled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		lineUser.ID, lineUser.ClinicID, lineUser.ExternalUserID, lineUser.DisplayName, lineUser.DisplayNameOverride,
		lineUser.AIDisabled, lineUser.AIDisabledByUserID, lineUser.AIDisabledAt, lineUser.CreatedAt, lineUser.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create line user: %w", err)
	}
	return nil
}

func (r *LineUserPostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.LineUser, error) {
	query := `
		SELECT id, clinic_id, external_user_id, display_name, display_name_override,
		       ai_disabled, ai_disabled_by_user_id, ai_disabled_at, created_at, updated_at
		FROM line_users WHERE id = $1`
	return scanLineUser(dbFrom(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *LineUserPostgresRepository) GetByExternalUserID(ctx context.Context, clinicID uuid.UUID, externalUserID string) (*entities.LineUser, error) {
	query := `
		SELECT id, clinic_id, external_user_id, display_name, display_name_override,
		       ai_disabled, ai_disabled_by_user_id, ai_disabled_at, created_at, updated_at
		FROM line_users WHERE clinic_id = $1 AND external_user_id = $2`
	return scanLineUser(dbFrom(ctx, r.db).QueryRowContext(ctx, query, clinicID, externalUserID))
}

func (r *LineUserPostgresRepository) Update(ctx context.Context, lineUser *entities.LineUser) error {
	query := `
		UPDATE line_users
		SET display_name = $2, display_name_override = $3, ai_disabled = $4,
		    ai_disabled_by_user_id = $5, ai_disabled_at = $6, updated_at = $7
		WHERE id = $1`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		lineUser.ID, lineUser.DisplayName, lineUser.DisplayNameOverride, lineUser.AIDisabled,
		lineUser.AIDisabledByUserID, lineUser.AIDisabledAt, lineUser.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update line user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrLineUserNotFound
	}
	return nil
}

func scanLineUser(row rowScanner) (*entities.LineUser, error) {
	var l entities.LineUser
	err := row.Scan(
		&l.ID, &l.ClinicID, &l.ExternalUserID, &l.DisplayName, &l.DisplayNameOverride,
		&l.AIDisabled, &l.AIDisabledByUserID, &l.AIDisabledAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrLineUserNotFound
		}
		return nil, fmt.Errorf("failed to scan line user: %w", err)
	}
	return &l, nil
}
