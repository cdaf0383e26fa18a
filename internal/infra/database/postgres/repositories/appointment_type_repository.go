package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
)

// AppointmentTypePostgresRepository implements repositories.AppointmentTypeRepository.
// Each of the four MessageTemplate fields is stored as an (enabled, body)
// column pair rather than a JSON blob, following the teacher's explicit-
// column convention.
type AppointmentTypePostgresRepository struct {
	db *sql.DB
}

func NewAppointmentTypePostgresRepository(db *sql.DB) repositories.AppointmentTypeRepository {
	return &AppointmentTypePostgresRepository{db: db}
}

const appointmentTypeColumns = `
	id, clinic_id, name, duration_minutes, description,
	allow_new_patient_booking, allow_existing_patient_booking,
	allow_patient_practitioner_selection, allow_multiple_slot_selection,
	scheduling_buffer_minutes, service_type_group_id, display_order,
	patient_confirm_enabled, patient_confirm_body,
	clinic_confirm_enabled, clinic_confirm_body,
	reminder_enabled, reminder_body,
	recurrent_clinic_confirm_enabled, recurrent_clinic_confirm_body,
	notes_required, notes_instructions,
	deleted_at, created_at, updated_at`

func (r *AppointmentTypePostgresRepository) Create(ctx context.Context, at *entities.AppointmentType) error {
	query := `
		INSERT INTO appointment_types (` + appointmentTypeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		at.ID, at.ClinicID, at.Name, at.DurationMinutes, at.Description,
		at.AllowNewPatientBooking, at.AllowExistingPatientBooking,
		at.AllowPatientPractitionerSelect, at.AllowMultipleSlotSelection,
		at.SchedulingBufferMinutes, at.ServiceTypeGroupID, at.DisplayOrder,
		at.PatientConfirmTemplate.Enabled, at.PatientConfirmTemplate.Body,
		at.ClinicConfirmTemplate.Enabled, at.ClinicConfirmTemplate.Body,
		at.ReminderTemplate.Enabled, at.ReminderTemplate.Body,
		at.RecurrentClinicConfirmTemplate.Enabled, at.RecurrentClinicConfirmTemplate.Body,
		at.NotesRequired, at.NotesInstructions,
		at.DeletedAt, at.CreatedAt, at.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment type: %w", err)
	}
	return nil
}

// GetByID locks the row FOR UPDATE when called inside a transaction opened
// by UnitOfWork, so UpdateBundle holds the row while it checks and writes.
func (r *AppointmentTypePostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.AppointmentType, error) {
	forUpdate := ""
	if _, inTx := ctx.Value(txKey{}).(*sql.Tx); inTx {
		forUpdate = " FOR UPDATE"
	}
	query := `SELECT ` + appointmentTypeColumns + ` FROM appointment_types WHERE id = $1` + forUpdate
	return scanAppointmentType(dbFrom(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *AppointmentTypePostgresRepository) GetByClinic(ctx context.Context, clinicID uuid.UUID, includeDeleted bool) ([]*entities.AppointmentType, error) {
	query := `SELECT ` + appointmentTypeColumns + ` FROM appointment_types WHERE clinic_id = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY display_order, name`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointment types: %w", err)
	}
	defer rows.Close()

	var out []*entities.AppointmentType
	for rows.Next() {
		at, err := scanAppointmentType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

func (r *AppointmentTypePostgresRepository) GetActiveByName(ctx context.Context, clinicID uuid.UUID, name string) (*entities.AppointmentType, error) {
	query := `SELECT ` + appointmentTypeColumns + ` FROM appointment_types WHERE clinic_id = $1 AND deleted_at IS NULL AND name = $2`
	at, err := scanAppointmentType(dbFrom(ctx, r.db).QueryRowContext(ctx, query, clinicID, name))
	if err != nil {
		if err == entities.ErrAppointmentTypeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return at, nil
}

func (r *AppointmentTypePostgresRepository) Update(ctx context.Context, at *entities.AppointmentType) error {
	query := `
		UPDATE appointment_types SET
			name = $2, duration_minutes = $3, description = $4,
			allow_new_patient_booking = $5, allow_existing_patient_booking = $6,
			allow_patient_practitioner_selection = $7, allow_multiple_slot_selection = $8,
			scheduling_buffer_minutes = $9, service_type_group_id = $10, display_order = $11,
			patient_confirm_enabled = $12, patient_confirm_body = $13,
			clinic_confirm_enabled = $14, clinic_confirm_body = $15,
			reminder_enabled = $16, reminder_body = $17,
			recurrent_clinic_confirm_enabled = $18, recurrent_clinic_confirm_body = $19,
			notes_required = $20, notes_instructions = $21,
			deleted_at = $22, updated_at = $23
		WHERE id = $1`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		at.ID, at.Name, at.DurationMinutes, at.Description,
		at.AllowNewPatientBooking, at.AllowExistingPatientBooking,
		at.AllowPatientPractitionerSelect, at.AllowMultipleSlotSelection,
		at.SchedulingBufferMinutes, at.ServiceTypeGroupID, at.DisplayOrder,
		at.PatientConfirmTemplate.Enabled, at.PatientConfirmTemplate.Body,
		at.ClinicConfirmTemplate.Enabled, at.ClinicConfirmTemplate.Body,
		at.ReminderTemplate.Enabled, at.ReminderTemplate.Body,
		at.RecurrentClinicConfirmTemplate.Enabled, at.RecurrentClinicConfirmTemplate.Body,
		at.NotesRequired, at.NotesInstructions,
		at.DeletedAt, at.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment type: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrAppointmentTypeNotFound
	}
	return nil
}

func (r *AppointmentTypePostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE appointment_types SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete appointment type: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrAppointmentTypeNotFound
	}
	return nil
}

func scanAppointmentType(row rowScanner) (*entities.AppointmentType, error) {
	var at entities.AppointmentType
	err := row.Scan(
		&at.ID, &at.ClinicID, &at.Name, &at.DurationMinutes, &at.Description,
		&at.AllowNewPatientBooking, &at.AllowExistingPatientBooking,
		&at.AllowPatientPractitionerSelect, &at.AllowMultipleSlotSelection,
		&at.SchedulingBufferMinutes, &at.ServiceTypeGroupID, &at.DisplayOrder,
		&at.PatientConfirmTemplate.Enabled, &at.PatientConfirmTemplate.Body,
		&at.ClinicConfirmTemplate.Enabled, &at.ClinicConfirmTemplate.Body,
		&at.ReminderTemplate.Enabled, &at.ReminderTemplate.Body,
		&at.RecurrentClinicConfirmTemplate.Enabled, &at.RecurrentClinicConfirmTemplate.Body,
		&at.NotesRequired, &at.NotesInstructions,
		&at.DeletedAt, &at.CreatedAt, &at.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrAppointmentTypeNotFound
		}
		return nil, fmt.Errorf("failed to scan appointment type: %w", err)
	}
	return &at, nil
}

// PractitionerAppointmentTypePostgresRepository implements
// repositories.PractitionerAppointmentTypeRepository.
type PractitionerAppointmentTypePostgresRepository struct {
	db *sql.DB
}

func NewPractitionerAppointmentTypePostgresRepository(db *sql.DB) repositories.PractitionerAppointmentTypeRepository {
	return &PractitionerAppointmentTypePostgresRepository{db: db}
}

func (r *PractitionerAppointmentTypePostgresRepository) GetByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) ([]*entities.PractitionerAppointmentType, error) {
	query := `
		SELECT id, practitioner_id, appointment_type_id, deleted_at
		FROM practitioner_appointment_types
		WHERE appointment_type_id = $1 AND deleted_at IS NULL`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, appointmentTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list practitioner assignments: %w", err)
	}
	defer rows.Close()
	return scanPractitionerAppointmentTypes(rows)
}

func (r *PractitionerAppointmentTypePostgresRepository) GetByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*entities.PractitionerAppointmentType, error) {
	query := `
		SELECT id, practitioner_id, appointment_type_id, deleted_at
		FROM practitioner_appointment_types
		WHERE practitioner_id = $1 AND deleted_at IS NULL`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list practitioner services: %w", err)
	}
	defer rows.Close()
	return scanPractitionerAppointmentTypes(rows)
}

// ReplaceAll hard-syncs the assignment set: delete everything for the
// appointment type, then bulk-insert the new set, inside one transaction so
// a failure leaves the prior assignment set intact.
func (r *PractitionerAppointmentTypePostgresRepository) ReplaceAll(ctx context.Context, appointmentTypeID uuid.UUID, practitionerIDs []uuid.UUID) error {
	q := dbFrom(ctx, r.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM practitioner_appointment_types WHERE appointment_type_id = $1`, appointmentTypeID); err != nil {
		return fmt.Errorf("failed to clear practitioner assignments: %w", err)
	}
	for _, practitionerID := range practitionerIDs {
		_, err := q.ExecContext(ctx, `
			INSERT INTO practitioner_appointment_types (id, practitioner_id, appointment_type_id)
			VALUES ($1, $2, $3)`, uuid.New(), practitionerID, appointmentTypeID)
		if err != nil {
			return fmt.Errorf("failed to insert practitioner assignment: %w", err)
		}
	}
	return nil
}

func scanPractitionerAppointmentTypes(rows *sql.Rows) ([]*entities.PractitionerAppointmentType, error) {
	var out []*entities.PractitionerAppointmentType
	for rows.Next() {
		var p entities.PractitionerAppointmentType
		if err := rows.Scan(&p.ID, &p.PractitionerID, &p.AppointmentTypeID, &p.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan practitioner assignment: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
