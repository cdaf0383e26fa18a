package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CalendarEventPostgresRepository implements repositories.CalendarEventRepository.
type CalendarEventPostgresRepository struct {
	db *sql.DB
}

func NewCalendarEventPostgresRepository(db *sql.DB) repositories.CalendarEventRepository {
	return &CalendarEventPostgresRepository{db: db}
}

const calendarEventColumns = `
	id, clinic_id, practitioner_id, kind, date, start_time, end_time, all_day,
	display_name, appointment_id, availability_exception_id, created_at, updated_at`

func (r *CalendarEventPostgresRepository) Create(ctx context.Context, event *entities.CalendarEvent) error {
	query := `INSERT INTO calendar_events (` + calendarEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		event.ID, event.ClinicID, event.PractitionerID, event.Kind, event.Date, event.Start, event.End, event.AllDay,
		event.DisplayName, event.AppointmentID, event.AvailabilityExceptionID, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create calendar event: %w", err)
	}
	return nil
}

func (r *CalendarEventPostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.CalendarEvent, error) {
	query := `SELECT ` + calendarEventColumns + ` FROM calendar_events WHERE id = $1`
	return scanCalendarEvent(dbFrom(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *CalendarEventPostgresRepository) Update(ctx context.Context, event *entities.CalendarEvent) error {
	query := `
		UPDATE calendar_events
		SET practitioner_id = $2, kind = $3, date = $4, start_time = $5, end_time = $6, all_day = $7,
		    display_name = $8, appointment_id = $9, availability_exception_id = $10, updated_at = $11
		WHERE id = $1`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		event.ID, event.PractitionerID, event.Kind, event.Date, event.Start, event.End, event.AllDay,
		event.DisplayName, event.AppointmentID, event.AvailabilityExceptionID, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update calendar event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrCalendarEventNotFound
	}
	return nil
}

func (r *CalendarEventPostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, `DELETE FROM calendar_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrCalendarEventNotFound
	}
	return nil
}

// GetByPractitionerAndRange locks the returned rows FOR UPDATE when
// forUpdate is set, so the caller's transaction holds them for the
// duration of a conflict-check-then-write sequence (spec §5).
func (r *CalendarEventPostgresRepository) GetByPractitionerAndRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time, forUpdate bool) ([]*entities.CalendarEvent, error) {
	query := `SELECT ` + calendarEventColumns + `
		FROM calendar_events
		WHERE practitioner_id = $1 AND start_time < $3 AND end_time > $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, practitionerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list practitioner calendar events: %w", err)
	}
	defer rows.Close()
	return scanCalendarEvents(rows)
}

func (r *CalendarEventPostgresRepository) GetByClinicAndRange(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*entities.CalendarEvent, error) {
	query := `SELECT ` + calendarEventColumns + `
		FROM calendar_events
		WHERE clinic_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, clinicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinic calendar events: %w", err)
	}
	defer rows.Close()
	return scanCalendarEvents(rows)
}

func scanCalendarEvent(row rowScanner) (*entities.CalendarEvent, error) {
	var e entities.CalendarEvent
	err := row.Scan(
		&e.ID, &e.ClinicID, &e.PractitionerID, &e.Kind, &e.Date, &e.Start, &e.End, &e.AllDay,
		&e.DisplayName, &e.AppointmentID, &e.AvailabilityExceptionID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrCalendarEventNotFound
		}
		return nil, fmt.Errorf("failed to scan calendar event: %w", err)
	}
	return &e, nil
}

func scanCalendarEvents(rows *sql.Rows) ([]*entities.CalendarEvent, error) {
	var out []*entities.CalendarEvent
	for rows.Next() {
		e, err := scanCalendarEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppointmentPostgresRepository implements repositories.AppointmentRepository.
// AlternativeTimeSlots is stored as a JSONB column since it's a small,
// always-whole-read-and-write slice, not a queryable relation.
type AppointmentPostgresRepository struct {
	db *sql.DB
}

func NewAppointmentPostgresRepository(db *sql.DB) repositories.AppointmentRepository {
	return &AppointmentPostgresRepository{db: db}
}

const appointmentColumns = `
	id, clinic_id, calendar_event_id, patient_id, practitioner_id, appointment_type_id,
	status, notes, clinic_notes, is_auto_assigned, originally_auto_assigned,
	pending_time_confirmation, alternative_time_slots,
	cancellation_reason, cancelled_at, cancelled_by_user_id, reassigned_by_user_id,
	created_at, updated_at`

func (r *AppointmentPostgresRepository) Create(ctx context.Context, appt *entities.Appointment) error {
	slotsJSON, err := marshalSlots(appt.AlternativeTimeSlots)
	if err != nil {
		return err
	}
	query := `INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err = dbFrom(ctx, r.db).ExecContext(ctx, query,
		appt.ID, appt.ClinicID, appt.CalendarEventID, appt.PatientID, appt.PractitionerID, appt.AppointmentTypeID,
		appt.Status, appt.Notes, appt.ClinicNotes, appt.IsAutoAssigned, appt.OriginallyAutoAssigned,
		appt.PendingTimeConfirmation, slotsJSON,
		appt.CancellationReason, appt.CancelledAt, appt.CancelledByUserID, appt.ReassignedByUserID,
		appt.CreatedAt, appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *AppointmentPostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return scanAppointment(dbFrom(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *AppointmentPostgresRepository) GetByCalendarEventID(ctx context.Context, calendarEventID uuid.UUID) (*entities.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE calendar_event_id = $1`
	return scanAppointment(dbFrom(ctx, r.db).QueryRowContext(ctx, query, calendarEventID))
}

func (r *AppointmentPostgresRepository) GetByCalendarEventIDs(ctx context.Context, calendarEventIDs []uuid.UUID) ([]*entities.Appointment, error) {
	if len(calendarEventIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE calendar_event_id = ANY($1)`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, pq.Array(calendarEventIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to bulk load appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *AppointmentPostgresRepository) GetByPatient(ctx context.Context, patientID uuid.UUID, includeCancelled bool) ([]*entities.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE patient_id = $1`
	if !includeCancelled {
		query += ` AND status NOT IN ('canceled_by_patient', 'canceled_by_clinic')`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *AppointmentPostgresRepository) Update(ctx context.Context, appt *entities.Appointment) error {
	slotsJSON, err := marshalSlots(appt.AlternativeTimeSlots)
	if err != nil {
		return err
	}
	query := `
		UPDATE appointments SET
			patient_id = $2, practitioner_id = $3, appointment_type_id = $4,
			status = $5, notes = $6, clinic_notes = $7,
			is_auto_assigned = $8, originally_auto_assigned = $9,
			pending_time_confirmation = $10, alternative_time_slots = $11,
			cancellation_reason = $12, cancelled_at = $13, cancelled_by_user_id = $14,
			reassigned_by_user_id = $15, updated_at = $16
		WHERE id = $1`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		appt.ID, appt.PatientID, appt.PractitionerID, appt.AppointmentTypeID,
		appt.Status, appt.Notes, appt.ClinicNotes,
		appt.IsAutoAssigned, appt.OriginallyAutoAssigned,
		appt.PendingTimeConfirmation, slotsJSON,
		appt.CancellationReason, appt.CancelledAt, appt.CancelledByUserID,
		appt.ReassignedByUserID, appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentPostgresRepository) CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments a
		JOIN calendar_events ce ON ce.id = a.calendar_event_id
		WHERE a.patient_id = $1 AND a.status = 'confirmed' AND ce.start_time > now()`
	var count int
	if err := dbFrom(ctx, r.db).QueryRowContext(ctx, query, patientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active patient appointments: %w", err)
	}
	return count, nil
}

func (r *AppointmentPostgresRepository) CountFutureByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments a
		JOIN calendar_events ce ON ce.id = a.calendar_event_id
		WHERE a.appointment_type_id = $1 AND a.status = 'confirmed' AND ce.start_time > now()`
	var count int
	if err := dbFrom(ctx, r.db).QueryRowContext(ctx, query, appointmentTypeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count future appointments by type: %w", err)
	}
	return count, nil
}

// GetPendingReveal applies the clinic's configured lead-time formula to
// compute each row's reveal boundary in SQL, rather than pulling every
// auto-assigned appointment into Go to filter — the clinic can have a large
// confirmed backlog and the scheduler runs on a short tick.
func (r *AppointmentPostgresRepository) GetPendingReveal(ctx context.Context, clinicID uuid.UUID, settings entities.BookingRestrictionSettings, now time.Time, limit int) ([]*entities.Appointment, error) {
	var query string
	var args []interface{}
	switch settings.BookingRestrictionType {
	case entities.BookingRestrictionDeadlineDayBefore:
		query = `SELECT ` + appointmentColumns + `
			FROM appointments a
			JOIN calendar_events ce ON ce.id = a.calendar_event_id
			WHERE a.clinic_id = $1 AND a.status = 'confirmed' AND a.is_auto_assigned = true
			  AND (ce.date - interval '1 day' + $2::time) <= $3
			ORDER BY ce.start_time
			LIMIT $4`
		args = []interface{}{clinicID, settings.DeadlineTimeDayBefore, now, limit}
	default:
		query = `SELECT ` + appointmentColumns + `
			FROM appointments a
			JOIN calendar_events ce ON ce.id = a.calendar_event_id
			WHERE a.clinic_id = $1 AND a.status = 'confirmed' AND a.is_auto_assigned = true
			  AND ce.start_time <= $2 + make_interval(hours => $3)
			ORDER BY ce.start_time
			LIMIT $4`
		args = []interface{}{clinicID, now, settings.MinimumBookingHoursAhead, limit}
	}

	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending-reveal appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *AppointmentPostgresRepository) MarkRevealed(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	query := `UPDATE appointments SET is_auto_assigned = false, updated_at = now() WHERE id = $1 AND is_auto_assigned = true`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query, appointmentID)
	if err != nil {
		return false, fmt.Errorf("failed to mark appointment revealed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func marshalSlots(slots []entities.TimeSlot) ([]byte, error) {
	b, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alternative time slots: %w", err)
	}
	return b, nil
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	var a entities.Appointment
	var slotsJSON []byte
	err := row.Scan(
		&a.ID, &a.ClinicID, &a.CalendarEventID, &a.PatientID, &a.PractitionerID, &a.AppointmentTypeID,
		&a.Status, &a.Notes, &a.ClinicNotes, &a.IsAutoAssigned, &a.OriginallyAutoAssigned,
		&a.PendingTimeConfirmation, &slotsJSON,
		&a.CancellationReason, &a.CancelledAt, &a.CancelledByUserID, &a.ReassignedByUserID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to scan appointment: %w", err)
	}
	if len(slotsJSON) > 0 {
		if err := json.Unmarshal(slotsJSON, &a.AlternativeTimeSlots); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alternative time slots: %w", err)
		}
	}
	return &a, nil
}

func scanAppointments(rows *sql.Rows) ([]*entities.Appointment, error) {
	var out []*entities.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PractitionerAvailabilityPostgresRepository implements
// repositories.PractitionerAvailabilityRepository.
type PractitionerAvailabilityPostgresRepository struct {
	db *sql.DB
}

func NewPractitionerAvailabilityPostgresRepository(db *sql.DB) repositories.PractitionerAvailabilityRepository {
	return &PractitionerAvailabilityPostgresRepository{db: db}
}

func (r *PractitionerAvailabilityPostgresRepository) Create(ctx context.Context, a *entities.PractitionerAvailability) error {
	query := `
		INSERT INTO practitioner_availabilities (id, clinic_id, practitioner_id, weekday, start_time, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query,
		a.ID, a.ClinicID, a.PractitionerID, a.Weekday, a.StartTime, a.EndTime, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create practitioner availability: %w", err)
	}
	return nil
}

func (r *PractitionerAvailabilityPostgresRepository) GetByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*entities.PractitionerAvailability, error) {
	query := `
		SELECT id, clinic_id, practitioner_id, weekday, start_time, end_time, deleted_at, created_at, updated_at
		FROM practitioner_availabilities WHERE practitioner_id = $1 AND deleted_at IS NULL ORDER BY weekday, start_time`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list practitioner availability: %w", err)
	}
	defer rows.Close()

	var out []*entities.PractitionerAvailability
	for rows.Next() {
		var a entities.PractitionerAvailability
		if err := rows.Scan(&a.ID, &a.ClinicID, &a.PractitionerID, &a.Weekday, &a.StartTime, &a.EndTime, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan practitioner availability: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *PractitionerAvailabilityPostgresRepository) Update(ctx context.Context, a *entities.PractitionerAvailability) error {
	query := `
		UPDATE practitioner_availabilities SET weekday = $2, start_time = $3, end_time = $4, updated_at = $5
		WHERE id = $1`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query, a.ID, a.Weekday, a.StartTime, a.EndTime, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update practitioner availability: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrAvailabilityNotFound
	}
	return nil
}

func (r *PractitionerAvailabilityPostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE practitioner_availabilities SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete practitioner availability: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrAvailabilityNotFound
	}
	return nil
}

// AvailabilityExceptionPostgresRepository implements
// repositories.AvailabilityExceptionRepository.
type AvailabilityExceptionPostgresRepository struct {
	db *sql.DB
}

func NewAvailabilityExceptionPostgresRepository(db *sql.DB) repositories.AvailabilityExceptionRepository {
	return &AvailabilityExceptionPostgresRepository{db: db}
}

func (r *AvailabilityExceptionPostgresRepository) Create(ctx context.Context, e *entities.AvailabilityException) error {
	query := `
		INSERT INTO availability_exceptions (id, clinic_id, practitioner_id, calendar_event_id, blocking, reason)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query, e.ID, e.ClinicID, e.PractitionerID, e.CalendarEventID, e.Blocking, e.Reason)
	if err != nil {
		return fmt.Errorf("failed to create availability exception: %w", err)
	}
	return nil
}

func (r *AvailabilityExceptionPostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.AvailabilityException, error) {
	query := `SELECT id, clinic_id, practitioner_id, calendar_event_id, blocking, reason FROM availability_exceptions WHERE id = $1`
	var e entities.AvailabilityException
	err := dbFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&e.ID, &e.ClinicID, &e.PractitionerID, &e.CalendarEventID, &e.Blocking, &e.Reason)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrAvailabilityExceptionNotFound
		}
		return nil, fmt.Errorf("failed to get availability exception: %w", err)
	}
	return &e, nil
}

func (r *AvailabilityExceptionPostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, `DELETE FROM availability_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability exception: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrAvailabilityExceptionNotFound
	}
	return nil
}
