package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ResourceTypePostgresRepository implements repositories.ResourceTypeRepository.
type ResourceTypePostgresRepository struct {
	db *sql.DB
}

func NewResourceTypePostgresRepository(db *sql.DB) repositories.ResourceTypeRepository {
	return &ResourceTypePostgresRepository{db: db}
}

func (r *ResourceTypePostgresRepository) Create(ctx context.Context, rt *entities.ResourceType) error {
	query := `INSERT INTO resource_types (id, clinic_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query, rt.ID, rt.ClinicID, rt.Name, rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create resource type: %w", err)
	}
	return nil
}

func (r *ResourceTypePostgresRepository) GetByClinic(ctx context.Context, clinicID uuid.UUID) ([]*entities.ResourceType, error) {
	query := `
		SELECT id, clinic_id, name, deleted_at, created_at, updated_at
		FROM resource_types WHERE clinic_id = $1 AND deleted_at IS NULL ORDER BY name`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resource types: %w", err)
	}
	defer rows.Close()

	var out []*entities.ResourceType
	for rows.Next() {
		var rt entities.ResourceType
		if err := rows.Scan(&rt.ID, &rt.ClinicID, &rt.Name, &rt.DeletedAt, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource type: %w", err)
		}
		out = append(out, &rt)
	}
	return out, rows.Err()
}

func (r *ResourceTypePostgresRepository) Update(ctx context.Context, rt *entities.ResourceType) error {
	query := `UPDATE resource_types SET name = $2, updated_at = $3 WHERE id = $1`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query, rt.ID, rt.Name, rt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update resource type: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrResourceTypeNotFound
	}
	return nil
}

func (r *ResourceTypePostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE resource_types SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete resource type: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrResourceTypeNotFound
	}
	return nil
}

// ResourcePostgresRepository implements repositories.ResourceRepository.
type ResourcePostgresRepository struct {
	db *sql.DB
}

func NewResourcePostgresRepository(db *sql.DB) repositories.ResourceRepository {
	return &ResourcePostgresRepository{db: db}
}

func (r *ResourcePostgresRepository) Create(ctx context.Context, res *entities.Resource) error {
	query := `
		INSERT INTO resources (id, clinic_id, resource_type_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query, res.ID, res.ClinicID, res.ResourceTypeID, res.Name, res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

func (r *ResourcePostgresRepository) GetByResourceType(ctx context.Context, resourceTypeID uuid.UUID) ([]*entities.Resource, error) {
	query := `
		SELECT id, clinic_id, resource_type_id, name, deleted_at, created_at, updated_at
		FROM resources WHERE resource_type_id = $1 AND deleted_at IS NULL ORDER BY name`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, resourceTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var out []*entities.Resource
	for rows.Next() {
		var res entities.Resource
		if err := rows.Scan(&res.ID, &res.ClinicID, &res.ResourceTypeID, &res.Name, &res.DeletedAt, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

func (r *ResourcePostgresRepository) Update(ctx context.Context, res *entities.Resource) error {
	query := `UPDATE resources SET name = $2, updated_at = $3 WHERE id = $1`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query, res.ID, res.Name, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrResourceNotFound
	}
	return nil
}

func (r *ResourcePostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE resources SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	result, err := dbFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete resource: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrResourceNotFound
	}
	return nil
}

// CountAvailable counts resources of resourceTypeID with no allocation on a
// calendar event overlapping [from, to), excluding the event currently being
// edited (so re-saving an appointment's own allocation doesn't self-conflict).
func (r *ResourcePostgresRepository) CountAvailable(ctx context.Context, resourceTypeID uuid.UUID, from, to time.Time, excludeCalendarEventID *uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM resources res
		WHERE res.resource_type_id = $1 AND res.deleted_at IS NULL
		  AND NOT EXISTS (
		    SELECT 1 FROM appointment_resource_allocations a
		    JOIN calendar_events ce ON ce.id = a.calendar_event_id
		    WHERE a.resource_id = res.id
		      AND ce.start_time < $3 AND ce.end_time > $2
		      AND ($4::uuid IS NULL OR ce.id != $4)
		  )`
	var count int
	err := dbFrom(ctx, r.db).QueryRowContext(ctx, query, resourceTypeID, from, to, excludeCalendarEventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count available resources: %w", err)
	}
	return count, nil
}

// AppointmentResourceRequirementPostgresRepository implements
// repositories.AppointmentResourceRequirementRepository.
type AppointmentResourceRequirementPostgresRepository struct {
	db *sql.DB
}

func NewAppointmentResourceRequirementPostgresRepository(db *sql.DB) repositories.AppointmentResourceRequirementRepository {
	return &AppointmentResourceRequirementPostgresRepository{db: db}
}

func (r *AppointmentResourceRequirementPostgresRepository) GetByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) ([]*entities.AppointmentResourceRequirement, error) {
	query := `
		SELECT id, appointment_type_id, resource_type_id, quantity
		FROM appointment_resource_requirements WHERE appointment_type_id = $1`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, appointmentTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resource requirements: %w", err)
	}
	defer rows.Close()

	var out []*entities.AppointmentResourceRequirement
	for rows.Next() {
		var req entities.AppointmentResourceRequirement
		if err := rows.Scan(&req.ID, &req.AppointmentTypeID, &req.ResourceTypeID, &req.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan resource requirement: %w", err)
		}
		out = append(out, &req)
	}
	return out, rows.Err()
}

// ReplaceAll hard-syncs the requirement set for an appointment type, per
// spec §4.6.
func (r *AppointmentResourceRequirementPostgresRepository) ReplaceAll(ctx context.Context, appointmentTypeID uuid.UUID, reqs []entities.AppointmentResourceRequirement) error {
	q := dbFrom(ctx, r.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM appointment_resource_requirements WHERE appointment_type_id = $1`, appointmentTypeID); err != nil {
		return fmt.Errorf("failed to clear resource requirements: %w", err)
	}
	for _, req := range reqs {
		_, err := q.ExecContext(ctx, `
			INSERT INTO appointment_resource_requirements (id, appointment_type_id, resource_type_id, quantity)
			VALUES ($1, $2, $3, $4)`, uuid.New(), appointmentTypeID, req.ResourceTypeID, req.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert resource requirement: %w", err)
		}
	}
	return nil
}

// AppointmentResourceAllocationPostgresRepository implements
// repositories.AppointmentResourceAllocationRepository.
type AppointmentResourceAllocationPostgresRepository struct {
	db *sql.DB
}

func NewAppointmentResourceAllocationPostgresRepository(db *sql.DB) repositories.AppointmentResourceAllocationRepository {
	return &AppointmentResourceAllocationPostgresRepository{db: db}
}

func (r *AppointmentResourceAllocationPostgresRepository) Create(ctx context.Context, alloc *entities.AppointmentResourceAllocation) error {
	query := `INSERT INTO appointment_resource_allocations (id, calendar_event_id, resource_id) VALUES ($1, $2, $3)`
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, query, alloc.ID, alloc.CalendarEventID, alloc.ResourceID)
	if err != nil {
		return fmt.Errorf("failed to create resource allocation: %w", err)
	}
	return nil
}

func (r *AppointmentResourceAllocationPostgresRepository) GetByCalendarEvent(ctx context.Context, calendarEventID uuid.UUID) ([]*entities.AppointmentResourceAllocation, error) {
	query := `SELECT id, calendar_event_id, resource_id FROM appointment_resource_allocations WHERE calendar_event_id = $1`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, calendarEventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resource allocations: %w", err)
	}
	defer rows.Close()
	return scanAllocations(rows)
}

func (r *AppointmentResourceAllocationPostgresRepository) GetByCalendarEvents(ctx context.Context, calendarEventIDs []uuid.UUID) ([]*entities.AppointmentResourceAllocation, error) {
	if len(calendarEventIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, calendar_event_id, resource_id FROM appointment_resource_allocations WHERE calendar_event_id = ANY($1)`
	rows, err := dbFrom(ctx, r.db).QueryContext(ctx, query, pq.Array(calendarEventIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to bulk load resource allocations: %w", err)
	}
	defer rows.Close()
	return scanAllocations(rows)
}

func (r *AppointmentResourceAllocationPostgresRepository) DeleteByCalendarEvent(ctx context.Context, calendarEventID uuid.UUID) error {
	_, err := dbFrom(ctx, r.db).ExecContext(ctx, `DELETE FROM appointment_resource_allocations WHERE calendar_event_id = $1`, calendarEventID)
	if err != nil {
		return fmt.Errorf("failed to delete resource allocations: %w", err)
	}
	return nil
}

func scanAllocations(rows *sql.Rows) ([]*entities.AppointmentResourceAllocation, error) {
	var out []*entities.AppointmentResourceAllocation
	for rows.Next() {
		var a entities.AppointmentResourceAllocation
		if err := rows.Scan(&a.ID, &a.CalendarEventID, &a.ResourceID); err != nil {
			return nil, fmt.Errorf("failed to scan resource allocation: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
