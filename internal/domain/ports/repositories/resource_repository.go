package repositories

import (
	"context"
	"time"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
)

// ResourceTypeRepository defines persistence operations for resource types.
type ResourceTypeRepository interface {
	Create(ctx context.Context, rt *entities.ResourceType) error
	GetByClinic(ctx context.Context, clinicID uuid.UUID) ([]*entities.ResourceType, error)
	Update(ctx context.Context, rt *entities.ResourceType) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// ResourceRepository defines persistence operations for concrete resources.
type ResourceRepository interface {
	Create(ctx context.Context, r *entities.Resource) error
	GetByResourceType(ctx context.Context, resourceTypeID uuid.UUID) ([]*entities.Resource, error)
	Update(ctx context.Context, r *entities.Resource) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// CountAvailable counts resources of resourceTypeID not already
	// allocated to a calendar event overlapping [from, to), used by the
	// conflict engine's resource-capacity check.
	CountAvailable(ctx context.Context, resourceTypeID uuid.UUID, from, to time.Time, excludeCalendarEventID *uuid.UUID) (int, error)
}

// AppointmentResourceRequirementRepository defines persistence operations
// for the per-service resource requirements, hard-synced on catalog update.
type AppointmentResourceRequirementRepository interface {
	GetByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) ([]*entities.AppointmentResourceRequirement, error)
	ReplaceAll(ctx context.Context, appointmentTypeID uuid.UUID, reqs []entities.AppointmentResourceRequirement) error
}

// AppointmentResourceAllocationRepository defines persistence operations for
// the concrete resource assignment of a single calendar event.
type AppointmentResourceAllocationRepository interface {
	Create(ctx context.Context, alloc *entities.AppointmentResourceAllocation) error
	GetByCalendarEvent(ctx context.Context, calendarEventID uuid.UUID) ([]*entities.AppointmentResourceAllocation, error)

	// GetByCalendarEvents bulk-loads allocations for a batch of calendar
	// events, avoiding an N+1 lookup during calendar assembly.
	GetByCalendarEvents(ctx context.Context, calendarEventIDs []uuid.UUID) ([]*entities.AppointmentResourceAllocation, error)
	DeleteByCalendarEvent(ctx context.Context, calendarEventID uuid.UUID) error
}
