package entities

import (
	"time"

	"github.com/google/uuid"
)

// ResourceType groups interchangeable physical resources (treatment rooms,
// a specific machine model) that an AppointmentType may require a unit of.
// Grounded on the teacher's entities/unit.go numeric-capacity convention.
type ResourceType struct {
	ID       uuid.UUID `json:"id" db:"id"`
	ClinicID uuid.UUID `json:"clinic_id" db:"clinic_id"`
	Name     string    `json:"name" db:"name"`

	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

func (r *ResourceType) Validate() error {
	if r.Name == "" {
		return ErrInvalidResourceTypeName
	}
	return nil
}

// Resource is one concrete, bookable instance of a ResourceType.
type Resource struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ClinicID       uuid.UUID `json:"clinic_id" db:"clinic_id"`
	ResourceTypeID uuid.UUID `json:"resource_type_id" db:"resource_type_id"`
	Name           string    `json:"name" db:"name"`

	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

func (r *Resource) Validate() error {
	if r.Name == "" {
		return ErrInvalidResourceName
	}
	return nil
}

// AppointmentResourceRequirement declares that an AppointmentType consumes
// Quantity units of ResourceType for its full duration. Hard-synced
// (replace-all) by the Service Catalog usecase on every update, per spec
// §4.6.
type AppointmentResourceRequirement struct {
	ID                uuid.UUID `json:"id" db:"id"`
	AppointmentTypeID uuid.UUID `json:"appointment_type_id" db:"appointment_type_id"`
	ResourceTypeID    uuid.UUID `json:"resource_type_id" db:"resource_type_id"`
	Quantity          int       `json:"quantity" db:"quantity"`
}

// AppointmentResourceAllocation pins a requirement to concrete Resource rows
// for a single CalendarEvent, so the conflict engine can check physical
// resource capacity the same way it checks practitioner time.
type AppointmentResourceAllocation struct {
	ID              uuid.UUID `json:"id" db:"id"`
	CalendarEventID uuid.UUID `json:"calendar_event_id" db:"calendar_event_id"`
	ResourceID      uuid.UUID `json:"resource_id" db:"resource_id"`
}
