package entities

import (
	"time"

	"github.com/google/uuid"
)

// CalendarEventKind distinguishes a patient booking from a practitioner's
// own block-out; both compete for the same calendar space, which is why the
// conflict engine walks CalendarEvents rather than Appointments directly.
type CalendarEventKind string

const (
	CalendarEventKindAppointment         CalendarEventKind = "appointment"
	CalendarEventKindAvailabilityException CalendarEventKind = "availability_exception"
)

// CalendarEvent is the single source of truth for "this practitioner is
// occupied from Start to End"; it owns either an Appointment or an
// AvailabilityException, never both. Grounded on the teacher's
// doctor_availability.go ConflictsWith pattern, generalized so the
// conflict engine has one entity to range over instead of two.
type CalendarEvent struct {
	ID             uuid.UUID         `json:"id" db:"id"`
	ClinicID       uuid.UUID         `json:"clinic_id" db:"clinic_id"`
	PractitionerID uuid.UUID         `json:"practitioner_id" db:"practitioner_id"`
	Kind           CalendarEventKind `json:"kind" db:"kind"`

	// Start/End are always materialized as concrete instants; an all-day
	// exception (nullable start/end in the stored row) is normalized to
	// [00:00, 24:00) of Date at load time, per the Q1/Q3 edge-case rule.
	Date  time.Time `json:"date" db:"date"`
	Start time.Time `json:"start" db:"start_time"`
	End   time.Time `json:"end" db:"end_time"`
	AllDay bool      `json:"all_day" db:"all_day"`

	DisplayName *string `json:"display_name,omitempty" db:"display_name"`

	AppointmentID          *uuid.UUID `json:"appointment_id,omitempty" db:"appointment_id"`
	AvailabilityExceptionID *uuid.UUID `json:"availability_exception_id,omitempty" db:"availability_exception_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks window invariants.
func (e *CalendarEvent) Validate() error {
	if e.PractitionerID == uuid.Nil {
		return ErrInvalidPractitionerID
	}
	if !e.End.After(e.Start) {
		return ErrEndTimeBeforeStartTime
	}
	return nil
}

// ConflictsWith reports whether two calendar events on the same
// practitioner overlap in time. Distinct practitioners never conflict
// regardless of overlap.
func (e *CalendarEvent) ConflictsWith(other *CalendarEvent) bool {
	if e.PractitionerID != other.PractitionerID {
		return false
	}
	return e.Start.Before(other.End) && other.Start.Before(e.End)
}

// Duration returns the event's length.
func (e *CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// IsBlocking reports whether the event is an appointment or an exception
// whose Blocking flag is set.
func (e *CalendarEvent) IsBlocking(exceptionBlocking bool) bool {
	if e.Kind == CalendarEventKindAppointment {
		return true
	}
	return exceptionBlocking
}
