package repositories

import (
	"context"
	"time"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
)

// CalendarEventRepository defines persistence operations for the unified
// calendar timeline the conflict engine walks. Mutating methods that feed
// a conflict-then-write sequence accept a row-lock hint so usecases can run
// them inside a transaction that holds SELECT ... FOR UPDATE on the
// affected practitioner's rows (spec §5 concurrency model).
type CalendarEventRepository interface {
	Create(ctx context.Context, event *entities.CalendarEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.CalendarEvent, error)
	Update(ctx context.Context, event *entities.CalendarEvent) error
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByPractitionerAndRange returns every event overlapping
	// [from, to) for a single practitioner, optionally locking the rows
	// for update within the caller's transaction.
	GetByPractitionerAndRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time, forUpdate bool) ([]*entities.CalendarEvent, error)

	// GetByClinicAndRange bulk-loads every event for every practitioner in
	// the clinic overlapping [from, to), used by calendar assembly to avoid
	// an N+1 query per practitioner.
	GetByClinicAndRange(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*entities.CalendarEvent, error)
}

// AppointmentRepository defines persistence operations for appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *entities.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Appointment, error)
	GetByCalendarEventID(ctx context.Context, calendarEventID uuid.UUID) (*entities.Appointment, error)

	// GetByCalendarEventIDs bulk-loads appointments for a batch of calendar
	// events in one query, so calendar assembly over a clinic-wide range
	// never pays an N+1 appointment lookup per event.
	GetByCalendarEventIDs(ctx context.Context, calendarEventIDs []uuid.UUID) ([]*entities.Appointment, error)
	GetByPatient(ctx context.Context, patientID uuid.UUID, includeCancelled bool) ([]*entities.Appointment, error)
	Update(ctx context.Context, appt *entities.Appointment) error

	// CountActiveByPatient counts future AppointmentStatusConfirmed rows for
	// a patient, feeding the Booking Policy Evaluator's active-cap rule.
	CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error)

	// CountFutureByAppointmentType counts future confirmed appointments of
	// a given type, feeding the service-deletion pre-check (spec §6's
	// validate-deletion endpoint).
	CountFutureByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) (int, error)

	// GetPendingReveal returns still-confirmed, still-auto-assigned
	// appointments whose calendar event start time has crossed the clinic's
	// reveal boundary, for the Auto-Assignment Reveal Scheduler to process.
	// settings carries the clinic's (already-migrated) booking restriction
	// mode so the implementation can apply either the minimum-hours or the
	// deadline-time-day-before formula per row; now is the evaluation
	// instant, injected rather than read from the wall clock so a single
	// tick is internally consistent.
	GetPendingReveal(ctx context.Context, clinicID uuid.UUID, settings entities.BookingRestrictionSettings, now time.Time, limit int) ([]*entities.Appointment, error)

	// MarkRevealed flips IsAutoAssigned to false idempotently: a
	// concurrent re-run that finds the row already revealed reports zero
	// rows affected rather than erroring.
	MarkRevealed(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}

// PractitionerAvailabilityRepository defines persistence operations for the
// weekly availability template.
type PractitionerAvailabilityRepository interface {
	Create(ctx context.Context, a *entities.PractitionerAvailability) error
	GetByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*entities.PractitionerAvailability, error)
	Update(ctx context.Context, a *entities.PractitionerAvailability) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// AvailabilityExceptionRepository defines persistence operations for one-off
// overrides of the weekly template.
type AvailabilityExceptionRepository interface {
	Create(ctx context.Context, e *entities.AvailabilityException) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.AvailabilityException, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
