package entities

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the lifecycle state driven by the Appointment
// Lifecycle Manager's state machine.
type AppointmentStatus string

const (
	AppointmentStatusDraft             AppointmentStatus = "draft"
	AppointmentStatusConfirmed         AppointmentStatus = "confirmed"
	AppointmentStatusCanceledByPatient AppointmentStatus = "canceled_by_patient"
	AppointmentStatusCanceledByClinic  AppointmentStatus = "canceled_by_clinic"
)

// validAppointmentTransitions enumerates the edges the lifecycle manager is
// allowed to take; any transition not listed here is rejected with
// ErrInvalidStatusTransition.
var validAppointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusDraft:             {AppointmentStatusConfirmed},
	AppointmentStatusConfirmed:         {AppointmentStatusCanceledByPatient, AppointmentStatusCanceledByClinic},
	AppointmentStatusCanceledByPatient: {},
	AppointmentStatusCanceledByClinic:  {},
}

// IsCanceled reports whether status is either canceled terminal state.
func (s AppointmentStatus) IsCanceled() bool {
	return s == AppointmentStatusCanceledByPatient || s == AppointmentStatusCanceledByClinic
}

// Appointment is the patient-facing booking. It always lives inside exactly
// one CalendarEvent, which carries the authoritative start/end window used
// by the conflict engine. Grounded on the teacher's entities/appointment.go
// status-enum/Validate convention, generalized with the auto-assignment and
// reveal-scheduling fields from spec §4.3/§4.5.
type Appointment struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ClinicID        uuid.UUID `json:"clinic_id" db:"clinic_id"`
	CalendarEventID uuid.UUID `json:"calendar_event_id" db:"calendar_event_id"`

	PatientID         uuid.UUID `json:"patient_id" db:"patient_id"`
	PractitionerID    uuid.UUID `json:"practitioner_id" db:"practitioner_id"`
	AppointmentTypeID uuid.UUID `json:"appointment_type_id" db:"appointment_type_id"`

	Status      AppointmentStatus `json:"status" db:"status"`
	Notes       *string           `json:"notes,omitempty" db:"notes"`             // patient-visible
	ClinicNotes *string           `json:"clinic_notes,omitempty" db:"clinic_notes"` // internal only

	// IsAutoAssigned is true whenever the current practitioner was chosen by
	// the system rather than selected by the patient/staff. OriginallyAutoAssigned
	// stays true forever once set, even after a staff reassignment reveals
	// the practitioner — it records provenance, not current visibility.
	IsAutoAssigned          bool `json:"is_auto_assigned" db:"is_auto_assigned"`
	OriginallyAutoAssigned  bool `json:"originally_auto_assigned" db:"originally_auto_assigned"`

	// PendingTimeConfirmation marks a booking created against alternative
	// time slots the patient has not yet confirmed (spec §4.3 rule on
	// AlternativeTimeSlots).
	PendingTimeConfirmation bool       `json:"pending_time_confirmation" db:"pending_time_confirmation"`
	AlternativeTimeSlots    []TimeSlot `json:"alternative_time_slots,omitempty" db:"alternative_time_slots"`

	CancellationReason *string    `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledByUserID  *uuid.UUID `json:"cancelled_by_user_id,omitempty" db:"cancelled_by_user_id"`

	// ReassignedByUserID is set the moment a staff member reveals an
	// auto-assigned appointment by editing it; it is never set by the
	// reveal scheduler's own automatic transitions.
	ReassignedByUserID *uuid.UUID `json:"reassigned_by_user_id,omitempty" db:"reassigned_by_user_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TimeSlot is a candidate [Start, End) window, used both for free-slot
// query results and for AlternativeTimeSlots.
type TimeSlot struct {
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

// Overlaps reports whether the two windows share any instant.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// Validate checks appointment invariants that do not require a database
// round-trip.
func (a *Appointment) Validate() error {
	if a.PatientID == uuid.Nil {
		return ErrInvalidPatientID
	}
	if a.PractitionerID == uuid.Nil {
		return ErrInvalidPractitionerID
	}
	if a.AppointmentTypeID == uuid.Nil {
		return ErrInvalidAppointmentTypeID
	}
	if a.Status == "" {
		return ErrInvalidAppointmentStatus
	}
	return nil
}

// CanTransitionTo reports whether moving from the current status to target
// is a legal lifecycle edge.
func (a *Appointment) CanTransitionTo(target AppointmentStatus) bool {
	for _, s := range validAppointmentTransitions[a.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// IsActive reports whether the appointment still occupies a calendar slot
// (counts toward the active-appointment cap and conflict checks).
func (a *Appointment) IsActive() bool {
	return a.Status == AppointmentStatusConfirmed
}

// IsRevealed reports whether the assigned practitioner is currently visible
// to the patient: true whenever the appointment was never auto-assigned, or
// a human has since reassigned it away from auto-assignment.
func (a *Appointment) IsRevealed() bool {
	return !a.IsAutoAssigned
}
