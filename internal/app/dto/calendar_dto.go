package dto

import (
	"time"

	"github.com/google/uuid"
)

// CalendarEventResponse is one assembled row of a calendar view: the raw
// CalendarEvent window joined with whichever of Appointment/
// AvailabilityException it owns, plus the display fields a calendar UI
// needs without a follow-up request.
type CalendarEventResponse struct {
	ID             uuid.UUID `json:"id"`
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Kind           string    `json:"kind"`
	Date           time.Time `json:"date"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	AllDay         bool      `json:"all_day"`
	DisplayName    string    `json:"display_name"`

	// The following are populated only for Kind == "appointment".
	AppointmentID       *uuid.UUID `json:"appointment_id,omitempty"`
	Status              string     `json:"status,omitempty"`
	PatientName         string     `json:"patient_name,omitempty"`
	AppointmentTypeName string     `json:"appointment_type_name,omitempty"`
	IsAutoAssigned      bool       `json:"is_auto_assigned,omitempty"`
	PendingReveal       bool       `json:"pending_reveal,omitempty"`
	ResourceIDs         []uuid.UUID `json:"resource_ids,omitempty"`

	// AvailabilityExceptionID is populated only for Kind == "availability_exception".
	AvailabilityExceptionID *uuid.UUID `json:"availability_exception_id,omitempty"`
}
