package dto

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyTemplateSlotDTO is one row of a practitioner's recurring weekly
// availability template.
type WeeklyTemplateSlotDTO struct {
	ID        uuid.UUID `json:"id,omitempty"`
	Weekday   int       `json:"weekday" validate:"min=0,max=6"`
	StartTime string    `json:"start_time" validate:"required"`
	EndTime   string    `json:"end_time" validate:"required"`
}

// MonthlyAvailabilityCounts maps a calendar date (YYYY-MM-DD, clinic
// timezone) to its confirmed-appointment count, for the month-grid view.
type MonthlyAvailabilityCounts map[string]int

// DayViewResponse is the outbound shape for one practitioner's single-day
// calendar: the assembled events plus that weekday's template windows, so
// the UI can render both without a follow-up request.
type DayViewResponse struct {
	Events   []*CalendarEventResponse `json:"events"`
	Schedule []WeeklyTemplateSlotDTO  `json:"schedule"`
}

// FreeSlotsRequest is the inbound payload shared by the single-date and
// batch slot endpoints.
type FreeSlotsRequest struct {
	AppointmentTypeID uuid.UUID `json:"appointment_type_id" validate:"required"`
	Date              time.Time `json:"date"`
	Dates             []time.Time `json:"dates,omitempty"`
}

// FreeSlotsResponse maps a date (YYYY-MM-DD) to its candidate start/end
// windows.
type FreeSlotsResponse map[string][]TimeSlotDTO

// ConflictCheckItem is one row of the batch conflict-check request: "would
// booking practitioner P from Start to End conflict with anything?"
type ConflictCheckItem struct {
	PractitionerID    uuid.UUID `json:"practitioner_id" validate:"required"`
	AppointmentTypeID uuid.UUID `json:"appointment_type_id" validate:"required"`
	Start             time.Time `json:"start" validate:"required"`
	End               time.Time `json:"end" validate:"required"`
}

// ConflictCheckResult is the per-item verdict: Conflict is nil when the
// window is bookable, else the conflict kind string.
type ConflictCheckResult struct {
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Conflict       *string   `json:"conflict,omitempty"`
}

// CreateExceptionRequest is the inbound payload for creating a one-off
// availability override. Force re-submits past a 409 conflict response,
// per spec §6's "conflict … with a force retry param" rule. When AllDay is
// set, Start carries only the target date and End is ignored; the use case
// synthesizes the [00:00, 24:00) window per spec §4.1.
type CreateExceptionRequest struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	AllDay   bool      `json:"all_day,omitempty"`
	Blocking bool      `json:"blocking"`
	Reason   string    `json:"reason,omitempty"`
	Force    bool      `json:"force,omitempty"`
}

// AvailabilityExceptionResponse is the outbound shape for one exception.
type AvailabilityExceptionResponse struct {
	ID             uuid.UUID `json:"id"`
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Blocking       bool      `json:"blocking"`
	Reason         string    `json:"reason,omitempty"`
}
