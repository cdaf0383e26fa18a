package dto

import (
	"time"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
)

// AutoAssignSentinel is the practitioner_id value a patient request sends
// to mean "no preference"; the Lifecycle Manager runs the tie-break when it
// sees this value.
const AutoAssignSentinel = "auto"

// KeepSentinel is the practitioner_id value an edit request sends to mean
// "leave the current practitioner unchanged" (distinct from omitting the
// field, which Go's zero value can't express for a required string).
const KeepSentinel = "keep"

// CreateAppointmentRequest is the inbound payload for POST /appointments.
type CreateAppointmentRequest struct {
	PatientID         uuid.UUID  `json:"patient_id" validate:"required"`
	AppointmentTypeID uuid.UUID  `json:"appointment_type_id" validate:"required"`
	PractitionerID    string     `json:"practitioner_id" validate:"required"` // uuid string or AutoAssignSentinel
	StartTime         time.Time  `json:"start_time" validate:"required"`
	Notes             *string    `json:"notes,omitempty"`
	AlternativeSlots  []TimeSlotDTO `json:"alternative_time_slots,omitempty"`
}

// EditAppointmentRequest is the inbound payload for PUT /appointments/{id}.
type EditAppointmentRequest struct {
	NewPractitionerID *string    `json:"new_practitioner_id,omitempty"` // uuid string, AutoAssignSentinel, or KeepSentinel
	NewStartTime      *time.Time `json:"new_start_time,omitempty"`
	NewNotes          *string    `json:"new_notes,omitempty"`
}

// CancelAppointmentRequest is the inbound payload for DELETE /appointments/{id}.
type CancelAppointmentRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// TimeSlotDTO is the wire shape of a candidate (start, end) window.
type TimeSlotDTO struct {
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

// EditPreviewResponse answers "what would happen if this edit were
// submitted": whether the proposed window conflicts, and which
// notification templates would fire, without persisting anything.
type EditPreviewResponse struct {
	Conflict             *string  `json:"conflict,omitempty"`
	NotificationTemplates []string `json:"notification_templates"`
}

// AppointmentResponse is the outbound shape for a single appointment.
type AppointmentResponse struct {
	ID                      uuid.UUID             `json:"id"`
	PatientID               uuid.UUID             `json:"patient_id"`
	PractitionerID          uuid.UUID             `json:"practitioner_id"`
	AppointmentTypeID       uuid.UUID             `json:"appointment_type_id"`
	Status                  entities.AppointmentStatus `json:"status"`
	StartTime               time.Time             `json:"start_time"`
	EndTime                 time.Time             `json:"end_time"`
	Notes                   *string                `json:"notes,omitempty"`
	IsAutoAssigned          bool                   `json:"is_auto_assigned"`
	OriginallyAutoAssigned  bool                   `json:"originally_auto_assigned"`
	PendingTimeConfirmation bool                   `json:"pending_time_confirmation"`
	AlternativeTimeSlots    []TimeSlotDTO          `json:"alternative_time_slots,omitempty"`
	CancellationReason      *string                `json:"cancellation_reason,omitempty"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
}

// ToAppointmentResponse builds the outbound shape from the domain pair.
func ToAppointmentResponse(appt *entities.Appointment, event *entities.CalendarEvent) *AppointmentResponse {
	resp := &AppointmentResponse{
		ID:                      appt.ID,
		PatientID:               appt.PatientID,
		PractitionerID:          appt.PractitionerID,
		AppointmentTypeID:       appt.AppointmentTypeID,
		Status:                  appt.Status,
		Notes:                   appt.Notes,
		IsAutoAssigned:          appt.IsAutoAssigned,
		OriginallyAutoAssigned:  appt.OriginallyAutoAssigned,
		PendingTimeConfirmation: appt.PendingTimeConfirmation,
		CancellationReason:      appt.CancellationReason,
		CreatedAt:               appt.CreatedAt,
		UpdatedAt:               appt.UpdatedAt,
	}
	if event != nil {
		resp.StartTime = event.Start
		resp.EndTime = event.End
	}
	for _, s := range appt.AlternativeTimeSlots {
		resp.AlternativeTimeSlots = append(resp.AlternativeTimeSlots, TimeSlotDTO{PractitionerID: s.PractitionerID, Start: s.Start, End: s.End})
	}
	return resp
}
