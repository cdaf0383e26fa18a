package dto

import (
	"fmt"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
)

// MessageTemplateDTO mirrors entities.MessageTemplate on the wire.
type MessageTemplateDTO struct {
	Enabled bool   `json:"enabled"`
	Body    string `json:"body"`
}

// BillingScenarioDTO is one row of the diff-sync-by-id billing catalog. A
// zero-value ID means "new row, assign one"; an ID absent from a following
// update's slice means "soft-delete this row".
type BillingScenarioDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name" validate:"required"`
	PriceCents    int64     `json:"price_cents" validate:"min=0"`
	InsuranceCode *string   `json:"insurance_code,omitempty"`
	DisplayOrder  int       `json:"display_order"`
}

// FollowUpMessageDTO is one row of the diff-sync-by-id follow-up catalog.
type FollowUpMessageDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name" validate:"required"`
	Body         string    `json:"body" validate:"required"`
	DaysAfter    int       `json:"days_after" validate:"min=0"`
	Enabled      bool      `json:"enabled"`
	DisplayOrder int       `json:"display_order"`
}

// ResourceRequirementDTO is one row of the hard-synced resource requirement
// set for a service.
type ResourceRequirementDTO struct {
	ResourceTypeID uuid.UUID `json:"resource_type_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"min=1"`
}

// ServiceBundleRequest is the full read/write shape for one appointment
// type's bundle: the service row itself plus its four related sets, applied
// together in one transaction per spec §4.6.
type ServiceBundleRequest struct {
	Name                           string  `json:"name" validate:"required"`
	DurationMinutes                int     `json:"duration_minutes" validate:"min=1"`
	Description                    *string `json:"description,omitempty"`
	AllowNewPatientBooking         bool    `json:"allow_new_patient_booking"`
	AllowExistingPatientBooking    bool    `json:"allow_existing_patient_booking"`
	AllowPatientPractitionerSelect bool    `json:"allow_patient_practitioner_selection"`
	AllowMultipleSlotSelection     bool    `json:"allow_multiple_slot_selection"`
	SchedulingBufferMinutes        int     `json:"scheduling_buffer_minutes" validate:"min=0"`
	ServiceTypeGroupID             *uuid.UUID `json:"service_type_group_id,omitempty"`
	DisplayOrder                   int     `json:"display_order"`

	PatientConfirmTemplate         MessageTemplateDTO `json:"patient_confirm_template"`
	ClinicConfirmTemplate          MessageTemplateDTO `json:"clinic_confirm_template"`
	ReminderTemplate               MessageTemplateDTO `json:"reminder_template"`
	RecurrentClinicConfirmTemplate MessageTemplateDTO `json:"recurrent_clinic_confirm_template"`

	NotesRequired     bool    `json:"notes_required"`
	NotesInstructions *string `json:"notes_instructions,omitempty"`

	PractitionerIDs      []uuid.UUID              `json:"practitioner_ids"`
	BillingScenarios     []BillingScenarioDTO     `json:"billing_scenarios"`
	ResourceRequirements []ResourceRequirementDTO `json:"resource_requirements"`
	FollowUpMessages     []FollowUpMessageDTO     `json:"follow_up_messages"`
}

// ServiceBundleResponse is the outbound read shape, identical in field set
// to the request plus the assigned id. It carries no soft-delete field.
type ServiceBundleResponse struct {
	ID uuid.UUID `json:"id"`
	ServiceBundleRequest
}

// LiffURLs is the set of patient-facing tokenized links the spec's LIFF
// URL format builds from one clinic's access token.
type LiffURLs struct {
	Home          string `json:"home"`
	Book          string `json:"book"`
	Query         string `json:"query"`
	Settings      string `json:"settings"`
	Notifications string `json:"notifications"`
}

// BuildLiffURLs renders spec §6's "{FRONTEND_URL}/liff/{mode}?token=..."
// format for every non-reschedule mode.
func BuildLiffURLs(frontendBaseURL, token string) LiffURLs {
	f := func(mode string) string {
		return fmt.Sprintf("%s/liff/%s?token=%s", frontendBaseURL, mode, token)
	}
	return LiffURLs{
		Home:          f("home"),
		Book:          f("book"),
		Query:         f("query"),
		Settings:      f("settings"),
		Notifications: f("notifications"),
	}
}

// SettingsResponse is the outbound shape for GET /settings: the clinic's
// full settings document, its service catalog, and the LIFF links derived
// from its access token.
type SettingsResponse struct {
	ClinicID string                  `json:"clinic_id"`
	Settings entities.ClinicSettings `json:"settings"`
	Services []*ServiceBundleResponse `json:"services"`
	LiffURLs *LiffURLs               `json:"liff_urls,omitempty"`
}

// ValidateDeletionRequest is the inbound payload for the deletion
// pre-check: which appointment types is the caller about to delete.
type ValidateDeletionRequest struct {
	AppointmentTypeIDs []uuid.UUID `json:"appointment_type_ids" validate:"required"`
}

// DeletionBlocker describes why one appointment type cannot yet be
// soft-deleted.
type DeletionBlocker struct {
	AppointmentTypeID  uuid.UUID   `json:"appointment_type_id"`
	PractitionerIDs    []uuid.UUID `json:"practitioner_ids,omitempty"`
	FutureAppointments int         `json:"future_appointments"`
}

// ValidateDeletionResponse reports, per requested id, whether it is clear
// to delete and if not, the blockers found.
type ValidateDeletionResponse struct {
	Blocked []DeletionBlocker `json:"blocked"`
}
