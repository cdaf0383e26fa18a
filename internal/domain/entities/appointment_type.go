package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageTemplate is a per-service notification body with an enable flag.
// Empty/whitespace-only template bodies are replaced by the system default
// before persist, via ApplyTemplateDefaults (spec §8 "Template defaulting").
type MessageTemplate struct {
	Enabled bool   `json:"enabled"`
	Body    string `json:"body"`
}

// DefaultTemplate fills in the system default body when empty or
// whitespace-only, matching the Template defaulting invariant.
func DefaultTemplate(body, fallback string) string {
	if strings.TrimSpace(body) == "" {
		return fallback
	}
	return body
}

const (
	DefaultPatientConfirmTemplate   = "您的預約已確認：{appointment_datetime}，{practitioner_name}，{appointment_type_name}。"
	DefaultClinicConfirmTemplate    = "新預約：{patient_name} 於 {appointment_datetime} 預約 {appointment_type_name}。"
	DefaultReminderTemplate         = "提醒您，{appointment_datetime} 有一個 {appointment_type_name} 預約。"
	DefaultRecurrentConfirmTemplate = "您的回診預約已確認：{appointment_datetime}。"
)

// AppointmentType (a.k.a. service item) is the clinic-scoped bookable
// offering. Grounded on original_source/.../appointment_type.py and the
// teacher's entities/service.go naming convention.
type AppointmentType struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	ClinicID         uuid.UUID  `json:"clinic_id" db:"clinic_id"`
	Name             string     `json:"name" db:"name"`
	DurationMinutes  int        `json:"duration_minutes" db:"duration_minutes"`
	Description      *string    `json:"description,omitempty" db:"description"`

	AllowNewPatientBooking        bool `json:"allow_new_patient_booking" db:"allow_new_patient_booking"`
	AllowExistingPatientBooking   bool `json:"allow_existing_patient_booking" db:"allow_existing_patient_booking"`
	AllowPatientPractitionerSelect bool `json:"allow_patient_practitioner_selection" db:"allow_patient_practitioner_selection"`
	AllowMultipleSlotSelection    bool `json:"allow_multiple_slot_selection" db:"allow_multiple_slot_selection"`

	SchedulingBufferMinutes int        `json:"scheduling_buffer_minutes" db:"scheduling_buffer_minutes"`
	ServiceTypeGroupID      *uuid.UUID `json:"service_type_group_id,omitempty" db:"service_type_group_id"`
	DisplayOrder            int        `json:"display_order" db:"display_order"`

	PatientConfirmTemplate          MessageTemplate `json:"patient_confirm_template"`
	ClinicConfirmTemplate           MessageTemplate `json:"clinic_confirm_template"`
	ReminderTemplate                MessageTemplate `json:"reminder_template"`
	RecurrentClinicConfirmTemplate  MessageTemplate `json:"recurrent_clinic_confirm_template"`

	NotesRequired        bool    `json:"notes_required" db:"notes_required"`
	NotesInstructions    *string `json:"notes_instructions,omitempty" db:"notes_instructions"`

	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsDeleted reports whether the service is soft-deleted.
func (a *AppointmentType) IsDeleted() bool {
	return a.DeletedAt != nil
}

// Validate checks invariants that do not require a database round-trip:
// non-zero duration and non-empty name. Name uniqueness among active rows
// is enforced at the usecase layer (needs a query).
func (a *AppointmentType) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrInvalidAppointmentTypeName
	}
	if a.DurationMinutes <= 0 {
		return ErrInvalidAppointmentTypeDuration
	}
	return nil
}

// ApplyTemplateDefaults replaces empty/whitespace-only templates with the
// system defaults, per the Template defaulting invariant (spec §8).
func (a *AppointmentType) ApplyTemplateDefaults() {
	a.PatientConfirmTemplate.Body = DefaultTemplate(a.PatientConfirmTemplate.Body, DefaultPatientConfirmTemplate)
	a.ClinicConfirmTemplate.Body = DefaultTemplate(a.ClinicConfirmTemplate.Body, DefaultClinicConfirmTemplate)
	a.ReminderTemplate.Body = DefaultTemplate(a.ReminderTemplate.Body, DefaultReminderTemplate)
	a.RecurrentClinicConfirmTemplate.Body = DefaultTemplate(a.RecurrentClinicConfirmTemplate.Body, DefaultRecurrentConfirmTemplate)
}

// AllowsPatient reports whether the service is bookable by a patient given
// whether they have ever had a confirmed appointment (spec §4.2 rule 7).
func (a *AppointmentType) AllowsPatient(hasPriorConfirmedAppointment bool) bool {
	if hasPriorConfirmedAppointment {
		return a.AllowExistingPatientBooking
	}
	return a.AllowNewPatientBooking
}

// PractitionerAppointmentType records which practitioners offer which
// services.
type PractitionerAppointmentType struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	PractitionerID    uuid.UUID  `json:"practitioner_id" db:"practitioner_id"`
	AppointmentTypeID uuid.UUID  `json:"appointment_type_id" db:"appointment_type_id"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
