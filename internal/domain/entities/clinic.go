package entities

import (
	"time"

	"github.com/google/uuid"
)

// BookingRestrictionType selects which lead-time rule the Booking Policy
// Evaluator applies.
type BookingRestrictionType string

const (
	BookingRestrictionMinimumHours    BookingRestrictionType = "minimum_hours_required"
	BookingRestrictionDeadlineDayBefore BookingRestrictionType = "deadline_time_day_before"
	// bookingRestrictionSameDayDisallowedLegacy is a deprecated value that is
	// silently migrated to BookingRestrictionMinimumHours on both read and write.
	bookingRestrictionSameDayDisallowedLegacy BookingRestrictionType = "same_day_disallowed"
)

// NotificationSettings controls reminder delivery.
type NotificationSettings struct {
	ReminderHoursBefore    int    `json:"reminder_hours_before"`
	ReminderTimingMode     string `json:"reminder_timing_mode"`
	ReminderPreviousDayTime string `json:"reminder_previous_day_time"`
}

// BookingRestrictionSettings gates patient-initiated mutations. Grounded on
// original_source/backend/src/models/clinic.py BookingRestrictionSettings.
type BookingRestrictionSettings struct {
	BookingRestrictionType         BookingRestrictionType `json:"booking_restriction_type" validate:"omitempty,oneof=minimum_hours_required deadline_time_day_before same_day_disallowed"`
	MinimumBookingHoursAhead       int                    `json:"minimum_booking_hours_ahead" validate:"min=1,max=168"`
	DeadlineTimeDayBefore          string                 `json:"deadline_time_day_before"`
	DeadlineOnSameDay              bool                   `json:"deadline_on_same_day"`
	StepSizeMinutes                int                    `json:"step_size_minutes" validate:"min=5,max=60"`
	MaxFutureAppointments          int                    `json:"max_future_appointments" validate:"min=1,max=100"`
	MaxBookingWindowDays           int                    `json:"max_booking_window_days" validate:"min=1,max=365"`
	MinimumCancellationHoursBefore int                    `json:"minimum_cancellation_hours_before" validate:"min=1,max=168"`
	AllowPatientDeletion           bool                   `json:"allow_patient_deletion"`
}

// Migrate applies the one-way same_day_disallowed -> minimum_hours_required
// migration. Called on both read and write per spec.
func (b *BookingRestrictionSettings) Migrate() {
	if b.BookingRestrictionType == bookingRestrictionSameDayDisallowedLegacy {
		if b.MinimumBookingHoursAhead <= 0 {
			b.MinimumBookingHoursAhead = 24
		}
		b.BookingRestrictionType = BookingRestrictionMinimumHours
	}
	// The original always truncates the deadline time to the hour.
	if len(b.DeadlineTimeDayBefore) >= 2 {
		if t, err := time.Parse("15:04", b.DeadlineTimeDayBefore); err == nil {
			b.DeadlineTimeDayBefore = time.Date(0, 1, 1, t.Hour(), 0, 0, 0, time.UTC).Format("15:04")
		}
	}
}

// DefaultBookingRestrictionSettings mirrors the original's Pydantic defaults.
func DefaultBookingRestrictionSettings() BookingRestrictionSettings {
	return BookingRestrictionSettings{
		BookingRestrictionType:         BookingRestrictionMinimumHours,
		MinimumBookingHoursAhead:       24,
		DeadlineTimeDayBefore:          "08:00",
		DeadlineOnSameDay:              false,
		StepSizeMinutes:                30,
		MaxFutureAppointments:          3,
		MaxBookingWindowDays:           90,
		MinimumCancellationHoursBefore: 24,
		AllowPatientDeletion:           true,
	}
}

// ClinicInfoSettings carries clinic-facing display data.
type ClinicInfoSettings struct {
	DisplayName                      *string `json:"display_name,omitempty"`
	Address                          *string `json:"address,omitempty"`
	PhoneNumber                      *string `json:"phone_number,omitempty"`
	AppointmentTypeInstructions      *string `json:"appointment_type_instructions,omitempty"`
	AppointmentNotesInstructions     *string `json:"appointment_notes_instructions,omitempty"`
	RequireBirthday                  bool    `json:"require_birthday"`
	RequireGender                    bool    `json:"require_gender"`
	RestrictToAssignedPractitioners  bool    `json:"restrict_to_assigned_practitioners"`
	QueryPageInstructions            *string `json:"query_page_instructions,omitempty"`
	SettingsPageInstructions         *string `json:"settings_page_instructions,omitempty"`
	NotificationsPageInstructions    *string `json:"notifications_page_instructions,omitempty"`
}

// ChatSettings configures the (out-of-scope) AI chat agent; the scheduling
// core only owns the settings shape, not the agent behavior.
type ChatSettings struct {
	ChatEnabled              bool    `json:"chat_enabled"`
	LabelAIReplies           bool    `json:"label_ai_replies"`
	ClinicDescription        *string `json:"clinic_description,omitempty"`
	TherapistInfo            *string `json:"therapist_info,omitempty"`
	TreatmentDetails         *string `json:"treatment_details,omitempty"`
	ServiceItemSelectionGuide *string `json:"service_item_selection_guide,omitempty"`
	OperatingHours           *string `json:"operating_hours,omitempty"`
	LocationDetails          *string `json:"location_details,omitempty"`
	BookingPolicy            *string `json:"booking_policy,omitempty"`
	PaymentMethods           *string `json:"payment_methods,omitempty"`
	EquipmentFacilities      *string `json:"equipment_facilities,omitempty"`
	CommonQuestions          *string `json:"common_questions,omitempty"`
	OtherInfo                *string `json:"other_info,omitempty"`
	AIGuidance               *string `json:"ai_guidance,omitempty"`
}

// ReceiptSettings configures the (out-of-scope) receipt PDF generator.
type ReceiptSettings struct {
	CustomNotes *string `json:"custom_notes,omitempty"`
	ShowStamp   bool    `json:"show_stamp"`
}

// ClinicSettings is the validated JSON document stored on Clinic.Settings.
type ClinicSettings struct {
	NotificationSettings       NotificationSettings       `json:"notification_settings"`
	BookingRestrictionSettings BookingRestrictionSettings `json:"booking_restriction_settings"`
	ClinicInfoSettings         ClinicInfoSettings         `json:"clinic_info_settings"`
	ChatSettings               ChatSettings               `json:"chat_settings"`
	ReceiptSettings            ReceiptSettings            `json:"receipt_settings"`
}

// DefaultClinicSettings returns the zero-value settings document with every
// schema default filled in.
func DefaultClinicSettings() ClinicSettings {
	return ClinicSettings{
		NotificationSettings: NotificationSettings{
			ReminderHoursBefore:     24,
			ReminderTimingMode:      "hours_before",
			ReminderPreviousDayTime: "18:00",
		},
		BookingRestrictionSettings: DefaultBookingRestrictionSettings(),
	}
}

// Clinic is the tenant that owns every other entity in this core.
type Clinic struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	Settings ClinicSettings `json:"settings" db:"settings"`

	// LiffAccessToken replaces the clinic id in patient-facing URLs to
	// prevent tenant enumeration; unique across all clinics when present.
	LiffAccessToken *string `json:"liff_access_token,omitempty" db:"liff_access_token"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Billing pass-through fields: owned by the out-of-scope billing
	// subsystem, never interpreted by the scheduling core.
	SubscriptionStatus string     `json:"subscription_status,omitempty" db:"subscription_status"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty" db:"trial_ends_at"`
	StripeCustomerID   *string    `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
}

// Validate checks clinic invariants that don't require a database round-trip.
func (c *Clinic) Validate() error {
	if c.Name == "" {
		return ErrInvalidClinicName
	}
	return nil
}

// EffectiveDisplayName falls back to the clinic's internal name when no
// patient-facing display name has been configured.
func (c *Clinic) EffectiveDisplayName() string {
	if c.Settings.ClinicInfoSettings.DisplayName != nil && *c.Settings.ClinicInfoSettings.DisplayName != "" {
		return *c.Settings.ClinicInfoSettings.DisplayName
	}
	return c.Name
}

// NewClinic builds a clinic with schema defaults, following the teacher's
// NewXxx constructor convention.
func NewClinic(name string) *Clinic {
	now := time.Now()
	return &Clinic{
		ID:        uuid.New(),
		Name:      name,
		Settings:  DefaultClinicSettings(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
