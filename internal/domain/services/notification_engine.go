package services

import (
	"fmt"
	"strings"
	"time"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
)

// NotificationRecipient identifies who an intent is addressed to.
type NotificationRecipient string

const (
	RecipientPractitioner     NotificationRecipient = "practitioner"
	RecipientOldPractitioner  NotificationRecipient = "old_practitioner"
	RecipientPatient          NotificationRecipient = "patient"
)

// NotificationTemplateKind selects which of the service's message templates
// to render.
type NotificationTemplateKind string

const (
	TemplateNewAppointment      NotificationTemplateKind = "new_appointment"
	TemplateCancellation        NotificationTemplateKind = "cancellation"
	TemplateEdit                NotificationTemplateKind = "edit"
	TemplatePatientConfirmation NotificationTemplateKind = "patient_confirmation"
)

// NotificationIntent is a decision, not a send: the usecase layer persists
// or enqueues it onto the outbound worker after the transaction commits,
// per the spec §5 "notifications must not block the response" rule. This
// message-passing split is what lets the engine stay a pure function of its
// inputs, fully unit-testable without a worker or message-platform client.
type NotificationIntent struct {
	Recipient      NotificationRecipient
	PractitionerID *uuid.UUID
	PatientID      *uuid.UUID
	Template       NotificationTemplateKind
	AppointmentID  uuid.UUID
}

// Actor is a type alias of entities.ActorKind, so callers can pass
// entities.ActorKind values directly.
type Actor = entities.ActorKind

// ChangedField enumerates what changed between the before/after snapshot of
// an Edit.
type ChangedField string

const (
	ChangedPractitioner ChangedField = "practitioner"
	ChangedStartTime    ChangedField = "start_time"
	ChangedStatus       ChangedField = "status"
)

// NotificationEngine implements the §4.4 decision matrix. It is a pure
// function: given actor, visibility before/after, and changed fields, it
// returns which recipients get which template — no I/O, grounded on the
// spec's own description (the teacher repo has no equivalent; the design is
// new but mirrors the teacher's small, single-purpose service style).
type NotificationEngine struct{}

func NewNotificationEngine() *NotificationEngine {
	return &NotificationEngine{}
}

// DecideForCreate implements the Create row of the decision matrix.
func (n *NotificationEngine) DecideForCreate(actor Actor, visibleAfter bool, sendPatientConfirmation bool, appointmentID uuid.UUID) []NotificationIntent {
	var intents []NotificationIntent
	if visibleAfter {
		intents = append(intents, NotificationIntent{Recipient: RecipientPractitioner, Template: TemplateNewAppointment, AppointmentID: appointmentID})
	}
	if (actor == entities.ActorClinicStaff || actor == entities.ActorCron) && visibleAfter && sendPatientConfirmation {
		intents = append(intents, NotificationIntent{Recipient: RecipientPatient, Template: TemplatePatientConfirmation, AppointmentID: appointmentID})
	}
	return intents
}

// DecideForEdit implements the Edit row of the decision matrix.
//
// practitionerChanged/timeChanged report Δ membership; visibleBefore /
// visibleAfter are V_before / V_after.
func (n *NotificationEngine) DecideForEdit(actor Actor, practitionerChanged, timeChanged, visibleBefore, visibleAfter bool, appointmentID uuid.UUID) []NotificationIntent {
	var intents []NotificationIntent

	if practitionerChanged && visibleAfter {
		intents = append(intents, NotificationIntent{Recipient: RecipientPractitioner, Template: TemplateNewAppointment, AppointmentID: appointmentID})
	}
	if practitionerChanged && visibleBefore {
		intents = append(intents, NotificationIntent{Recipient: RecipientOldPractitioner, Template: TemplateCancellation, AppointmentID: appointmentID})
	}
	if !practitionerChanged && timeChanged && visibleBefore && visibleAfter {
		intents = append(intents, NotificationIntent{Recipient: RecipientPractitioner, Template: TemplateEdit, AppointmentID: appointmentID})
	}

	revealedToPatient := !visibleBefore && visibleAfter
	if actor == entities.ActorClinicStaff && (timeChanged || revealedToPatient) {
		intents = append(intents, NotificationIntent{Recipient: RecipientPatient, Template: TemplateEdit, AppointmentID: appointmentID})
	}
	return intents
}

// DecideForCancel implements the Cancel row of the decision matrix.
func (n *NotificationEngine) DecideForCancel(actor Actor, visibleBefore bool, appointmentID uuid.UUID) []NotificationIntent {
	var intents []NotificationIntent
	if visibleBefore {
		intents = append(intents, NotificationIntent{Recipient: RecipientPractitioner, Template: TemplateCancellation, AppointmentID: appointmentID})
	}
	if actor == entities.ActorClinicStaff {
		intents = append(intents, NotificationIntent{Recipient: RecipientPatient, Template: TemplateCancellation, AppointmentID: appointmentID})
	}
	return intents
}

// DecideForReveal implements the Reveal row: only the practitioner is
// told, as if the appointment were just booked on them; the patient's view
// never changed so they receive nothing.
func (n *NotificationEngine) DecideForReveal(appointmentID uuid.UUID) []NotificationIntent {
	return []NotificationIntent{{Recipient: RecipientPractitioner, Template: TemplateNewAppointment, AppointmentID: appointmentID}}
}

// TemplatePlaceholders is the documented placeholder set a rendered message
// body may reference.
type TemplatePlaceholders struct {
	PatientName         string
	PractitionerName    string
	AppointmentTypeName string
	AppointmentDatetime time.Time
	ClinicName          string
	ClinicPhone         string
	ClinicAddress       string
	Notes               string
}

// Render substitutes the documented placeholder set into a template body.
// Grounded on the per-service message templates described in spec §4.4.
// {appointment_datetime} is formatted in the location the time carries;
// the notify Sink converts it to the clinic's fixed +08:00 zone first.
func Render(body string, p TemplatePlaceholders) string {
	replacer := strings.NewReplacer(
		"{patient_name}", p.PatientName,
		"{practitioner_name}", p.PractitionerName,
		"{appointment_type_name}", p.AppointmentTypeName,
		"{appointment_datetime}", p.AppointmentDatetime.Format("2006-01-02 15:04"),
		"{clinic_name}", p.ClinicName,
		"{clinic_phone}", p.ClinicPhone,
		"{clinic_address}", p.ClinicAddress,
		"{notes}", p.Notes,
	)
	return replacer.Replace(body)
}

// TemplateFor selects the concrete entities.MessageTemplate an intent's
// Template kind maps to on a given service.
func TemplateFor(at *entities.AppointmentType, kind NotificationTemplateKind) (entities.MessageTemplate, error) {
	switch kind {
	case TemplatePatientConfirmation:
		return at.PatientConfirmTemplate, nil
	case TemplateNewAppointment:
		return at.ClinicConfirmTemplate, nil
	case TemplateEdit, TemplateCancellation:
		return at.ReminderTemplate, nil
	default:
		return entities.MessageTemplate{}, fmt.Errorf("unknown template kind %q", kind)
	}
}
