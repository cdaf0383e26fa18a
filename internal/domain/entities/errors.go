package entities

import "errors"

// Domain errors. These are sentinel values for entity-level Validate()
// failures only; cross-cutting domain errors (conflict, policy violation,
// not found with clinic scoping, etc.) are modeled by the domainerr package
// so handlers can map them to response codes without type-switching on
// package entities.
var (
	// Clinic errors
	ErrInvalidClinicName = errors.New("clinic name is required")
	ErrClinicNotFound    = errors.New("clinic not found")
	ErrInvalidClinicID   = errors.New("clinic ID is required")

	// User / association errors
	ErrInvalidUserID = errors.New("user ID is required")
	ErrInvalidRoles  = errors.New("at least one role is required")
	ErrUserNotFound  = errors.New("user not found")
	ErrUserClinicAssociationNotFound = errors.New("user clinic association not found")

	// Patient errors
	ErrInvalidPatientName = errors.New("patient name is required")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrInvalidPatientID   = errors.New("patient ID is required")

	// LineUser errors
	ErrLineUserNotFound = errors.New("line user not found")

	// AppointmentType errors
	ErrInvalidAppointmentTypeName     = errors.New("appointment type name is required")
	ErrInvalidAppointmentTypeDuration = errors.New("appointment type duration must be positive")
	ErrAppointmentTypeNotFound        = errors.New("appointment type not found")
	ErrAppointmentTypeNameTaken       = errors.New("an active appointment type already uses this name")

	// Practitioner availability errors
	ErrInvalidAvailabilityTime   = errors.New("invalid availability time")
	ErrAvailabilityNotFound      = errors.New("availability not found")
	ErrAvailabilityExceptionNotFound = errors.New("availability exception not found")
	ErrPractitionerNotAvailable  = errors.New("practitioner is not available at the requested time")
	ErrInvalidWeekday            = errors.New("weekday must be between 0 and 6")

	// Calendar event / appointment errors
	ErrInvalidPractitionerID     = errors.New("practitioner ID is required")
	ErrInvalidAppointmentTypeID  = errors.New("appointment type ID is required")
	ErrInvalidAppointmentTime    = errors.New("invalid appointment time")
	ErrEndTimeBeforeStartTime    = errors.New("end time must be after start time")
	ErrAppointmentNotFound       = errors.New("appointment not found")
	ErrCalendarEventNotFound     = errors.New("calendar event not found")
	ErrAppointmentConflict       = errors.New("appointment conflicts with an existing calendar event")
	ErrPastAppointmentTime       = errors.New("appointment time cannot be in the past")
	ErrInvalidAppointmentStatus  = errors.New("invalid appointment status")
	ErrInvalidStatusTransition   = errors.New("invalid appointment status transition")
	ErrAlreadyCancelled          = errors.New("appointment is already cancelled")
	ErrCancellationReasonNotAllowed = errors.New("cancellation reason is not applicable to this status")

	// Resource errors
	ErrInvalidResourceName     = errors.New("resource name is required")
	ErrInvalidResourceTypeName = errors.New("resource type name is required")
	ErrResourceNotFound        = errors.New("resource not found")
	ErrResourceTypeNotFound    = errors.New("resource type not found")
	ErrInsufficientResourceCapacity = errors.New("insufficient resource capacity for the requested window")

	// Billing scenario / follow-up message errors
	ErrInvalidBillingScenarioName = errors.New("billing scenario name is required")
	ErrBillingScenarioNotFound    = errors.New("billing scenario not found")
	ErrInvalidFollowUpMessageBody = errors.New("follow-up message body is required")
	ErrFollowUpMessageNotFound    = errors.New("follow-up message not found")

	// Signup token errors
	ErrSignupTokenNotFound = errors.New("signup token not found")
	ErrSignupTokenExpired  = errors.New("signup token has expired")
	ErrSignupTokenUsed     = errors.New("signup token has already been used")

	// General errors
	ErrInvalidID          = errors.New("invalid ID format")
	ErrUnauthorizedAccess = errors.New("unauthorized access to resource")
)
