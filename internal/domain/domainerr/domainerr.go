// Package domainerr models the cross-cutting failure taxonomy the
// scheduling core raises: the Kind a handler needs to pick an HTTP status,
// plus a message safe to show a clinic user and an optional detail safe to
// log but not necessarily show. Built on the shape of pkg/errors.AppError,
// scoped to domain (not transport) concerns.
package domainerr

import "fmt"

// Kind is the enumerated failure category the spec's error model lists.
// Handlers switch on Kind, never on Error, to decide the HTTP status.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindValidationError Kind = "validation_error"

	// KindPolicyViolation and its subclasses cover Booking Policy Evaluator
	// rejections (§4.2 of the booking policy).
	KindPolicyViolation                  Kind = "policy_violation"
	KindPolicyLeadTime                   Kind = "policy_violation.lead_time"
	KindPolicyCancelWindow               Kind = "policy_violation.cancel_window"
	KindPolicyBookingWindow              Kind = "policy_violation.booking_window"
	KindPolicyActiveCap                  Kind = "policy_violation.active_cap"
	KindPolicyStepGranularity            Kind = "policy_violation.step_granularity"
	KindPolicyServiceUnavailable         Kind = "policy_violation.service_unavailable"
	KindPolicyPractitionerSelectionNotAllowed Kind = "policy_violation.practitioner_selection_not_allowed"

	// KindConflict and its subclasses cover Conflict Engine rejections
	// (Q3 of the availability engine).
	KindConflict                Kind = "conflict"
	KindConflictAppointment      Kind = "conflict.appointment_conflict"
	KindConflictResource         Kind = "conflict.resource_conflict"
	KindConflictException        Kind = "conflict.exception_conflict"
	KindConflictOutsideDefaultHours Kind = "conflict.outside_default_hours"
	KindConflictNoAvailability    Kind = "conflict.no_availability"

	KindAlreadyCancelled     Kind = "already_cancelled"
	KindNameConflict         Kind = "name_conflict"
	KindSerializationFailure Kind = "serialization_failure"
	KindRateLimited          Kind = "rate_limited"
)

// Error is the domain-level error value returned by services and usecases.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a domain error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a domain error that carries an underlying cause, typically a
// repository-layer error the caller should not expose verbatim.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetail attaches a detail string (safe to log, not necessarily to
// display) and returns the same error for chaining.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// As reports whether err is (or wraps) a *Error and returns it.
func As(err error) (*Error, bool) {
	var de *Error
	if e, ok := err.(*Error); ok {
		return e, true
	}
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return de, false
}

// IsKind reports whether err is a domain error of exactly kind, or a
// subclass of it (e.g. IsKind(err, KindConflict) matches
// KindConflictAppointment too).
func IsKind(err error, kind Kind) bool {
	de, ok := As(err)
	if !ok {
		return false
	}
	k := string(de.Kind)
	target := string(kind)
	if k == target {
		return true
	}
	return len(k) > len(target) && k[:len(target)+1] == target+"."
}
