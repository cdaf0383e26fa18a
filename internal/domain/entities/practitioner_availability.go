package entities

import (
	"time"

	"github.com/google/uuid"
)

// PractitionerAvailability is a recurring weekly template slot: "this
// practitioner works Mondays 09:00-17:00". Concrete free slots are derived
// from these templates minus CalendarEvents and AvailabilityExceptions by
// the conflict engine, never stored directly. Grounded on the teacher's
// entities/doctor_availability.go ConflictsWith convention.
type PractitionerAvailability struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ClinicID       uuid.UUID `json:"clinic_id" db:"clinic_id"`
	PractitionerID uuid.UUID `json:"practitioner_id" db:"practitioner_id"`

	// Weekday is 0 (Sunday) through 6 (Saturday), evaluated in the clinic's
	// fixed +08:00 timezone.
	Weekday   int    `json:"weekday" db:"weekday"`
	StartTime string `json:"start_time" db:"start_time"` // "HH:MM"
	EndTime   string `json:"end_time" db:"end_time"`     // "HH:MM"

	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate checks template invariants.
func (p *PractitionerAvailability) Validate() error {
	if p.Weekday < 0 || p.Weekday > 6 {
		return ErrInvalidWeekday
	}
	start, err := time.Parse("15:04", p.StartTime)
	if err != nil {
		return ErrInvalidAvailabilityTime
	}
	end, err := time.Parse("15:04", p.EndTime)
	if err != nil {
		return ErrInvalidAvailabilityTime
	}
	if !end.After(start) {
		return ErrInvalidAvailabilityTime
	}
	return nil
}

// Overlaps reports whether p and other cover the same weekday with
// intersecting [StartTime, EndTime) windows. Both must already be valid
// per Validate.
func (p *PractitionerAvailability) Overlaps(other *PractitionerAvailability) bool {
	if p.Weekday != other.Weekday {
		return false
	}
	return p.StartTime < other.EndTime && other.StartTime < p.EndTime
}

// WindowOn returns the absolute start/end instants of this weekly template
// applied to the given date, interpreted in loc (the clinic's fixed
// timezone).
func (p *PractitionerAvailability) WindowOn(date time.Time, loc *time.Location) (time.Time, time.Time) {
	start, _ := time.Parse("15:04", p.StartTime)
	end, _ := time.Parse("15:04", p.EndTime)
	y, m, d := date.In(loc).Date()
	from := time.Date(y, m, d, start.Hour(), start.Minute(), 0, 0, loc)
	to := time.Date(y, m, d, end.Hour(), end.Minute(), 0, 0, loc)
	return from, to
}

// AvailabilityException is a one-off block on the weekly template, such as
// a practitioner's vacation day. Owned by a CalendarEvent so it
// participates in the same conflict-checking pass as appointments.
type AvailabilityException struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ClinicID       uuid.UUID `json:"clinic_id" db:"clinic_id"`
	PractitionerID uuid.UUID `json:"practitioner_id" db:"practitioner_id"`

	// CalendarEventID is the owning CalendarEvent carrying this exception's
	// window; deleting the exception deletes that event too.
	CalendarEventID uuid.UUID `json:"calendar_event_id" db:"calendar_event_id"`

	// Blocking, when true, makes CreateException refuse a window that
	// overlaps confirmed appointments unless forced. The window is removed
	// from availability either way; a false value adds no opening.
	Blocking bool   `json:"blocking" db:"blocking"`
	Reason   string `json:"reason,omitempty" db:"reason"`
}
