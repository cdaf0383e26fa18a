package timeutil

import (
	"fmt"
	"time"
)

// ClinicLocation is the fixed UTC+8 offset every clinic operates under.
// Built with a fixed offset rather than time.LoadLocation("Asia/Taipei")
// because Taiwan observes no DST and the spec calls for a location that
// never reinterprets historical wall-clock times across a tzdata update.
var ClinicLocation = time.FixedZone("clinic", 8*60*60)

// StartOfDay returns midnight of t's calendar date in the clinic's
// timezone.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(ClinicLocation).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ClinicLocation)
}

// TruncateToHour zeroes the minute/second/nanosecond components.
func TruncateToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// ConvertTimeToTimezone converts a UTC time to the specified IANA timezone
// Returns an error if the timezone is invalid or empty
func ConvertTimeToTimezone(utcTime time.Time, timezone string) (time.Time, error) {
	if timezone == "" {
		return time.Time{}, fmt.Errorf("timezone cannot be empty")
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	return utcTime.In(loc), nil
}

// ConvertTimesToTimezone converts start and end UTC times to the specified IANA timezone
// Returns an error if the timezone is invalid or empty
func ConvertTimesToTimezone(startUTC, endUTC time.Time, timezone string) (start, end time.Time, err error) {
	start, err = ConvertTimeToTimezone(startUTC, timezone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end, err = ConvertTimeToTimezone(endUTC, timezone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	return start, end, nil
}
