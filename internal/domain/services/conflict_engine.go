package services

import (
	"context"
	"sort"
	"time"

	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"
	"clinic-scheduler-backend/pkg/timeutil"

	"github.com/google/uuid"
)

// ConflictEngine answers the three availability queries (Q1 free slots, Q2
// batch free slots, Q3 conflict check) and runs the auto-assignment
// tie-break. Grounded on the teacher's scheduling_service.go slot-generation
// loop and appointment_conflict_checker.go's conflict-class ordering,
// generalized to range over CalendarEvents and resource allocations instead
// of a single Appointment table.
type ConflictEngine struct {
	calendarEvents repositories.CalendarEventRepository
	availability   repositories.PractitionerAvailabilityRepository
	appointments   repositories.AppointmentRepository
	resourceReqs   repositories.AppointmentResourceRequirementRepository
	resources      repositories.ResourceRepository
}

func NewConflictEngine(
	calendarEvents repositories.CalendarEventRepository,
	availability repositories.PractitionerAvailabilityRepository,
	appointments repositories.AppointmentRepository,
	resourceReqs repositories.AppointmentResourceRequirementRepository,
	resources repositories.ResourceRepository,
) *ConflictEngine {
	return &ConflictEngine{
		calendarEvents: calendarEvents,
		availability:   availability,
		appointments:   appointments,
		resourceReqs:   resourceReqs,
		resources:      resources,
	}
}

// window is a working interval on a given calendar date.
type window struct {
	start, end time.Time
}

// FreeSlotsRequest parameterizes Q1/Q2.
type FreeSlotsRequest struct {
	PractitionerID      uuid.UUID
	AppointmentType     *entities.AppointmentType
	ExcludeCalendarEventID *uuid.UUID
	StepMinutes         int // clinic's step_size_minutes grid
	PatientFacing       bool
}

// FreeSlots implements Q1: candidate start times for a single date.
func (c *ConflictEngine) FreeSlots(ctx context.Context, req FreeSlotsRequest, date time.Time) ([]entities.TimeSlot, error) {
	results, err := c.BatchFreeSlots(ctx, req, []time.Time{date})
	if err != nil {
		return nil, err
	}
	return results[timeutil.StartOfDay(date)], nil
}

// BatchFreeSlots implements Q2: one scan per entity kind across every date
// requested, instead of one scan per date.
func (c *ConflictEngine) BatchFreeSlots(ctx context.Context, req FreeSlotsRequest, dates []time.Time) (map[time.Time][]entities.TimeSlot, error) {
	if len(dates) == 0 {
		return map[time.Time][]entities.TimeSlot{}, nil
	}
	if req.AppointmentType == nil || req.AppointmentType.DurationMinutes <= 0 {
		return nil, domainerr.New(domainerr.KindValidationError, "appointment type must have a positive duration")
	}

	from := timeutil.StartOfDay(dates[0])
	to := from
	for _, d := range dates {
		sd := timeutil.StartOfDay(d)
		if sd.Before(from) {
			from = sd
		}
		if sd.After(to) {
			to = sd
		}
	}
	to = to.Add(24 * time.Hour)

	templates, err := c.availability.GetByPractitioner(ctx, req.PractitionerID)
	if err != nil {
		return nil, err
	}
	events, err := c.calendarEvents.GetByPractitionerAndRange(ctx, req.PractitionerID, from, to, false)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(req.AppointmentType.DurationMinutes) * time.Minute
	buffer := time.Duration(req.AppointmentType.SchedulingBufferMinutes) * time.Minute

	out := make(map[time.Time][]entities.TimeSlot, len(dates))
	for _, d := range dates {
		day := timeutil.StartOfDay(d)
		windows := workingWindows(day, templates)
		windows = subtractBlockingEvents(windows, events, req.ExcludeCalendarEventID)

		var slots []entities.TimeSlot
		for _, w := range windows {
			for start := w.start; !start.Add(duration).Add(buffer).After(w.end); start = start.Add(time.Duration(req.StepMinutes) * time.Minute) {
				end := start.Add(duration)
				ok, err := c.hasResourceCapacity(ctx, req.AppointmentType.ID, start, end, req.ExcludeCalendarEventID)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				slots = append(slots, entities.TimeSlot{PractitionerID: req.PractitionerID, Start: start, End: end})
			}
		}
		out[day] = slots
	}
	return out, nil
}

// workingWindows returns the weekly template's windows applied to day,
// restricted to templates matching day's weekday.
func workingWindows(day time.Time, templates []*entities.PractitionerAvailability) []window {
	weekday := int(day.In(timeutil.ClinicLocation).Weekday())
	var windows []window
	for _, t := range templates {
		if t.Weekday != weekday || t.DeletedAt != nil {
			continue
		}
		start, end := t.WindowOn(day, timeutil.ClinicLocation)
		windows = append(windows, window{start: start, end: end})
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].start.Before(windows[j].start) })
	return windows
}

// subtractBlockingEvents removes appointment and exception intervals from
// the working windows, splitting a window in two when the removed interval
// falls in its middle. Every event passed in except exclude is treated as
// a block, including exceptions whose Blocking flag is false.
func subtractBlockingEvents(windows []window, events []*entities.CalendarEvent, exclude *uuid.UUID) []window {
	for _, e := range events {
		if exclude != nil && e.ID == *exclude {
			continue
		}
		windows = subtractInterval(windows, e.Start, e.End)
	}
	return windows
}

func subtractInterval(windows []window, start, end time.Time) []window {
	var out []window
	for _, w := range windows {
		if !start.Before(w.end) || !end.After(w.start) {
			out = append(out, w)
			continue
		}
		if start.After(w.start) {
			out = append(out, window{start: w.start, end: start})
		}
		if end.Before(w.end) {
			out = append(out, window{start: end, end: w.end})
		}
	}
	return out
}

func (c *ConflictEngine) hasResourceCapacity(ctx context.Context, appointmentTypeID uuid.UUID, start, end time.Time, excludeCalendarEventID *uuid.UUID) (bool, error) {
	reqs, err := c.resourceReqs.GetByAppointmentType(ctx, appointmentTypeID)
	if err != nil {
		return false, err
	}
	for _, req := range reqs {
		available, err := c.resources.CountAvailable(ctx, req.ResourceTypeID, start, end, excludeCalendarEventID)
		if err != nil {
			return false, err
		}
		if available < req.Quantity {
			return false, nil
		}
	}
	return true, nil
}

// ConflictCheckRequest parameterizes Q3.
type ConflictCheckRequest struct {
	PractitionerID         uuid.UUID
	Start, End             time.Time
	AppointmentType        *entities.AppointmentType
	ExcludeCalendarEventID *uuid.UUID
	IsPatientInitiated     bool
}

// CheckConflict implements Q3: the priority-ordered conflict check. It
// returns nil when the interval is bookable, or a *domainerr.Error carrying
// the highest-priority conflict kind otherwise.
func (c *ConflictEngine) CheckConflict(ctx context.Context, req ConflictCheckRequest) error {
	if !req.End.After(req.Start) {
		return domainerr.New(domainerr.KindValidationError, "end time must be after start time")
	}

	events, err := c.calendarEvents.GetByPractitionerAndRange(ctx, req.PractitionerID, req.Start, req.End, false)
	if err != nil {
		return err
	}

	// 1. Appointment conflict.
	for _, e := range events {
		if req.ExcludeCalendarEventID != nil && e.ID == *req.ExcludeCalendarEventID {
			continue
		}
		if e.Kind != entities.CalendarEventKindAppointment {
			continue
		}
		if e.Start.Before(req.End) && req.Start.Before(e.End) {
			return domainerr.New(domainerr.KindConflictAppointment, "practitioner already has a confirmed appointment in this window")
		}
	}

	// 2. Exception conflict — only blocks patient-initiated bookings.
	if req.IsPatientInitiated {
		for _, e := range events {
			if req.ExcludeCalendarEventID != nil && e.ID == *req.ExcludeCalendarEventID {
				continue
			}
			if e.Kind != entities.CalendarEventKindAvailabilityException {
				continue
			}
			if e.Start.Before(req.End) && req.Start.Before(e.End) {
				return domainerr.New(domainerr.KindConflictException, "practitioner has a schedule exception in this window")
			}
		}
	}

	// 3. Outside-default-hours conflict.
	templates, err := c.availability.GetByPractitioner(ctx, req.PractitionerID)
	if err != nil {
		return err
	}
	windows := workingWindows(req.Start, templates)
	fits := false
	for _, w := range windows {
		if !req.Start.Before(w.start) && !req.End.After(w.end) {
			fits = true
			break
		}
	}
	if !fits {
		return domainerr.New(domainerr.KindConflictOutsideDefaultHours, "requested time is outside the practitioner's working hours")
	}

	// 4. Resource conflict.
	if req.AppointmentType != nil {
		ok, err := c.hasResourceCapacity(ctx, req.AppointmentType.ID, req.Start, req.End, req.ExcludeCalendarEventID)
		if err != nil {
			return err
		}
		if !ok {
			return domainerr.New(domainerr.KindConflictResource, "required resources are already allocated in this window")
		}
	}

	return nil
}

// PractitionerCandidate is one row of the tie-break computation.
type PractitionerCandidate struct {
	PractitionerID        uuid.UUID
	ConfirmedCountThatDay int
}

// ChooseAutoAssignee applies the tie-break rule: minimize (confirmed
// appointment count that day, practitioner_id ascending). candidates must
// already be filtered down to practitioners who pass the Q3 check for the
// target interval; ChooseAutoAssignee itself makes no conflict queries.
func ChooseAutoAssignee(candidates []PractitionerCandidate) (uuid.UUID, bool) {
	if len(candidates) == 0 {
		return uuid.Nil, false
	}
	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.ConfirmedCountThatDay < best.ConfirmedCountThatDay ||
			(cand.ConfirmedCountThatDay == best.ConfirmedCountThatDay && cand.PractitionerID.String() < best.PractitionerID.String()) {
			best = cand
		}
	}
	return best.PractitionerID, true
}
