package services

import (
	"context"
	"testing"
	"time"

	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/pkg/timeutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCalendarEventRepo and its siblings are hand-written in-memory fakes
// rather than testify/mock expectation objects: the conflict engine's tests
// care about realistic range-query behavior (overlap filtering) more than
// call-count assertions, which a fixed in-memory slice expresses directly.
type fakeCalendarEventRepo struct {
	events []*entities.CalendarEvent
}

func (f *fakeCalendarEventRepo) Create(ctx context.Context, event *entities.CalendarEvent) error {
	f.events = append(f.events, event)
	return nil
}
func (f *fakeCalendarEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.CalendarEvent, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, domainerr.New(domainerr.KindNotFound, "not found")
}
func (f *fakeCalendarEventRepo) Update(ctx context.Context, event *entities.CalendarEvent) error { return nil }
func (f *fakeCalendarEventRepo) Delete(ctx context.Context, id uuid.UUID) error                   { return nil }
func (f *fakeCalendarEventRepo) GetByPractitionerAndRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time, forUpdate bool) ([]*entities.CalendarEvent, error) {
	var out []*entities.CalendarEvent
	for _, e := range f.events {
		if e.PractitionerID != practitionerID {
			continue
		}
		if e.Start.Before(to) && from.Before(e.End) {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeCalendarEventRepo) GetByClinicAndRange(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*entities.CalendarEvent, error) {
	return f.events, nil
}

type fakeAvailabilityRepo struct {
	byPractitioner map[uuid.UUID][]*entities.PractitionerAvailability
}

func (f *fakeAvailabilityRepo) Create(ctx context.Context, a *entities.PractitionerAvailability) error {
	return nil
}
func (f *fakeAvailabilityRepo) GetByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*entities.PractitionerAvailability, error) {
	return f.byPractitioner[practitionerID], nil
}
func (f *fakeAvailabilityRepo) Update(ctx context.Context, a *entities.PractitionerAvailability) error {
	return nil
}
func (f *fakeAvailabilityRepo) SoftDelete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeAppointmentRepo struct{}

func (f *fakeAppointmentRepo) Create(ctx context.Context, appt *entities.Appointment) error { return nil }
func (f *fakeAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Appointment, error) {
	return nil, domainerr.New(domainerr.KindNotFound, "not found")
}
func (f *fakeAppointmentRepo) GetByCalendarEventID(ctx context.Context, calendarEventID uuid.UUID) (*entities.Appointment, error) {
	return nil, domainerr.New(domainerr.KindNotFound, "not found")
}
func (f *fakeAppointmentRepo) GetByCalendarEventIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Appointment, error) {
	return nil, nil
}
func (f *fakeAppointmentRepo) GetByPatient(ctx context.Context, patientID uuid.UUID, includeCancelled bool) ([]*entities.Appointment, error) {
	return nil, nil
}
func (f *fakeAppointmentRepo) Update(ctx context.Context, appt *entities.Appointment) error { return nil }
func (f *fakeAppointmentRepo) CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeAppointmentRepo) CountFutureByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeAppointmentRepo) GetPendingReveal(ctx context.Context, clinicID uuid.UUID, settings entities.BookingRestrictionSettings, now time.Time, limit int) ([]*entities.Appointment, error) {
	return nil, nil
}
func (f *fakeAppointmentRepo) MarkRevealed(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	return true, nil
}

type fakeResourceRequirementRepo struct {
	byType map[uuid.UUID][]*entities.AppointmentResourceRequirement
}

func (f *fakeResourceRequirementRepo) GetByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) ([]*entities.AppointmentResourceRequirement, error) {
	return f.byType[appointmentTypeID], nil
}
func (f *fakeResourceRequirementRepo) ReplaceAll(ctx context.Context, appointmentTypeID uuid.UUID, reqs []entities.AppointmentResourceRequirement) error {
	return nil
}

type fakeResourceRepo struct {
	available int
}

func (f *fakeResourceRepo) Create(ctx context.Context, r *entities.Resource) error { return nil }
func (f *fakeResourceRepo) GetByResourceType(ctx context.Context, resourceTypeID uuid.UUID) ([]*entities.Resource, error) {
	return nil, nil
}
func (f *fakeResourceRepo) Update(ctx context.Context, r *entities.Resource) error     { return nil }
func (f *fakeResourceRepo) SoftDelete(ctx context.Context, id uuid.UUID) error         { return nil }
func (f *fakeResourceRepo) CountAvailable(ctx context.Context, resourceTypeID uuid.UUID, from, to time.Time, excludeCalendarEventID *uuid.UUID) (int, error) {
	return f.available, nil
}

func mondayTemplate(practitionerID uuid.UUID) *entities.PractitionerAvailability {
	return &entities.PractitionerAvailability{
		ID: uuid.New(), PractitionerID: practitionerID,
		Weekday: 1, StartTime: "09:00", EndTime: "12:00",
	}
}

func TestCheckConflictAppointmentTakesPriority(t *testing.T) {
	practitionerID := uuid.New()
	// Monday, 2026-02-02.
	monday := time.Date(2026, 2, 2, 10, 0, 0, 0, timeutil.ClinicLocation)

	existing := &entities.CalendarEvent{
		ID: uuid.New(), PractitionerID: practitionerID, Kind: entities.CalendarEventKindAppointment,
		Start: monday, End: monday.Add(30 * time.Minute),
	}
	engine := NewConflictEngine(
		&fakeCalendarEventRepo{events: []*entities.CalendarEvent{existing}},
		&fakeAvailabilityRepo{byPractitioner: map[uuid.UUID][]*entities.PractitionerAvailability{
			practitionerID: {mondayTemplate(practitionerID)},
		}},
		&fakeAppointmentRepo{},
		&fakeResourceRequirementRepo{},
		&fakeResourceRepo{available: 0},
	)

	err := engine.CheckConflict(context.Background(), ConflictCheckRequest{
		PractitionerID: practitionerID,
		Start:          monday,
		End:            monday.Add(15 * time.Minute),
	})
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindConflictAppointment, de.Kind)
}

func TestCheckConflictExceptionOnlyBlocksPatientInitiated(t *testing.T) {
	practitionerID := uuid.New()
	monday := time.Date(2026, 2, 2, 10, 0, 0, 0, timeutil.ClinicLocation)

	exception := &entities.CalendarEvent{
		ID: uuid.New(), PractitionerID: practitionerID, Kind: entities.CalendarEventKindAvailabilityException,
		Start: monday, End: monday.Add(30 * time.Minute),
	}
	engine := NewConflictEngine(
		&fakeCalendarEventRepo{events: []*entities.CalendarEvent{exception}},
		&fakeAvailabilityRepo{byPractitioner: map[uuid.UUID][]*entities.PractitionerAvailability{
			practitionerID: {mondayTemplate(practitionerID)},
		}},
		&fakeAppointmentRepo{},
		&fakeResourceRequirementRepo{},
		&fakeResourceRepo{available: 0},
	)

	t.Run("staff-initiated booking ignores the exception", func(t *testing.T) {
		err := engine.CheckConflict(context.Background(), ConflictCheckRequest{
			PractitionerID: practitionerID, Start: monday, End: monday.Add(15 * time.Minute),
			IsPatientInitiated: false,
		})
		assert.NoError(t, err)
	})

	t.Run("patient-initiated booking is blocked by the exception", func(t *testing.T) {
		err := engine.CheckConflict(context.Background(), ConflictCheckRequest{
			PractitionerID: practitionerID, Start: monday, End: monday.Add(15 * time.Minute),
			IsPatientInitiated: true,
		})
		require.Error(t, err)
		de, ok := domainerr.As(err)
		require.True(t, ok)
		assert.Equal(t, domainerr.KindConflictException, de.Kind)
	})
}

func TestCheckConflictOutsideDefaultHours(t *testing.T) {
	practitionerID := uuid.New()
	monday := time.Date(2026, 2, 2, 18, 0, 0, 0, timeutil.ClinicLocation) // template ends 12:00

	engine := NewConflictEngine(
		&fakeCalendarEventRepo{},
		&fakeAvailabilityRepo{byPractitioner: map[uuid.UUID][]*entities.PractitionerAvailability{
			practitionerID: {mondayTemplate(practitionerID)},
		}},
		&fakeAppointmentRepo{},
		&fakeResourceRequirementRepo{},
		&fakeResourceRepo{available: 0},
	)

	err := engine.CheckConflict(context.Background(), ConflictCheckRequest{
		PractitionerID: practitionerID, Start: monday, End: monday.Add(15 * time.Minute),
	})
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindConflictOutsideDefaultHours, de.Kind)
}

func TestCheckConflictResourceCapacity(t *testing.T) {
	practitionerID := uuid.New()
	appointmentTypeID := uuid.New()
	monday := time.Date(2026, 2, 2, 10, 0, 0, 0, timeutil.ClinicLocation)

	engine := NewConflictEngine(
		&fakeCalendarEventRepo{},
		&fakeAvailabilityRepo{byPractitioner: map[uuid.UUID][]*entities.PractitionerAvailability{
			practitionerID: {mondayTemplate(practitionerID)},
		}},
		&fakeAppointmentRepo{},
		&fakeResourceRequirementRepo{byType: map[uuid.UUID][]*entities.AppointmentResourceRequirement{
			appointmentTypeID: {{ResourceTypeID: uuid.New(), Quantity: 1}},
		}},
		&fakeResourceRepo{available: 0},
	)

	err := engine.CheckConflict(context.Background(), ConflictCheckRequest{
		PractitionerID:  practitionerID,
		Start:           monday,
		End:             monday.Add(15 * time.Minute),
		AppointmentType: &entities.AppointmentType{ID: appointmentTypeID},
	})
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindConflictResource, de.Kind)
}

func TestCheckConflictRejectsNonPositiveWindow(t *testing.T) {
	engine := NewConflictEngine(&fakeCalendarEventRepo{}, &fakeAvailabilityRepo{}, &fakeAppointmentRepo{}, &fakeResourceRequirementRepo{}, &fakeResourceRepo{})
	now := time.Now()
	err := engine.CheckConflict(context.Background(), ConflictCheckRequest{Start: now, End: now})
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindValidationError, de.Kind)
}

func TestFreeSlotsRespectsTemplateAndExistingAppointments(t *testing.T) {
	practitionerID := uuid.New()
	monday := time.Date(2026, 2, 2, 0, 0, 0, 0, timeutil.ClinicLocation)

	booked := &entities.CalendarEvent{
		ID: uuid.New(), PractitionerID: practitionerID, Kind: entities.CalendarEventKindAppointment,
		Start: monday.Add(9 * time.Hour), End: monday.Add(9*time.Hour + 30*time.Minute),
	}
	engine := NewConflictEngine(
		&fakeCalendarEventRepo{events: []*entities.CalendarEvent{booked}},
		&fakeAvailabilityRepo{byPractitioner: map[uuid.UUID][]*entities.PractitionerAvailability{
			practitionerID: {mondayTemplate(practitionerID)},
		}},
		&fakeAppointmentRepo{},
		&fakeResourceRequirementRepo{},
		&fakeResourceRepo{available: 10},
	)

	slots, err := engine.FreeSlots(context.Background(), FreeSlotsRequest{
		PractitionerID:  practitionerID,
		AppointmentType: &entities.AppointmentType{ID: uuid.New(), DurationMinutes: 30},
		StepMinutes:     30,
	}, monday)
	require.NoError(t, err)

	for _, s := range slots {
		overlapsBooked := s.Start.Before(booked.End) && booked.Start.Before(s.End)
		assert.False(t, overlapsBooked, "slot %v-%v should not overlap the booked appointment", s.Start, s.End)
		assert.False(t, s.Start.Before(monday.Add(9*time.Hour)))
		assert.False(t, s.End.After(monday.Add(12*time.Hour)))
	}
	assert.NotEmpty(t, slots)
}

func TestFreeSlotsRejectsZeroDurationAppointmentType(t *testing.T) {
	engine := NewConflictEngine(&fakeCalendarEventRepo{}, &fakeAvailabilityRepo{}, &fakeAppointmentRepo{}, &fakeResourceRequirementRepo{}, &fakeResourceRepo{})
	_, err := engine.FreeSlots(context.Background(), FreeSlotsRequest{
		AppointmentType: &entities.AppointmentType{DurationMinutes: 0},
		StepMinutes:     30,
	}, time.Now())
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindValidationError, de.Kind)
}

func TestChooseAutoAssigneeMinimizesLoadThenID(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	t.Run("fewest confirmed appointments wins", func(t *testing.T) {
		chosen, ok := ChooseAutoAssignee([]PractitionerCandidate{
			{PractitionerID: high, ConfirmedCountThatDay: 1},
			{PractitionerID: low, ConfirmedCountThatDay: 3},
		})
		require.True(t, ok)
		assert.Equal(t, high, chosen)
	})

	t.Run("ties break on ascending practitioner id", func(t *testing.T) {
		chosen, ok := ChooseAutoAssignee([]PractitionerCandidate{
			{PractitionerID: high, ConfirmedCountThatDay: 2},
			{PractitionerID: low, ConfirmedCountThatDay: 2},
		})
		require.True(t, ok)
		assert.Equal(t, low, chosen)
	})

	t.Run("empty candidate list reports not-found", func(t *testing.T) {
		_, ok := ChooseAutoAssignee(nil)
		assert.False(t, ok)
	})
}
