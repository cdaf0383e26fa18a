package usecases

import (
	"context"
	"testing"
	"time"

	"clinic-scheduler-backend/internal/app/dto"
	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeAvailabilityTemplateRepo is a hand-written in-memory fake rather than
// testify/mock, since ReplaceDefaultTemplate's hard-sync behavior (every row
// soft-deleted, then the submitted set inserted) is state to assert on, not
// a sequence of call expectations.
type fakeAvailabilityTemplateRepo struct {
	rows []*entities.PractitionerAvailability
}

func (f *fakeAvailabilityTemplateRepo) Create(ctx context.Context, a *entities.PractitionerAvailability) error {
	f.rows = append(f.rows, a)
	return nil
}
func (f *fakeAvailabilityTemplateRepo) GetByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*entities.PractitionerAvailability, error) {
	var out []*entities.PractitionerAvailability
	for _, r := range f.rows {
		if r.PractitionerID == practitionerID && r.DeletedAt == nil {
			out = append(out, r)
		}
	}
	return out, nil
}
func (f *fakeAvailabilityTemplateRepo) Update(ctx context.Context, a *entities.PractitionerAvailability) error {
	for i, r := range f.rows {
		if r.ID == a.ID {
			f.rows[i] = a
			return nil
		}
	}
	return nil
}
func (f *fakeAvailabilityTemplateRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	for _, r := range f.rows {
		if r.ID == id {
			r.DeletedAt = &now
		}
	}
	return nil
}

type fakeExceptionRepo struct {
	rows map[uuid.UUID]*entities.AvailabilityException
}

func (f *fakeExceptionRepo) Create(ctx context.Context, e *entities.AvailabilityException) error {
	if f.rows == nil {
		f.rows = map[uuid.UUID]*entities.AvailabilityException{}
	}
	f.rows[e.ID] = e
	return nil
}
func (f *fakeExceptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.AvailabilityException, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, domainerr.New(domainerr.KindNotFound, "exception not found")
	}
	return e, nil
}
func (f *fakeExceptionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

// fakeAvailabilityCalendarEventRepo supports Create/Delete and the
// overlap-read CreateException needs; it does not need the full
// row-locked-read-then-update cycle the lifecycle tests exercise.
type fakeAvailabilityCalendarEventRepo struct {
	events []*entities.CalendarEvent
}

func (f *fakeAvailabilityCalendarEventRepo) Create(ctx context.Context, e *entities.CalendarEvent) error {
	f.events = append(f.events, e)
	return nil
}
func (f *fakeAvailabilityCalendarEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.CalendarEvent, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, domainerr.New(domainerr.KindNotFound, "event not found")
}
func (f *fakeAvailabilityCalendarEventRepo) Update(ctx context.Context, e *entities.CalendarEvent) error {
	for i, ex := range f.events {
		if ex.ID == e.ID {
			f.events[i] = e
			return nil
		}
	}
	return nil
}
func (f *fakeAvailabilityCalendarEventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	out := f.events[:0]
	for _, e := range f.events {
		if e.ID != id {
			out = append(out, e)
		}
	}
	f.events = out
	return nil
}
func (f *fakeAvailabilityCalendarEventRepo) GetByPractitionerAndRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time, forUpdate bool) ([]*entities.CalendarEvent, error) {
	var out []*entities.CalendarEvent
	for _, e := range f.events {
		if e.PractitionerID == practitionerID && e.Start.Before(to) && e.End.After(from) {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeAvailabilityCalendarEventRepo) GetByClinicAndRange(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*entities.CalendarEvent, error) {
	panic("unused")
}

func TestReplaceDefaultTemplateHardSyncsWindows(t *testing.T) {
	practitionerID := uuid.New()
	clinicID := uuid.New()
	existing := &entities.PractitionerAvailability{ID: uuid.New(), ClinicID: clinicID, PractitionerID: practitionerID, Weekday: 1, StartTime: "09:00", EndTime: "12:00"}
	templates := &fakeAvailabilityTemplateRepo{rows: []*entities.PractitionerAvailability{existing}}

	uc := NewAvailabilityUseCase(passthroughUnitOfWork{}, templates, nil, nil, nil, nil, nil, nil)

	slots := []dto.WeeklyTemplateSlotDTO{
		{Weekday: 2, StartTime: "10:00", EndTime: "14:00"},
	}
	result, err := uc.ReplaceDefaultTemplate(context.Background(), clinicID, practitionerID, slots)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 2, result[0].Weekday)

	assert.NotNil(t, existing.DeletedAt, "the old window must be soft-deleted by the hard sync")
	current, err := templates.GetByPractitioner(context.Background(), practitionerID)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "10:00", current[0].StartTime)
}

func TestReplaceDefaultTemplateRejectsInvalidWindow(t *testing.T) {
	practitionerID := uuid.New()
	templates := &fakeAvailabilityTemplateRepo{}
	uc := NewAvailabilityUseCase(passthroughUnitOfWork{}, templates, nil, nil, nil, nil, nil, nil)

	slots := []dto.WeeklyTemplateSlotDTO{{Weekday: 1, StartTime: "14:00", EndTime: "10:00"}}
	_, err := uc.ReplaceDefaultTemplate(context.Background(), uuid.New(), practitionerID, slots)
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindValidationError, de.Kind)
}

func TestCreateExceptionBlocksOnOverlapUnlessForced(t *testing.T) {
	clinicID := uuid.New()
	practitionerID := uuid.New()
	start := mondayAt(10, 0)
	end := mondayAt(11, 0)

	existingAppt := &entities.CalendarEvent{
		ID: uuid.New(), ClinicID: clinicID, PractitionerID: practitionerID,
		Kind: entities.CalendarEventKindAppointment, Start: start.Add(15 * time.Minute), End: end,
	}
	calendarEvents := &fakeAvailabilityCalendarEventRepo{events: []*entities.CalendarEvent{existingAppt}}
	exceptions := &fakeExceptionRepo{}
	uc := NewAvailabilityUseCase(passthroughUnitOfWork{}, nil, exceptions, calendarEvents, nil, nil, nil, nil)

	_, err := uc.CreateException(context.Background(), clinicID, practitionerID, &dto.CreateExceptionRequest{
		Start: start, End: end, Blocking: true,
	})
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindConflictAppointment, de.Kind)

	resp, err := uc.CreateException(context.Background(), clinicID, practitionerID, &dto.CreateExceptionRequest{
		Start: start, End: end, Blocking: true, Force: true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Len(t, exceptions.rows, 1)
}

func TestCreateExceptionAllDaySynthesizesFullDayWindow(t *testing.T) {
	clinicID := uuid.New()
	practitionerID := uuid.New()
	exceptions := &fakeExceptionRepo{}
	calendarEvents := &fakeAvailabilityCalendarEventRepo{}
	uc := NewAvailabilityUseCase(passthroughUnitOfWork{}, nil, exceptions, calendarEvents, nil, nil, nil, nil)

	day := mondayAt(10, 30)
	resp, err := uc.CreateException(context.Background(), clinicID, practitionerID, &dto.CreateExceptionRequest{
		Start: day, AllDay: true, Blocking: true, Reason: "vacation",
	})
	require.NoError(t, err)
	require.Len(t, calendarEvents.events, 1)

	event := calendarEvents.events[0]
	assert.True(t, event.AllDay)
	assert.Equal(t, 0, event.Start.Hour())
	assert.Equal(t, 0, event.Start.Minute())
	assert.Equal(t, event.Start.Add(24*time.Hour), event.End)
	assert.Equal(t, event.Start, resp.Start)
	assert.Equal(t, event.End, resp.End)
}

func TestReplaceDefaultTemplateRejectsOverlappingSlotsOnSameWeekday(t *testing.T) {
	practitionerID := uuid.New()
	templates := &fakeAvailabilityTemplateRepo{}
	uc := NewAvailabilityUseCase(passthroughUnitOfWork{}, templates, nil, nil, nil, nil, nil, nil)

	slots := []dto.WeeklyTemplateSlotDTO{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
		{Weekday: 1, StartTime: "11:00", EndTime: "14:00"},
	}
	_, err := uc.ReplaceDefaultTemplate(context.Background(), uuid.New(), practitionerID, slots)
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindValidationError, de.Kind)
}

func TestCreateExceptionRejectsNonPositiveWindow(t *testing.T) {
	uc := NewAvailabilityUseCase(passthroughUnitOfWork{}, nil, nil, nil, nil, nil, nil, nil)
	start := mondayAt(10, 0)
	_, err := uc.CreateException(context.Background(), uuid.New(), uuid.New(), &dto.CreateExceptionRequest{
		Start: start, End: start,
	})
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindValidationError, de.Kind)
}

func TestDeleteExceptionRemovesExceptionAndItsCalendarEvent(t *testing.T) {
	event := &entities.CalendarEvent{ID: uuid.New(), Kind: entities.CalendarEventKindAvailabilityException}
	exception := &entities.AvailabilityException{ID: uuid.New(), CalendarEventID: event.ID}

	calendarEvents := &fakeAvailabilityCalendarEventRepo{events: []*entities.CalendarEvent{event}}
	exceptions := &fakeExceptionRepo{rows: map[uuid.UUID]*entities.AvailabilityException{exception.ID: exception}}
	uc := NewAvailabilityUseCase(passthroughUnitOfWork{}, nil, exceptions, calendarEvents, nil, nil, nil, nil)

	err := uc.DeleteException(context.Background(), exception.ID)
	require.NoError(t, err)
	assert.Empty(t, calendarEvents.events)
	_, err = exceptions.GetByID(context.Background(), exception.ID)
	assert.Error(t, err, "the exception row itself must be gone too")
}

func TestConflictsBatchCachesAppointmentTypeLookupsAndReportsPerItemConflicts(t *testing.T) {
	clinicID := uuid.New()
	typeID := uuid.New()
	at := &entities.AppointmentType{ID: typeID, ClinicID: clinicID, DurationMinutes: 30}

	appointmentTypes := &mockAppointmentTypeRepo{}
	appointmentTypes.On("GetByID", mock.Anything, typeID).Return(at, nil).Once()

	freePractitioner := uuid.New()
	busyPractitioner := uuid.New()
	start := mondayAt(10, 0)
	end := mondayAt(10, 30)

	blockingEvent := &entities.CalendarEvent{
		ID: uuid.New(), PractitionerID: busyPractitioner,
		Kind: entities.CalendarEventKindAppointment, Start: start, End: end,
	}
	calendarEvents := &fakeLifecycleCalendarEventRepo{events: []*entities.CalendarEvent{blockingEvent}}
	conflictEngine := newOpenConflictEngine(calendarEvents)

	uc := NewAvailabilityUseCase(passthroughUnitOfWork{}, nil, nil, calendarEvents, nil, appointmentTypes, conflictEngine, nil)

	items := []dto.ConflictCheckItem{
		{PractitionerID: freePractitioner, AppointmentTypeID: typeID, Start: start, End: end},
		{PractitionerID: busyPractitioner, AppointmentTypeID: typeID, Start: start, End: end},
	}
	results, err := uc.ConflictsBatch(context.Background(), items, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Nil(t, results[0].Conflict)
	require.NotNil(t, results[1].Conflict)
	assert.Equal(t, string(domainerr.KindConflictAppointment), *results[1].Conflict)

	appointmentTypes.AssertNumberOfCalls(t, "GetByID", 1)
}
