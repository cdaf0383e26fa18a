package usecases

import (
	"context"
	"testing"
	"time"

	"clinic-scheduler-backend/internal/app/dto"
	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"
	"clinic-scheduler-backend/internal/domain/services"
	"clinic-scheduler-backend/pkg/timeutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Lookup repositories (Clinic/Patient/AppointmentType/PractitionerAppointmentType/
// Appointment) are mock.Mock-based, following service_catalog_usecase_test.go's
// convention: each call is a single keyed lookup, which .On/.Return expresses
// more directly than fake in-memory state. CalendarEventRepository is a
// hand-written fake shared with the ConflictEngine underneath, the same
// pattern conflict_engine_test.go uses, since the lifecycle use case books
// and then immediately re-queries the same calendar state.

type mockClinicRepo struct{ mock.Mock }

func (m *mockClinicRepo) Create(ctx context.Context, c *entities.Clinic) error { panic("unused") }
func (m *mockClinicRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Clinic, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Clinic), args.Error(1)
}
func (m *mockClinicRepo) GetByLiffAccessToken(ctx context.Context, token string) (*entities.Clinic, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Clinic), args.Error(1)
}
func (m *mockClinicRepo) Update(ctx context.Context, c *entities.Clinic) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
func (m *mockClinicRepo) GetAll(ctx context.Context) ([]*entities.Clinic, error) { panic("unused") }

type mockPatientRepo struct{ mock.Mock }

func (m *mockPatientRepo) Create(ctx context.Context, p *entities.Patient) error { panic("unused") }
func (m *mockPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Patient, error) {
	panic("unused")
}
func (m *mockPatientRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Patient, error) {
	panic("unused")
}
func (m *mockPatientRepo) GetByClinic(ctx context.Context, clinicID uuid.UUID, filters repositories.PatientFilters) ([]*entities.Patient, int, error) {
	panic("unused")
}
func (m *mockPatientRepo) GetByLineUserID(ctx context.Context, lineUserID uuid.UUID) ([]*entities.Patient, error) {
	panic("unused")
}
func (m *mockPatientRepo) Update(ctx context.Context, p *entities.Patient) error { panic("unused") }
func (m *mockPatientRepo) SoftDelete(ctx context.Context, id uuid.UUID) error    { panic("unused") }
func (m *mockPatientRepo) HasConfirmedAppointment(ctx context.Context, patientID uuid.UUID) (bool, error) {
	args := m.Called(ctx, patientID)
	return args.Bool(0), args.Error(1)
}

type mockAppointmentTypeRepo struct{ mock.Mock }

func (m *mockAppointmentTypeRepo) Create(ctx context.Context, at *entities.AppointmentType) error {
	panic("unused")
}
func (m *mockAppointmentTypeRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.AppointmentType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AppointmentType), args.Error(1)
}
func (m *mockAppointmentTypeRepo) GetByClinic(ctx context.Context, clinicID uuid.UUID, includeDeleted bool) ([]*entities.AppointmentType, error) {
	panic("unused")
}
func (m *mockAppointmentTypeRepo) GetActiveByName(ctx context.Context, clinicID uuid.UUID, name string) (*entities.AppointmentType, error) {
	panic("unused")
}
func (m *mockAppointmentTypeRepo) Update(ctx context.Context, at *entities.AppointmentType) error {
	panic("unused")
}
func (m *mockAppointmentTypeRepo) SoftDelete(ctx context.Context, id uuid.UUID) error { panic("unused") }

type mockPractitionerAppointmentTypeRepoForLifecycle struct{ mock.Mock }

func (m *mockPractitionerAppointmentTypeRepoForLifecycle) GetByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) ([]*entities.PractitionerAppointmentType, error) {
	args := m.Called(ctx, appointmentTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PractitionerAppointmentType), args.Error(1)
}
func (m *mockPractitionerAppointmentTypeRepoForLifecycle) GetByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*entities.PractitionerAppointmentType, error) {
	panic("unused")
}
func (m *mockPractitionerAppointmentTypeRepoForLifecycle) ReplaceAll(ctx context.Context, appointmentTypeID uuid.UUID, practitionerIDs []uuid.UUID) error {
	panic("unused")
}

type mockAppointmentRepoForLifecycle struct{ mock.Mock }

func (m *mockAppointmentRepoForLifecycle) Create(ctx context.Context, appt *entities.Appointment) error {
	args := m.Called(ctx, appt)
	return args.Error(0)
}
func (m *mockAppointmentRepoForLifecycle) GetByID(ctx context.Context, id uuid.UUID) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}
func (m *mockAppointmentRepoForLifecycle) GetByCalendarEventID(ctx context.Context, calendarEventID uuid.UUID) (*entities.Appointment, error) {
	panic("unused")
}
func (m *mockAppointmentRepoForLifecycle) GetByCalendarEventIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Appointment, error) {
	panic("unused")
}
func (m *mockAppointmentRepoForLifecycle) GetByPatient(ctx context.Context, patientID uuid.UUID, includeCancelled bool) ([]*entities.Appointment, error) {
	panic("unused")
}
func (m *mockAppointmentRepoForLifecycle) Update(ctx context.Context, appt *entities.Appointment) error {
	args := m.Called(ctx, appt)
	return args.Error(0)
}
func (m *mockAppointmentRepoForLifecycle) CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	args := m.Called(ctx, patientID)
	return args.Int(0), args.Error(1)
}
func (m *mockAppointmentRepoForLifecycle) CountFutureByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) (int, error) {
	panic("unused")
}
func (m *mockAppointmentRepoForLifecycle) GetPendingReveal(ctx context.Context, clinicID uuid.UUID, settings entities.BookingRestrictionSettings, now time.Time, limit int) ([]*entities.Appointment, error) {
	panic("unused")
}
func (m *mockAppointmentRepoForLifecycle) MarkRevealed(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, appointmentID)
	return args.Bool(0), args.Error(1)
}

// fakeLifecycleCalendarEventRepo is an in-memory fake shared by the use case
// and the ConflictEngine underneath it, mirroring conflict_engine_test.go.
type fakeLifecycleCalendarEventRepo struct {
	events []*entities.CalendarEvent
}

func (f *fakeLifecycleCalendarEventRepo) Create(ctx context.Context, event *entities.CalendarEvent) error {
	f.events = append(f.events, event)
	return nil
}
func (f *fakeLifecycleCalendarEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.CalendarEvent, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, domainerr.New(domainerr.KindNotFound, "not found")
}
func (f *fakeLifecycleCalendarEventRepo) Update(ctx context.Context, event *entities.CalendarEvent) error {
	for i, e := range f.events {
		if e.ID == event.ID {
			f.events[i] = event
			return nil
		}
	}
	return domainerr.New(domainerr.KindNotFound, "not found")
}
func (f *fakeLifecycleCalendarEventRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeLifecycleCalendarEventRepo) GetByPractitionerAndRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time, forUpdate bool) ([]*entities.CalendarEvent, error) {
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
func (f *fakeLifecycleCalendarEventRepo) GetByClinicAndRange(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*entities.CalendarEvent, error) {
	return f.events, nil
}

type fakeOpenAvailabilityRepo struct{}

func (f *fakeOpenAvailabilityRepo) Create(ctx context.Context, a *entities.PractitionerAvailability) error {
	return nil
}
func (f *fakeOpenAvailabilityRepo) GetByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*entities.PractitionerAvailability, error) {
	var out []*entities.PractitionerAvailability
	for weekday := 0; weekday <= 6; weekday++ {
		out = append(out, &entities.PractitionerAvailability{
			ID: uuid.New(), PractitionerID: practitionerID,
			Weekday: weekday, StartTime: "00:00", EndTime: "23:59",
		})
	}
	return out, nil
}
func (f *fakeOpenAvailabilityRepo) Update(ctx context.Context, a *entities.PractitionerAvailability) error {
	return nil
}
func (f *fakeOpenAvailabilityRepo) SoftDelete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeNoRequirementRepo struct{}

func (f *fakeNoRequirementRepo) GetByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) ([]*entities.AppointmentResourceRequirement, error) {
	return nil, nil
}
func (f *fakeNoRequirementRepo) ReplaceAll(ctx context.Context, appointmentTypeID uuid.UUID, reqs []entities.AppointmentResourceRequirement) error {
	return nil
}

type fakeUnlimitedResourceRepo struct{}

func (f *fakeUnlimitedResourceRepo) Create(ctx context.Context, r *entities.Resource) error { return nil }
func (f *fakeUnlimitedResourceRepo) GetByResourceType(ctx context.Context, resourceTypeID uuid.UUID) ([]*entities.Resource, error) {
	return nil, nil
}
func (f *fakeUnlimitedResourceRepo) Update(ctx context.Context, r *entities.Resource) error { return nil }
func (f *fakeUnlimitedResourceRepo) SoftDelete(ctx context.Context, id uuid.UUID) error      { return nil }
func (f *fakeUnlimitedResourceRepo) CountAvailable(ctx context.Context, resourceTypeID uuid.UUID, from, to time.Time, excludeCalendarEventID *uuid.UUID) (int, error) {
	return 99, nil
}

type fakeNotificationSink struct {
	intents []services.NotificationIntent
}

func (s *fakeNotificationSink) Enqueue(ctx context.Context, intents []services.NotificationIntent) {
	s.intents = append(s.intents, intents...)
}

func newOpenConflictEngine(calendarEvents *fakeLifecycleCalendarEventRepo) *services.ConflictEngine {
	return services.NewConflictEngine(
		calendarEvents,
		&fakeOpenAvailabilityRepo{},
		&fakeAppointmentRepoStub{},
		&fakeNoRequirementRepo{},
		&fakeUnlimitedResourceRepo{},
	)
}

// fakeAppointmentRepoStub satisfies repositories.AppointmentRepository for
// the ConflictEngine's own dependency slot; none of its methods are on the
// engine's CheckConflict path, which only reaches calendar events and
// resources.
type fakeAppointmentRepoStub struct{}

func (f *fakeAppointmentRepoStub) Create(ctx context.Context, appt *entities.Appointment) error {
	return nil
}
func (f *fakeAppointmentRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*entities.Appointment, error) {
	return nil, domainerr.New(domainerr.KindNotFound, "not found")
}
func (f *fakeAppointmentRepoStub) GetByCalendarEventID(ctx context.Context, calendarEventID uuid.UUID) (*entities.Appointment, error) {
	return nil, domainerr.New(domainerr.KindNotFound, "not found")
}
func (f *fakeAppointmentRepoStub) GetByCalendarEventIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Appointment, error) {
	return nil, nil
}
func (f *fakeAppointmentRepoStub) GetByPatient(ctx context.Context, patientID uuid.UUID, includeCancelled bool) ([]*entities.Appointment, error) {
	return nil, nil
}
func (f *fakeAppointmentRepoStub) Update(ctx context.Context, appt *entities.Appointment) error { return nil }
func (f *fakeAppointmentRepoStub) CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeAppointmentRepoStub) CountFutureByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeAppointmentRepoStub) GetPendingReveal(ctx context.Context, clinicID uuid.UUID, settings entities.BookingRestrictionSettings, now time.Time, limit int) ([]*entities.Appointment, error) {
	return nil, nil
}
func (f *fakeAppointmentRepoStub) MarkRevealed(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	return true, nil
}

// mondayAt returns a fixed, far-past instant used only where the clock
// value itself is irrelevant (EditPreview and Cancel never evaluate
// lead-time policy against it).
func mondayAt(hour, minute int) time.Time {
	return time.Date(2026, 2, 2, hour, minute, 0, 0, timeutil.ClinicLocation)
}

// futureSlot returns an instant daysAhead from the real clock, for tests
// that exercise BookingPolicyEvaluator's lead-time check against the
// use case's internal time.Now() call.
func futureSlot(daysAhead, hour, minute int) time.Time {
	base := time.Now().In(timeutil.ClinicLocation).AddDate(0, 0, daysAhead)
	return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, timeutil.ClinicLocation)
}

func TestCreateBooksDirectPractitionerAndEnqueuesNotifications(t *testing.T) {
	clinicID := uuid.New()
	practitionerID := uuid.New()
	atID := uuid.New()
	patientID := uuid.New()

	clinics := &mockClinicRepo{}
	clinics.On("GetByID", mock.Anything, clinicID).Return(&entities.Clinic{ID: clinicID, Settings: entities.DefaultClinicSettings()}, nil)

	appointmentTypes := &mockAppointmentTypeRepo{}
	at := &entities.AppointmentType{
		ID: atID, ClinicID: clinicID, DurationMinutes: 30,
		AllowNewPatientBooking: true, AllowExistingPatientBooking: true,
		PatientConfirmTemplate: entities.MessageTemplate{Enabled: true},
	}
	appointmentTypes.On("GetByID", mock.Anything, atID).Return(at, nil)

	calendarEvents := &fakeLifecycleCalendarEventRepo{}
	appointments := &mockAppointmentRepoForLifecycle{}
	appointments.On("Create", mock.Anything, mock.AnythingOfType("*entities.Appointment")).Return(nil)

	sink := &fakeNotificationSink{}
	uc := NewAppointmentLifecycleUseCase(
		clinics, &mockPatientRepo{}, appointmentTypes, &mockPractitionerAppointmentTypeRepoForLifecycle{},
		calendarEvents, appointments,
		newOpenConflictEngine(calendarEvents),
		services.NewBookingPolicyEvaluator(),
		services.NewNotificationEngine(),
		sink,
	)

	caller := entities.CallerContext{ActorKind: entities.ActorClinicStaff, ClinicID: clinicID}
	resp, err := uc.Create(context.Background(), caller, &dto.CreateAppointmentRequest{
		PatientID: patientID, AppointmentTypeID: atID,
		PractitionerID: practitionerID.String(),
		StartTime:      mondayAt(10, 0),
	})

	require.NoError(t, err)
	assert.Equal(t, practitionerID, resp.PractitionerID)
	assert.False(t, resp.IsAutoAssigned)
	require.Len(t, calendarEvents.events, 1)
	assert.Equal(t, mondayAt(10, 0), calendarEvents.events[0].Start)
	assert.NotEmpty(t, sink.intents, "staff-created visible booking should notify the practitioner")
}

func TestCreateAutoAssignsAmongEligiblePractitioners(t *testing.T) {
	clinicID := uuid.New()
	busy := uuid.New()
	free := uuid.New()
	atID := uuid.New()
	patientID := uuid.New()

	clinics := &mockClinicRepo{}
	clinics.On("GetByID", mock.Anything, clinicID).Return(&entities.Clinic{ID: clinicID, Settings: entities.DefaultClinicSettings()}, nil)

	appointmentTypes := &mockAppointmentTypeRepo{}
	at := &entities.AppointmentType{
		ID: atID, ClinicID: clinicID, DurationMinutes: 30,
		AllowNewPatientBooking: true, AllowPatientPractitionerSelect: true,
	}
	appointmentTypes.On("GetByID", mock.Anything, atID).Return(at, nil)

	existing := &entities.CalendarEvent{
		ID: uuid.New(), PractitionerID: busy, Kind: entities.CalendarEventKindAppointment,
		Start: futureSlot(3, 10, 0), End: futureSlot(3, 10, 30),
	}
	calendarEvents := &fakeLifecycleCalendarEventRepo{events: []*entities.CalendarEvent{existing}}

	practitionerTypes := &mockPractitionerAppointmentTypeRepoForLifecycle{}
	practitionerTypes.On("GetByAppointmentType", mock.Anything, atID).Return([]*entities.PractitionerAppointmentType{
		{PractitionerID: busy}, {PractitionerID: free},
	}, nil)

	patients := &mockPatientRepo{}
	patients.On("HasConfirmedAppointment", mock.Anything, patientID).Return(false, nil)

	appointments := &mockAppointmentRepoForLifecycle{}
	appointments.On("CountActiveByPatient", mock.Anything, patientID).Return(0, nil)
	appointments.On("Create", mock.Anything, mock.AnythingOfType("*entities.Appointment")).Return(nil)

	sink := &fakeNotificationSink{}
	uc := NewAppointmentLifecycleUseCase(
		clinics, patients, appointmentTypes, practitionerTypes,
		calendarEvents, appointments,
		newOpenConflictEngine(calendarEvents),
		services.NewBookingPolicyEvaluator(),
		services.NewNotificationEngine(),
		sink,
	)

	caller := entities.CallerContext{ActorKind: entities.ActorPatient, ClinicID: clinicID, PatientID: &patientID}
	resp, err := uc.Create(context.Background(), caller, &dto.CreateAppointmentRequest{
		PatientID: patientID, AppointmentTypeID: atID,
		PractitionerID: dto.AutoAssignSentinel,
		StartTime:      futureSlot(3, 10, 0),
	})

	require.NoError(t, err)
	assert.Equal(t, free, resp.PractitionerID, "the busy practitioner conflicts at 10:00, so the engine must pick the free one")
	assert.True(t, resp.IsAutoAssigned)
}

func TestCreateRevealsImmediatelyWhenBoundaryAlreadyPassedAtCreation(t *testing.T) {
	clinicID := uuid.New()
	practitionerID := uuid.New()
	atID := uuid.New()
	patientID := uuid.New()

	// Default settings require 24h lead time; starting the appointment 1h
	// from now means its reveal boundary is already behind "now".
	start := time.Now().Add(time.Hour)

	clinics := &mockClinicRepo{}
	clinics.On("GetByID", mock.Anything, clinicID).Return(&entities.Clinic{ID: clinicID, Settings: entities.DefaultClinicSettings()}, nil)

	appointmentTypes := &mockAppointmentTypeRepo{}
	at := &entities.AppointmentType{ID: atID, ClinicID: clinicID, DurationMinutes: 30, AllowPatientPractitionerSelect: true}
	appointmentTypes.On("GetByID", mock.Anything, atID).Return(at, nil)

	calendarEvents := &fakeLifecycleCalendarEventRepo{}
	practitionerTypes := &mockPractitionerAppointmentTypeRepoForLifecycle{}
	practitionerTypes.On("GetByAppointmentType", mock.Anything, atID).Return([]*entities.PractitionerAppointmentType{
		{PractitionerID: practitionerID},
	}, nil)

	appointments := &mockAppointmentRepoForLifecycle{}
	appointments.On("Create", mock.Anything, mock.AnythingOfType("*entities.Appointment")).Return(nil)
	appointments.On("MarkRevealed", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(true, nil)

	sink := &fakeNotificationSink{}
	uc := NewAppointmentLifecycleUseCase(
		clinics, &mockPatientRepo{}, appointmentTypes, practitionerTypes,
		calendarEvents, appointments,
		newOpenConflictEngine(calendarEvents),
		services.NewBookingPolicyEvaluator(),
		services.NewNotificationEngine(),
		sink,
	)

	caller := entities.CallerContext{ActorKind: entities.ActorClinicStaff, ClinicID: clinicID}
	_, err := uc.Create(context.Background(), caller, &dto.CreateAppointmentRequest{
		PatientID: patientID, AppointmentTypeID: atID,
		PractitionerID: dto.AutoAssignSentinel,
		StartTime:      start,
	})

	require.NoError(t, err)
	appointments.AssertCalled(t, "MarkRevealed", mock.Anything, mock.AnythingOfType("uuid.UUID"))
	assert.NotEmpty(t, sink.intents, "the practitioner should be notified as soon as the appointment is revealed")
}

func TestEditPreviewReportsConflictWithoutPersisting(t *testing.T) {
	clinicID := uuid.New()
	oldPractitioner := uuid.New()
	newPractitioner := uuid.New()
	atID := uuid.New()
	apptID := uuid.New()

	blockingEvent := &entities.CalendarEvent{
		ID: uuid.New(), PractitionerID: newPractitioner, Kind: entities.CalendarEventKindAppointment,
		Start: mondayAt(11, 0), End: mondayAt(11, 30),
	}
	thisEvent := &entities.CalendarEvent{
		ID: uuid.New(), ClinicID: clinicID, PractitionerID: oldPractitioner, Kind: entities.CalendarEventKindAppointment,
		Start: mondayAt(10, 0), End: mondayAt(10, 30),
	}
	calendarEvents := &fakeLifecycleCalendarEventRepo{events: []*entities.CalendarEvent{blockingEvent, thisEvent}}

	appt := &entities.Appointment{
		ID: apptID, ClinicID: clinicID, CalendarEventID: thisEvent.ID,
		PractitionerID: oldPractitioner, AppointmentTypeID: atID,
		Status: entities.AppointmentStatusConfirmed, IsAutoAssigned: false,
	}
	appointments := &mockAppointmentRepoForLifecycle{}
	appointments.On("GetByID", mock.Anything, apptID).Return(appt, nil)

	appointmentTypes := &mockAppointmentTypeRepo{}
	at := &entities.AppointmentType{ID: atID, ClinicID: clinicID, DurationMinutes: 30}
	appointmentTypes.On("GetByID", mock.Anything, atID).Return(at, nil)

	uc := NewAppointmentLifecycleUseCase(
		&mockClinicRepo{}, &mockPatientRepo{}, appointmentTypes, &mockPractitionerAppointmentTypeRepoForLifecycle{},
		calendarEvents, appointments,
		newOpenConflictEngine(calendarEvents),
		services.NewBookingPolicyEvaluator(),
		services.NewNotificationEngine(),
		&fakeNotificationSink{},
	)

	newPractitionerStr := newPractitioner.String()
	resp, err := uc.EditPreview(context.Background(), entities.CallerContext{ActorKind: entities.ActorClinicStaff, ClinicID: clinicID}, apptID, &dto.EditAppointmentRequest{
		NewPractitionerID: &newPractitionerStr,
		NewStartTime:      timePtr(mondayAt(11, 0)),
	})

	require.NoError(t, err)
	require.NotNil(t, resp.Conflict)
	assert.Equal(t, string(domainerr.KindConflictAppointment), *resp.Conflict)
	assert.Len(t, calendarEvents.events, 2, "preview must not mutate calendar state")
	assert.Equal(t, mondayAt(10, 0), calendarEvents.events[1].Start, "the original event must be untouched")
}

func TestEditPreviewDescribesReassignmentNotifications(t *testing.T) {
	clinicID := uuid.New()
	oldPractitioner := uuid.New()
	newPractitioner := uuid.New()
	atID := uuid.New()
	apptID := uuid.New()

	thisEvent := &entities.CalendarEvent{
		ID: uuid.New(), ClinicID: clinicID, PractitionerID: oldPractitioner, Kind: entities.CalendarEventKindAppointment,
		Start: mondayAt(10, 0), End: mondayAt(10, 30),
	}
	calendarEvents := &fakeLifecycleCalendarEventRepo{events: []*entities.CalendarEvent{thisEvent}}

	appt := &entities.Appointment{
		ID: apptID, ClinicID: clinicID, CalendarEventID: thisEvent.ID,
		PractitionerID: oldPractitioner, AppointmentTypeID: atID,
		Status: entities.AppointmentStatusConfirmed, IsAutoAssigned: false,
	}
	appointments := &mockAppointmentRepoForLifecycle{}
	appointments.On("GetByID", mock.Anything, apptID).Return(appt, nil)

	appointmentTypes := &mockAppointmentTypeRepo{}
	at := &entities.AppointmentType{ID: atID, ClinicID: clinicID, DurationMinutes: 30}
	appointmentTypes.On("GetByID", mock.Anything, atID).Return(at, nil)

	uc := NewAppointmentLifecycleUseCase(
		&mockClinicRepo{}, &mockPatientRepo{}, appointmentTypes, &mockPractitionerAppointmentTypeRepoForLifecycle{},
		calendarEvents, appointments,
		newOpenConflictEngine(calendarEvents),
		services.NewBookingPolicyEvaluator(),
		services.NewNotificationEngine(),
		&fakeNotificationSink{},
	)

	newPractitionerStr := newPractitioner.String()
	resp, err := uc.EditPreview(context.Background(), entities.CallerContext{ActorKind: entities.ActorClinicStaff, ClinicID: clinicID}, apptID, &dto.EditAppointmentRequest{
		NewPractitionerID: &newPractitionerStr,
	})

	// EditPreview passes the appointment's current reveal state unchanged
	// as both "before" and "after" (it never simulates the reveal a real
	// Edit call would produce), so reassigning an already-visible
	// appointment notifies both the outgoing and incoming practitioner.
	require.NoError(t, err)
	assert.Nil(t, resp.Conflict)
	require.Len(t, resp.NotificationTemplates, 2)
	assert.ElementsMatch(t,
		[]string{string(services.TemplateNewAppointment), string(services.TemplateCancellation)},
		resp.NotificationTemplates,
	)
}

func TestCancelByPatientEnforcesCancellationWindow(t *testing.T) {
	clinicID := uuid.New()
	apptID := uuid.New()
	eventID := uuid.New()

	clinics := &mockClinicRepo{}
	settings := entities.DefaultClinicSettings()
	settings.BookingRestrictionSettings.MinimumCancellationHoursBefore = 24
	clinics.On("GetByID", mock.Anything, clinicID).Return(&entities.Clinic{ID: clinicID, Settings: settings}, nil)

	appt := &entities.Appointment{ID: apptID, ClinicID: clinicID, CalendarEventID: eventID, Status: entities.AppointmentStatusConfirmed}
	appointments := &mockAppointmentRepoForLifecycle{}
	appointments.On("GetByID", mock.Anything, apptID).Return(appt, nil)

	calendarEvents := &fakeLifecycleCalendarEventRepo{events: []*entities.CalendarEvent{
		{ID: eventID, Start: time.Now().Add(2 * time.Hour), End: time.Now().Add(2*time.Hour + 30*time.Minute)},
	}}

	uc := NewAppointmentLifecycleUseCase(
		clinics, &mockPatientRepo{}, &mockAppointmentTypeRepo{}, &mockPractitionerAppointmentTypeRepoForLifecycle{},
		calendarEvents, appointments,
		newOpenConflictEngine(calendarEvents),
		services.NewBookingPolicyEvaluator(),
		services.NewNotificationEngine(),
		&fakeNotificationSink{},
	)

	_, err := uc.Cancel(context.Background(), entities.CallerContext{ActorKind: entities.ActorPatient, ClinicID: clinicID}, apptID, &dto.CancelAppointmentRequest{})
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindPolicyCancelWindow, de.Kind)
}

func TestCancelByStaffBypassesPolicyAndNotifies(t *testing.T) {
	clinicID := uuid.New()
	apptID := uuid.New()
	eventID := uuid.New()

	appt := &entities.Appointment{ID: apptID, ClinicID: clinicID, CalendarEventID: eventID, Status: entities.AppointmentStatusConfirmed}
	appointments := &mockAppointmentRepoForLifecycle{}
	appointments.On("GetByID", mock.Anything, apptID).Return(appt, nil)
	appointments.On("Update", mock.Anything, mock.AnythingOfType("*entities.Appointment")).Return(nil)

	calendarEvents := &fakeLifecycleCalendarEventRepo{}
	sink := &fakeNotificationSink{}
	uc := NewAppointmentLifecycleUseCase(
		&mockClinicRepo{}, &mockPatientRepo{}, &mockAppointmentTypeRepo{}, &mockPractitionerAppointmentTypeRepoForLifecycle{},
		calendarEvents, appointments,
		newOpenConflictEngine(calendarEvents),
		services.NewBookingPolicyEvaluator(),
		services.NewNotificationEngine(),
		sink,
	)

	resp, err := uc.Cancel(context.Background(), entities.CallerContext{ActorKind: entities.ActorClinicStaff, ClinicID: clinicID, Roles: []entities.Role{entities.RoleAdmin}}, apptID, &dto.CancelAppointmentRequest{})
	require.NoError(t, err)
	assert.Equal(t, entities.AppointmentStatusCanceledByClinic, resp.Status)
	assert.NotEmpty(t, sink.intents)
}

func TestCancelByNonOwningNonAdminStaffIsForbidden(t *testing.T) {
	clinicID := uuid.New()
	apptID := uuid.New()
	practitionerID := uuid.New()
	otherUserID := uuid.New()

	appt := &entities.Appointment{ID: apptID, ClinicID: clinicID, PractitionerID: practitionerID, Status: entities.AppointmentStatusConfirmed}
	appointments := &mockAppointmentRepoForLifecycle{}
	appointments.On("GetByID", mock.Anything, apptID).Return(appt, nil)

	uc := NewAppointmentLifecycleUseCase(
		&mockClinicRepo{}, &mockPatientRepo{}, &mockAppointmentTypeRepo{}, &mockPractitionerAppointmentTypeRepoForLifecycle{},
		&fakeLifecycleCalendarEventRepo{}, appointments,
		newOpenConflictEngine(&fakeLifecycleCalendarEventRepo{}),
		services.NewBookingPolicyEvaluator(),
		services.NewNotificationEngine(),
		&fakeNotificationSink{},
	)

	_, err := uc.Cancel(context.Background(), entities.CallerContext{ActorKind: entities.ActorClinicStaff, ClinicID: clinicID, UserID: &otherUserID}, apptID, &dto.CancelAppointmentRequest{})
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindForbidden, de.Kind)
}

func TestEditByOwningPractitionerIsAllowed(t *testing.T) {
	clinicID := uuid.New()
	apptID := uuid.New()
	eventID := uuid.New()
	practitionerID := uuid.New()
	typeID := uuid.New()

	appt := &entities.Appointment{ID: apptID, ClinicID: clinicID, CalendarEventID: eventID, PractitionerID: practitionerID, AppointmentTypeID: typeID, Status: entities.AppointmentStatusConfirmed}
	appointments := &mockAppointmentRepoForLifecycle{}
	appointments.On("GetByID", mock.Anything, apptID).Return(appt, nil)
	appointments.On("Update", mock.Anything, mock.AnythingOfType("*entities.Appointment")).Return(nil)

	at := &entities.AppointmentType{ID: typeID, ClinicID: clinicID, DurationMinutes: 30}
	appointmentTypes := &mockAppointmentTypeRepo{}
	appointmentTypes.On("GetByID", mock.Anything, typeID).Return(at, nil)

	clinics := &mockClinicRepo{}
	clinics.On("GetByID", mock.Anything, clinicID).Return(&entities.Clinic{ID: clinicID, Settings: entities.DefaultClinicSettings()}, nil)

	start := mondayAt(10, 0)
	calendarEvents := &fakeLifecycleCalendarEventRepo{events: []*entities.CalendarEvent{
		{ID: eventID, PractitionerID: practitionerID, Start: start, End: start.Add(30 * time.Minute)},
	}}

	uc := NewAppointmentLifecycleUseCase(
		clinics, &mockPatientRepo{}, appointmentTypes, &mockPractitionerAppointmentTypeRepoForLifecycle{},
		calendarEvents, appointments,
		newOpenConflictEngine(calendarEvents),
		services.NewBookingPolicyEvaluator(),
		services.NewNotificationEngine(),
		&fakeNotificationSink{},
	)

	newNotes := "running 10 minutes late"
	_, err := uc.Edit(context.Background(), entities.CallerContext{ActorKind: entities.ActorClinicStaff, ClinicID: clinicID, UserID: &practitionerID}, apptID, &dto.EditAppointmentRequest{NewNotes: &newNotes})
	require.NoError(t, err)
}

func timePtr(t time.Time) *time.Time { return &t }
