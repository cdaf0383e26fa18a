package services

import (
	"context"
	"testing"
	"time"

	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRevealClinicRepo and fakeRevealAppointmentRepo are hand-written
// in-memory fakes rather than testify/mock, mirroring conflict_engine_test.go:
// tick's behavior hinges on state mutated across calls (MarkRevealed losing
// the idempotency race), which a fake's internal state expresses more
// directly than per-call mock.On/.Return chains.
type fakeRevealClinicRepo struct {
	clinics []*entities.Clinic
}

func (f *fakeRevealClinicRepo) Create(ctx context.Context, c *entities.Clinic) error { panic("unused") }
func (f *fakeRevealClinicRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Clinic, error) {
	panic("unused")
}
func (f *fakeRevealClinicRepo) GetByLiffAccessToken(ctx context.Context, token string) (*entities.Clinic, error) {
	panic("unused")
}
func (f *fakeRevealClinicRepo) Update(ctx context.Context, c *entities.Clinic) error { panic("unused") }
func (f *fakeRevealClinicRepo) GetAll(ctx context.Context) ([]*entities.Clinic, error) {
	return f.clinics, nil
}

type fakeRevealAppointmentRepo struct {
	pending     []*entities.Appointment
	revealed    map[uuid.UUID]bool
	alreadyDone map[uuid.UUID]bool
}

func (f *fakeRevealAppointmentRepo) Create(ctx context.Context, appt *entities.Appointment) error {
	panic("unused")
}
func (f *fakeRevealAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Appointment, error) {
	panic("unused")
}
func (f *fakeRevealAppointmentRepo) GetByCalendarEventID(ctx context.Context, calendarEventID uuid.UUID) (*entities.Appointment, error) {
	panic("unused")
}
func (f *fakeRevealAppointmentRepo) GetByCalendarEventIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Appointment, error) {
	panic("unused")
}
func (f *fakeRevealAppointmentRepo) GetByPatient(ctx context.Context, patientID uuid.UUID, includeCancelled bool) ([]*entities.Appointment, error) {
	panic("unused")
}
func (f *fakeRevealAppointmentRepo) Update(ctx context.Context, appt *entities.Appointment) error {
	panic("unused")
}
func (f *fakeRevealAppointmentRepo) CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	panic("unused")
}
func (f *fakeRevealAppointmentRepo) CountFutureByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) (int, error) {
	panic("unused")
}
func (f *fakeRevealAppointmentRepo) GetPendingReveal(ctx context.Context, clinicID uuid.UUID, settings entities.BookingRestrictionSettings, now time.Time, limit int) ([]*entities.Appointment, error) {
	return f.pending, nil
}
func (f *fakeRevealAppointmentRepo) MarkRevealed(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	if f.alreadyDone[appointmentID] {
		return false, nil
	}
	f.revealed[appointmentID] = true
	return true, nil
}

var _ repositories.ClinicRepository = (*fakeRevealClinicRepo)(nil)
var _ repositories.AppointmentRepository = (*fakeRevealAppointmentRepo)(nil)

func TestTickSkipsInactiveClinics(t *testing.T) {
	activeClinic := &entities.Clinic{ID: uuid.New(), IsActive: true, Settings: entities.DefaultClinicSettings()}
	inactiveClinic := &entities.Clinic{ID: uuid.New(), IsActive: false, Settings: entities.DefaultClinicSettings()}
	clinics := &fakeRevealClinicRepo{clinics: []*entities.Clinic{activeClinic, inactiveClinic}}

	apptID := uuid.New()
	appointments := &fakeRevealAppointmentRepo{
		pending:     []*entities.Appointment{{ID: apptID}},
		revealed:    map[uuid.UUID]bool{},
		alreadyDone: map[uuid.UUID]bool{},
	}

	var notified []NotificationIntent
	notify := func(ctx context.Context, intents []NotificationIntent) { notified = append(notified, intents...) }

	s := NewRevealScheduler(clinics, appointments, notify, logrus.New(), time.Minute, nil)
	err := s.tick(context.Background())
	require.NoError(t, err)

	assert.True(t, appointments.revealed[apptID])
	assert.NotEmpty(t, notified, "the active clinic's due appointment should have produced a reveal notification")
}

func TestRevealDueSkipsNotificationWhenMarkRevealedLosesTheRace(t *testing.T) {
	clinic := &entities.Clinic{ID: uuid.New(), IsActive: true, Settings: entities.DefaultClinicSettings()}
	apptID := uuid.New()
	appointments := &fakeRevealAppointmentRepo{
		pending:     []*entities.Appointment{{ID: apptID}},
		revealed:    map[uuid.UUID]bool{},
		alreadyDone: map[uuid.UUID]bool{apptID: true},
	}

	var notified []NotificationIntent
	notify := func(ctx context.Context, intents []NotificationIntent) { notified = append(notified, intents...) }

	s := NewRevealScheduler(&fakeRevealClinicRepo{}, appointments, notify, logrus.New(), time.Minute, nil)
	err := s.revealDue(context.Background(), clinic)
	require.NoError(t, err)

	assert.Empty(t, notified, "an appointment already revealed by a concurrent tick must not notify twice")
}

func TestRevealDueNoOpWhenNoNotifyHookConfigured(t *testing.T) {
	clinic := &entities.Clinic{ID: uuid.New(), IsActive: true, Settings: entities.DefaultClinicSettings()}
	apptID := uuid.New()
	appointments := &fakeRevealAppointmentRepo{
		pending:     []*entities.Appointment{{ID: apptID}},
		revealed:    map[uuid.UUID]bool{},
		alreadyDone: map[uuid.UUID]bool{},
	}

	s := NewRevealScheduler(&fakeRevealClinicRepo{}, appointments, nil, logrus.New(), time.Minute, nil)
	err := s.revealDue(context.Background(), clinic)
	require.NoError(t, err)
	assert.True(t, appointments.revealed[apptID])
}
