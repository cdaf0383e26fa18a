package usecases

import (
	"context"
	"testing"
	"time"

	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockPractitionerAppointmentTypeRepo and mockAppointmentRepoForValidation
// follow the testify/mock convention (mirrored from tqvdang-physioflow's
// internal/service/*_test.go) rather than hand-written fakes, since
// ValidateDeletion's behavior hinges on per-call return values keyed by
// argument, which mock.On/.Return expresses more directly than a fake's
// internal state.
type mockPractitionerAppointmentTypeRepo struct {
	mock.Mock
}

func (m *mockPractitionerAppointmentTypeRepo) GetByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) ([]*entities.PractitionerAppointmentType, error) {
	args := m.Called(ctx, appointmentTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PractitionerAppointmentType), args.Error(1)
}
func (m *mockPractitionerAppointmentTypeRepo) GetByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*entities.PractitionerAppointmentType, error) {
	args := m.Called(ctx, practitionerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PractitionerAppointmentType), args.Error(1)
}
func (m *mockPractitionerAppointmentTypeRepo) ReplaceAll(ctx context.Context, appointmentTypeID uuid.UUID, practitionerIDs []uuid.UUID) error {
	args := m.Called(ctx, appointmentTypeID, practitionerIDs)
	return args.Error(0)
}

type mockAppointmentRepoForValidation struct {
	mock.Mock
}

func (m *mockAppointmentRepoForValidation) Create(ctx context.Context, appt *entities.Appointment) error {
	panic("not used by ValidateDeletion")
}
func (m *mockAppointmentRepoForValidation) GetByID(ctx context.Context, id uuid.UUID) (*entities.Appointment, error) {
	panic("not used by ValidateDeletion")
}
func (m *mockAppointmentRepoForValidation) GetByCalendarEventID(ctx context.Context, calendarEventID uuid.UUID) (*entities.Appointment, error) {
	panic("not used by ValidateDeletion")
}
func (m *mockAppointmentRepoForValidation) GetByCalendarEventIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Appointment, error) {
	panic("not used by ValidateDeletion")
}
func (m *mockAppointmentRepoForValidation) GetByPatient(ctx context.Context, patientID uuid.UUID, includeCancelled bool) ([]*entities.Appointment, error) {
	panic("not used by ValidateDeletion")
}
func (m *mockAppointmentRepoForValidation) Update(ctx context.Context, appt *entities.Appointment) error {
	panic("not used by ValidateDeletion")
}
func (m *mockAppointmentRepoForValidation) CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	panic("not used by ValidateDeletion")
}
func (m *mockAppointmentRepoForValidation) CountFutureByAppointmentType(ctx context.Context, appointmentTypeID uuid.UUID) (int, error) {
	args := m.Called(ctx, appointmentTypeID)
	return args.Int(0), args.Error(1)
}
func (m *mockAppointmentRepoForValidation) GetPendingReveal(ctx context.Context, clinicID uuid.UUID, settings entities.BookingRestrictionSettings, now time.Time, limit int) ([]*entities.Appointment, error) {
	panic("not used by ValidateDeletion")
}
func (m *mockAppointmentRepoForValidation) MarkRevealed(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	panic("not used by ValidateDeletion")
}

func TestValidateDeletionReportsNoBlockersWhenClear(t *testing.T) {
	practitionerTypes := &mockPractitionerAppointmentTypeRepo{}
	appointments := &mockAppointmentRepoForValidation{}
	uc := &ServiceCatalogUseCase{practitionerTypes: practitionerTypes, appointments: appointments}

	id := uuid.New()
	practitionerTypes.On("GetByAppointmentType", mock.Anything, id).Return([]*entities.PractitionerAppointmentType{}, nil)
	appointments.On("CountFutureByAppointmentType", mock.Anything, id).Return(0, nil)

	resp, err := uc.ValidateDeletion(context.Background(), []uuid.UUID{id})
	require.NoError(t, err)
	assert.Empty(t, resp.Blocked)
}

func TestValidateDeletionReportsPractitionerAndFutureAppointmentBlockers(t *testing.T) {
	practitionerTypes := &mockPractitionerAppointmentTypeRepo{}
	appointments := &mockAppointmentRepoForValidation{}
	uc := &ServiceCatalogUseCase{practitionerTypes: practitionerTypes, appointments: appointments}

	blockedID := uuid.New()
	clearID := uuid.New()
	practitionerID := uuid.New()

	practitionerTypes.On("GetByAppointmentType", mock.Anything, blockedID).Return(
		[]*entities.PractitionerAppointmentType{{PractitionerID: practitionerID}}, nil)
	appointments.On("CountFutureByAppointmentType", mock.Anything, blockedID).Return(2, nil)

	practitionerTypes.On("GetByAppointmentType", mock.Anything, clearID).Return([]*entities.PractitionerAppointmentType{}, nil)
	appointments.On("CountFutureByAppointmentType", mock.Anything, clearID).Return(0, nil)

	resp, err := uc.ValidateDeletion(context.Background(), []uuid.UUID{blockedID, clearID})
	require.NoError(t, err)
	require.Len(t, resp.Blocked, 1)
	assert.Equal(t, blockedID, resp.Blocked[0].AppointmentTypeID)
	assert.Equal(t, []uuid.UUID{practitionerID}, resp.Blocked[0].PractitionerIDs)
	assert.Equal(t, 2, resp.Blocked[0].FutureAppointments)
}
