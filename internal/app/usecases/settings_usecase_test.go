package usecases

import (
	"context"
	"testing"

	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/domain/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// passthroughUnitOfWork runs fn directly against the caller's context,
// standing in for a real transaction the same way the fakes elsewhere in
// this package stand in for real repositories: these tests care about the
// deep-merge outcome, not transactional isolation.
type passthroughUnitOfWork struct{}

func (passthroughUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestUpdateSettingsMergesOnlyTheProvidedTopLevelKey(t *testing.T) {
	clinicID := uuid.New()
	clinic := &entities.Clinic{ID: clinicID, Settings: entities.DefaultClinicSettings()}

	clinics := &mockClinicRepo{}
	clinics.On("GetByID", mock.Anything, clinicID).Return(clinic, nil)
	clinics.On("Update", mock.Anything, mock.AnythingOfType("*entities.Clinic")).Return(nil)

	uc := NewSettingsUseCase(clinics, passthroughUnitOfWork{}, nil)

	patch := []byte(`{"booking_restriction_settings":{"minimum_cancellation_hours_before":48}}`)
	updated, err := uc.UpdateSettings(context.Background(), clinicID, patch)

	require.NoError(t, err)
	assert.Equal(t, 48, updated.Settings.BookingRestrictionSettings.MinimumCancellationHoursBefore)
	assert.Equal(t, 24, updated.Settings.BookingRestrictionSettings.MinimumBookingHoursAhead,
		"fields absent from the patched section's JSON must keep their prior value")
	assert.Equal(t, entities.DefaultClinicSettings().ChatSettings, updated.Settings.ChatSettings,
		"a section absent from the patch entirely must be untouched")
}

func TestUpdateSettingsRejectsUnknownTopLevelKey(t *testing.T) {
	clinicID := uuid.New()
	clinics := &mockClinicRepo{}
	uc := NewSettingsUseCase(clinics, passthroughUnitOfWork{}, nil)

	_, err := uc.UpdateSettings(context.Background(), clinicID, []byte(`{"nonexistent_section":{}}`))
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindValidationError, de.Kind)
}

func TestUpdateSettingsRejectsMalformedJSON(t *testing.T) {
	clinicID := uuid.New()
	clinics := &mockClinicRepo{}
	uc := NewSettingsUseCase(clinics, passthroughUnitOfWork{}, nil)

	_, err := uc.UpdateSettings(context.Background(), clinicID, []byte(`{not json`))
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindValidationError, de.Kind)
}

func TestUpdateSettingsRejectsOutOfRangeValueAfterMerge(t *testing.T) {
	clinicID := uuid.New()
	clinic := &entities.Clinic{ID: clinicID, Settings: entities.DefaultClinicSettings()}

	clinics := &mockClinicRepo{}
	clinics.On("GetByID", mock.Anything, clinicID).Return(clinic, nil)

	uc := NewSettingsUseCase(clinics, passthroughUnitOfWork{}, nil)

	patch := []byte(`{"booking_restriction_settings":{"step_size_minutes":0}}`)
	_, err := uc.UpdateSettings(context.Background(), clinicID, patch)
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerr.KindValidationError, de.Kind)
}

func TestRegenerateLiffTokenRetriesOnCollisionThenSucceeds(t *testing.T) {
	clinicID := uuid.New()
	clinic := &entities.Clinic{ID: clinicID}

	clinics := &mockClinicRepo{}
	clinics.On("GetByID", mock.Anything, clinicID).Return(clinic, nil)
	clinics.On("GetByLiffAccessToken", mock.Anything, mock.AnythingOfType("string")).
		Return(&entities.Clinic{ID: uuid.New()}, nil).Once()
	clinics.On("GetByLiffAccessToken", mock.Anything, mock.AnythingOfType("string")).
		Return(nil, domainerr.New(domainerr.KindNotFound, "not found")).Once()
	clinics.On("Update", mock.Anything, mock.AnythingOfType("*entities.Clinic")).Return(nil)

	uc := NewSettingsUseCase(clinics, passthroughUnitOfWork{}, nil)

	token, err := uc.RegenerateLiffToken(context.Background(), clinicID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	clinics.AssertNumberOfCalls(t, "GetByLiffAccessToken", 2)
}
