package usecases

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"
	"clinic-scheduler-backend/internal/infra/ratelimit"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// SettingsUseCase owns the clinic settings document's deep-merge update and
// LIFF access token regeneration. Grounded on the teacher's clinic_usecase.go
// get/update shape and original_source/.../clinic.py's settings validators,
// with the deep-merge and LIFF-token mechanics built fresh per spec §4.6/§5
// (the teacher has neither).
type SettingsUseCase struct {
	clinics   repositories.ClinicRepository
	uow       repositories.UnitOfWork
	validator *validator.Validate
	liffLimiter *ratelimit.PerKeyLimiter
}

func NewSettingsUseCase(clinics repositories.ClinicRepository, uow repositories.UnitOfWork, liffLimiter *ratelimit.PerKeyLimiter) *SettingsUseCase {
	return &SettingsUseCase{clinics: clinics, uow: uow, validator: validator.New(), liffLimiter: liffLimiter}
}

// GetSettings returns the clinic's full settings document.
func (uc *SettingsUseCase) GetSettings(ctx context.Context, clinicID uuid.UUID) (*entities.Clinic, error) {
	clinic, err := uc.clinics.GetByID(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	clinic.Settings.BookingRestrictionSettings.Migrate()
	return clinic, nil
}

// rawSettingsPatch mirrors ClinicSettings but with each top-level section
// as json.RawMessage, letting UpdateSettings tell "key present but empty"
// apart from "key absent" — the distinction the deep-merge rule needs.
type rawSettingsPatch struct {
	NotificationSettings       json.RawMessage `json:"notification_settings"`
	BookingRestrictionSettings json.RawMessage `json:"booking_restriction_settings"`
	ClinicInfoSettings         json.RawMessage `json:"clinic_info_settings"`
	ChatSettings               json.RawMessage `json:"chat_settings"`
	ReceiptSettings            json.RawMessage `json:"receipt_settings"`
}

// UpdateSettings applies a partial deep-merge update: only top-level keys
// present in patchJSON are touched, and within a touched section only the
// fields present in its own JSON object are overwritten (struct fields not
// present in the raw JSON keep their prior value because we unmarshal onto
// the existing struct, not a zero value).
func (uc *SettingsUseCase) UpdateSettings(ctx context.Context, clinicID uuid.UUID, patchJSON []byte) (*entities.Clinic, error) {
	var patch rawSettingsPatch
	if err := json.Unmarshal(patchJSON, &patch); err != nil {
		return nil, domainerr.Wrap(domainerr.KindValidationError, "malformed settings payload", err)
	}
	if err := rejectUnknownKeys(patchJSON); err != nil {
		return nil, err
	}

	var clinic *entities.Clinic
	err := uc.uow.WithinTx(ctx, func(ctx context.Context) error {
		// Settings writes take FOR UPDATE on the clinic row for the
		// duration of the update (spec §5); GetByID appends FOR UPDATE
		// automatically whenever ctx carries this transaction.
		var err error
		clinic, err = uc.clinics.GetByID(ctx, clinicID)
		if err != nil {
			return err
		}

		if len(patch.NotificationSettings) > 0 {
			if err := json.Unmarshal(patch.NotificationSettings, &clinic.Settings.NotificationSettings); err != nil {
				return domainerr.Wrap(domainerr.KindValidationError, "invalid notification_settings", err)
			}
		}
		if len(patch.BookingRestrictionSettings) > 0 {
			if err := json.Unmarshal(patch.BookingRestrictionSettings, &clinic.Settings.BookingRestrictionSettings); err != nil {
				return domainerr.Wrap(domainerr.KindValidationError, "invalid booking_restriction_settings", err)
			}
			clinic.Settings.BookingRestrictionSettings.Migrate()
		}
		if len(patch.ClinicInfoSettings) > 0 {
			if err := json.Unmarshal(patch.ClinicInfoSettings, &clinic.Settings.ClinicInfoSettings); err != nil {
				return domainerr.Wrap(domainerr.KindValidationError, "invalid clinic_info_settings", err)
			}
		}
		if len(patch.ChatSettings) > 0 {
			if err := json.Unmarshal(patch.ChatSettings, &clinic.Settings.ChatSettings); err != nil {
				return domainerr.Wrap(domainerr.KindValidationError, "invalid chat_settings", err)
			}
		}
		if len(patch.ReceiptSettings) > 0 {
			if err := json.Unmarshal(patch.ReceiptSettings, &clinic.Settings.ReceiptSettings); err != nil {
				return domainerr.Wrap(domainerr.KindValidationError, "invalid receipt_settings", err)
			}
		}

		if err := uc.validator.Struct(&clinic.Settings.BookingRestrictionSettings); err != nil {
			return domainerr.Wrap(domainerr.KindValidationError, "settings failed validation", err)
		}

		return uc.clinics.Update(ctx, clinic)
	})
	if err != nil {
		return nil, err
	}
	return clinic, nil
}

// rejectUnknownKeys enforces the "unknown keys are rejected" rule by
// comparing the patch's top-level key set against the five allowed names.
func rejectUnknownKeys(patchJSON []byte) error {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(patchJSON, &generic); err != nil {
		return domainerr.Wrap(domainerr.KindValidationError, "malformed settings payload", err)
	}
	allowed := map[string]bool{
		"notification_settings":       true,
		"booking_restriction_settings": true,
		"clinic_info_settings":        true,
		"chat_settings":               true,
		"receipt_settings":            true,
	}
	for key := range generic {
		if !allowed[key] {
			return domainerr.New(domainerr.KindValidationError, fmt.Sprintf("unknown settings key %q", key))
		}
	}
	return nil
}

// RegenerateLiffToken replaces the clinic's LIFF access token with a new
// URL-safe ~43-character random string, retrying on uniqueness collision up
// to 10 times per spec §5. The whole read-retry-write sequence runs inside
// one transaction so GetByID takes FOR UPDATE on the Clinic row, per spec
// §5, and two concurrent regenerations can't race past each other. A
// per-clinic token bucket caps how often the endpoint may be hit at all,
// ahead of the transaction, so a hammering caller never holds the row lock.
func (uc *SettingsUseCase) RegenerateLiffToken(ctx context.Context, clinicID uuid.UUID) (string, error) {
	if uc.liffLimiter != nil && !uc.liffLimiter.Allow(clinicID.String()) {
		return "", domainerr.New(domainerr.KindRateLimited, "請稍後再試")
	}

	var result string
	err := uc.uow.WithinTx(ctx, func(ctx context.Context) error {
		clinic, err := uc.clinics.GetByID(ctx, clinicID)
		if err != nil {
			return err
		}

		const maxRetries = 10
		for attempt := 0; attempt < maxRetries; attempt++ {
			token, err := generateLiffToken()
			if err != nil {
				return err
			}
			if existing, err := uc.clinics.GetByLiffAccessToken(ctx, token); err == nil && existing != nil {
				continue
			}
			clinic.LiffAccessToken = &token
			if err := uc.clinics.Update(ctx, clinic); err != nil {
				return err
			}
			result = token
			return nil
		}
		return domainerr.New(domainerr.KindSerializationFailure, "could not generate a unique LIFF token")
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// generateLiffToken produces a ~43-character URL-safe random string (32
// random bytes, base64url-encoded with no padding).
func generateLiffToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
