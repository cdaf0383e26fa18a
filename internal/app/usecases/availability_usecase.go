package usecases

import (
	"context"
	"fmt"
	"time"

	"clinic-scheduler-backend/internal/app/dto"
	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"
	"clinic-scheduler-backend/internal/domain/services"
	"clinic-scheduler-backend/pkg/timeutil"

	"github.com/google/uuid"
)

// AvailabilityUseCase owns the practitioner-facing availability surface:
// the weekly template, one-off exceptions, and the free-slot/conflict
// queries the booking UI drives off the ConflictEngine. Grounded on the
// teacher's doctor_availability usecase shape (template CRUD plus a
// conflict-checker dependency), generalized onto CalendarEvent/
// PractitionerAvailability/AvailabilityException.
type AvailabilityUseCase struct {
	uow            repositories.UnitOfWork
	availability   repositories.PractitionerAvailabilityRepository
	exceptions     repositories.AvailabilityExceptionRepository
	calendarEvents repositories.CalendarEventRepository
	appointments   repositories.AppointmentRepository
	appointmentTypes repositories.AppointmentTypeRepository
	conflictEngine *services.ConflictEngine
	calendar       *CalendarUseCase
}

func NewAvailabilityUseCase(
	uow repositories.UnitOfWork,
	availability repositories.PractitionerAvailabilityRepository,
	exceptions repositories.AvailabilityExceptionRepository,
	calendarEvents repositories.CalendarEventRepository,
	appointments repositories.AppointmentRepository,
	appointmentTypes repositories.AppointmentTypeRepository,
	conflictEngine *services.ConflictEngine,
	calendar *CalendarUseCase,
) *AvailabilityUseCase {
	return &AvailabilityUseCase{
		uow:            uow,
		availability:   availability,
		exceptions:     exceptions,
		calendarEvents: calendarEvents,
		appointments:   appointments,
		appointmentTypes: appointmentTypes,
		conflictEngine: conflictEngine,
		calendar:       calendar,
	}
}

// GetDefaultTemplate returns the practitioner's weekly availability windows.
func (uc *AvailabilityUseCase) GetDefaultTemplate(ctx context.Context, practitionerID uuid.UUID) ([]dto.WeeklyTemplateSlotDTO, error) {
	rows, err := uc.availability.GetByPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.WeeklyTemplateSlotDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.WeeklyTemplateSlotDTO{ID: r.ID, Weekday: r.Weekday, StartTime: r.StartTime, EndTime: r.EndTime})
	}
	return out, nil
}

// ReplaceDefaultTemplate hard-syncs the practitioner's weekly template:
// every existing window is soft-deleted and the submitted set is inserted
// fresh, inside one transaction.
func (uc *AvailabilityUseCase) ReplaceDefaultTemplate(ctx context.Context, clinicID, practitionerID uuid.UUID, slots []dto.WeeklyTemplateSlotDTO) ([]dto.WeeklyTemplateSlotDTO, error) {
	var result []dto.WeeklyTemplateSlotDTO
	err := uc.uow.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := uc.availability.GetByPractitioner(ctx, practitionerID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if err := uc.availability.SoftDelete(ctx, e.ID); err != nil {
				return err
			}
		}
		now := time.Now()
		var inserted []*entities.PractitionerAvailability
		for _, s := range slots {
			a := &entities.PractitionerAvailability{
				ID:             uuid.New(),
				ClinicID:       clinicID,
				PractitionerID: practitionerID,
				Weekday:        s.Weekday,
				StartTime:      s.StartTime,
				EndTime:        s.EndTime,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := a.Validate(); err != nil {
				return domainerr.Wrap(domainerr.KindValidationError, "invalid availability window", err)
			}
			for _, other := range inserted {
				if a.Overlaps(other) {
					return domainerr.New(domainerr.KindValidationError, "overlapping availability windows on the same weekday")
				}
			}
			if err := uc.availability.Create(ctx, a); err != nil {
				return err
			}
			inserted = append(inserted, a)
			result = append(result, dto.WeeklyTemplateSlotDTO{ID: a.ID, Weekday: a.Weekday, StartTime: a.StartTime, EndTime: a.EndTime})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MonthlyCounts returns, for every day in the calendar month containing
// month, the number of confirmed appointments visible to a practitioner
// (pending-reveal rows excluded, mirroring the practitioner calendar view).
func (uc *AvailabilityUseCase) MonthlyCounts(ctx context.Context, practitionerID uuid.UUID, month time.Time) (dto.MonthlyAvailabilityCounts, error) {
	y, m, _ := month.In(timeutil.ClinicLocation).Date()
	from := time.Date(y, m, 1, 0, 0, 0, 0, timeutil.ClinicLocation)
	to := from.AddDate(0, 1, 0)

	events, err := uc.calendar.PractitionerRange(ctx, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	counts := dto.MonthlyAvailabilityCounts{}
	for _, e := range events {
		if e.Kind != string(entities.CalendarEventKindAppointment) || e.Status != string(entities.AppointmentStatusConfirmed) {
			continue
		}
		day := e.Start.In(timeutil.ClinicLocation).Format("2006-01-02")
		counts[day]++
	}
	return counts, nil
}

// DayView assembles one practitioner's events for a single date plus that
// weekday's template windows.
func (uc *AvailabilityUseCase) DayView(ctx context.Context, practitionerID uuid.UUID, date time.Time) (*dto.DayViewResponse, error) {
	from := timeutil.StartOfDay(date)
	to := from.Add(24 * time.Hour)

	events, err := uc.calendar.PractitionerRange(ctx, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	templates, err := uc.availability.GetByPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	weekday := int(date.In(timeutil.ClinicLocation).Weekday())
	var schedule []dto.WeeklyTemplateSlotDTO
	for _, t := range templates {
		if t.Weekday == weekday {
			schedule = append(schedule, dto.WeeklyTemplateSlotDTO{ID: t.ID, Weekday: t.Weekday, StartTime: t.StartTime, EndTime: t.EndTime})
		}
	}
	return &dto.DayViewResponse{Events: events, Schedule: schedule}, nil
}

// CalendarBatch assembles the multi-practitioner range view, one entry per
// requested practitioner, in the same bulk-load fashion as a single-
// practitioner range.
func (uc *AvailabilityUseCase) CalendarBatch(ctx context.Context, practitionerIDs []uuid.UUID, from, to time.Time) (map[string][]*dto.CalendarEventResponse, error) {
	out := make(map[string][]*dto.CalendarEventResponse, len(practitionerIDs))
	for _, pid := range practitionerIDs {
		events, err := uc.calendar.PractitionerRange(ctx, pid, from, to)
		if err != nil {
			return nil, err
		}
		out[pid.String()] = events
	}
	return out, nil
}

// FreeSlots implements Q1 for one date.
func (uc *AvailabilityUseCase) FreeSlots(ctx context.Context, practitionerID uuid.UUID, at *entities.AppointmentType, stepMinutes int, date time.Time) ([]dto.TimeSlotDTO, error) {
	slots, err := uc.conflictEngine.FreeSlots(ctx, services.FreeSlotsRequest{
		PractitionerID: practitionerID,
		AppointmentType: at,
		StepMinutes:    stepMinutes,
	}, date)
	if err != nil {
		return nil, err
	}
	return toSlotDTOs(slots), nil
}

// BatchFreeSlots implements Q2 across several dates.
func (uc *AvailabilityUseCase) BatchFreeSlots(ctx context.Context, practitionerID uuid.UUID, at *entities.AppointmentType, stepMinutes int, dates []time.Time) (dto.FreeSlotsResponse, error) {
	byDate, err := uc.conflictEngine.BatchFreeSlots(ctx, services.FreeSlotsRequest{
		PractitionerID: practitionerID,
		AppointmentType: at,
		StepMinutes:    stepMinutes,
	}, dates)
	if err != nil {
		return nil, err
	}
	out := dto.FreeSlotsResponse{}
	for d, slots := range byDate {
		out[d.Format("2006-01-02")] = toSlotDTOs(slots)
	}
	return out, nil
}

func toSlotDTOs(slots []entities.TimeSlot) []dto.TimeSlotDTO {
	out := make([]dto.TimeSlotDTO, 0, len(slots))
	for _, s := range slots {
		out = append(out, dto.TimeSlotDTO{PractitionerID: s.PractitionerID, Start: s.Start, End: s.End})
	}
	return out
}

// ConflictsBatch implements Q3 across several (practitioner, window) pairs
// in one pass, resolving each item's appointment type once.
func (uc *AvailabilityUseCase) ConflictsBatch(ctx context.Context, items []dto.ConflictCheckItem, isPatientInitiated bool) ([]dto.ConflictCheckResult, error) {
	typeCache := map[uuid.UUID]*entities.AppointmentType{}
	out := make([]dto.ConflictCheckResult, 0, len(items))
	for _, item := range items {
		at, ok := typeCache[item.AppointmentTypeID]
		if !ok {
			var err error
			at, err = uc.appointmentTypes.GetByID(ctx, item.AppointmentTypeID)
			if err != nil {
				return nil, err
			}
			typeCache[item.AppointmentTypeID] = at
		}
		result := dto.ConflictCheckResult{PractitionerID: item.PractitionerID, Start: item.Start, End: item.End}
		err := uc.conflictEngine.CheckConflict(ctx, services.ConflictCheckRequest{
			PractitionerID:     item.PractitionerID,
			Start:              item.Start,
			End:                item.End,
			AppointmentType:    at,
			IsPatientInitiated: isPatientInitiated,
		})
		if err != nil {
			de, ok := domainerr.As(err)
			if !ok {
				return nil, err
			}
			kind := string(de.Kind)
			result.Conflict = &kind
		}
		out = append(out, result)
	}
	return out, nil
}

// CreateException adds a one-off override. When the window overlaps an
// existing confirmed appointment and force is false, the call is rejected
// with a conflict so the caller can re-submit with force=true once staff
// have acknowledged the overlap (spec §6's force-retry rule).
func (uc *AvailabilityUseCase) CreateException(ctx context.Context, clinicID, practitionerID uuid.UUID, req *dto.CreateExceptionRequest) (*dto.AvailabilityExceptionResponse, error) {
	start, end := req.Start, req.End
	if req.AllDay {
		if start.IsZero() {
			return nil, domainerr.New(domainerr.KindValidationError, "start is required")
		}
		start = timeutil.StartOfDay(start)
		end = start.Add(24 * time.Hour)
	} else {
		if start.IsZero() || end.IsZero() {
			return nil, domainerr.New(domainerr.KindValidationError, "start and end are required")
		}
		if !end.After(start) {
			return nil, domainerr.New(domainerr.KindValidationError, "end time must be after start time")
		}
	}

	var result *dto.AvailabilityExceptionResponse
	err := uc.uow.WithinTx(ctx, func(ctx context.Context) error {
		if req.Blocking && !req.Force {
			overlapping, err := uc.calendarEvents.GetByPractitionerAndRange(ctx, practitionerID, start, end, true)
			if err != nil {
				return err
			}
			var blocked []string
			for _, e := range overlapping {
				if e.Kind == entities.CalendarEventKindAppointment {
					blocked = append(blocked, e.ID.String())
				}
			}
			if len(blocked) > 0 {
				return domainerr.New(domainerr.KindConflictAppointment, fmt.Sprintf("%d confirmed appointment(s) overlap this window", len(blocked)))
			}
		}

		now := time.Now()
		event := &entities.CalendarEvent{
			ID:             uuid.New(),
			ClinicID:       clinicID,
			PractitionerID: practitionerID,
			Kind:           entities.CalendarEventKindAvailabilityException,
			Date:           timeutil.StartOfDay(start),
			Start:          start,
			End:            end,
			AllDay:         req.AllDay,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		exception := &entities.AvailabilityException{
			ID:             uuid.New(),
			ClinicID:       clinicID,
			PractitionerID: practitionerID,
			Blocking:       req.Blocking,
			Reason:         req.Reason,
		}
		event.AvailabilityExceptionID = &exception.ID
		exception.CalendarEventID = event.ID

		if err := uc.calendarEvents.Create(ctx, event); err != nil {
			return err
		}
		if err := uc.exceptions.Create(ctx, exception); err != nil {
			return err
		}
		result = &dto.AvailabilityExceptionResponse{
			ID: exception.ID, PractitionerID: practitionerID,
			Start: start, End: end, Blocking: req.Blocking, Reason: req.Reason,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteException removes an exception and its owning calendar event.
func (uc *AvailabilityUseCase) DeleteException(ctx context.Context, exceptionID uuid.UUID) error {
	return uc.uow.WithinTx(ctx, func(ctx context.Context) error {
		exception, err := uc.exceptions.GetByID(ctx, exceptionID)
		if err != nil {
			return err
		}
		if err := uc.calendarEvents.Delete(ctx, exception.CalendarEventID); err != nil {
			return err
		}
		return uc.exceptions.Delete(ctx, exceptionID)
	})
}
