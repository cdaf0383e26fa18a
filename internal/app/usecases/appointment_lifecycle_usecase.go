package usecases

import (
	"context"
	"time"

	"clinic-scheduler-backend/internal/app/dto"
	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"
	"clinic-scheduler-backend/internal/domain/services"

	"github.com/google/uuid"
)

// NotificationSink receives intents after a transaction has committed; the
// concrete implementation (internal/infra/notify) enqueues them on a
// worker pool so a slow or failed send never blocks the HTTP response nor
// rolls back the appointment change (spec §5).
type NotificationSink interface {
	Enqueue(ctx context.Context, intents []services.NotificationIntent)
}

// AppointmentLifecycleUseCase orchestrates Create/Edit/Cancel/Reassign.
// Grounded on the teacher's appointment_usecase.go per-operation structure
// and update_appointment.go's resolve-then-validate-then-persist shape,
// generalized with the auto-assignment tie-break, policy gating, and
// row-locked conflict re-check the spec requires.
type AppointmentLifecycleUseCase struct {
	clinics         repositories.ClinicRepository
	patients        repositories.PatientRepository
	appointmentTypes repositories.AppointmentTypeRepository
	practitionerAppointmentTypes repositories.PractitionerAppointmentTypeRepository
	calendarEvents  repositories.CalendarEventRepository
	appointments    repositories.AppointmentRepository

	conflictEngine *services.ConflictEngine
	policy         *services.BookingPolicyEvaluator
	notifications  *services.NotificationEngine
	sink           NotificationSink
}

func NewAppointmentLifecycleUseCase(
	clinics repositories.ClinicRepository,
	patients repositories.PatientRepository,
	appointmentTypes repositories.AppointmentTypeRepository,
	practitionerAppointmentTypes repositories.PractitionerAppointmentTypeRepository,
	calendarEvents repositories.CalendarEventRepository,
	appointments repositories.AppointmentRepository,
	conflictEngine *services.ConflictEngine,
	policy *services.BookingPolicyEvaluator,
	notifications *services.NotificationEngine,
	sink NotificationSink,
) *AppointmentLifecycleUseCase {
	return &AppointmentLifecycleUseCase{
		clinics:         clinics,
		patients:        patients,
		appointmentTypes: appointmentTypes,
		practitionerAppointmentTypes: practitionerAppointmentTypes,
		calendarEvents:  calendarEvents,
		appointments:    appointments,
		conflictEngine:  conflictEngine,
		policy:          policy,
		notifications:   notifications,
		sink:            sink,
	}
}

// Create implements spec §4.3 Create.
func (uc *AppointmentLifecycleUseCase) Create(ctx context.Context, caller entities.CallerContext, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	clinic, err := uc.clinics.GetByID(ctx, caller.ClinicID)
	if err != nil {
		return nil, err
	}

	at, err := uc.appointmentTypes.GetByID(ctx, req.AppointmentTypeID)
	if err != nil {
		return nil, err
	}
	if at.IsDeleted() || at.ClinicID != clinic.ID {
		return nil, domainerr.New(domainerr.KindNotFound, "appointment type not found")
	}
	if at.DurationMinutes <= 0 {
		return nil, domainerr.New(domainerr.KindValidationError, "appointment type has no duration")
	}

	patientSelectedAuto := req.PractitionerID == dto.AutoAssignSentinel
	isPatientActor := caller.ActorKind == entities.ActorPatient

	duration := time.Duration(at.DurationMinutes) * time.Minute
	start := req.StartTime
	if len(req.AlternativeSlots) >= 2 {
		start = req.AlternativeSlots[0].Start
	}
	end := start.Add(duration)

	var practitionerID uuid.UUID
	autoResolved := false
	if patientSelectedAuto || (isPatientActor && !at.AllowPatientPractitionerSelect) {
		assigned, err := uc.autoAssign(ctx, clinic.ID, at, start, end, nil)
		if err != nil {
			return nil, err
		}
		practitionerID = assigned
		autoResolved = true
	} else {
		id, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			return nil, domainerr.New(domainerr.KindValidationError, "invalid practitioner id")
		}
		practitionerID = id
		if err := uc.conflictEngine.CheckConflict(ctx, services.ConflictCheckRequest{
			PractitionerID:     practitionerID,
			Start:              start,
			End:                end,
			AppointmentType:    at,
			IsPatientInitiated: isPatientActor,
		}); err != nil {
			return nil, err
		}
	}

	if isPatientActor {
		activeCount, err := uc.appointments.CountActiveByPatient(ctx, req.PatientID)
		if err != nil {
			return nil, err
		}
		priorConfirmed, err := uc.patients.HasConfirmedAppointment(ctx, req.PatientID)
		if err != nil {
			return nil, err
		}
		if err := uc.policy.EvaluateCreate(services.EvaluateCreateInput{
			Settings:               clinic.Settings.BookingRestrictionSettings,
			Now:                    time.Now(),
			StartTime:              start,
			AppointmentType:        at,
			PatientSelectedAuto:    patientSelectedAuto,
			PriorConfirmedCount:    boolToCount(priorConfirmed),
			ActiveAppointmentCount: activeCount,
		}); err != nil {
			return nil, err
		}
	}

	// Row-locked re-check (spec §5): re-run the conflict check holding
	// FOR UPDATE on the practitioner's overlapping rows. The repository's
	// forUpdate=true path takes the lock; CheckConflict itself is pure
	// given the events it is handed, so calling it again after the locked
	// fetch below re-validates against the now-locked snapshot.
	if _, err := uc.calendarEvents.GetByPractitionerAndRange(ctx, practitionerID, start, end, true); err != nil {
		return nil, err
	}
	if err := uc.conflictEngine.CheckConflict(ctx, services.ConflictCheckRequest{
		PractitionerID:     practitionerID,
		Start:              start,
		End:                end,
		AppointmentType:    at,
		IsPatientInitiated: isPatientActor,
	}); err != nil {
		return nil, err
	}

	now := time.Now()
	event := &entities.CalendarEvent{
		ID:             uuid.New(),
		ClinicID:       clinic.ID,
		PractitionerID: practitionerID,
		Kind:           entities.CalendarEventKindAppointment,
		Date:           start,
		Start:          start,
		End:            end,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.calendarEvents.Create(ctx, event); err != nil {
		return nil, err
	}

	pendingConfirmation := len(req.AlternativeSlots) >= 2
	var alternatives []entities.TimeSlot
	if pendingConfirmation {
		for _, s := range req.AlternativeSlots {
			alternatives = append(alternatives, entities.TimeSlot{PractitionerID: s.PractitionerID, Start: s.Start, End: s.End})
		}
	}

	appt := &entities.Appointment{
		ID:                      uuid.New(),
		ClinicID:                clinic.ID,
		CalendarEventID:         event.ID,
		PatientID:               req.PatientID,
		PractitionerID:          practitionerID,
		AppointmentTypeID:       at.ID,
		Status:                  entities.AppointmentStatusConfirmed,
		Notes:                   req.Notes,
		IsAutoAssigned:          autoResolved,
		OriginallyAutoAssigned:  autoResolved,
		PendingTimeConfirmation: pendingConfirmation,
		AlternativeTimeSlots:    alternatives,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := appt.Validate(); err != nil {
		return nil, err
	}
	if err := uc.appointments.Create(ctx, appt); err != nil {
		return nil, err
	}

	intents := uc.notifications.DecideForCreate(caller.ActorKind, appt.IsRevealed(), at.PatientConfirmTemplate.Enabled, appt.ID)
	uc.sink.Enqueue(ctx, intents)

	// A short enough lead time means the reveal boundary can already have
	// passed at creation time; don't leave that case hidden until the next
	// scheduler tick (spec §9).
	if appt.IsAutoAssigned {
		revealSettings := clinic.Settings.BookingRestrictionSettings
		revealSettings.Migrate()
		if services.RevealBoundaryPassed(revealSettings, event.Start, now) {
			if revealed, err := uc.appointments.MarkRevealed(ctx, appt.ID); err == nil && revealed {
				uc.sink.Enqueue(ctx, services.NewNotificationEngine().DecideForReveal(appt.ID))
			}
		}
	}

	return dto.ToAppointmentResponse(appt, event), nil
}

// autoAssign implements the tie-break described in spec §4.1: filter
// practitioners associated with the service down to those with no
// conflict, then minimize (confirmed count that day, practitioner id).
func (uc *AppointmentLifecycleUseCase) autoAssign(ctx context.Context, clinicID uuid.UUID, at *entities.AppointmentType, start, end time.Time, preferPractitionerID *uuid.UUID) (uuid.UUID, error) {
	assignments, err := uc.practitionerAppointmentTypes.GetByAppointmentType(ctx, at.ID)
	if err != nil {
		return uuid.Nil, err
	}

	var candidates []services.PractitionerCandidate
	for _, a := range assignments {
		if a.DeletedAt != nil {
			continue
		}
		if err := uc.conflictEngine.CheckConflict(ctx, services.ConflictCheckRequest{
			PractitionerID:     a.PractitionerID,
			Start:              start,
			End:                end,
			AppointmentType:    at,
			IsPatientInitiated: true,
		}); err != nil {
			continue
		}
		events, err := uc.calendarEvents.GetByPractitionerAndRange(ctx, a.PractitionerID, startOfDay(start), startOfDay(start).Add(24*time.Hour), false)
		if err != nil {
			return uuid.Nil, err
		}
		count := 0
		for _, e := range events {
			if e.Kind == entities.CalendarEventKindAppointment {
				count++
			}
		}
		candidates = append(candidates, services.PractitionerCandidate{PractitionerID: a.PractitionerID, ConfirmedCountThatDay: count})
	}

	if preferPractitionerID != nil {
		for _, c := range candidates {
			if c.PractitionerID == *preferPractitionerID {
				return *preferPractitionerID, nil
			}
		}
	}

	chosen, ok := services.ChooseAutoAssignee(candidates)
	if !ok {
		return uuid.Nil, domainerr.New(domainerr.KindConflictNoAvailability, "目前沒有服務人員有空")
	}
	return chosen, nil
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// requireOwnsOrAdmin enforces spec §6's "staff; practitioners only own
// appts" restriction on PUT/DELETE /appointments/{id}: a staff caller
// without the admin role may only act on an appointment assigned to
// themselves. Patient and cron callers are untouched by this check.
func requireOwnsOrAdmin(caller entities.CallerContext, appt *entities.Appointment) error {
	if caller.ActorKind != entities.ActorClinicStaff {
		return nil
	}
	if caller.HasRole(entities.RoleAdmin) {
		return nil
	}
	if caller.UserID != nil && *caller.UserID == appt.PractitionerID {
		return nil
	}
	return domainerr.New(domainerr.KindForbidden, "只能操作自己的預約")
}

// Edit implements spec §4.3 Edit.
func (uc *AppointmentLifecycleUseCase) Edit(ctx context.Context, caller entities.CallerContext, appointmentID uuid.UUID, req *dto.EditAppointmentRequest) (*dto.AppointmentResponse, error) {
	appt, err := uc.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsCanceled() {
		return nil, domainerr.New(domainerr.KindAlreadyCancelled, "此預約已被取消")
	}
	if err := requireOwnsOrAdmin(caller, appt); err != nil {
		return nil, err
	}
	event, err := uc.calendarEvents.GetByID(ctx, appt.CalendarEventID)
	if err != nil {
		return nil, err
	}
	at, err := uc.appointmentTypes.GetByID(ctx, appt.AppointmentTypeID)
	if err != nil {
		return nil, err
	}
	clinic, err := uc.clinics.GetByID(ctx, caller.ClinicID)
	if err != nil {
		return nil, err
	}

	isPatientActor := caller.ActorKind == entities.ActorPatient
	allowAutoAssignment := isPatientActor

	visibleBefore := appt.IsRevealed()
	targetPractitionerID := appt.PractitionerID
	autoResolved := false

	if req.NewPractitionerID != nil {
		switch *req.NewPractitionerID {
		case dto.AutoAssignSentinel:
			if allowAutoAssignment {
				newStart := event.Start
				if req.NewStartTime != nil {
					newStart = *req.NewStartTime
				}
				newEnd := newStart.Add(time.Duration(at.DurationMinutes) * time.Minute)
				assigned, err := uc.autoAssign(ctx, clinic.ID, at, newStart, newEnd, &appt.PractitionerID)
				if err != nil {
					return nil, err
				}
				targetPractitionerID = assigned
				autoResolved = true
			}
		case dto.KeepSentinel:
			// keep current practitioner; nothing to resolve.
		default:
			id, err := uuid.Parse(*req.NewPractitionerID)
			if err != nil {
				return nil, domainerr.New(domainerr.KindValidationError, "invalid practitioner id")
			}
			targetPractitionerID = id
		}
	}

	newStart := event.Start
	if req.NewStartTime != nil {
		newStart = *req.NewStartTime
	}
	newEnd := newStart.Add(event.End.Sub(event.Start))

	if isPatientActor {
		if err := uc.policy.EvaluateEdit(services.EvaluateEditInput{
			Settings:        clinic.Settings.BookingRestrictionSettings,
			Now:             time.Now(),
			NewStartTime:    newStart,
			AppointmentType: at,
		}); err != nil {
			return nil, err
		}
	}

	excludeID := event.ID
	if err := uc.conflictEngine.CheckConflict(ctx, services.ConflictCheckRequest{
		PractitionerID:         targetPractitionerID,
		Start:                  newStart,
		End:                    newEnd,
		AppointmentType:        at,
		ExcludeCalendarEventID: &excludeID,
		IsPatientInitiated:     isPatientActor,
	}); err != nil {
		return nil, err
	}

	// Row-locked re-check, mirroring Create.
	if _, err := uc.calendarEvents.GetByPractitionerAndRange(ctx, targetPractitionerID, newStart, newEnd, true); err != nil {
		return nil, err
	}
	if err := uc.conflictEngine.CheckConflict(ctx, services.ConflictCheckRequest{
		PractitionerID:         targetPractitionerID,
		Start:                  newStart,
		End:                    newEnd,
		AppointmentType:        at,
		ExcludeCalendarEventID: &excludeID,
		IsPatientInitiated:     isPatientActor,
	}); err != nil {
		return nil, err
	}

	practitionerChanged := targetPractitionerID != appt.PractitionerID
	timeChanged := !newStart.Equal(event.Start)

	event.PractitionerID = targetPractitionerID
	event.Start = newStart
	event.End = newEnd
	event.UpdatedAt = time.Now()
	if err := uc.calendarEvents.Update(ctx, event); err != nil {
		return nil, err
	}

	appt.PractitionerID = targetPractitionerID
	appt.IsAutoAssigned = autoResolved
	if req.NewNotes != nil {
		appt.Notes = req.NewNotes
	}
	if caller.ActorKind == entities.ActorClinicStaff && !visibleBefore && !appt.IsAutoAssigned {
		appt.ReassignedByUserID = caller.UserID
	}
	appt.UpdatedAt = time.Now()
	if err := uc.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}

	visibleAfter := appt.IsRevealed()
	intents := uc.notifications.DecideForEdit(caller.ActorKind, practitionerChanged, timeChanged, visibleBefore, visibleAfter, appt.ID)
	uc.sink.Enqueue(ctx, intents)

	return dto.ToAppointmentResponse(appt, event), nil
}

// EditPreview reports whether a proposed edit would conflict and which
// notifications it would trigger, without persisting any change — the
// staff-facing "dry run" spec §6 exposes ahead of a real Edit call.
func (uc *AppointmentLifecycleUseCase) EditPreview(ctx context.Context, caller entities.CallerContext, appointmentID uuid.UUID, req *dto.EditAppointmentRequest) (*dto.EditPreviewResponse, error) {
	appt, err := uc.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	event, err := uc.calendarEvents.GetByID(ctx, appt.CalendarEventID)
	if err != nil {
		return nil, err
	}
	at, err := uc.appointmentTypes.GetByID(ctx, appt.AppointmentTypeID)
	if err != nil {
		return nil, err
	}

	targetPractitionerID := appt.PractitionerID
	if req.NewPractitionerID != nil {
		switch *req.NewPractitionerID {
		case dto.AutoAssignSentinel, dto.KeepSentinel:
			// preview keeps the current assignee; the real Edit call
			// resolves the tie-break at commit time.
		default:
			if id, err := uuid.Parse(*req.NewPractitionerID); err == nil {
				targetPractitionerID = id
			}
		}
	}
	newStart := event.Start
	if req.NewStartTime != nil {
		newStart = *req.NewStartTime
	}
	newEnd := newStart.Add(event.End.Sub(event.Start))

	resp := &dto.EditPreviewResponse{}
	excludeID := event.ID
	err = uc.conflictEngine.CheckConflict(ctx, services.ConflictCheckRequest{
		PractitionerID:         targetPractitionerID,
		Start:                  newStart,
		End:                    newEnd,
		AppointmentType:        at,
		ExcludeCalendarEventID: &excludeID,
		IsPatientInitiated:     caller.ActorKind == entities.ActorPatient,
	})
	if err != nil {
		de, ok := domainerr.As(err)
		if !ok {
			return nil, err
		}
		kind := string(de.Kind)
		resp.Conflict = &kind
	}

	practitionerChanged := targetPractitionerID != appt.PractitionerID
	timeChanged := !newStart.Equal(event.Start)
	visible := appt.IsRevealed()
	intents := uc.notifications.DecideForEdit(caller.ActorKind, practitionerChanged, timeChanged, visible, visible, appt.ID)
	for _, i := range intents {
		resp.NotificationTemplates = append(resp.NotificationTemplates, string(i.Template))
	}
	return resp, nil
}

// Cancel implements spec §4.3 Cancel.
func (uc *AppointmentLifecycleUseCase) Cancel(ctx context.Context, caller entities.CallerContext, appointmentID uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error) {
	appt, err := uc.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsCanceled() {
		return dto.ToAppointmentResponse(appt, nil), nil
	}
	if err := requireOwnsOrAdmin(caller, appt); err != nil {
		return nil, err
	}

	isPatientActor := caller.ActorKind == entities.ActorPatient
	if isPatientActor {
		clinic, err := uc.clinics.GetByID(ctx, caller.ClinicID)
		if err != nil {
			return nil, err
		}
		event, err := uc.calendarEvents.GetByID(ctx, appt.CalendarEventID)
		if err != nil {
			return nil, err
		}
		if err := uc.policy.EvaluateCancel(clinic.Settings.BookingRestrictionSettings, time.Now(), event.Start); err != nil {
			return nil, err
		}
	}

	visibleBefore := appt.IsRevealed()
	now := time.Now()
	appt.CancelledAt = &now
	appt.CancellationReason = req.Reason
	if isPatientActor {
		appt.Status = entities.AppointmentStatusCanceledByPatient
	} else {
		appt.Status = entities.AppointmentStatusCanceledByClinic
	}
	appt.UpdatedAt = now
	if err := uc.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}

	intents := uc.notifications.DecideForCancel(caller.ActorKind, visibleBefore, appt.ID)
	uc.sink.Enqueue(ctx, intents)

	return dto.ToAppointmentResponse(appt, nil), nil
}

// Reassign implements spec §4.3 Reassign: an admin-only convenience that
// reuses Edit but allows confirming an auto-assignment (forcing
// is_auto_assigned to false) with no time or practitioner change.
func (uc *AppointmentLifecycleUseCase) Reassign(ctx context.Context, caller entities.CallerContext, appointmentID uuid.UUID, req *dto.EditAppointmentRequest) (*dto.AppointmentResponse, error) {
	if req.NewPractitionerID == nil {
		keep := dto.KeepSentinel
		req.NewPractitionerID = &keep
	}
	return uc.Edit(ctx, caller, appointmentID, req)
}
