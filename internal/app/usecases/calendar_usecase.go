package usecases

import (
	"context"
	"time"

	"clinic-scheduler-backend/internal/app/dto"
	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
)

// CalendarUseCase assembles calendar views by bulk-loading every related
// table for a range in a fixed small number of queries, instead of one
// query per event, per spec §4.4's "bulk-load to avoid N+1" requirement.
// Grounded on the teacher's appointment_usecase.go list-and-join shape,
// generalized across CalendarEvent/Appointment/Patient/AppointmentType.
type CalendarUseCase struct {
	calendarEvents   repositories.CalendarEventRepository
	appointments     repositories.AppointmentRepository
	appointmentTypes repositories.AppointmentTypeRepository
	patients         repositories.PatientRepository
	allocations      repositories.AppointmentResourceAllocationRepository
}

func NewCalendarUseCase(
	calendarEvents repositories.CalendarEventRepository,
	appointments repositories.AppointmentRepository,
	appointmentTypes repositories.AppointmentTypeRepository,
	patients repositories.PatientRepository,
	allocations repositories.AppointmentResourceAllocationRepository,
) *CalendarUseCase {
	return &CalendarUseCase{
		calendarEvents:   calendarEvents,
		appointments:     appointments,
		appointmentTypes: appointmentTypes,
		patients:         patients,
		allocations:      allocations,
	}
}

// ClinicRange assembles every calendar event for the clinic over
// [from, to). When caller is a practitioner (not admin), auto-assigned
// pending-reveal appointments are filtered out — they are not yet visible
// to the assigned practitioner (spec §4.5 visibility rule). Admins see
// everything, including pending-reveal rows, with PendingReveal set so the
// UI can flag them.
func (uc *CalendarUseCase) ClinicRange(ctx context.Context, caller entities.CallerContext, clinicID uuid.UUID, from, to time.Time) ([]*dto.CalendarEventResponse, error) {
	events, err := uc.calendarEvents.GetByClinicAndRange(ctx, clinicID, from, to)
	if err != nil {
		return nil, err
	}
	isAdmin := caller.ActorKind == entities.ActorClinicStaff && caller.HasRole(entities.RoleAdmin)
	return uc.assemble(ctx, clinicID, events, isAdmin)
}

// PractitionerRange assembles one practitioner's calendar over [from, to).
// Always includes pending-reveal rows as visible to the practitioner
// themself would not be correct per spec — callers that need the
// practitioner's own unfiltered view should use the admin path instead;
// this method exists for the patient-facing and admin per-practitioner
// calendar reads, which always filter pending-reveal rows out.
func (uc *CalendarUseCase) PractitionerRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]*dto.CalendarEventResponse, error) {
	events, err := uc.calendarEvents.GetByPractitionerAndRange(ctx, practitionerID, from, to, false)
	if err != nil {
		return nil, err
	}
	return uc.assembleForPractitionerView(ctx, events)
}

// PendingReview returns every still-auto-assigned confirmed appointment in
// the clinic over [from, to), for the admin pending-review view (spec
// §4.4's explicit admin surface for rows practitioner views hide).
func (uc *CalendarUseCase) PendingReview(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*dto.CalendarEventResponse, error) {
	events, err := uc.calendarEvents.GetByClinicAndRange(ctx, clinicID, from, to)
	if err != nil {
		return nil, err
	}
	responses, err := uc.assemble(ctx, clinicID, events, true)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CalendarEventResponse, 0, len(responses))
	for _, r := range responses {
		if r.Kind == string(entities.CalendarEventKindAppointment) && r.IsAutoAssigned &&
			r.Status == string(entities.AppointmentStatusConfirmed) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (uc *CalendarUseCase) assembleForPractitionerView(ctx context.Context, events []*entities.CalendarEvent) ([]*dto.CalendarEventResponse, error) {
	var clinicID uuid.UUID
	if len(events) > 0 {
		clinicID = events[0].ClinicID
	}
	return uc.assemble(ctx, clinicID, events, false)
}

// assemble joins CalendarEvents against appointments, patients, appointment
// types, and resource allocations in four bulk queries total, regardless of
// how many events are in range.
func (uc *CalendarUseCase) assemble(ctx context.Context, clinicID uuid.UUID, events []*entities.CalendarEvent, includePendingReveal bool) ([]*dto.CalendarEventResponse, error) {
	appointmentEventIDs := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		if e.Kind == entities.CalendarEventKindAppointment {
			appointmentEventIDs = append(appointmentEventIDs, e.ID)
		}
	}

	appointments, err := uc.appointments.GetByCalendarEventIDs(ctx, appointmentEventIDs)
	if err != nil {
		return nil, err
	}
	appointmentByEvent := make(map[uuid.UUID]*entities.Appointment, len(appointments))
	patientIDs := make([]uuid.UUID, 0, len(appointments))
	for _, a := range appointments {
		appointmentByEvent[a.CalendarEventID] = a
		patientIDs = append(patientIDs, a.PatientID)
	}

	patients, err := uc.patients.GetByIDs(ctx, patientIDs)
	if err != nil {
		return nil, err
	}
	patientByID := make(map[uuid.UUID]*entities.Patient, len(patients))
	for _, p := range patients {
		patientByID[p.ID] = p
	}

	appointmentTypes, err := uc.appointmentTypes.GetByClinic(ctx, clinicID, true)
	if err != nil {
		return nil, err
	}
	typeByID := make(map[uuid.UUID]*entities.AppointmentType, len(appointmentTypes))
	for _, t := range appointmentTypes {
		typeByID[t.ID] = t
	}

	allocations, err := uc.allocations.GetByCalendarEvents(ctx, appointmentEventIDs)
	if err != nil {
		return nil, err
	}
	resourcesByEvent := make(map[uuid.UUID][]uuid.UUID, len(allocations))
	for _, alloc := range allocations {
		resourcesByEvent[alloc.CalendarEventID] = append(resourcesByEvent[alloc.CalendarEventID], alloc.ResourceID)
	}

	out := make([]*dto.CalendarEventResponse, 0, len(events))
	for _, e := range events {
		resp := &dto.CalendarEventResponse{
			ID:             e.ID,
			PractitionerID: e.PractitionerID,
			Kind:           string(e.Kind),
			Date:           e.Date,
			Start:          e.Start,
			End:            e.End,
			AllDay:         e.AllDay,
		}
		if e.DisplayName != nil {
			resp.DisplayName = *e.DisplayName
		}

		switch e.Kind {
		case entities.CalendarEventKindAppointment:
			appt, ok := appointmentByEvent[e.ID]
			if !ok {
				continue
			}
			if appt.IsAutoAssigned && !includePendingReveal {
				continue
			}
			resp.AppointmentID = &appt.ID
			resp.Status = string(appt.Status)
			resp.IsAutoAssigned = appt.IsAutoAssigned
			resp.PendingReveal = appt.IsAutoAssigned
			resp.ResourceIDs = resourcesByEvent[e.ID]
			if p, ok := patientByID[appt.PatientID]; ok {
				resp.PatientName = p.Name
			}
			if t, ok := typeByID[appt.AppointmentTypeID]; ok {
				resp.AppointmentTypeName = t.Name
			}
		case entities.CalendarEventKindAvailabilityException:
			resp.AvailabilityExceptionID = e.AvailabilityExceptionID
		}
		out = append(out, resp)
	}
	return out, nil
}
