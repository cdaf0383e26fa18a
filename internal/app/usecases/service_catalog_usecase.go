package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinic-scheduler-backend/internal/app/dto"
	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
)

// ServiceCatalogUseCase owns the service-item ("appointment type") bundle:
// the service row plus its four related sets, written together in one
// transaction per spec §4.6. Grounded on spec §4.6's bundle description;
// the teacher has no direct analogue, so the transaction shape follows its
// patient_repository.go CreatePatientWithOrganization pattern generalized
// through UnitOfWork.
type ServiceCatalogUseCase struct {
	uow                  repositories.UnitOfWork
	appointmentTypes     repositories.AppointmentTypeRepository
	practitionerTypes    repositories.PractitionerAppointmentTypeRepository
	billingScenarios     repositories.BillingScenarioRepository
	resourceRequirements repositories.AppointmentResourceRequirementRepository
	followUpMessages     repositories.FollowUpMessageRepository
	appointments         repositories.AppointmentRepository
}

func NewServiceCatalogUseCase(
	uow repositories.UnitOfWork,
	appointmentTypes repositories.AppointmentTypeRepository,
	practitionerTypes repositories.PractitionerAppointmentTypeRepository,
	billingScenarios repositories.BillingScenarioRepository,
	resourceRequirements repositories.AppointmentResourceRequirementRepository,
	followUpMessages repositories.FollowUpMessageRepository,
	appointments repositories.AppointmentRepository,
) *ServiceCatalogUseCase {
	return &ServiceCatalogUseCase{
		uow:                  uow,
		appointmentTypes:     appointmentTypes,
		practitionerTypes:    practitionerTypes,
		billingScenarios:     billingScenarios,
		resourceRequirements: resourceRequirements,
		followUpMessages:     followUpMessages,
		appointments:         appointments,
	}
}

// GetBundle assembles the full read shape for one service.
func (uc *ServiceCatalogUseCase) GetBundle(ctx context.Context, appointmentTypeID uuid.UUID) (*dto.ServiceBundleResponse, error) {
	at, err := uc.appointmentTypes.GetByID(ctx, appointmentTypeID)
	if err != nil {
		return nil, err
	}
	assignments, err := uc.practitionerTypes.GetByAppointmentType(ctx, appointmentTypeID)
	if err != nil {
		return nil, err
	}
	scenarios, err := uc.billingScenarios.GetByClinic(ctx, at.ClinicID, false)
	if err != nil {
		return nil, err
	}
	reqs, err := uc.resourceRequirements.GetByAppointmentType(ctx, appointmentTypeID)
	if err != nil {
		return nil, err
	}
	messages, err := uc.followUpMessages.GetByClinic(ctx, at.ClinicID, false)
	if err != nil {
		return nil, err
	}
	return assembleBundle(at, assignments, scenarios, reqs, messages), nil
}

// ListBundles returns the clinic's full service catalog.
func (uc *ServiceCatalogUseCase) ListBundles(ctx context.Context, clinicID uuid.UUID, includeDeleted bool) ([]*dto.ServiceBundleResponse, error) {
	types, err := uc.appointmentTypes.GetByClinic(ctx, clinicID, includeDeleted)
	if err != nil {
		return nil, err
	}
	scenarios, err := uc.billingScenarios.GetByClinic(ctx, clinicID, false)
	if err != nil {
		return nil, err
	}
	messages, err := uc.followUpMessages.GetByClinic(ctx, clinicID, false)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ServiceBundleResponse, 0, len(types))
	for _, at := range types {
		assignments, err := uc.practitionerTypes.GetByAppointmentType(ctx, at.ID)
		if err != nil {
			return nil, err
		}
		reqs, err := uc.resourceRequirements.GetByAppointmentType(ctx, at.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, assembleBundle(at, assignments, scenarios, reqs, messages))
	}
	return out, nil
}

func assembleBundle(
	at *entities.AppointmentType,
	assignments []*entities.PractitionerAppointmentType,
	scenarios []*entities.BillingScenario,
	reqs []*entities.AppointmentResourceRequirement,
	messages []*entities.FollowUpMessage,
) *dto.ServiceBundleResponse {
	practitionerIDs := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		practitionerIDs = append(practitionerIDs, a.PractitionerID)
	}
	scenarioDTOs := make([]dto.BillingScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		scenarioDTOs = append(scenarioDTOs, dto.BillingScenarioDTO{
			ID: s.ID, Name: s.Name, PriceCents: s.Price,
			InsuranceCode: s.InsuranceCode, DisplayOrder: s.DisplayOrder,
		})
	}
	reqDTOs := make([]dto.ResourceRequirementDTO, 0, len(reqs))
	for _, r := range reqs {
		reqDTOs = append(reqDTOs, dto.ResourceRequirementDTO{ResourceTypeID: r.ResourceTypeID, Quantity: r.Quantity})
	}
	msgDTOs := make([]dto.FollowUpMessageDTO, 0, len(messages))
	for _, m := range messages {
		msgDTOs = append(msgDTOs, dto.FollowUpMessageDTO{
			ID: m.ID, Name: m.Name, Body: m.Body, DaysAfter: m.DaysAfter,
			Enabled: m.Enabled, DisplayOrder: m.DisplayOrder,
		})
	}
	return &dto.ServiceBundleResponse{
		ID: at.ID,
		ServiceBundleRequest: dto.ServiceBundleRequest{
			Name:                           at.Name,
			DurationMinutes:                at.DurationMinutes,
			Description:                    at.Description,
			AllowNewPatientBooking:         at.AllowNewPatientBooking,
			AllowExistingPatientBooking:    at.AllowExistingPatientBooking,
			AllowPatientPractitionerSelect: at.AllowPatientPractitionerSelect,
			AllowMultipleSlotSelection:     at.AllowMultipleSlotSelection,
			SchedulingBufferMinutes:        at.SchedulingBufferMinutes,
			ServiceTypeGroupID:             at.ServiceTypeGroupID,
			DisplayOrder:                   at.DisplayOrder,
			PatientConfirmTemplate:         dto.MessageTemplateDTO(at.PatientConfirmTemplate),
			ClinicConfirmTemplate:          dto.MessageTemplateDTO(at.ClinicConfirmTemplate),
			ReminderTemplate:               dto.MessageTemplateDTO(at.ReminderTemplate),
			RecurrentClinicConfirmTemplate: dto.MessageTemplateDTO(at.RecurrentClinicConfirmTemplate),
			NotesRequired:                  at.NotesRequired,
			NotesInstructions:              at.NotesInstructions,
			PractitionerIDs:                practitionerIDs,
			BillingScenarios:               scenarioDTOs,
			ResourceRequirements:           reqDTOs,
			FollowUpMessages:               msgDTOs,
		},
	}
}

// CreateBundle inserts a new service and its related sets.
func (uc *ServiceCatalogUseCase) CreateBundle(ctx context.Context, clinicID uuid.UUID, req *dto.ServiceBundleRequest) (*dto.ServiceBundleResponse, error) {
	var result *dto.ServiceBundleResponse
	err := uc.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.evictNameCollision(ctx, clinicID, req.Name, req.DurationMinutes, nil); err != nil {
			return err
		}
		at := &entities.AppointmentType{
			ID:                             uuid.New(),
			ClinicID:                       clinicID,
			Name:                           req.Name,
			DurationMinutes:                req.DurationMinutes,
			Description:                    req.Description,
			AllowNewPatientBooking:         req.AllowNewPatientBooking,
			AllowExistingPatientBooking:    req.AllowExistingPatientBooking,
			AllowPatientPractitionerSelect: req.AllowPatientPractitionerSelect,
			AllowMultipleSlotSelection:     req.AllowMultipleSlotSelection,
			SchedulingBufferMinutes:        req.SchedulingBufferMinutes,
			ServiceTypeGroupID:             req.ServiceTypeGroupID,
			DisplayOrder:                   req.DisplayOrder,
			PatientConfirmTemplate:         entities.MessageTemplate(req.PatientConfirmTemplate),
			ClinicConfirmTemplate:          entities.MessageTemplate(req.ClinicConfirmTemplate),
			ReminderTemplate:               entities.MessageTemplate(req.ReminderTemplate),
			RecurrentClinicConfirmTemplate: entities.MessageTemplate(req.RecurrentClinicConfirmTemplate),
			NotesRequired:                  req.NotesRequired,
			NotesInstructions:              req.NotesInstructions,
		}
		at.ApplyTemplateDefaults()
		if err := at.Validate(); err != nil {
			return domainerr.Wrap(domainerr.KindValidationError, "invalid service item", err)
		}
		if err := uc.appointmentTypes.Create(ctx, at); err != nil {
			return err
		}
		if err := uc.syncRelated(ctx, clinicID, at.ID, req); err != nil {
			return err
		}
		result = assembleBundle(at, toAssignments(at.ID, req.PractitionerIDs), toScenarios(clinicID, req.BillingScenarios),
			toRequirements(at.ID, req.ResourceRequirements), toFollowUps(clinicID, req.FollowUpMessages))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateBundle updates an existing service and re-syncs its related sets.
// The appointment-type row is locked FOR UPDATE for the duration of the
// transaction (spec §5) so a concurrent rename cannot race this one.
func (uc *ServiceCatalogUseCase) UpdateBundle(ctx context.Context, appointmentTypeID uuid.UUID, req *dto.ServiceBundleRequest) (*dto.ServiceBundleResponse, error) {
	var result *dto.ServiceBundleResponse
	err := uc.uow.WithinTx(ctx, func(ctx context.Context) error {
		at, err := uc.appointmentTypes.GetByID(ctx, appointmentTypeID)
		if err != nil {
			return err
		}
		if !strings.EqualFold(at.Name, req.Name) {
			if err := uc.evictNameCollision(ctx, at.ClinicID, req.Name, req.DurationMinutes, &appointmentTypeID); err != nil {
				return err
			}
		}
		at.Name = req.Name
		at.DurationMinutes = req.DurationMinutes
		at.Description = req.Description
		at.AllowNewPatientBooking = req.AllowNewPatientBooking
		at.AllowExistingPatientBooking = req.AllowExistingPatientBooking
		at.AllowPatientPractitionerSelect = req.AllowPatientPractitionerSelect
		at.AllowMultipleSlotSelection = req.AllowMultipleSlotSelection
		at.SchedulingBufferMinutes = req.SchedulingBufferMinutes
		at.ServiceTypeGroupID = req.ServiceTypeGroupID
		at.DisplayOrder = req.DisplayOrder
		at.PatientConfirmTemplate = entities.MessageTemplate(req.PatientConfirmTemplate)
		at.ClinicConfirmTemplate = entities.MessageTemplate(req.ClinicConfirmTemplate)
		at.ReminderTemplate = entities.MessageTemplate(req.ReminderTemplate)
		at.RecurrentClinicConfirmTemplate = entities.MessageTemplate(req.RecurrentClinicConfirmTemplate)
		at.NotesRequired = req.NotesRequired
		at.NotesInstructions = req.NotesInstructions
		at.ApplyTemplateDefaults()
		if err := at.Validate(); err != nil {
			return domainerr.Wrap(domainerr.KindValidationError, "invalid service item", err)
		}
		if err := uc.appointmentTypes.Update(ctx, at); err != nil {
			return err
		}
		if err := uc.syncRelated(ctx, at.ClinicID, at.ID, req); err != nil {
			return err
		}
		result = assembleBundle(at, toAssignments(at.ID, req.PractitionerIDs), toScenarios(at.ClinicID, req.BillingScenarios),
			toRequirements(at.ID, req.ResourceRequirements), toFollowUps(at.ClinicID, req.FollowUpMessages))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteBundle soft-deletes the service item. The caller is responsible
// for checking it is not referenced by any active appointment type
// dependency before calling this (spec's deletion-blocked response shape
// is assembled at the HTTP layer).
func (uc *ServiceCatalogUseCase) DeleteBundle(ctx context.Context, appointmentTypeID uuid.UUID) error {
	return uc.appointmentTypes.SoftDelete(ctx, appointmentTypeID)
}

// ValidateDeletion pre-checks a batch of appointment types for deletion
// blockers: practitioners still assigned, or future confirmed appointments
// of that type.
func (uc *ServiceCatalogUseCase) ValidateDeletion(ctx context.Context, ids []uuid.UUID) (*dto.ValidateDeletionResponse, error) {
	resp := &dto.ValidateDeletionResponse{}
	for _, id := range ids {
		assignments, err := uc.practitionerTypes.GetByAppointmentType(ctx, id)
		if err != nil {
			return nil, err
		}
		future, err := uc.appointments.CountFutureByAppointmentType(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(assignments) == 0 && future == 0 {
			continue
		}
		practitionerIDs := make([]uuid.UUID, 0, len(assignments))
		for _, a := range assignments {
			practitionerIDs = append(practitionerIDs, a.PractitionerID)
		}
		resp.Blocked = append(resp.Blocked, dto.DeletionBlocker{
			AppointmentTypeID:  id,
			PractitionerIDs:    practitionerIDs,
			FutureAppointments: future,
		})
	}
	return resp, nil
}

// syncRelated applies the hard-sync (practitioners, resource requirements)
// and diff-sync-by-id (billing scenarios, follow-up messages) rules.
func (uc *ServiceCatalogUseCase) syncRelated(ctx context.Context, clinicID, appointmentTypeID uuid.UUID, req *dto.ServiceBundleRequest) error {
	if err := uc.practitionerTypes.ReplaceAll(ctx, appointmentTypeID, req.PractitionerIDs); err != nil {
		return err
	}
	if err := uc.resourceRequirements.ReplaceAll(ctx, appointmentTypeID, toRequirementEntities(appointmentTypeID, req.ResourceRequirements)); err != nil {
		return err
	}
	if err := uc.billingScenarios.ReplaceAll(ctx, clinicID, toScenarioEntities(clinicID, req.BillingScenarios)); err != nil {
		return err
	}
	if err := uc.followUpMessages.ReplaceAll(ctx, clinicID, toFollowUpEntities(clinicID, req.FollowUpMessages)); err != nil {
		return err
	}
	return nil
}

// evictNameCollision enforces spec §4.6's name-collision rule: an active
// row sharing the candidate name is rejected outright; a soft-deleted row
// sharing the (name, duration) tuple is evicted by appending a timestamp
// suffix to its name so the candidate name is free to reuse.
func (uc *ServiceCatalogUseCase) evictNameCollision(ctx context.Context, clinicID uuid.UUID, name string, durationMinutes int, excludeID *uuid.UUID) error {
	active, err := uc.appointmentTypes.GetActiveByName(ctx, clinicID, name)
	if err != nil {
		return err
	}
	if active != nil && (excludeID == nil || active.ID != *excludeID) {
		return domainerr.New(domainerr.KindNameConflict, "a service item with this name already exists")
	}

	// GetActiveByName only sees non-deleted rows, so a soft-deleted
	// collision needs a full scan of the clinic's catalog, including
	// deleted rows, matched on the (name, duration) tuple.
	all, err := uc.appointmentTypes.GetByClinic(ctx, clinicID, true)
	if err != nil {
		return err
	}
	for _, at := range all {
		if !at.IsDeleted() || !strings.EqualFold(at.Name, name) || at.DurationMinutes != durationMinutes {
			continue
		}
		if excludeID != nil && at.ID == *excludeID {
			continue
		}
		at.Name = fmt.Sprintf("%s (evicted %d)", at.Name, time.Now().UnixNano())
		if err := uc.appointmentTypes.Update(ctx, at); err != nil {
			return err
		}
	}
	return nil
}

func toAssignments(appointmentTypeID uuid.UUID, practitionerIDs []uuid.UUID) []*entities.PractitionerAppointmentType {
	out := make([]*entities.PractitionerAppointmentType, 0, len(practitionerIDs))
	for _, pid := range practitionerIDs {
		out = append(out, &entities.PractitionerAppointmentType{ID: uuid.New(), PractitionerID: pid, AppointmentTypeID: appointmentTypeID})
	}
	return out
}

func toScenarios(clinicID uuid.UUID, in []dto.BillingScenarioDTO) []*entities.BillingScenario {
	out := make([]*entities.BillingScenario, 0, len(in))
	for _, s := range in {
		out = append(out, &entities.BillingScenario{
			ID: s.ID, ClinicID: clinicID, Name: s.Name, Price: s.PriceCents,
			InsuranceCode: s.InsuranceCode, DisplayOrder: s.DisplayOrder,
		})
	}
	return out
}

func toScenarioEntities(clinicID uuid.UUID, in []dto.BillingScenarioDTO) []entities.BillingScenario {
	out := make([]entities.BillingScenario, 0, len(in))
	for _, s := range toScenarios(clinicID, in) {
		out = append(out, *s)
	}
	return out
}

func toRequirements(appointmentTypeID uuid.UUID, in []dto.ResourceRequirementDTO) []*entities.AppointmentResourceRequirement {
	out := make([]*entities.AppointmentResourceRequirement, 0, len(in))
	for _, r := range in {
		out = append(out, &entities.AppointmentResourceRequirement{
			ID: uuid.New(), AppointmentTypeID: appointmentTypeID, ResourceTypeID: r.ResourceTypeID, Quantity: r.Quantity,
		})
	}
	return out
}

func toRequirementEntities(appointmentTypeID uuid.UUID, in []dto.ResourceRequirementDTO) []entities.AppointmentResourceRequirement {
	out := make([]entities.AppointmentResourceRequirement, 0, len(in))
	for _, r := range toRequirements(appointmentTypeID, in) {
		out = append(out, *r)
	}
	return out
}

func toFollowUps(clinicID uuid.UUID, in []dto.FollowUpMessageDTO) []*entities.FollowUpMessage {
	out := make([]*entities.FollowUpMessage, 0, len(in))
	for _, m := range in {
		out = append(out, &entities.FollowUpMessage{
			ID: m.ID, ClinicID: clinicID, Name: m.Name, Body: m.Body,
			DaysAfter: m.DaysAfter, Enabled: m.Enabled, DisplayOrder: m.DisplayOrder,
		})
	}
	return out
}

func toFollowUpEntities(clinicID uuid.UUID, in []dto.FollowUpMessageDTO) []entities.FollowUpMessage {
	out := make([]entities.FollowUpMessage, 0, len(in))
	for _, m := range toFollowUps(clinicID, in) {
		out = append(out, *m)
	}
	return out
}
