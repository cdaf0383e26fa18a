package handlers

import (
	"net/http"
	"strconv"
	"time"

	"clinic-scheduler-backend/internal/app/dto"
	"clinic-scheduler-backend/internal/app/usecases"
	"clinic-scheduler-backend/internal/domain/ports/repositories"
	"clinic-scheduler-backend/internal/http/httpresp"
	"clinic-scheduler-backend/internal/infra/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AvailabilityHandler exposes the practitioner availability/calendar/slots/
// conflicts/exceptions surface. Grounded on the teacher's
// doctor_availability_handler.go method set, generalized onto
// AvailabilityUseCase.
type AvailabilityHandler struct {
	availability     *usecases.AvailabilityUseCase
	appointmentTypes repositories.AppointmentTypeRepository
	logger           *logger.Logger
}

func NewAvailabilityHandler(availability *usecases.AvailabilityUseCase, appointmentTypes repositories.AppointmentTypeRepository, logger *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, appointmentTypes: appointmentTypes, logger: logger}
}

// GetDefaultTemplate handles GET /api/clinic/practitioners/{id}/availability/default
func (h *AvailabilityHandler) GetDefaultTemplate(c *gin.Context) {
	practitionerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid practitioner id")
		return
	}
	slots, err := h.availability.GetDefaultTemplate(c.Request.Context(), practitionerID)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, slots)
}

// ReplaceDefaultTemplate handles PUT /api/clinic/practitioners/{id}/availability/default
func (h *AvailabilityHandler) ReplaceDefaultTemplate(c *gin.Context) {
	practitionerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid practitioner id")
		return
	}
	clinicID, err := uuid.Parse(c.Query("clinic_id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "missing or invalid clinic_id")
		return
	}
	var req []dto.WeeklyTemplateSlotDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	slots, err := h.availability.ReplaceDefaultTemplate(c.Request.Context(), clinicID, practitionerID, req)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, slots)
}

// Calendar handles GET /api/clinic/practitioners/{id}/availability/calendar,
// dispatching on whether "month" or "date" was given per spec §6.
func (h *AvailabilityHandler) Calendar(c *gin.Context) {
	practitionerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid practitioner id")
		return
	}
	if monthStr := c.Query("month"); monthStr != "" {
		month, err := time.Parse("2006-01", monthStr)
		if err != nil {
			httpresp.Detail(c, http.StatusBadRequest, "invalid month")
			return
		}
		counts, err := h.availability.MonthlyCounts(c.Request.Context(), practitionerID, month)
		if err != nil {
			httpresp.Error(c, err)
			return
		}
		httpresp.JSON(c, http.StatusOK, counts)
		return
	}
	date, err := parseDateQuery(c, "date")
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.availability.DayView(c.Request.Context(), practitionerID, date)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, view)
}

// CalendarBatchRequest is the inbound payload for the multi-practitioner
// range view.
type CalendarBatchRequest struct {
	PractitionerIDs []uuid.UUID `json:"practitioner_ids" validate:"required"`
	From            time.Time   `json:"from" validate:"required"`
	To              time.Time   `json:"to" validate:"required"`
}

// CalendarBatch handles POST /api/clinic/practitioners/calendar/batch
func (h *AvailabilityHandler) CalendarBatch(c *gin.Context) {
	var req CalendarBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.availability.CalendarBatch(c.Request.Context(), req.PractitionerIDs, req.From, req.To)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, result)
}

// Slots handles GET /api/clinic/practitioners/{id}/availability/slots
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	practitionerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid practitioner id")
		return
	}
	date, err := parseDateQuery(c, "date")
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	appointmentTypeID, err := uuid.Parse(c.Query("appointment_type_id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "missing or invalid appointment_type_id")
		return
	}
	step, err := strconv.Atoi(c.Query("step_minutes"))
	if err != nil || step <= 0 {
		httpresp.Detail(c, http.StatusBadRequest, "missing or invalid step_minutes")
		return
	}
	at, err := h.appointmentTypes.GetByID(c.Request.Context(), appointmentTypeID)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	slots, err := h.availability.FreeSlots(c.Request.Context(), practitionerID, at, step, date)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, slots)
}

// SlotsBatchRequest is the inbound payload for the multi-date free-slots
// query.
type SlotsBatchRequest struct {
	AppointmentTypeID uuid.UUID   `json:"appointment_type_id" validate:"required"`
	StepMinutes       int         `json:"step_minutes" validate:"required"`
	Dates             []time.Time `json:"dates" validate:"required"`
}

// SlotsBatch handles POST /api/clinic/practitioners/{id}/availability/slots/batch
func (h *AvailabilityHandler) SlotsBatch(c *gin.Context) {
	practitionerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid practitioner id")
		return
	}
	var req SlotsBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	at, err := h.appointmentTypes.GetByID(c.Request.Context(), req.AppointmentTypeID)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	slots, err := h.availability.BatchFreeSlots(c.Request.Context(), practitionerID, at, req.StepMinutes, req.Dates)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, slots)
}

// ConflictsBatchRequest is the inbound payload for the batch conflict
// check.
type ConflictsBatchRequest struct {
	Items              []dto.ConflictCheckItem `json:"items" validate:"required"`
	IsPatientInitiated bool                     `json:"is_patient_initiated"`
}

// ConflictsBatch handles POST /api/clinic/practitioners/availability/conflicts/batch
func (h *AvailabilityHandler) ConflictsBatch(c *gin.Context) {
	var req ConflictsBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	results, err := h.availability.ConflictsBatch(c.Request.Context(), req.Items, req.IsPatientInitiated)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, results)
}

// CreateException handles POST /api/clinic/practitioners/{id}/availability/exceptions
func (h *AvailabilityHandler) CreateException(c *gin.Context) {
	practitionerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid practitioner id")
		return
	}
	clinicID, err := uuid.Parse(c.Query("clinic_id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "missing or invalid clinic_id")
		return
	}
	var req dto.CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.availability.CreateException(c.Request.Context(), clinicID, practitionerID, &req)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusCreated, resp)
}

// DeleteException handles DELETE /api/clinic/practitioners/{id}/availability/exceptions/{eid}
func (h *AvailabilityHandler) DeleteException(c *gin.Context) {
	exceptionID, err := uuid.Parse(c.Param("eid"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid exception id")
		return
	}
	if err := h.availability.DeleteException(c.Request.Context(), exceptionID); err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.NoContent(c)
}
