package handlers

import (
	"net/http"

	"clinic-scheduler-backend/internal/app/dto"
	"clinic-scheduler-backend/internal/app/usecases"
	"clinic-scheduler-backend/internal/http/httpresp"
	"clinic-scheduler-backend/internal/http/middleware"
	"clinic-scheduler-backend/internal/infra/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AppointmentHandler exposes the appointment lifecycle endpoints.
// Grounded on the teacher's appointment_handler.go method set, generalized
// onto AppointmentLifecycleUseCase's Create/Edit/Cancel flow.
type AppointmentHandler struct {
	lifecycle *usecases.AppointmentLifecycleUseCase
	calendar  *usecases.CalendarUseCase
	logger    *logger.Logger
}

func NewAppointmentHandler(lifecycle *usecases.AppointmentLifecycleUseCase, calendar *usecases.CalendarUseCase, logger *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{lifecycle: lifecycle, calendar: calendar, logger: logger}
}

// Create handles POST /api/clinic/appointments
func (h *AppointmentHandler) Create(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.lifecycle.Create(c.Request.Context(), caller, &req)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusCreated, resp)
}

// Edit handles PUT /api/clinic/appointments/{id}
func (h *AppointmentHandler) Edit(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid appointment id")
		return
	}
	var req dto.EditAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.lifecycle.Edit(c.Request.Context(), caller, id, &req)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, resp)
}

// EditPreview handles POST /api/clinic/appointments/{id}/edit-preview
func (h *AppointmentHandler) EditPreview(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid appointment id")
		return
	}
	var req dto.EditAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.lifecycle.EditPreview(c.Request.Context(), caller, id, &req)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, resp)
}

// Cancel handles DELETE /api/clinic/appointments/{id}
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid appointment id")
		return
	}
	var req dto.CancelAppointmentRequest
	_ = c.ShouldBindJSON(&req)
	resp, err := h.lifecycle.Cancel(c.Request.Context(), caller, id, &req)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, resp)
}

// PendingReview handles GET /api/clinic/pending-review-appointments
func (h *AppointmentHandler) PendingReview(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	from, to, err := parseRangeQuery(c)
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	events, err := h.calendar.PendingReview(c.Request.Context(), caller.ClinicID, from, to)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, events)
}
