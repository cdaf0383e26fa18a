package handlers

import (
	"net/http"

	"clinic-scheduler-backend/internal/app/dto"
	"clinic-scheduler-backend/internal/app/usecases"
	"clinic-scheduler-backend/internal/domain/domainerr"
	"clinic-scheduler-backend/internal/http/httpresp"
	"clinic-scheduler-backend/internal/http/middleware"
	"clinic-scheduler-backend/internal/infra/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ServiceCatalogHandler exposes the service-item ("appointment type")
// bundle endpoints. Grounded on the teacher's organization_handler.go
// list/create/update/delete shape.
type ServiceCatalogHandler struct {
	catalogUseCase *usecases.ServiceCatalogUseCase
	logger         *logger.Logger
}

func NewServiceCatalogHandler(catalogUseCase *usecases.ServiceCatalogUseCase, logger *logger.Logger) *ServiceCatalogHandler {
	return &ServiceCatalogHandler{catalogUseCase: catalogUseCase, logger: logger}
}

// GetBundle handles GET /api/clinic/service-items/{id}/bundle
func (h *ServiceCatalogHandler) GetBundle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid appointment type id")
		return
	}
	bundle, err := h.catalogUseCase.GetBundle(c.Request.Context(), id)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, bundle)
}

// ListBundles returns the clinic's active service bundles. routes.Setup
// does not mount it on any route.
func (h *ServiceCatalogHandler) ListBundles(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	bundles, err := h.catalogUseCase.ListBundles(c.Request.Context(), caller.ClinicID, false)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, bundles)
}

// CreateBundle handles POST /api/clinic/service-items/bundle
func (h *ServiceCatalogHandler) CreateBundle(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req dto.ServiceBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	bundle, err := h.catalogUseCase.CreateBundle(c.Request.Context(), caller.ClinicID, &req)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusCreated, bundle)
}

// UpdateBundle handles PUT /api/clinic/service-items/{id}/bundle
func (h *ServiceCatalogHandler) UpdateBundle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid appointment type id")
		return
	}
	var req dto.ServiceBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	bundle, err := h.catalogUseCase.UpdateBundle(c.Request.Context(), id, &req)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, bundle)
}

// ValidateDeletion handles POST /api/clinic/appointment-types/validate-deletion
func (h *ServiceCatalogHandler) ValidateDeletion(c *gin.Context) {
	var req dto.ValidateDeletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpresp.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.catalogUseCase.ValidateDeletion(c.Request.Context(), req.AppointmentTypeIDs)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, result)
}

// DeleteAppointmentType handles DELETE /api/clinic/appointment-types/{id}
func (h *ServiceCatalogHandler) DeleteAppointmentType(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "invalid appointment type id")
		return
	}
	check, err := h.catalogUseCase.ValidateDeletion(c.Request.Context(), []uuid.UUID{id})
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	if len(check.Blocked) > 0 {
		httpresp.ErrorWithExtra(c,
			domainerr.New(domainerr.KindConflict, "deletion blocked by assigned practitioners or future appointments"),
			gin.H{"appointment_types": check.Blocked},
		)
		return
	}
	if err := h.catalogUseCase.DeleteBundle(c.Request.Context(), id); err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.NoContent(c)
}
