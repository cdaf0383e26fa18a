package handlers

import (
	"io"
	"net/http"

	"clinic-scheduler-backend/internal/app/dto"
	"clinic-scheduler-backend/internal/app/usecases"
	"clinic-scheduler-backend/internal/http/httpresp"
	"clinic-scheduler-backend/internal/http/middleware"
	"clinic-scheduler-backend/internal/infra/logger"

	"github.com/gin-gonic/gin"
)

// SettingsHandler exposes the clinic settings document, service catalog,
// and LIFF links as one read, per spec §6's "Full settings + service list
// + LIFF URLs" GET /settings row. Grounded on the teacher's
// clinic_handler.go request/response plumbing, generalized onto the
// deep-merge SettingsUseCase.
type SettingsHandler struct {
	settingsUseCase *usecases.SettingsUseCase
	catalogUseCase  *usecases.ServiceCatalogUseCase
	frontendBaseURL string
	logger          *logger.Logger
}

func NewSettingsHandler(settingsUseCase *usecases.SettingsUseCase, catalogUseCase *usecases.ServiceCatalogUseCase, frontendBaseURL string, logger *logger.Logger) *SettingsHandler {
	return &SettingsHandler{settingsUseCase: settingsUseCase, catalogUseCase: catalogUseCase, frontendBaseURL: frontendBaseURL, logger: logger}
}

// GetSettings handles GET /api/clinic/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	clinic, err := h.settingsUseCase.GetSettings(c.Request.Context(), caller.ClinicID)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	services, err := h.catalogUseCase.ListBundles(c.Request.Context(), caller.ClinicID, false)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	resp := &dto.SettingsResponse{
		ClinicID: clinic.ID.String(),
		Settings: clinic.Settings,
		Services: services,
	}
	if clinic.LiffAccessToken != nil {
		urls := dto.BuildLiffURLs(h.frontendBaseURL, *clinic.LiffAccessToken)
		resp.LiffURLs = &urls
	}
	httpresp.JSON(c, http.StatusOK, resp)
}

// UpdateSettings handles PUT /api/clinic/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httpresp.Detail(c, http.StatusBadRequest, "failed to read request body")
		return
	}
	clinic, err := h.settingsUseCase.UpdateSettings(c.Request.Context(), caller.ClinicID, body)
	if err != nil {
		httpresp.Error(c, err)
		return
	}
	httpresp.JSON(c, http.StatusOK, clinic)
}
