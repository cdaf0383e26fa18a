package routes

import (
	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/http/handlers"
	"clinic-scheduler-backend/internal/http/middleware"
	"clinic-scheduler-backend/internal/infra/logger"

	"github.com/gin-gonic/gin"
)

// Handlers bundles every HTTP handler the router wires up, assembled by
// cmd/api/main.go.
type Handlers struct {
	Health       *handlers.HealthHandler
	Settings     *handlers.SettingsHandler
	Catalog      *handlers.ServiceCatalogHandler
	Appointment  *handlers.AppointmentHandler
	Availability *handlers.AvailabilityHandler
}

// Setup registers every route under /api/clinic per spec §6, each gated by
// the auth tier its endpoint row names. Grounded on the teacher's
// routes.go route-group structure, generalized from its Supabase
// middleware names to CallerAuth/RequireRole/RequireStaff/
// RequireClinicMember/RequireSelfOrAdmin.
func Setup(router *gin.Engine, h *Handlers, log *logger.Logger) {
	router.GET("/health", h.Health.Check)

	api := router.Group("/api/clinic")
	api.Use(middleware.CallerAuth(log))
	{
		api.GET("/settings", middleware.RequireClinicMember(), h.Settings.GetSettings)
		api.PUT("/settings", middleware.RequireRole(entities.RoleAdmin), h.Settings.UpdateSettings)

		api.GET("/service-items/:id/bundle", middleware.RequireClinicMember(), h.Catalog.GetBundle)
		api.POST("/service-items/bundle", middleware.RequireRole(entities.RoleAdmin), h.Catalog.CreateBundle)
		api.PUT("/service-items/:id/bundle", middleware.RequireRole(entities.RoleAdmin), h.Catalog.UpdateBundle)
		api.DELETE("/appointment-types/:id", middleware.RequireRole(entities.RoleAdmin), h.Catalog.DeleteAppointmentType)
		api.POST("/appointment-types/validate-deletion", middleware.RequireRole(entities.RoleAdmin), h.Catalog.ValidateDeletion)

		api.GET("/practitioners/:id/availability/default", middleware.RequireClinicMember(), h.Availability.GetDefaultTemplate)
		api.PUT("/practitioners/:id/availability/default", middleware.RequireSelfOrAdmin("id"), h.Availability.ReplaceDefaultTemplate)
		api.GET("/practitioners/:id/availability/calendar", middleware.RequireClinicMember(), h.Availability.Calendar)
		api.POST("/practitioners/calendar/batch", middleware.RequireClinicMember(), h.Availability.CalendarBatch)
		api.GET("/practitioners/:id/availability/slots", middleware.RequireClinicMember(), h.Availability.Slots)
		api.POST("/practitioners/:id/availability/slots/batch", middleware.RequireClinicMember(), h.Availability.SlotsBatch)
		api.POST("/practitioners/availability/conflicts/batch", middleware.RequireStaff(), h.Availability.ConflictsBatch)
		api.POST("/practitioners/:id/availability/exceptions", middleware.RequireSelfOrAdmin("id"), h.Availability.CreateException)
		api.DELETE("/practitioners/:id/availability/exceptions/:eid", middleware.RequireSelfOrAdmin("id"), h.Availability.DeleteException)

		api.POST("/appointments", middleware.RequireStaff(), h.Appointment.Create)
		api.PUT("/appointments/:id", middleware.RequireStaff(), h.Appointment.Edit)
		api.DELETE("/appointments/:id", middleware.RequireStaff(), h.Appointment.Cancel)
		api.POST("/appointments/:id/edit-preview", middleware.RequireStaff(), h.Appointment.EditPreview)
		api.GET("/pending-review-appointments", middleware.RequireRole(entities.RoleAdmin), h.Appointment.PendingReview)
	}
}
