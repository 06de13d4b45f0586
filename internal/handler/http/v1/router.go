package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршрут Health-check доступен без ключа
	api.GET("/system/health", h.healthCheck)

	protected := api.Group("")
	protected.Use(APIKeyAuthMiddleware(h.cfg, h.logger))

	// Маршруты для управления инцидентами
	incidents := protected.Group("/incidents")
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.PATCH("/:id/status", h.updateIncidentStatus)
		incidents.POST("/:id/dispatch", h.dispatchUnit)
		incidents.POST("/:id/recommend-units", h.recommendUnits)
		incidents.GET("/:id/recommendations", h.listIncidentRecommendations)
	}

	// Маршруты для управления юнитами
	units := protected.Group("/units")
	{
		units.POST("", h.createUnit)
		units.GET("", h.listUnits)
		units.GET("/available/nearest", h.findNearestUnits)
		units.GET("/:id", h.getUnit)
		units.PATCH("/:id/status", h.updateUnitStatus)
		units.PATCH("/:id/location", h.updateUnitLocation)
		units.POST("/:id/assign", h.assignUnit)
		units.POST("/:id/en-route", h.setUnitEnRoute)
	}

	// Маршруты для работы с рекомендациями
	recommendations := protected.Group("/recommendations")
	{
		recommendations.GET("", h.listRecommendations)
		recommendations.GET("/:id", h.getRecommendation)
		recommendations.POST("/:id/accept", h.acceptRecommendation)
		recommendations.POST("/:id/reject", h.rejectRecommendation)
	}
}
