package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/shenikar/emergency_dispatch_system/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService       service.IncidentService
	unitService           service.UnitService
	dispatchService       service.DispatchService
	recommendationService service.RecommendationService
	logger                *logrus.Logger
	validate              *validator.Validate
	cfg                   *config.Config
}

func NewHandler(
	incidentService service.IncidentService,
	unitService service.UnitService,
	dispatchService service.DispatchService,
	recommendationService service.RecommendationService,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		incidentService:       incidentService,
		unitService:           unitService,
		dispatchService:       dispatchService,
		recommendationService: recommendationService,
		logger:                logger,
		validate:              validator.New(),
		cfg:                   cfg,
	}
}

// respondError сопоставляет класс ошибки с HTTP-статусом
func (h *Handler) respondError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		log.WithError(err).Warn("Entity not found")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		log.WithError(err).Warn("Operation conflict")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrUpstream):
		log.WithError(err).Error("Upstream service failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrTransient):
		log.WithError(err).Error("Transient store failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("Internal server error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
