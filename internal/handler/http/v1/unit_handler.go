package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

// @Summary Create a new unit
// @Description Create a new responder unit in AVAILABLE status. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param unit body CreateUnitRequest true "Unit creation request"
// @Success 201 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Call sign already taken"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /units [post]
func (h *Handler) createUnit(c *gin.Context) {
	var input CreateUnitRequest
	log := h.logger.WithField("method", "createUnit")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := CreateUnitDTOToModel(input)
	if err := h.unitService.CreateUnit(c.Request.Context(), model); err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToUnitResponse(model))
}

// @Summary Get a list of units
// @Description Get a paginated list of all units. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} UnitResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /units [get]
func (h *Handler) listUnits(c *gin.Context) {
	log := h.logger.WithField("method", "listUnits")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	units, err := h.unitService.ListUnits(c.Request.Context(), page, pageSize)
	if err != nil {
		h.respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, ModelsToUnitResponses(units))
}

// @Summary Get unit by ID
// @Description Get a single unit by its ID. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Unit ID"
// @Success 200 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid unit ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unit not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /units/{id} [get]
func (h *Handler) getUnit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}
	log := h.logger.WithField("method", "getUnit").WithField("id", id)

	unit, err := h.unitService.GetUnit(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUnitResponse(unit))
}

// @Summary Update unit status
// @Description Update unit status preserving the incident-binding invariant. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Unit ID"
// @Param status body UpdateUnitStatusRequest true "New status"
// @Success 200 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid unit ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unit not found"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /units/{id}/status [patch]
func (h *Handler) updateUnitStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}
	log := h.logger.WithField("method", "updateUnitStatus").WithField("id", id)

	var input UpdateUnitStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	unit, err := h.unitService.UpdateUnitStatus(c.Request.Context(), id, models.UnitStatus(input.Status))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUnitResponse(unit))
}

// @Summary Update unit location
// @Description Update unit coordinates. Coordinates are [longitude, latitude]. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Unit ID"
// @Param location body UpdateUnitLocationRequest true "New coordinates"
// @Success 200 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid unit ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unit not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /units/{id}/location [patch]
func (h *Handler) updateUnitLocation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}
	log := h.logger.WithField("method", "updateUnitLocation").WithField("id", id)

	var input UpdateUnitLocationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// coordinates приходят в порядке [долгота, широта]
	lon, lat := input.Coordinates[0], input.Coordinates[1]
	unit, err := h.unitService.UpdateUnitLocation(c.Request.Context(), id, lat, lon)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUnitResponse(unit))
}

// @Summary Find nearest available units
// @Description Get AVAILABLE units within maxDistance meters of the point, ordered by ascending distance. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param longitude query number true "Longitude"
// @Param latitude query number true "Latitude"
// @Param maxDistance query int false "Max distance in meters" default(20000)
// @Param limit query int false "Max number of units" default(5)
// @Success 200 {array} UnitResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /units/available/nearest [get]
func (h *Handler) findNearestUnits(c *gin.Context) {
	log := h.logger.WithField("method", "findNearestUnits")

	lon, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude"})
		return
	}
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude"})
		return
	}
	maxDistance, _ := strconv.Atoi(c.DefaultQuery("maxDistance", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	units, err := h.unitService.FindNearestAvailable(c.Request.Context(), lat, lon, maxDistance, limit)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToUnitResponses(units))
}

// @Summary Assign a unit to an incident
// @Description Atomically assign the unit to an incident, setting the unit EN_ROUTE. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Unit ID"
// @Param assignment body AssignUnitRequest true "Assignment request"
// @Success 200 {object} DispatchResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unit or incident not found"
// @Failure 409 {object} map[string]string "Unit already assigned or unavailable"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /units/{id}/assign [post]
func (h *Handler) assignUnit(c *gin.Context) {
	unitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}
	log := h.logger.WithField("method", "assignUnit").WithField("id", unitID)

	var input AssignUnitRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incidentID := uuid.MustParse(input.IncidentID)
	result, err := h.dispatchService.AssignUnitToIncident(c.Request.Context(), unitID, incidentID, nil, models.UnitStatusEnRoute)
	if err != nil {
		h.respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, DispatchResponse{
		Incident: ModelToIncidentResponse(result.Incident),
		Unit:     ModelToUnitResponse(result.Unit),
	})
}

// @Summary Set unit en-route
// @Description Transition an assigned unit to EN_ROUTE status. Requires API key.
// @Tags Units
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Unit ID"
// @Success 200 {object} UnitResponse
// @Failure 400 {object} map[string]string "Invalid unit ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Unit not found"
// @Failure 409 {object} map[string]string "Unit has no assigned incident"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /units/{id}/en-route [post]
func (h *Handler) setUnitEnRoute(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}
	log := h.logger.WithField("method", "setUnitEnRoute").WithField("id", id)

	unit, err := h.unitService.SetUnitEnRoute(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUnitResponse(unit))
}
