package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// @Summary Get a list of recommendations
// @Description Get all recommendations, newest first. Requires API key.
// @Tags Recommendations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} RecommendationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /recommendations [get]
func (h *Handler) listRecommendations(c *gin.Context) {
	log := h.logger.WithField("method", "listRecommendations")

	recs, err := h.recommendationService.ListRecommendations(c.Request.Context())
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToRecommendationResponses(recs))
}

// @Summary Get recommendation by ID
// @Description Get a single recommendation by its ID. Requires API key.
// @Tags Recommendations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Recommendation ID"
// @Success 200 {object} RecommendationResponse
// @Failure 400 {object} map[string]string "Invalid recommendation ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Recommendation not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /recommendations/{id} [get]
func (h *Handler) getRecommendation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recommendation ID"})
		return
	}
	log := h.logger.WithField("method", "getRecommendation").WithField("id", id)

	rec, err := h.recommendationService.GetRecommendation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToRecommendationResponse(rec))
}

// @Summary Accept a recommendation
// @Description Accept a pending recommendation by dispatching the chosen unit to its incident. Requires API key.
// @Tags Recommendations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Recommendation ID"
// @Param acceptance body AcceptRecommendationRequest true "Accepted unit"
// @Success 200 {object} DispatchResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Recommendation, unit or incident not found"
// @Failure 409 {object} map[string]string "Recommendation not pending or unit unavailable"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /recommendations/{id}/accept [post]
func (h *Handler) acceptRecommendation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recommendation ID"})
		return
	}
	log := h.logger.WithField("method", "acceptRecommendation").WithField("id", id)

	var input AcceptRecommendationRequest
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

	unitID := uuid.MustParse(input.UnitID)
	result, err := h.recommendationService.AcceptRecommendation(c.Request.Context(), id, unitID)
	if err != nil {
		h.respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, DispatchResponse{
		Incident: ModelToIncidentResponse(result.Incident),
		Unit:     ModelToUnitResponse(result.Unit),
	})
}

// @Summary Reject a recommendation
// @Description Mark a pending recommendation as rejected. Requires API key.
// @Tags Recommendations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Recommendation ID"
// @Success 200 {object} RecommendationResponse
// @Failure 400 {object} map[string]string "Invalid recommendation ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Recommendation not found"
// @Failure 409 {object} map[string]string "Recommendation not pending"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /recommendations/{id}/reject [post]
func (h *Handler) rejectRecommendation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recommendation ID"})
		return
	}
	log := h.logger.WithField("method", "rejectRecommendation").WithField("id", id)

	rec, err := h.recommendationService.RejectRecommendation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToRecommendationResponse(rec))
}
