package v1

import "github.com/shenikar/emergency_dispatch_system/internal/models"

// CreateIncidentDTOToModel преобразует DTO создания в доменную модель
func CreateIncidentDTOToModel(dto CreateIncidentRequest) *models.Incident {
	return &models.Incident{
		Type:        models.IncidentType(dto.Type),
		Priority:    dto.Priority,
		Latitude:    *dto.Latitude,
		Longitude:   *dto.Longitude,
		Address:     dto.Address,
		Description: dto.Description,
	}
}

// CreateUnitDTOToModel преобразует DTO создания в доменную модель
func CreateUnitDTOToModel(dto CreateUnitRequest) *models.Unit {
	capabilities := make([]models.Capability, len(dto.Capabilities))
	for i, c := range dto.Capabilities {
		capabilities[i] = models.Capability(c)
	}
	return &models.Unit{
		CallSign:     dto.CallSign,
		Type:         models.UnitType(dto.Type),
		Capabilities: capabilities,
		Latitude:     *dto.Latitude,
		Longitude:    *dto.Longitude,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:              model.ID,
		Type:            string(model.Type),
		Priority:        model.Priority,
		Latitude:        model.Latitude,
		Longitude:       model.Longitude,
		Address:         model.Address,
		Description:     model.Description,
		Status:          string(model.Status),
		DispatchedUnits: model.DispatchedUnits,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// ModelToUnitResponse преобразует доменную модель в DTO для ответа
func ModelToUnitResponse(model *models.Unit) *UnitResponse {
	capabilities := make([]string, len(model.Capabilities))
	for i, c := range model.Capabilities {
		capabilities[i] = string(c)
	}
	return &UnitResponse{
		ID:              model.ID,
		CallSign:        model.CallSign,
		Type:            string(model.Type),
		Capabilities:    capabilities,
		Status:          string(model.Status),
		Latitude:        model.Latitude,
		Longitude:       model.Longitude,
		CurrentIncident: model.CurrentIncident,
		LastUpdated:     model.LastUpdated,
		DistanceMeters:  model.DistanceMeters,
	}
}

// ModelsToUnitResponses преобразует слайс моделей в слайс DTO
func ModelsToUnitResponses(models []*models.Unit) []*UnitResponse {
	responses := make([]*UnitResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToUnitResponse(model)
	}
	return responses
}

// ModelToRecommendationResponse преобразует доменную модель в DTO для ответа
func ModelToRecommendationResponse(model *models.Recommendation) *RecommendationResponse {
	return &RecommendationResponse{
		ID:             model.ID,
		IncidentID:     model.IncidentID,
		Suggestions:    model.Suggestions,
		Status:         string(model.Status),
		AcceptedUnitID: model.AcceptedUnitID,
		CreatedAt:      model.CreatedAt,
	}
}

// ModelsToRecommendationResponses преобразует слайс моделей в слайс DTO
func ModelsToRecommendationResponses(models []*models.Recommendation) []*RecommendationResponse {
	responses := make([]*RecommendationResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToRecommendationResponse(model)
	}
	return responses
}
