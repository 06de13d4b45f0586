package v1

import (
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

// CreateIncidentRequest DTO для создания инцидента
// @Description DTO для создания инцидента
type CreateIncidentRequest struct {
	Type     string `json:"type" validate:"required,oneof=MEDICAL FIRE POLICE OTHER"`
	Priority int    `json:"priority" validate:"required,min=1,max=5"`
	// Указатели отличают отсутствующую координату от легитимного нуля
	Latitude    *float64 `json:"latitude" validate:"required,latitude"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude"`
	Address     string   `json:"address" validate:"required"`
	Description string   `json:"description" validate:"required"`
}

// UpdateIncidentStatusRequest DTO для смены статуса инцидента
// @Description DTO для смены статуса инцидента
type UpdateIncidentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING DISPATCHED EN_ROUTE ON_SCENE RESOLVED"`
}

// DispatchUnitRequest DTO для прямого назначения юнита на инцидент
// @Description DTO для прямого назначения юнита на инцидент
type DispatchUnitRequest struct {
	UnitID           string `json:"unit_id" validate:"required,uuid"`
	RecommendationID string `json:"recommendation_id,omitempty" validate:"omitempty,uuid"`
}

// CreateUnitRequest DTO для создания юнита
// @Description DTO для создания юнита
type CreateUnitRequest struct {
	CallSign     string   `json:"call_sign" validate:"required,min=2,max=64"`
	Type         string   `json:"type" validate:"required,oneof=AMBULANCE FIRE_ENGINE POLICE_CAR OTHER"`
	Capabilities []string `json:"capabilities" validate:"dive,oneof=ALS BLS HAZMAT RESCUE K9 TACTICAL"`
	// Указатели отличают отсутствующую координату от легитимного нуля
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// UpdateUnitStatusRequest DTO для смены статуса юнита
// @Description DTO для смены статуса юнита
type UpdateUnitStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=AVAILABLE DISPATCHED EN_ROUTE ON_SCENE RETURNING OUT_OF_SERVICE"`
}

// UpdateUnitLocationRequest DTO для обновления координат юнита.
// Coordinates - пара [долгота, широта].
type UpdateUnitLocationRequest struct {
	Coordinates []float64 `json:"coordinates" validate:"required,len=2"`
}

// AssignUnitRequest DTO для назначения юнита через путь юнита
// @Description DTO для назначения юнита через путь юнита
type AssignUnitRequest struct {
	IncidentID string `json:"incident_id" validate:"required,uuid"`
}

// AcceptRecommendationRequest DTO для принятия рекомендации
// @Description DTO для принятия рекомендации
type AcceptRecommendationRequest struct {
	UnitID string `json:"unit_id" validate:"required,uuid"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID              uuid.UUID   `json:"id"`
	Type            string      `json:"type"`
	Priority        int         `json:"priority"`
	Latitude        float64     `json:"latitude"`
	Longitude       float64     `json:"longitude"`
	Address         string      `json:"address"`
	Description     string      `json:"description"`
	Status          string      `json:"status"`
	DispatchedUnits []uuid.UUID `json:"dispatched_units"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// UnitResponse DTO для ответа с информацией о юните
// @Description DTO для ответа с информацией о юните
type UnitResponse struct {
	ID              uuid.UUID  `json:"id"`
	CallSign        string     `json:"call_sign"`
	Type            string     `json:"type"`
	Capabilities    []string   `json:"capabilities"`
	Status          string     `json:"status"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	CurrentIncident *uuid.UUID `json:"current_incident,omitempty"`
	LastUpdated     time.Time  `json:"last_updated"`
	DistanceMeters  float64    `json:"distance_meters,omitempty"`
}

// RecommendationResponse DTO для ответа с рекомендацией
// @Description DTO для ответа с рекомендацией
type RecommendationResponse struct {
	ID             uuid.UUID              `json:"id"`
	IncidentID     uuid.UUID              `json:"incident_id"`
	Suggestions    []models.SuggestedUnit `json:"suggestions"`
	Status         string                 `json:"status"`
	AcceptedUnitID *uuid.UUID             `json:"accepted_unit_id,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// DispatchResponse DTO для ответа на назначение юнита
// @Description DTO для ответа на назначение юнита
type DispatchResponse struct {
	Incident *IncidentResponse `json:"incident"`
	Unit     *UnitResponse     `json:"unit"`
}
