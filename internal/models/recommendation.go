package models

import (
	"time"

	"github.com/google/uuid"
)

// SuggestedUnit - один элемент ранжированного списка от внешнего сервиса
type SuggestedUnit struct {
	UnitID   string  `json:"unit_id"`
	CallSign string  `json:"call_sign"`
	Type     string  `json:"type"`
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
}

// Recommendation хранит ранжированный список юнитов, предложенных
// внешним сервисом для инцидента, и результат его рассмотрения.
// После выхода из статуса PENDING запись неизменяема.
type Recommendation struct {
	ID             uuid.UUID            `json:"id"`
	IncidentID     uuid.UUID            `json:"incident_id"`
	Suggestions    []SuggestedUnit      `json:"suggestions"`
	Status         RecommendationStatus `json:"status"`
	AcceptedUnitID *uuid.UUID           `json:"accepted_unit_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}
