package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

// Type - тип события реального времени
type Type string

const (
	TypeIncidentCreated       Type = "incident_created"
	TypeIncidentStatusChanged Type = "incident_status_changed"
	TypeUnitCreated           Type = "unit_created"
	TypeUnitStatusChanged     Type = "unit_status_changed"
	TypeUnitLocationChanged   Type = "unit_location_changed"
	TypeUnitDispatched        Type = "unit_dispatched"
	TypeNewRecommendations    Type = "new_recommendations"
)

// Event - событие, публикуемое после успешной фиксации транзакции.
// Доставка подписчикам at-least-once, без подтверждений и повторов.
type Event struct {
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// New собирает событие, сериализуя полезную нагрузку в JSON
func New(t Type, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return Event{
		Type:      t,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

//go:generate mockgen -source=event.go -destination=mocks/publisher_mock.go -package=mocks

// Publisher - интерфейс публикации событий.
// Внедряется в сервисы при конструировании, глобального состояния нет.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// IncidentStatusChangedPayload - нагрузка события incident_status_changed
type IncidentStatusChangedPayload struct {
	IncidentID uuid.UUID             `json:"incident_id"`
	OldStatus  models.IncidentStatus `json:"old_status"`
	NewStatus  models.IncidentStatus `json:"new_status"`
}

// UnitStatusChangedPayload - нагрузка события unit_status_changed
type UnitStatusChangedPayload struct {
	UnitID    uuid.UUID         `json:"unit_id"`
	CallSign  string            `json:"call_sign"`
	OldStatus models.UnitStatus `json:"old_status"`
	NewStatus models.UnitStatus `json:"new_status"`
}

// UnitLocationChangedPayload - нагрузка события unit_location_changed
type UnitLocationChangedPayload struct {
	UnitID       uuid.UUID `json:"unit_id"`
	CallSign     string    `json:"call_sign"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	OldLatitude  float64   `json:"old_latitude"`
	OldLongitude float64   `json:"old_longitude"`
	Timestamp    time.Time `json:"timestamp"`
}

// UnitDispatchedPayload - нагрузка события unit_dispatched
type UnitDispatchedPayload struct {
	UnitID           uuid.UUID           `json:"unit_id"`
	CallSign         string              `json:"call_sign"`
	IncidentID       uuid.UUID           `json:"incident_id"`
	IncidentType     models.IncidentType `json:"incident_type"`
	Latitude         float64             `json:"latitude"`
	Longitude        float64             `json:"longitude"`
	RecommendationID *uuid.UUID          `json:"recommendation_id,omitempty"`
}

// NewRecommendationsPayload - нагрузка события new_recommendations
type NewRecommendationsPayload struct {
	IncidentID       uuid.UUID              `json:"incident_id"`
	RecommendationID uuid.UUID              `json:"recommendation_id"`
	Suggestions      []models.SuggestedUnit `json:"suggestions"`
}
