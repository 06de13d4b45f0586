package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentType - тип инцидента
type IncidentType string

const (
	IncidentTypeMedical IncidentType = "MEDICAL"
	IncidentTypeFire    IncidentType = "FIRE"
	IncidentTypePolice  IncidentType = "POLICE"
	IncidentTypeOther   IncidentType = "OTHER"
)

// IsValid проверяет, что тип инцидента входит в допустимый набор
func (t IncidentType) IsValid() bool {
	switch t {
	case IncidentTypeMedical, IncidentTypeFire, IncidentTypePolice, IncidentTypeOther:
		return true
	}
	return false
}

// Incident представляет инцидент, требующий реагирования
type Incident struct {
	ID              uuid.UUID      `json:"id"`
	Type            IncidentType   `json:"type"`
	Priority        int            `json:"priority"` // от 1 (низкий) до 5 (высший)
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	Address         string         `json:"address"`
	Description     string         `json:"description"`
	Status          IncidentStatus `json:"status"`
	DispatchedUnits []uuid.UUID    `json:"dispatched_units"` // порядок вставки = порядок отправки
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// HasUnit проверяет, закреплен ли юнит за инцидентом
func (i *Incident) HasUnit(unitID uuid.UUID) bool {
	for _, id := range i.DispatchedUnits {
		if id == unitID {
			return true
		}
	}
	return false
}
