package models

import (
	"time"

	"github.com/google/uuid"
)

// UnitType - тип реагирующего юнита
type UnitType string

const (
	UnitTypeAmbulance  UnitType = "AMBULANCE"
	UnitTypeFireEngine UnitType = "FIRE_ENGINE"
	UnitTypePoliceCar  UnitType = "POLICE_CAR"
	UnitTypeOther      UnitType = "OTHER"
)

// IsValid проверяет, что тип юнита входит в допустимый набор
func (t UnitType) IsValid() bool {
	switch t {
	case UnitTypeAmbulance, UnitTypeFireEngine, UnitTypePoliceCar, UnitTypeOther:
		return true
	}
	return false
}

// Capability - специальная возможность юнита
type Capability string

const (
	CapabilityALS      Capability = "ALS"
	CapabilityBLS      Capability = "BLS"
	CapabilityHazmat   Capability = "HAZMAT"
	CapabilityRescue   Capability = "RESCUE"
	CapabilityK9       Capability = "K9"
	CapabilityTactical Capability = "TACTICAL"
)

// IsValid проверяет, что возможность входит в допустимый набор
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityALS, CapabilityBLS, CapabilityHazmat, CapabilityRescue, CapabilityK9, CapabilityTactical:
		return true
	}
	return false
}

// Unit представляет реагирующий юнит (экипаж)
type Unit struct {
	ID              uuid.UUID    `json:"id"`
	CallSign        string       `json:"call_sign"`
	Type            UnitType     `json:"type"`
	Capabilities    []Capability `json:"capabilities"`
	Status          UnitStatus   `json:"status"`
	Latitude        float64      `json:"latitude"`
	Longitude       float64      `json:"longitude"`
	CurrentIncident *uuid.UUID   `json:"current_incident,omitempty"`
	LastUpdated     time.Time    `json:"last_updated"`

	// DistanceMeters заполняется только гео-запросом ближайших юнитов
	DistanceMeters float64 `json:"distance_meters,omitempty"`
}

// CheckIncidentInvariant проверяет инвариант: current_incident задан
// тогда и только тогда, когда юнит находится в активном статусе
func (u *Unit) CheckIncidentInvariant() bool {
	if u.Status.RequiresIncident() {
		return u.CurrentIncident != nil
	}
	return u.CurrentIncident == nil
}
