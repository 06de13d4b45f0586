package models

// IncidentStatus - статус инцидента
type IncidentStatus string

const (
	IncidentStatusPending    IncidentStatus = "PENDING"
	IncidentStatusDispatched IncidentStatus = "DISPATCHED"
	IncidentStatusEnRoute    IncidentStatus = "EN_ROUTE"
	IncidentStatusOnScene    IncidentStatus = "ON_SCENE"
	IncidentStatusResolved   IncidentStatus = "RESOLVED"
)

// incidentStatusOrder задает порядок жизненного цикла инцидента
var incidentStatusOrder = map[IncidentStatus]int{
	IncidentStatusPending:    0,
	IncidentStatusDispatched: 1,
	IncidentStatusEnRoute:    2,
	IncidentStatusOnScene:    3,
	IncidentStatusResolved:   4,
}

// IsValid проверяет, что статус инцидента входит в допустимый набор
func (s IncidentStatus) IsValid() bool {
	_, ok := incidentStatusOrder[s]
	return ok
}

// IsTerminal сообщает, является ли статус терминальным.
// После RESOLVED назначение юнитов запрещено.
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentStatusResolved
}

// CanTransitionTo проверяет допустимость перехода статуса инцидента.
// Переходы строго вперед по жизненному циклу, откаты запрещены.
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	cur, ok := incidentStatusOrder[s]
	if !ok {
		return false
	}
	nxt, ok := incidentStatusOrder[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// UnitStatus - статус юнита
type UnitStatus string

const (
	UnitStatusAvailable    UnitStatus = "AVAILABLE"
	UnitStatusDispatched   UnitStatus = "DISPATCHED"
	UnitStatusEnRoute      UnitStatus = "EN_ROUTE"
	UnitStatusOnScene      UnitStatus = "ON_SCENE"
	UnitStatusReturning    UnitStatus = "RETURNING"
	UnitStatusOutOfService UnitStatus = "OUT_OF_SERVICE"
)

// IsValid проверяет, что статус юнита входит в допустимый набор
func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitStatusAvailable, UnitStatusDispatched, UnitStatusEnRoute,
		UnitStatusOnScene, UnitStatusReturning, UnitStatusOutOfService:
		return true
	}
	return false
}

// RequiresIncident сообщает, требует ли статус привязки к инциденту.
// Инвариант: current_incident задан <=> статус активный.
func (s UnitStatus) RequiresIncident() bool {
	switch s {
	case UnitStatusAvailable, UnitStatusOutOfService:
		return false
	}
	return s.IsValid()
}

// IsDispatchTarget проверяет, что статус допустим как цель назначения.
// Координатор пишет только ребра AVAILABLE -> DISPATCHED / EN_ROUTE.
func (s UnitStatus) IsDispatchTarget() bool {
	return s == UnitStatusDispatched || s == UnitStatusEnRoute
}

// RecommendationStatus - статус рекомендации
type RecommendationStatus string

const (
	RecommendationStatusPending  RecommendationStatus = "PENDING"
	RecommendationStatusAccepted RecommendationStatus = "ACCEPTED"
	RecommendationStatusRejected RecommendationStatus = "REJECTED"
)

// IsValid проверяет, что статус рекомендации входит в допустимый набор
func (s RecommendationStatus) IsValid() bool {
	switch s {
	case RecommendationStatusPending, RecommendationStatusAccepted, RecommendationStatusRejected:
		return true
	}
	return false
}
