package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIncidentStatus_CanTransitionTo_Forward(t *testing.T) {
	assert.True(t, IncidentStatusPending.CanTransitionTo(IncidentStatusDispatched))
	assert.True(t, IncidentStatusPending.CanTransitionTo(IncidentStatusResolved))
	assert.True(t, IncidentStatusDispatched.CanTransitionTo(IncidentStatusEnRoute))
	assert.True(t, IncidentStatusEnRoute.CanTransitionTo(IncidentStatusOnScene))
	assert.True(t, IncidentStatusOnScene.CanTransitionTo(IncidentStatusResolved))
}

func TestIncidentStatus_CanTransitionTo_Backward(t *testing.T) {
	assert.False(t, IncidentStatusDispatched.CanTransitionTo(IncidentStatusPending))
	assert.False(t, IncidentStatusResolved.CanTransitionTo(IncidentStatusOnScene))
	assert.False(t, IncidentStatusOnScene.CanTransitionTo(IncidentStatusEnRoute))
}

func TestIncidentStatus_CanTransitionTo_SameOrInvalid(t *testing.T) {
	assert.False(t, IncidentStatusPending.CanTransitionTo(IncidentStatusPending))
	assert.False(t, IncidentStatusPending.CanTransitionTo(IncidentStatus("BROKEN")))
	assert.False(t, IncidentStatus("BROKEN").CanTransitionTo(IncidentStatusResolved))
}

func TestIncidentStatus_IsTerminal(t *testing.T) {
	assert.True(t, IncidentStatusResolved.IsTerminal())
	assert.False(t, IncidentStatusPending.IsTerminal())
	assert.False(t, IncidentStatusOnScene.IsTerminal())
}

func TestUnitStatus_RequiresIncident(t *testing.T) {
	assert.False(t, UnitStatusAvailable.RequiresIncident())
	assert.False(t, UnitStatusOutOfService.RequiresIncident())
	assert.True(t, UnitStatusDispatched.RequiresIncident())
	assert.True(t, UnitStatusEnRoute.RequiresIncident())
	assert.True(t, UnitStatusOnScene.RequiresIncident())
	assert.True(t, UnitStatusReturning.RequiresIncident())
	assert.False(t, UnitStatus("BROKEN").RequiresIncident())
}

func TestUnitStatus_IsDispatchTarget(t *testing.T) {
	assert.True(t, UnitStatusDispatched.IsDispatchTarget())
	assert.True(t, UnitStatusEnRoute.IsDispatchTarget())
	assert.False(t, UnitStatusAvailable.IsDispatchTarget())
	assert.False(t, UnitStatusOnScene.IsDispatchTarget())
	assert.False(t, UnitStatusOutOfService.IsDispatchTarget())
}

func TestRecommendationStatus_IsValid(t *testing.T) {
	assert.True(t, RecommendationStatusPending.IsValid())
	assert.True(t, RecommendationStatusAccepted.IsValid())
	assert.True(t, RecommendationStatusRejected.IsValid())
	assert.False(t, RecommendationStatus("MAYBE").IsValid())
}

func TestUnit_CheckIncidentInvariant(t *testing.T) {
	incidentID := uuid.New()

	available := &Unit{Status: UnitStatusAvailable}
	assert.True(t, available.CheckIncidentInvariant())

	dispatched := &Unit{Status: UnitStatusDispatched, CurrentIncident: &incidentID}
	assert.True(t, dispatched.CheckIncidentInvariant())

	// Активный статус без привязки к инциденту
	broken := &Unit{Status: UnitStatusEnRoute}
	assert.False(t, broken.CheckIncidentInvariant())

	// Привязка при пассивном статусе
	stale := &Unit{Status: UnitStatusAvailable, CurrentIncident: &incidentID}
	assert.False(t, stale.CheckIncidentInvariant())
}

func TestIncident_HasUnit(t *testing.T) {
	unitID := uuid.New()
	incident := &Incident{DispatchedUnits: []uuid.UUID{unitID}}

	assert.True(t, incident.HasUnit(unitID))
	assert.False(t, incident.HasUnit(uuid.New()))
}
