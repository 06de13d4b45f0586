package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/shenikar/emergency_dispatch_system/internal/events"
	eventmocks "github.com/shenikar/emergency_dispatch_system/internal/events/mocks"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/shenikar/emergency_dispatch_system/internal/service"
	"github.com/shenikar/emergency_dispatch_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestUnitService — вспомогательная функция для создания сервиса с моками
func newTestUnitService(t *testing.T) (service.UnitService, *mocks.MockUnitRepository, *eventmocks.MockPublisher) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockUnitRepository(ctrl)
	publisherMock := eventmocks.NewMockPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		NearestMaxDistanceM: 20000,
		NearestLimit:        5,
	}

	svc := service.NewUnitService(repoMock, publisherMock, logger, cfg)
	return svc, repoMock, publisherMock
}

func TestCreateUnit_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, publisherMock := newTestUnitService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	unit := &models.Unit{
		CallSign:     "MEDIC-1",
		Type:         models.UnitTypeAmbulance,
		Capabilities: []models.Capability{models.CapabilityALS},
		Latitude:     55.75,
		Longitude:    37.61,
		// Клиент не управляет статусом и привязкой при создании
		Status:          models.UnitStatusEnRoute,
		CurrentIncident: &incidentID,
	}

	// Ожидания
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.Unit) error {
			u.ID = uuid.New()
			return nil
		}).
		Times(1)
	publisherMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	err := svc.CreateUnit(ctx, unit)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusAvailable, unit.Status)
	assert.Nil(t, unit.CurrentIncident)
	assert.NotEqual(t, uuid.Nil, unit.ID)
}

func TestCreateUnit_InvalidType(t *testing.T) {
	// Подготовка
	svc, repoMock, _ := newTestUnitService(t)
	ctx := context.Background()
	unit := &models.Unit{CallSign: "BOAT-1", Type: "BOAT"}

	// Ожидания
	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	err := svc.CreateUnit(ctx, unit)

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateUnit_InvalidCapability(t *testing.T) {
	// Подготовка
	svc, repoMock, _ := newTestUnitService(t)
	ctx := context.Background()
	unit := &models.Unit{
		CallSign:     "ENGINE-2",
		Type:         models.UnitTypeFireEngine,
		Capabilities: []models.Capability{"TELEPORT"},
	}

	// Ожидания
	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	err := svc.CreateUnit(ctx, unit)

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateUnitStatus_ReturnToAvailableClearsBinding(t *testing.T) {
	// Подготовка
	svc, repoMock, publisherMock := newTestUnitService(t)
	ctx := context.Background()
	unitID := uuid.New()
	incidentID := uuid.New()
	existing := &models.Unit{
		ID:              unitID,
		CallSign:        "MEDIC-1",
		Status:          models.UnitStatusReturning,
		CurrentIncident: &incidentID,
	}

	// Ожидания: возврат в AVAILABLE снимает привязку
	repoMock.EXPECT().GetByID(ctx, unitID).Return(existing, nil).Times(1)
	repoMock.EXPECT().
		UpdateStatus(ctx, unitID, models.UnitStatusReturning, models.UnitStatusAvailable, nil).
		Return(nil).
		Times(1)
	publisherMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	unit, err := svc.UpdateUnitStatus(ctx, unitID, models.UnitStatusAvailable)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusAvailable, unit.Status)
	assert.Nil(t, unit.CurrentIncident)
}

func TestUpdateUnitStatus_ActiveWithoutIncidentRejected(t *testing.T) {
	// Подготовка
	svc, repoMock, _ := newTestUnitService(t)
	ctx := context.Background()
	unitID := uuid.New()
	existing := &models.Unit{
		ID:       unitID,
		CallSign: "MEDIC-1",
		Status:   models.UnitStatusAvailable,
	}

	// Ожидания: активный статус без инцидента недопустим
	repoMock.EXPECT().GetByID(ctx, unitID).Return(existing, nil).Times(1)
	repoMock.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// Действие
	unit, err := svc.UpdateUnitStatus(ctx, unitID, models.UnitStatusOnScene)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, unit)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdateUnitStatus_InvalidStatus(t *testing.T) {
	// Подготовка
	svc, repoMock, _ := newTestUnitService(t)
	ctx := context.Background()

	// Ожидания
	repoMock.EXPECT().GetByID(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	unit, err := svc.UpdateUnitStatus(ctx, uuid.New(), models.UnitStatus("SLEEPING"))

	// Проверки
	require.Error(t, err)
	assert.Nil(t, unit)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateUnitLocation_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, publisherMock := newTestUnitService(t)
	ctx := context.Background()
	unitID := uuid.New()
	staleUpdated := time.Now().UTC().Add(-time.Hour)
	freshUpdated := time.Now().UTC()
	existing := &models.Unit{
		ID:          unitID,
		CallSign:    "PATROL-5",
		Status:      models.UnitStatusAvailable,
		Latitude:    55.70,
		Longitude:   37.50,
		LastUpdated: staleUpdated,
	}

	// Ожидания: событие несет отметку времени самой записи, а не старую
	repoMock.EXPECT().GetByID(ctx, unitID).Return(existing, nil).Times(1)
	repoMock.EXPECT().UpdateLocation(ctx, unitID, 55.76, 37.62).Return(freshUpdated, nil).Times(1)

	var published events.UnitLocationChangedPayload
	publisherMock.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, e events.Event) error {
			require.NoError(t, json.Unmarshal(e.Payload, &published))
			return nil
		}).
		Times(1)

	// Действие
	unit, err := svc.UpdateUnitLocation(ctx, unitID, 55.76, 37.62)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, 55.76, unit.Latitude)
	assert.Equal(t, 37.62, unit.Longitude)
	assert.Equal(t, freshUpdated, unit.LastUpdated)
	assert.True(t, published.Timestamp.Equal(freshUpdated))
}

func TestFindNearestAvailable_DefaultsApplied(t *testing.T) {
	// Подготовка
	svc, repoMock, _ := newTestUnitService(t)
	ctx := context.Background()
	expected := []*models.Unit{
		{ID: uuid.New(), CallSign: "MEDIC-1", DistanceMeters: 800},
	}

	// Ожидания: нулевые ограничения заменяются значениями из конфигурации
	repoMock.EXPECT().
		FindNearestAvailable(ctx, 55.75, 37.61, 20000, 5).
		Return(expected, nil).
		Times(1)

	// Действие
	units, err := svc.FindNearestAvailable(ctx, 55.75, 37.61, 0, 0)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, units)
}

func TestSetUnitEnRoute_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, publisherMock := newTestUnitService(t)
	ctx := context.Background()
	unitID := uuid.New()
	incidentID := uuid.New()
	existing := &models.Unit{
		ID:              unitID,
		CallSign:        "ENGINE-7",
		Status:          models.UnitStatusDispatched,
		CurrentIncident: &incidentID,
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, unitID).Return(existing, nil).Times(1)
	repoMock.EXPECT().
		UpdateStatus(ctx, unitID, models.UnitStatusDispatched, models.UnitStatusEnRoute, &incidentID).
		Return(nil).
		Times(1)
	publisherMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	unit, err := svc.SetUnitEnRoute(ctx, unitID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusEnRoute, unit.Status)
}

func TestSetUnitEnRoute_NoIncident(t *testing.T) {
	// Подготовка
	svc, repoMock, _ := newTestUnitService(t)
	ctx := context.Background()
	unitID := uuid.New()
	existing := &models.Unit{
		ID:       unitID,
		CallSign: "ENGINE-7",
		Status:   models.UnitStatusAvailable,
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, unitID).Return(existing, nil).Times(1)
	repoMock.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// Действие
	unit, err := svc.SetUnitEnRoute(ctx, unitID)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, unit)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSetUnitEnRoute_AlreadyEnRouteNoOp(t *testing.T) {
	// Подготовка
	svc, repoMock, _ := newTestUnitService(t)
	ctx := context.Background()
	unitID := uuid.New()
	incidentID := uuid.New()
	existing := &models.Unit{
		ID:              unitID,
		CallSign:        "ENGINE-7",
		Status:          models.UnitStatusEnRoute,
		CurrentIncident: &incidentID,
	}

	// Ожидания: повторный перевод не трогает хранилище
	repoMock.EXPECT().GetByID(ctx, unitID).Return(existing, nil).Times(1)
	repoMock.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// Действие
	unit, err := svc.SetUnitEnRoute(ctx, unitID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, existing, unit)
}

func TestGetUnit_NotFound(t *testing.T) {
	// Подготовка
	svc, repoMock, _ := newTestUnitService(t)
	ctx := context.Background()
	unitID := uuid.New()
	notFound := fmt.Errorf("unit with id %s: %w", unitID, apperr.ErrNotFound)

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, unitID).Return(nil, notFound).Times(1)

	// Действие
	unit, err := svc.GetUnit(ctx, unitID)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, unit)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
