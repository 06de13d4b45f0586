package service_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

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

// newTestDispatchService — вспомогательная функция для создания сервиса с моками
func newTestDispatchService(t *testing.T) (service.DispatchService, *mocks.MockDispatchRepository, *mocks.MockIncidentRepository, *eventmocks.MockPublisher) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockDispatchRepository(ctrl)
	incidentRepoMock := mocks.NewMockIncidentRepository(ctrl)
	publisherMock := eventmocks.NewMockPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		DispatchMaxRetries: 3,
	}

	svc := service.NewDispatchService(repoMock, incidentRepoMock, publisherMock, logger, cfg)
	return svc, repoMock, incidentRepoMock, publisherMock
}

func assignResult(unitID, incidentID uuid.UUID, oldStatus models.IncidentStatus, target models.UnitStatus) *service.AssignResult {
	return &service.AssignResult{
		Incident: &models.Incident{
			ID:              incidentID,
			Type:            models.IncidentTypeFire,
			Status:          models.IncidentStatusDispatched,
			DispatchedUnits: []uuid.UUID{unitID},
		},
		Unit: &models.Unit{
			ID:              unitID,
			CallSign:        "ENGINE-7",
			Status:          target,
			CurrentIncident: &incidentID,
		},
		OldIncidentStatus: oldStatus,
	}
}

func TestAssignUnitToIncident_Success_EventOrder(t *testing.T) {
	// Подготовка
	svc, repoMock, incidentRepoMock, publisherMock := newTestDispatchService(t)
	ctx := context.Background()
	unitID := uuid.New()
	incidentID := uuid.New()
	expected := assignResult(unitID, incidentID, models.IncidentStatusPending, models.UnitStatusDispatched)

	// Ожидания
	repoMock.EXPECT().
		Assign(ctx, service.AssignParams{
			UnitID:       unitID,
			IncidentID:   incidentID,
			TargetStatus: models.UnitStatusDispatched,
		}).
		Return(expected, nil).
		Times(1)

	incidentRepoMock.EXPECT().
		InvalidateCache(ctx, incidentID).
		Return(nil).
		Times(1)

	// События публикуются строго после фиксации и в фиксированном порядке
	var published []events.Type
	publisherMock.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, e events.Event) error {
			published = append(published, e.Type)
			return nil
		}).
		Times(2)

	// Действие
	result, err := svc.AssignUnitToIncident(ctx, unitID, incidentID, nil, models.UnitStatusDispatched)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, result)
	assert.Equal(t, []events.Type{events.TypeUnitDispatched, events.TypeIncidentStatusChanged}, published)
}

func TestAssignUnitToIncident_NoStatusEventWhenUnchanged(t *testing.T) {
	// Подготовка
	svc, repoMock, incidentRepoMock, publisherMock := newTestDispatchService(t)
	ctx := context.Background()
	unitID := uuid.New()
	incidentID := uuid.New()
	// Инцидент уже был DISPATCHED, статус не меняется
	expected := assignResult(unitID, incidentID, models.IncidentStatusDispatched, models.UnitStatusEnRoute)

	// Ожидания
	repoMock.EXPECT().Assign(ctx, gomock.Any()).Return(expected, nil).Times(1)
	incidentRepoMock.EXPECT().InvalidateCache(ctx, incidentID).Return(nil).Times(1)

	var published []events.Type
	publisherMock.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, e events.Event) error {
			published = append(published, e.Type)
			return nil
		}).
		Times(1)

	// Действие
	_, err := svc.AssignUnitToIncident(ctx, unitID, incidentID, nil, models.UnitStatusEnRoute)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, []events.Type{events.TypeUnitDispatched}, published)
}

func TestAssignUnitToIncident_InvalidTarget(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestDispatchService(t)
	ctx := context.Background()

	// Ожидания: до репозитория дело не доходит
	repoMock.EXPECT().Assign(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	result, err := svc.AssignUnitToIncident(ctx, uuid.New(), uuid.New(), nil, models.UnitStatusOnScene)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAssignUnitToIncident_ConflictNotRetried(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestDispatchService(t)
	ctx := context.Background()
	conflict := fmt.Errorf("unit is not available: %w", apperr.ErrConflict)

	// Ожидания: невосстановимый отказ не повторяется
	repoMock.EXPECT().Assign(ctx, gomock.Any()).Return(nil, conflict).Times(1)

	// Действие
	result, err := svc.AssignUnitToIncident(ctx, uuid.New(), uuid.New(), nil, models.UnitStatusDispatched)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAssignUnitToIncident_TransientRetriedThenSuccess(t *testing.T) {
	// Подготовка
	svc, repoMock, incidentRepoMock, publisherMock := newTestDispatchService(t)
	ctx := context.Background()
	unitID := uuid.New()
	incidentID := uuid.New()
	expected := assignResult(unitID, incidentID, models.IncidentStatusPending, models.UnitStatusDispatched)
	transient := fmt.Errorf("deadlock detected: %w", apperr.ErrTransient)

	// Ожидания: первая попытка падает восстановимо, вторая проходит
	gomock.InOrder(
		repoMock.EXPECT().Assign(ctx, gomock.Any()).Return(nil, transient),
		repoMock.EXPECT().Assign(ctx, gomock.Any()).Return(expected, nil),
	)
	incidentRepoMock.EXPECT().InvalidateCache(ctx, incidentID).Return(nil).Times(1)
	publisherMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(2)

	// Действие
	result, err := svc.AssignUnitToIncident(ctx, unitID, incidentID, nil, models.UnitStatusDispatched)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestAssignUnitToIncident_RetriesExhausted(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestDispatchService(t)
	ctx := context.Background()
	transient := fmt.Errorf("serialization failure: %w", apperr.ErrTransient)

	// Ожидания: все попытки исчерпаны
	repoMock.EXPECT().Assign(ctx, gomock.Any()).Return(nil, transient).Times(3)

	// Действие
	result, err := svc.AssignUnitToIncident(ctx, uuid.New(), uuid.New(), nil, models.UnitStatusDispatched)

	// Проверки: исчерпание повторов выражается как конфликт
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAssignUnitToIncident_ZeroRetryBudgetStillAttempts(t *testing.T) {
	// Подготовка: нулевой бюджет повторов из конфигурации
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockDispatchRepository(ctrl)
	incidentRepoMock := mocks.NewMockIncidentRepository(ctrl)
	publisherMock := eventmocks.NewMockPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		DispatchMaxRetries: 0,
	}
	svc := service.NewDispatchService(repoMock, incidentRepoMock, publisherMock, logger, cfg)

	ctx := context.Background()
	unitID := uuid.New()
	incidentID := uuid.New()
	expected := assignResult(unitID, incidentID, models.IncidentStatusPending, models.UnitStatusDispatched)

	// Ожидания: хотя бы одна попытка выполняется всегда
	repoMock.EXPECT().Assign(ctx, gomock.Any()).Return(expected, nil).Times(1)
	incidentRepoMock.EXPECT().InvalidateCache(ctx, incidentID).Return(nil).Times(1)
	publisherMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(2)

	// Действие
	result, err := svc.AssignUnitToIncident(ctx, unitID, incidentID, nil, models.UnitStatusDispatched)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestAssignUnitToIncident_PublishFailureDoesNotFail(t *testing.T) {
	// Подготовка
	svc, repoMock, incidentRepoMock, publisherMock := newTestDispatchService(t)
	ctx := context.Background()
	unitID := uuid.New()
	incidentID := uuid.New()
	expected := assignResult(unitID, incidentID, models.IncidentStatusPending, models.UnitStatusDispatched)

	// Ожидания: сбой публикации не отменяет зафиксированное назначение
	repoMock.EXPECT().Assign(ctx, gomock.Any()).Return(expected, nil).Times(1)
	incidentRepoMock.EXPECT().InvalidateCache(ctx, incidentID).Return(nil).Times(1)
	publisherMock.EXPECT().Publish(ctx, gomock.Any()).Return(fmt.Errorf("redis down")).Times(2)

	// Действие
	result, err := svc.AssignUnitToIncident(ctx, unitID, incidentID, nil, models.UnitStatusDispatched)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, result)
}
