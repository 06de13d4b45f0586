package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/shenikar/emergency_dispatch_system/internal/events"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=dispatch.go -destination=mocks/dispatch_mock.go -package=mocks

// AssignParams - входные параметры транзакции назначения
type AssignParams struct {
	UnitID     uuid.UUID
	IncidentID uuid.UUID
	// RecommendationID задан, если назначение принимает рекомендацию
	RecommendationID *uuid.UUID
	// TargetStatus - целевой статус юнита: DISPATCHED или EN_ROUTE
	TargetStatus models.UnitStatus
}

// AssignResult - состояние сущностей после фиксации транзакции
type AssignResult struct {
	Incident          *models.Incident
	Unit              *models.Unit
	OldIncidentStatus models.IncidentStatus
}

// DispatchRepository определяет контракт атомарной транзакции назначения
type DispatchRepository interface {
	Assign(ctx context.Context, p AssignParams) (*AssignResult, error)
}

// DispatchService - координатор назначений: единственная точка, которая
// связывает юнит с инцидентом. Оба REST-пути (dispatch и assign) и принятие
// рекомендации сходятся в одном примитиве AssignUnitToIncident.
type DispatchService interface {
	AssignUnitToIncident(ctx context.Context, unitID, incidentID uuid.UUID, recommendationID *uuid.UUID, target models.UnitStatus) (*AssignResult, error)
}

type dispatchService struct {
	repo         DispatchRepository
	incidentRepo IncidentRepository
	publisher    events.Publisher
	logger       *logrus.Logger
	cfg          *config.Config
}

func NewDispatchService(repo DispatchRepository, incidentRepo IncidentRepository, publisher events.Publisher, logger *logrus.Logger, cfg *config.Config) DispatchService {
	return &dispatchService{
		repo:         repo,
		incidentRepo: incidentRepo,
		publisher:    publisher,
		logger:       logger,
		cfg:          cfg,
	}
}

// AssignUnitToIncident атомарно назначает юнит на инцидент: юнит добавляется
// в dispatched_units, инцидент при необходимости переходит PENDING -> DISPATCHED,
// юнит получает целевой статус и привязку, рекомендация (если задана)
// помечается принятой - все в одной транзакции. Восстановимые сбои
// транзакции повторяются ограниченное число раз, после чего операция
// возвращает конфликт. События публикуются строго после фиксации:
// сначала unit_dispatched, затем incident_status_changed, если статус
// инцидента действительно изменился.
func (s *dispatchService) AssignUnitToIncident(ctx context.Context, unitID, incidentID uuid.UUID, recommendationID *uuid.UUID, target models.UnitStatus) (*AssignResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "AssignUnitToIncident",
		"unit_id":     unitID,
		"incident_id": incidentID,
		"target":      target,
	})
	log.Info("Attempting to assign unit to incident")

	if !target.IsDispatchTarget() {
		return nil, fmt.Errorf("invalid dispatch target status %q: %w", target, apperr.ErrValidation)
	}

	params := AssignParams{
		UnitID:           unitID,
		IncidentID:       incidentID,
		RecommendationID: recommendationID,
		TargetStatus:     target,
	}

	// Бюджет повторов не меньше одной попытки, иначе некорректная
	// конфигурация превратила бы любое назначение в отказ
	maxRetries := s.cfg.DispatchMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var result *AssignResult
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err = s.repo.Assign(ctx, params)
		if err == nil {
			break
		}
		if !errors.Is(err, apperr.ErrTransient) {
			log.WithError(err).Warn("Assignment rejected")
			return nil, fmt.Errorf("service: could not assign unit: %w", err)
		}
		log.WithError(err).WithField("attempt", attempt+1).Warn("Transient failure, retrying assignment")
	}
	if err != nil {
		// Повторы исчерпаны - сообщаем конфликт, вызывающий может повторить
		log.WithError(err).Error("Assignment retries exhausted")
		return nil, fmt.Errorf("service: assignment did not commit after %d attempts: %w", maxRetries, apperr.ErrConflict)
	}

	if err := s.incidentRepo.InvalidateCache(ctx, incidentID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.Info("Unit assigned successfully")

	// Порядок фиксирован: сначала событие назначения, затем смена статуса
	s.publish(ctx, log, events.TypeUnitDispatched, events.UnitDispatchedPayload{
		UnitID:           result.Unit.ID,
		CallSign:         result.Unit.CallSign,
		IncidentID:       result.Incident.ID,
		IncidentType:     result.Incident.Type,
		Latitude:         result.Incident.Latitude,
		Longitude:        result.Incident.Longitude,
		RecommendationID: recommendationID,
	})
	if result.OldIncidentStatus != result.Incident.Status {
		s.publish(ctx, log, events.TypeIncidentStatusChanged, events.IncidentStatusChangedPayload{
			IncidentID: result.Incident.ID,
			OldStatus:  result.OldIncidentStatus,
			NewStatus:  result.Incident.Status,
		})
	}
	return result, nil
}

// publish отправляет событие; сбой публикации только логируется
func (s *dispatchService) publish(ctx context.Context, log *logrus.Entry, t events.Type, payload any) {
	event, err := events.New(t, payload)
	if err != nil {
		log.WithError(err).Error("Failed to build event")
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Error("Failed to publish event")
	}
}
