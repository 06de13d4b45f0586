package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=recommendation.go -destination=mocks/recommendation_mock.go -package=mocks

// RecommendationRepository определяет контракт для журнала рекомендаций
type RecommendationRepository interface {
	Create(ctx context.Context, rec *models.Recommendation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recommendation, error)
	List(ctx context.Context) ([]*models.Recommendation, error)
	ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Recommendation, error)
	Reject(ctx context.Context, id uuid.UUID) error
}

// RecommendationService - журнал рекомендаций: хранит предложения внешнего
// сервиса и их жизненный цикл. Принятие делегируется координатору назначений.
type RecommendationService interface {
	GetRecommendation(ctx context.Context, id uuid.UUID) (*models.Recommendation, error)
	ListRecommendations(ctx context.Context) ([]*models.Recommendation, error)
	ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Recommendation, error)
	AcceptRecommendation(ctx context.Context, id, unitID uuid.UUID) (*AssignResult, error)
	RejectRecommendation(ctx context.Context, id uuid.UUID) (*models.Recommendation, error)
}

type recommendationService struct {
	repo     RecommendationRepository
	dispatch DispatchService
	logger   *logrus.Logger
}

func NewRecommendationService(repo RecommendationRepository, dispatch DispatchService, logger *logrus.Logger) RecommendationService {
	return &recommendationService{
		repo:     repo,
		dispatch: dispatch,
		logger:   logger,
	}
}

// GetRecommendation получает рекомендацию по ID
func (s *recommendationService) GetRecommendation(ctx context.Context, id uuid.UUID) (*models.Recommendation, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":           "recommendation",
		"method":            "GetRecommendation",
		"recommendation_id": id,
	})

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get recommendation from repository")
		return nil, fmt.Errorf("service: could not get recommendation: %w", err)
	}
	return rec, nil
}

// ListRecommendations возвращает все рекомендации, новые первыми
func (s *recommendationService) ListRecommendations(ctx context.Context) ([]*models.Recommendation, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list recommendations from repository")
		return nil, fmt.Errorf("service: could not list recommendations: %w", err)
	}
	return recs, nil
}

// ListByIncident возвращает рекомендации для инцидента, новые первыми
func (s *recommendationService) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Recommendation, error) {
	recs, err := s.repo.ListByIncident(ctx, incidentID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list incident recommendations from repository")
		return nil, fmt.Errorf("service: could not list recommendations: %w", err)
	}
	return recs, nil
}

// AcceptRecommendation принимает PENDING-рекомендацию, назначая выбранный
// юнит на ее инцидент. Принятым может быть любой валидный юнит, не
// обязательно первый в ранжированном списке. Само назначение и перевод
// рекомендации в ACCEPTED выполняются одной транзакцией координатора.
func (s *recommendationService) AcceptRecommendation(ctx context.Context, id, unitID uuid.UUID) (*AssignResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":           "recommendation",
		"method":            "AcceptRecommendation",
		"recommendation_id": id,
		"unit_id":           unitID,
	})
	log.Info("Attempting to accept recommendation")

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get recommendation from repository")
		return nil, fmt.Errorf("service: could not get recommendation: %w", err)
	}
	if rec.Status != models.RecommendationStatusPending {
		return nil, fmt.Errorf("recommendation %s not pending: %w", id, apperr.ErrConflict)
	}

	result, err := s.dispatch.AssignUnitToIncident(ctx, unitID, rec.IncidentID, &id, models.UnitStatusDispatched)
	if err != nil {
		return nil, err
	}

	log.Info("Recommendation accepted successfully")
	return result, nil
}

// RejectRecommendation помечает PENDING-рекомендацию отклоненной.
// Операция затрагивает одну запись, транзакция на несколько сущностей
// не требуется.
func (s *recommendationService) RejectRecommendation(ctx context.Context, id uuid.UUID) (*models.Recommendation, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":           "recommendation",
		"method":            "RejectRecommendation",
		"recommendation_id": id,
	})
	log.Info("Attempting to reject recommendation")

	if err := s.repo.Reject(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to reject recommendation")
		return nil, fmt.Errorf("service: could not reject recommendation: %w", err)
	}

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get recommendation: %w", err)
	}

	log.Info("Recommendation rejected successfully")
	return rec, nil
}
