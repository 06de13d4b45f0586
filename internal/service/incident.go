package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/shenikar/emergency_dispatch_system/internal/events"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/shenikar/emergency_dispatch_system/internal/recommender"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=incident.go -destination=mocks/incident_mock.go -package=mocks

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	List(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.IncidentStatus) error
	GetFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetCache(ctx context.Context, incident *models.Incident) error
	InvalidateCache(ctx context.Context, id uuid.UUID) error
}

// IncidentService определяет контракт для бизнес-логики управления инцидентами
type IncidentService interface {
	CreateIncident(ctx context.Context, incident *models.Incident) error
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	UpdateIncidentStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus) (*models.Incident, error)
	RequestRecommendations(ctx context.Context, incidentID uuid.UUID) (*models.Recommendation, error)
}

type incidentService struct {
	repo        IncidentRepository
	recRepo     RecommendationRepository
	recommender recommender.Recommender
	publisher   events.Publisher
	logger      *logrus.Logger
	cfg         *config.Config
}

func NewIncidentService(repo IncidentRepository, recRepo RecommendationRepository, rec recommender.Recommender, publisher events.Publisher, logger *logrus.Logger, cfg *config.Config) IncidentService {
	return &incidentService{
		repo:        repo,
		recRepo:     recRepo,
		recommender: rec,
		publisher:   publisher,
		logger:      logger,
		cfg:         cfg,
	}
}

// CreateIncident создает инцидент в статусе PENDING
func (s *incidentService) CreateIncident(ctx context.Context, incident *models.Incident) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "CreateIncident",
		"type":    incident.Type,
	})
	log.Info("Attempting to create a new incident")

	if !incident.Type.IsValid() {
		return fmt.Errorf("invalid incident type %q: %w", incident.Type, apperr.ErrValidation)
	}
	if incident.Priority < 1 || incident.Priority > 5 {
		return fmt.Errorf("priority must be between 1 and 5: %w", apperr.ErrValidation)
	}

	incident.Status = models.IncidentStatusPending
	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return fmt.Errorf("service: could not create incident: %w", err)
	}

	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	s.publish(ctx, log, events.TypeIncidentCreated, incident)
	return nil
}

// GetIncident получает инцидент по ID, сначала из кеша
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (s *incidentService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// UpdateIncidentStatus переводит инцидент в новый статус.
// Переходы только вперед по жизненному циклу, откаты отклоняются.
// Статус DISPATCHED и далее требует хотя бы одного назначенного юнита.
func (s *incidentService) UpdateIncidentStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateIncidentStatus",
		"incident_id": id,
		"new_status":  status,
	})

	if !status.IsValid() {
		return nil, fmt.Errorf("invalid incident status %q: %w", status, apperr.ErrValidation)
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to update status of a non-existent incident")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	oldStatus := incident.Status
	if oldStatus == status {
		return incident, nil
	}
	if !oldStatus.CanTransitionTo(status) {
		return nil, fmt.Errorf("cannot transition incident from %s to %s: %w", oldStatus, status, apperr.ErrConflict)
	}
	if status != models.IncidentStatusPending && len(incident.DispatchedUnits) == 0 {
		return nil, fmt.Errorf("incident has no dispatched units: %w", apperr.ErrConflict)
	}

	if err := s.repo.UpdateStatus(ctx, id, oldStatus, status); err != nil {
		log.WithError(err).Error("Failed to update incident status in repository")
		return nil, fmt.Errorf("service: could not update incident status: %w", err)
	}
	incident.Status = status

	if err := s.repo.InvalidateCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.WithField("old_status", oldStatus).Info("Incident status updated successfully")
	s.publish(ctx, log, events.TypeIncidentStatusChanged, events.IncidentStatusChangedPayload{
		IncidentID: id,
		OldStatus:  oldStatus,
		NewStatus:  status,
	})
	return incident, nil
}

// RequestRecommendations синхронно запрашивает у внешнего сервиса
// ранжированный список юнитов и сохраняет его в журнал рекомендаций.
// При сбое внешнего сервиса запись не создается.
func (s *incidentService) RequestRecommendations(ctx context.Context, incidentID uuid.UUID) (*models.Recommendation, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "RequestRecommendations",
		"incident_id": incidentID,
	})
	log.Info("Requesting unit recommendations")

	incident, err := s.repo.GetByID(ctx, incidentID)
	if err != nil {
		log.WithError(err).Warn("Attempted to request recommendations for a non-existent incident")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	assigned := make([]string, len(incident.DispatchedUnits))
	for i, unitID := range incident.DispatchedUnits {
		assigned[i] = unitID.String()
	}

	suggestions, err := s.recommender.GetRecommendations(ctx, recommender.Request{
		IncidentType:           incident.Type,
		Priority:               incident.Priority,
		Location:               []float64{incident.Longitude, incident.Latitude},
		CurrentlyAssignedUnits: assigned,
		IncidentID:             incident.ID.String(),
	})
	if err != nil {
		log.WithError(err).Error("Recommender call failed")
		return nil, fmt.Errorf("service: could not get recommendations: %w", err)
	}

	rec := &models.Recommendation{
		IncidentID:  incident.ID,
		Suggestions: suggestions,
		Status:      models.RecommendationStatusPending,
	}
	if err := s.recRepo.Create(ctx, rec); err != nil {
		log.WithError(err).Error("Failed to store recommendation")
		return nil, fmt.Errorf("service: could not store recommendation: %w", err)
	}

	log.WithField("recommendation_id", rec.ID).Info("Recommendations stored successfully")
	s.publish(ctx, log, events.TypeNewRecommendations, events.NewRecommendationsPayload{
		IncidentID:       incident.ID,
		RecommendationID: rec.ID,
		Suggestions:      suggestions,
	})
	return rec, nil
}

// publish отправляет событие; сбой публикации не отменяет уже
// зафиксированную операцию и только логируется
func (s *incidentService) publish(ctx context.Context, log *logrus.Entry, t events.Type, payload any) {
	event, err := events.New(t, payload)
	if err != nil {
		log.WithError(err).Error("Failed to build event")
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Error("Failed to publish event")
	}
}
