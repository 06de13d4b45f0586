package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/shenikar/emergency_dispatch_system/internal/events"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=unit.go -destination=mocks/unit_mock.go -package=mocks

// UnitRepository определяет контракт для работы с бд юнитов
type UnitRepository interface {
	Create(ctx context.Context, unit *models.Unit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	List(ctx context.Context, page, pageSize int) ([]*models.Unit, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.UnitStatus, currentIncident *uuid.UUID) error
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lon float64) (time.Time, error)
	FindNearestAvailable(ctx context.Context, lat, lon float64, maxDistance, limit int) ([]*models.Unit, error)
}

// UnitService определяет контракт для бизнес-логики управления юнитами
type UnitService interface {
	CreateUnit(ctx context.Context, unit *models.Unit) error
	GetUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	ListUnits(ctx context.Context, page, pageSize int) ([]*models.Unit, error)
	UpdateUnitStatus(ctx context.Context, id uuid.UUID, status models.UnitStatus) (*models.Unit, error)
	UpdateUnitLocation(ctx context.Context, id uuid.UUID, lat, lon float64) (*models.Unit, error)
	FindNearestAvailable(ctx context.Context, lat, lon float64, maxDistance, limit int) ([]*models.Unit, error)
	SetUnitEnRoute(ctx context.Context, id uuid.UUID) (*models.Unit, error)
}

type unitService struct {
	repo      UnitRepository
	publisher events.Publisher
	logger    *logrus.Logger
	cfg       *config.Config
}

func NewUnitService(repo UnitRepository, publisher events.Publisher, logger *logrus.Logger, cfg *config.Config) UnitService {
	return &unitService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateUnit создает юнит в статусе AVAILABLE
func (s *unitService) CreateUnit(ctx context.Context, unit *models.Unit) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "unit",
		"method":    "CreateUnit",
		"call_sign": unit.CallSign,
	})
	log.Info("Attempting to create a new unit")

	if !unit.Type.IsValid() {
		return fmt.Errorf("invalid unit type %q: %w", unit.Type, apperr.ErrValidation)
	}
	for _, c := range unit.Capabilities {
		if !c.IsValid() {
			return fmt.Errorf("invalid capability %q: %w", c, apperr.ErrValidation)
		}
	}

	unit.Status = models.UnitStatusAvailable
	unit.CurrentIncident = nil
	if err := s.repo.Create(ctx, unit); err != nil {
		log.WithError(err).Error("Failed to create unit in repository")
		return fmt.Errorf("service: could not create unit: %w", err)
	}

	log.WithField("unit_id", unit.ID).Info("Unit created successfully")
	s.publish(ctx, log, events.TypeUnitCreated, unit)
	return nil
}

// GetUnit получает юнит по ID
func (s *unitService) GetUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "unit",
		"method":  "GetUnit",
		"unit_id": id,
	})

	unit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get unit from repository")
		return nil, fmt.Errorf("service: could not get unit: %w", err)
	}
	return unit, nil
}

// ListUnits возвращает список юнитов с пагинацией
func (s *unitService) ListUnits(ctx context.Context, page, pageSize int) ([]*models.Unit, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "unit",
		"method":    "ListUnits",
		"page":      page,
		"page_size": pageSize,
	})

	units, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list units from repository")
		return nil, fmt.Errorf("service: could not list units: %w", err)
	}

	log.WithField("count", len(units)).Info("Units listed successfully")
	return units, nil
}

// UpdateUnitStatus переводит юнит в новый статус, сохраняя инвариант:
// привязка к инциденту есть тогда и только тогда, когда статус активный.
// Возврат в AVAILABLE или OUT_OF_SERVICE снимает привязку; перевод в
// активный статус без назначенного инцидента отклоняется - ребро
// AVAILABLE -> DISPATCHED пишет только координатор назначений.
func (s *unitService) UpdateUnitStatus(ctx context.Context, id uuid.UUID, status models.UnitStatus) (*models.Unit, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":    "unit",
		"method":     "UpdateUnitStatus",
		"unit_id":    id,
		"new_status": status,
	})

	if !status.IsValid() {
		return nil, fmt.Errorf("invalid unit status %q: %w", status, apperr.ErrValidation)
	}

	unit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to update status of a non-existent unit")
		return nil, fmt.Errorf("service: could not get unit: %w", err)
	}

	oldStatus := unit.Status
	if oldStatus == status {
		return unit, nil
	}

	var currentIncident *uuid.UUID
	if status.RequiresIncident() {
		if unit.CurrentIncident == nil {
			return nil, fmt.Errorf("unit is not assigned to any incident: %w", apperr.ErrConflict)
		}
		currentIncident = unit.CurrentIncident
	}

	if err := s.repo.UpdateStatus(ctx, id, oldStatus, status, currentIncident); err != nil {
		log.WithError(err).Error("Failed to update unit status in repository")
		return nil, fmt.Errorf("service: could not update unit status: %w", err)
	}
	unit.Status = status
	unit.CurrentIncident = currentIncident

	log.WithField("old_status", oldStatus).Info("Unit status updated successfully")
	s.publish(ctx, log, events.TypeUnitStatusChanged, events.UnitStatusChangedPayload{
		UnitID:    unit.ID,
		CallSign:  unit.CallSign,
		OldStatus: oldStatus,
		NewStatus: status,
	})
	return unit, nil
}

// UpdateUnitLocation обновляет координаты юнита
func (s *unitService) UpdateUnitLocation(ctx context.Context, id uuid.UUID, lat, lon float64) (*models.Unit, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "unit",
		"method":  "UpdateUnitLocation",
		"unit_id": id,
	})

	unit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to update location of a non-existent unit")
		return nil, fmt.Errorf("service: could not get unit: %w", err)
	}

	oldLat, oldLon := unit.Latitude, unit.Longitude
	updatedAt, err := s.repo.UpdateLocation(ctx, id, lat, lon)
	if err != nil {
		log.WithError(err).Error("Failed to update unit location in repository")
		return nil, fmt.Errorf("service: could not update unit location: %w", err)
	}
	unit.Latitude = lat
	unit.Longitude = lon
	unit.LastUpdated = updatedAt

	s.publish(ctx, log, events.TypeUnitLocationChanged, events.UnitLocationChangedPayload{
		UnitID:       unit.ID,
		CallSign:     unit.CallSign,
		Latitude:     lat,
		Longitude:    lon,
		OldLatitude:  oldLat,
		OldLongitude: oldLon,
		Timestamp:    updatedAt,
	})
	return unit, nil
}

// FindNearestAvailable возвращает доступные юниты по возрастанию расстояния
// от точки. Нулевые ограничения заменяются значениями из конфигурации.
func (s *unitService) FindNearestAvailable(ctx context.Context, lat, lon float64, maxDistance, limit int) ([]*models.Unit, error) {
	if maxDistance <= 0 {
		maxDistance = s.cfg.NearestMaxDistanceM
	}
	if limit <= 0 {
		limit = s.cfg.NearestLimit
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":      "unit",
		"method":       "FindNearestAvailable",
		"max_distance": maxDistance,
		"limit":        limit,
	})

	units, err := s.repo.FindNearestAvailable(ctx, lat, lon, maxDistance, limit)
	if err != nil {
		log.WithError(err).Error("Failed to find nearest available units")
		return nil, fmt.Errorf("service: could not find nearest units: %w", err)
	}

	log.WithField("count", len(units)).Info("Nearest available units found")
	return units, nil
}

// SetUnitEnRoute переводит назначенный юнит в статус EN_ROUTE
func (s *unitService) SetUnitEnRoute(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "unit",
		"method":  "SetUnitEnRoute",
		"unit_id": id,
	})

	unit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to set en-route for a non-existent unit")
		return nil, fmt.Errorf("service: could not get unit: %w", err)
	}

	if unit.CurrentIncident == nil {
		return nil, fmt.Errorf("unit is not assigned to any incident: %w", apperr.ErrConflict)
	}
	oldStatus := unit.Status
	if oldStatus == models.UnitStatusEnRoute {
		return unit, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, oldStatus, models.UnitStatusEnRoute, unit.CurrentIncident); err != nil {
		log.WithError(err).Error("Failed to set unit en-route in repository")
		return nil, fmt.Errorf("service: could not set unit en-route: %w", err)
	}
	unit.Status = models.UnitStatusEnRoute

	log.Info("Unit set en-route successfully")
	s.publish(ctx, log, events.TypeUnitStatusChanged, events.UnitStatusChangedPayload{
		UnitID:    unit.ID,
		CallSign:  unit.CallSign,
		OldStatus: oldStatus,
		NewStatus: models.UnitStatusEnRoute,
	})
	return unit, nil
}

// publish отправляет событие; сбой публикации только логируется
func (s *unitService) publish(ctx context.Context, log *logrus.Entry, t events.Type, payload any) {
	event, err := events.New(t, payload)
	if err != nil {
		log.WithError(err).Error("Failed to build event")
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Error("Failed to publish event")
	}
}
