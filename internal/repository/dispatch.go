package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/shenikar/emergency_dispatch_system/internal/service"
)

type DispatchRepository struct {
	db *pgxpool.Pool
}

func NewDispatchRepository(db *pgxpool.Pool) service.DispatchRepository {
	return &DispatchRepository{
		db: db,
	}
}

// Assign выполняет назначение юнита на инцидент одной транзакцией.
// Либо обновляются все записи (инцидент, юнит, опционально рекомендация),
// либо ни одна. Блокировки берутся в фиксированном порядке:
// инцидент -> юнит -> рекомендация, оба входных пути используют один и
// тот же примитив, поэтому взаимная блокировка исключена.
func (r *DispatchRepository) Assign(ctx context.Context, p service.AssignParams) (*service.AssignResult, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin dispatch transaction: %w", apperr.ErrTransient)
	}
	// Откат безопасен после успешного коммита - он станет no-op
	defer tx.Rollback(ctx)

	result, err := r.assignInTx(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyTxError(err, "failed to commit dispatch transaction")
	}
	return result, nil
}

func (r *DispatchRepository) assignInTx(ctx context.Context, tx pgx.Tx, p service.AssignParams) (*service.AssignResult, error) {
	// Блокируем строку инцидента до конца транзакции
	incident, err := lockIncident(ctx, tx, p.IncidentID)
	if err != nil {
		return nil, err
	}

	if incident.Status.IsTerminal() {
		return nil, fmt.Errorf("incident %s is resolved: %w", incident.ID, apperr.ErrConflict)
	}
	if incident.HasUnit(p.UnitID) {
		return nil, fmt.Errorf("unit already assigned to this incident: %w", apperr.ErrConflict)
	}

	// Блокируем строку юнита
	unit, err := lockUnit(ctx, tx, p.UnitID)
	if err != nil {
		return nil, err
	}

	if unit.Status != models.UnitStatusAvailable {
		return nil, fmt.Errorf("unit is not available, current status %s: %w", unit.Status, apperr.ErrConflict)
	}

	oldIncidentStatus := incident.Status
	newIncidentStatus := incident.Status
	if incident.Status == models.IncidentStatusPending {
		newIncidentStatus = models.IncidentStatusDispatched
	}

	// Добавляем юнит к инциденту
	err = tx.QueryRow(ctx, `
		UPDATE incidents SET
			dispatched_units = array_append(dispatched_units, $2),
			status = $3,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at;
	`, incident.ID, p.UnitID, newIncidentStatus).Scan(&incident.UpdatedAt)
	if err != nil {
		return nil, classifyTxError(err, "failed to update incident in dispatch")
	}

	// Переводим юнит в целевой статус и привязываем к инциденту.
	// Повторная проверка статуса в WHERE - барьер перед коммитом:
	// если конкурирующая транзакция успела изменить юнит, строк не будет.
	incidentID := incident.ID
	cmdTag, err := tx.Exec(ctx, `
		UPDATE units SET
			status = $2,
			current_incident = $3,
			last_updated = NOW()
		WHERE id = $1 AND status = $4;
	`, unit.ID, p.TargetStatus, incidentID, models.UnitStatusAvailable)
	if err != nil {
		return nil, classifyTxError(err, "failed to update unit in dispatch")
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, fmt.Errorf("unit %s changed concurrently: %w", unit.ID, apperr.ErrConflict)
	}

	// Помечаем рекомендацию принятой в той же транзакции
	if p.RecommendationID != nil {
		cmdTag, err := tx.Exec(ctx, `
			UPDATE recommendations SET
				status = $2,
				accepted_unit_id = $3
			WHERE id = $1 AND status = $4;
		`, *p.RecommendationID, models.RecommendationStatusAccepted, unit.ID, models.RecommendationStatusPending)
		if err != nil {
			return nil, classifyTxError(err, "failed to update recommendation in dispatch")
		}
		if cmdTag.RowsAffected() == 0 {
			return nil, fmt.Errorf("recommendation %s not pending: %w", *p.RecommendationID, apperr.ErrConflict)
		}
	}

	incident.Status = newIncidentStatus
	incident.DispatchedUnits = append(incident.DispatchedUnits, p.UnitID)
	unit.Status = p.TargetStatus
	unit.CurrentIncident = &incidentID

	return &service.AssignResult{
		Incident:          incident,
		Unit:              unit,
		OldIncidentStatus: oldIncidentStatus,
	}, nil
}

// lockIncident читает инцидент под блокировкой FOR UPDATE
func lockIncident(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1 FOR UPDATE;`

	incident, err := scanIncident(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, apperr.ErrNotFound)
		}
		return nil, classifyTxError(err, "failed to lock incident")
	}
	return incident, nil
}

// lockUnit читает юнит под блокировкой FOR UPDATE
func lockUnit(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1 FOR UPDATE;`

	unit, err := scanUnit(tx.QueryRow(ctx, query, id), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("unit with id %s: %w", id, apperr.ErrNotFound)
		}
		return nil, classifyTxError(err, "failed to lock unit")
	}
	return unit, nil
}

// classifyTxError отделяет восстановимые сбои транзакции от остальных.
// Сериализационный сбой и дедлок допускают повтор и помечаются ErrTransient.
func classifyTxError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return fmt.Errorf("%s: %w", msg, apperr.ErrTransient)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
