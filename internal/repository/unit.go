package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/shenikar/emergency_dispatch_system/internal/service"
)

type UnitRepository struct {
	db *pgxpool.Pool
}

func NewUnitRepository(db *pgxpool.Pool) service.UnitRepository {
	return &UnitRepository{
		db: db,
	}
}

// Create создает новую запись о юните в бд.
// Дубликат позывного нарушает уникальный индекс и возвращается как конфликт.
func (r *UnitRepository) Create(ctx context.Context, unit *models.Unit) error {
	query := `
		INSERT INTO units (call_sign, type, capabilities, status, location)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326))
		RETURNING id, last_updated;
	`
	capabilities := make([]string, len(unit.Capabilities))
	for i, c := range unit.Capabilities {
		capabilities[i] = string(c)
	}

	err := r.db.QueryRow(ctx, query,
		unit.CallSign,
		unit.Type,
		capabilities,
		unit.Status,
		unit.Longitude,
		unit.Latitude,
	).Scan(&unit.ID, &unit.LastUpdated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("unit with call sign %s already exists: %w", unit.CallSign, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create unit: %w", err)
	}
	return nil
}

const unitColumns = `
			id,
			call_sign,
			type,
			capabilities,
			status,
			ST_Y(location::geometry) as latitude,
			ST_X(location::geometry) as longitude,
			current_incident,
			last_updated`

// scanUnit читает одну строку юнита
func scanUnit(row pgx.Row, withDistance bool) (*models.Unit, error) {
	unit := &models.Unit{}
	var capabilities []string

	dest := []any{
		&unit.ID,
		&unit.CallSign,
		&unit.Type,
		&capabilities,
		&unit.Status,
		&unit.Latitude,
		&unit.Longitude,
		&unit.CurrentIncident,
		&unit.LastUpdated,
	}
	if withDistance {
		dest = append(dest, &unit.DistanceMeters)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	unit.Capabilities = make([]models.Capability, len(capabilities))
	for i, c := range capabilities {
		unit.Capabilities[i] = models.Capability(c)
	}
	return unit, nil
}

// GetByID возвращает юнит по его UUID
func (r *UnitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1;`

	unit, err := scanUnit(r.db.QueryRow(ctx, query, id), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("unit with id %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get unit by id: %w", err)
	}
	return unit, nil
}

// List возвращает список юнитов с пагинацией
func (r *UnitRepository) List(ctx context.Context, page, pageSize int) ([]*models.Unit, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + unitColumns + `
		FROM units
		ORDER BY call_sign ASC
		LIMIT $1 OFFSET $2;
	`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	units := make([]*models.Unit, 0)
	for rows.Next() {
		unit, err := scanUnit(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit row: %w", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return units, nil
}

// UpdateStatus переводит юнит из статуса from в статус to и выставляет
// привязку к инциденту. Условие WHERE по старому статусу - защита от
// конкурирующего изменения: ноль строк означает конфликт.
func (r *UnitRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.UnitStatus, currentIncident *uuid.UUID) error {
	query := `
		UPDATE units SET
			status = $2,
			current_incident = $3,
			last_updated = NOW()
		WHERE id = $1 AND status = $4;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, to, currentIncident, from)
	if err != nil {
		return fmt.Errorf("failed to update unit status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("unit %s status changed concurrently: %w", id, apperr.ErrConflict)
	}
	return nil
}

// UpdateLocation обновляет координаты юнита и возвращает новый last_updated
func (r *UnitRepository) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lon float64) (time.Time, error) {
	query := `
		UPDATE units SET
			location = ST_SetSRID(ST_MakePoint($2, $3), 4326),
			last_updated = NOW()
		WHERE id = $1
		RETURNING last_updated;
	`
	var lastUpdated time.Time
	if err := r.db.QueryRow(ctx, query, id, lon, lat).Scan(&lastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, fmt.Errorf("unit with id %s: %w", id, apperr.ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("failed to update unit location: %w", err)
	}
	return lastUpdated, nil
}

// FindNearestAvailable возвращает доступные юниты в радиусе maxDistance метров
// от точки, по возрастанию расстояния. Равные расстояния упорядочиваются по id,
// чтобы результат был детерминированным для одинакового ввода.
func (r *UnitRepository) FindNearestAvailable(ctx context.Context, lat, lon float64, maxDistance, limit int) ([]*models.Unit, error) {
	query := `SELECT ` + unitColumns + `,
			ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance_meters
		FROM units
		WHERE
			status = 'AVAILABLE'
			AND ST_DWithin(
				location,
				ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
				$3
			)
		ORDER BY distance_meters ASC, id ASC
		LIMIT $4;
	`
	rows, err := r.db.Query(ctx, query, lon, lat, maxDistance, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearest available units: %w", err)
	}
	defer rows.Close()

	units := make([]*models.Unit, 0)
	for rows.Next() {
		unit, err := scanUnit(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit row in FindNearestAvailable: %w", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration in FindNearestAvailable: %w", err)
	}
	return units, nil
}
