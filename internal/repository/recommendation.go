package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/shenikar/emergency_dispatch_system/internal/service"
)

type RecommendationRepository struct {
	db *pgxpool.Pool
}

func NewRecommendationRepository(db *pgxpool.Pool) service.RecommendationRepository {
	return &RecommendationRepository{
		db: db,
	}
}

// Create сохраняет ранжированный список от рекомендательного сервиса как есть
func (r *RecommendationRepository) Create(ctx context.Context, rec *models.Recommendation) error {
	suggestions, err := json.Marshal(rec.Suggestions)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}

	query := `
		INSERT INTO recommendations (incident_id, suggestions, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at;
	`
	err = r.db.QueryRow(ctx, query,
		rec.IncidentID,
		suggestions,
		rec.Status,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}
	return nil
}

const recommendationColumns = `
			id,
			incident_id,
			suggestions,
			status,
			accepted_unit_id,
			created_at`

// scanRecommendation читает одну строку рекомендации
func scanRecommendation(row pgx.Row) (*models.Recommendation, error) {
	rec := &models.Recommendation{}
	var suggestions []byte

	err := row.Scan(
		&rec.ID,
		&rec.IncidentID,
		&suggestions,
		&rec.Status,
		&rec.AcceptedUnitID,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(suggestions, &rec.Suggestions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suggestions: %w", err)
	}
	return rec, nil
}

// GetByID возвращает рекомендацию по ее UUID
func (r *RecommendationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE id = $1;`

	rec, err := scanRecommendation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("recommendation with id %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get recommendation by id: %w", err)
	}
	return rec, nil
}

// List возвращает все рекомендации, новые первыми
func (r *RecommendationRepository) List(ctx context.Context) ([]*models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + `
		FROM recommendations
		ORDER BY created_at DESC;
	`
	return r.queryRecommendations(ctx, query)
}

// ListByIncident возвращает рекомендации для инцидента, новые первыми
func (r *RecommendationRepository) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE incident_id = $1
		ORDER BY created_at DESC;
	`
	return r.queryRecommendations(ctx, query, incidentID)
}

func (r *RecommendationRepository) queryRecommendations(ctx context.Context, query string, args ...any) ([]*models.Recommendation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer rows.Close()

	recs := make([]*models.Recommendation, 0)
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return recs, nil
}

// Reject помечает PENDING-рекомендацию как REJECTED.
// Запись, покинувшая PENDING, неизменяема: условный UPDATE с нулем
// затронутых строк означает, что рекомендация уже рассмотрена.
func (r *RecommendationRepository) Reject(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE recommendations SET
			status = $2
		WHERE id = $1 AND status = $3;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, models.RecommendationStatusRejected, models.RecommendationStatusPending)
	if err != nil {
		return fmt.Errorf("failed to reject recommendation: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Либо записи нет, либо она уже не PENDING
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("recommendation %s not pending: %w", id, apperr.ErrConflict)
	}
	return nil
}
