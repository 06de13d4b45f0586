package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

// Request - снимок инцидента, отправляемый рекомендательному сервису
type Request struct {
	IncidentType           models.IncidentType `json:"incidentType"`
	Priority               int                 `json:"priority"`
	Location               []float64           `json:"location"` // [долгота, широта]
	CurrentlyAssignedUnits []string            `json:"currentlyAssignedUnits"`
	IncidentID             string              `json:"incidentId"`
}

//go:generate mockgen -source=client.go -destination=mocks/recommender_mock.go -package=mocks

// Recommender - узкий контракт внешнего рекомендательного сервиса.
// Логика ранжирования непрозрачна для ядра: мы только запрашиваем
// список и сохраняем его как есть.
type Recommender interface {
	GetRecommendations(ctx context.Context, req Request) ([]models.SuggestedUnit, error)
}

// HTTPRecommender - реализация Recommender поверх HTTP
type HTTPRecommender struct {
	url        string
	httpClient *http.Client
}

// NewHTTPRecommender создает клиент рекомендательного сервиса
func NewHTTPRecommender(url string, timeout time.Duration) *HTTPRecommender {
	return &HTTPRecommender{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetRecommendations синхронно запрашивает ранжированный список юнитов.
// Любой сбой сети, не-2xx ответ или нечитаемое тело - apperr.ErrUpstream.
func (r *HTTPRecommender) GetRecommendations(ctx context.Context, req Request) ([]models.SuggestedUnit, error) {
	if r.url == "" {
		return nil, fmt.Errorf("recommender URL is not configured: %w", apperr.ErrUpstream)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recommender request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create recommender request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("recommender call failed: %w", apperr.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("recommender returned status %d: %w", resp.StatusCode, apperr.ErrUpstream)
	}

	var suggestions []models.SuggestedUnit
	if err := json.NewDecoder(resp.Body).Decode(&suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode recommender response: %w", apperr.ErrUpstream)
	}

	return suggestions, nil
}
