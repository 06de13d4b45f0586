package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/apperr"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/shenikar/emergency_dispatch_system/internal/service"
	"github.com/shenikar/emergency_dispatch_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testMocks struct {
	incident       *mocks.MockIncidentService
	unit           *mocks.MockUnitService
	dispatch       *mocks.MockDispatchService
	recommendation *mocks.MockRecommendationService
}

// newTestHandler создает новый экземпляр Handler с мокированными сервисами
func newTestHandler(t *testing.T) (*testMocks, *gin.Engine) {
	ctrl := gomock.NewController(t)
	m := &testMocks{
		incident:       mocks.NewMockIncidentService(ctrl),
		unit:           mocks.NewMockUnitService(ctrl),
		dispatch:       mocks.NewMockDispatchService(ctrl),
		recommendation: mocks.NewMockRecommendationService(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		APIKeys: []string{"test-api-key"},
	}

	handler := NewHandler(m.incident, m.unit, m.dispatch, m.recommendation, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return m, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func apiKey() map[string]string {
	return map[string]string{"X-API-Key": "test-api-key"}
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestCreateIncident_Success(t *testing.T) {
	m, router := newTestHandler(t)
	incidentID := uuid.New()
	reqBody := CreateIncidentRequest{
		Type:        "FIRE",
		Priority:    2,
		Latitude:    floatPtr(55.75),
		Longitude:   floatPtr(37.61),
		Address:     "Red Square 1",
		Description: "Building fire",
	}

	m.incident.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			inc.ID = incidentID
			inc.Status = models.IncidentStatusPending
			inc.DispatchedUnits = []uuid.UUID{}
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, "PENDING", resp.Status)
}

func TestCreateIncident_InvalidJSON(t *testing.T) {
	m, router := newTestHandler(t)

	m.incident.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBufferString(`{"type": "FIRE"`), apiKey())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateIncident_ValidationError(t *testing.T) {
	m, router := newTestHandler(t)
	reqBody := CreateIncidentRequest{ // Недопустимый тип
		Type:        "EARTHQUAKE",
		Priority:    2,
		Latitude:    floatPtr(55.75),
		Longitude:   floatPtr(37.61),
		Address:     "Red Square 1",
		Description: "Shaking",
	}

	m.incident.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Type' failed on the 'oneof' tag")
}

func TestCreateIncident_ZeroCoordinatesAccepted(t *testing.T) {
	m, router := newTestHandler(t)
	incidentID := uuid.New()
	// Точка на пересечении экватора и нулевого меридиана валидна
	reqBody := CreateIncidentRequest{
		Type:        "POLICE",
		Priority:    3,
		Latitude:    floatPtr(0),
		Longitude:   floatPtr(0),
		Address:     "Gulf of Guinea",
		Description: "Vessel in distress",
	}

	m.incident.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			assert.Equal(t, 0.0, inc.Latitude)
			assert.Equal(t, 0.0, inc.Longitude)
			inc.ID = incidentID
			inc.Status = models.IncidentStatusPending
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateIncident_MissingCoordinatesRejected(t *testing.T) {
	m, router := newTestHandler(t)

	m.incident.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	body := `{"type":"FIRE","priority":2,"address":"Red Square 1","description":"Building fire"}`
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBufferString(body), apiKey())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Latitude' failed on the 'required' tag")
}

func TestGetIncident_NotFound(t *testing.T) {
	m, router := newTestHandler(t)
	incidentID := uuid.New()
	notFound := fmt.Errorf("incident with id %s: %w", incidentID, apperr.ErrNotFound)

	m.incident.EXPECT().GetIncident(gomock.Any(), incidentID).Return(nil, notFound).Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID), nil, apiKey())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetIncident_InvalidID(t *testing.T) {
	m, router := newTestHandler(t)

	m.incident.EXPECT().GetIncident(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/incidents/invalid-uuid", nil, apiKey())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid incident ID")
}

func TestUpdateIncidentStatus_Conflict(t *testing.T) {
	m, router := newTestHandler(t)
	incidentID := uuid.New()
	reqBody := UpdateIncidentStatusRequest{Status: "EN_ROUTE"}
	conflict := fmt.Errorf("cannot transition incident from ON_SCENE to EN_ROUTE: %w", apperr.ErrConflict)

	m.incident.EXPECT().
		UpdateIncidentStatus(gomock.Any(), incidentID, models.IncidentStatusEnRoute).
		Return(nil, conflict).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PATCH", fmt.Sprintf("/api/v1/incidents/%s/status", incidentID), bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDispatchUnit_Success(t *testing.T) {
	m, router := newTestHandler(t)
	incidentID := uuid.New()
	unitID := uuid.New()
	reqBody := DispatchUnitRequest{UnitID: unitID.String()}
	result := &service.AssignResult{
		Incident: &models.Incident{
			ID:              incidentID,
			Status:          models.IncidentStatusDispatched,
			DispatchedUnits: []uuid.UUID{unitID},
		},
		Unit: &models.Unit{
			ID:              unitID,
			CallSign:        "ENGINE-7",
			Status:          models.UnitStatusDispatched,
			CurrentIncident: &incidentID,
		},
		OldIncidentStatus: models.IncidentStatusPending,
	}

	m.dispatch.EXPECT().
		AssignUnitToIncident(gomock.Any(), unitID, incidentID, nil, models.UnitStatusDispatched).
		Return(result, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/dispatch", incidentID), bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp DispatchResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "DISPATCHED", resp.Incident.Status)
	assert.Equal(t, "DISPATCHED", resp.Unit.Status)
	assert.Equal(t, unitID, resp.Unit.ID)
}

func TestDispatchUnit_WithRecommendation(t *testing.T) {
	m, router := newTestHandler(t)
	incidentID := uuid.New()
	unitID := uuid.New()
	recID := uuid.New()
	reqBody := DispatchUnitRequest{UnitID: unitID.String(), RecommendationID: recID.String()}
	result := &service.AssignResult{
		Incident: &models.Incident{ID: incidentID, Status: models.IncidentStatusDispatched, DispatchedUnits: []uuid.UUID{unitID}},
		Unit:     &models.Unit{ID: unitID, Status: models.UnitStatusDispatched, CurrentIncident: &incidentID},
	}

	m.dispatch.EXPECT().
		AssignUnitToIncident(gomock.Any(), unitID, incidentID, &recID, models.UnitStatusDispatched).
		Return(result, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/dispatch", incidentID), bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDispatchUnit_UnitUnavailable(t *testing.T) {
	m, router := newTestHandler(t)
	incidentID := uuid.New()
	unitID := uuid.New()
	reqBody := DispatchUnitRequest{UnitID: unitID.String()}
	conflict := fmt.Errorf("unit is not available: %w", apperr.ErrConflict)

	m.dispatch.EXPECT().
		AssignUnitToIncident(gomock.Any(), unitID, incidentID, nil, models.UnitStatusDispatched).
		Return(nil, conflict).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/dispatch", incidentID), bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAssignUnit_Success(t *testing.T) {
	m, router := newTestHandler(t)
	incidentID := uuid.New()
	unitID := uuid.New()
	reqBody := AssignUnitRequest{IncidentID: incidentID.String()}
	result := &service.AssignResult{
		Incident: &models.Incident{ID: incidentID, Status: models.IncidentStatusDispatched, DispatchedUnits: []uuid.UUID{unitID}},
		Unit:     &models.Unit{ID: unitID, Status: models.UnitStatusEnRoute, CurrentIncident: &incidentID},
	}

	m.dispatch.EXPECT().
		AssignUnitToIncident(gomock.Any(), unitID, incidentID, nil, models.UnitStatusEnRoute).
		Return(result, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/units/%s/assign", unitID), bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp DispatchResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "EN_ROUTE", resp.Unit.Status)
}

func TestRecommendUnits_UpstreamFailure(t *testing.T) {
	m, router := newTestHandler(t)
	incidentID := uuid.New()
	upstream := fmt.Errorf("recommender returned status 503: %w", apperr.ErrUpstream)

	m.incident.EXPECT().
		RequestRecommendations(gomock.Any(), incidentID).
		Return(nil, upstream).
		Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/recommend-units", incidentID), nil, apiKey())

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestFindNearestUnits_Success(t *testing.T) {
	m, router := newTestHandler(t)
	expected := []*models.Unit{
		{ID: uuid.New(), CallSign: "MEDIC-1", Status: models.UnitStatusAvailable, DistanceMeters: 800},
		{ID: uuid.New(), CallSign: "MEDIC-2", Status: models.UnitStatusAvailable, DistanceMeters: 1500},
	}

	m.unit.EXPECT().
		FindNearestAvailable(gomock.Any(), 55.75, 37.61, 10000, 3).
		Return(expected, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/units/available/nearest?latitude=55.75&longitude=37.61&maxDistance=10000&limit=3", nil, apiKey())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []UnitResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Len(t, resp, 2)
	assert.Equal(t, "MEDIC-1", resp[0].CallSign)
}

func TestFindNearestUnits_MissingCoordinates(t *testing.T) {
	m, router := newTestHandler(t)

	m.unit.EXPECT().FindNearestAvailable(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/units/available/nearest?latitude=55.75", nil, apiKey())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid longitude")
}

func TestUpdateUnitLocation_Success(t *testing.T) {
	m, router := newTestHandler(t)
	unitID := uuid.New()
	reqBody := UpdateUnitLocationRequest{Coordinates: []float64{37.62, 55.76}}
	updated := &models.Unit{
		ID:        unitID,
		CallSign:  "PATROL-5",
		Status:    models.UnitStatusAvailable,
		Latitude:  55.76,
		Longitude: 37.62,
	}

	// coordinates в порядке [долгота, широта]
	m.unit.EXPECT().
		UpdateUnitLocation(gomock.Any(), unitID, 55.76, 37.62).
		Return(updated, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PATCH", fmt.Sprintf("/api/v1/units/%s/location", unitID), bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateUnit_DuplicateCallSign(t *testing.T) {
	m, router := newTestHandler(t)
	reqBody := CreateUnitRequest{
		CallSign:  "MEDIC-1",
		Type:      "AMBULANCE",
		Latitude:  floatPtr(55.75),
		Longitude: floatPtr(37.61),
	}
	conflict := fmt.Errorf("unit with call sign MEDIC-1 already exists: %w", apperr.ErrConflict)

	m.unit.EXPECT().CreateUnit(gomock.Any(), gomock.Any()).Return(conflict).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/units", bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAcceptRecommendation_Success(t *testing.T) {
	m, router := newTestHandler(t)
	recID := uuid.New()
	unitID := uuid.New()
	incidentID := uuid.New()
	reqBody := AcceptRecommendationRequest{UnitID: unitID.String()}
	result := &service.AssignResult{
		Incident: &models.Incident{ID: incidentID, Status: models.IncidentStatusDispatched, DispatchedUnits: []uuid.UUID{unitID}},
		Unit:     &models.Unit{ID: unitID, Status: models.UnitStatusDispatched, CurrentIncident: &incidentID},
	}

	m.recommendation.EXPECT().
		AcceptRecommendation(gomock.Any(), recID, unitID).
		Return(result, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/recommendations/%s/accept", recID), bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAcceptRecommendation_NotPending(t *testing.T) {
	m, router := newTestHandler(t)
	recID := uuid.New()
	unitID := uuid.New()
	reqBody := AcceptRecommendationRequest{UnitID: unitID.String()}
	conflict := fmt.Errorf("recommendation %s not pending: %w", recID, apperr.ErrConflict)

	m.recommendation.EXPECT().
		AcceptRecommendation(gomock.Any(), recID, unitID).
		Return(nil, conflict).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/recommendations/%s/accept", recID), bytes.NewBuffer(bodyBytes), apiKey())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRejectRecommendation_Success(t *testing.T) {
	m, router := newTestHandler(t)
	recID := uuid.New()
	rejected := &models.Recommendation{ID: recID, Status: models.RecommendationStatusRejected}

	m.recommendation.EXPECT().RejectRecommendation(gomock.Any(), recID).Return(rejected, nil).Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/recommendations/%s/reject", recID), nil, apiKey())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp RecommendationResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", resp.Status)
}

func TestHealthCheck_Success(t *testing.T) {
	_, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAPIKeyAuthMiddleware_Success(t *testing.T) {
	// Создаем Gin-роутер и добавляем middleware
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "valid-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuthMiddleware_BearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"Authorization": "Bearer valid-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuthMiddleware_MissingKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil) // Нет API ключа
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key required")
}

func TestAPIKeyAuthMiddleware_InvalidKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "invalid-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}
