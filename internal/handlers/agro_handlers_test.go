package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agro-platform/internal/models"
	"agro-platform/internal/repository"
	"agro-platform/internal/services"
	"agro-platform/pkg/logging"
	"agro-platform/pkg/metrics"
)

var (
	handlerMetricsOnce sync.Once
	handlerMetrics     *metrics.Collector
)

// stubRepository backs the handler tests with a fixed record set.
type stubRepository struct {
	records []*models.AgriculturalRecord
	reports []*repository.StoredReport
}

func (s *stubRepository) UpsertRecord(context.Context, *models.AgriculturalRecord) error {
	return nil
}

func (s *stubRepository) UpsertRecordsBatch(_ context.Context, records []*models.AgriculturalRecord) error {
	s.records = append(s.records, records...)
	return nil
}

func (s *stubRepository) GetRecords(_ context.Context, filter repository.RecordFilter) ([]*models.AgriculturalRecord, int, error) {
	var matched []*models.AgriculturalRecord
	for _, r := range s.records {
		if filter.County != nil && r.County != *filter.County {
			continue
		}
		matched = append(matched, r)
	}
	return matched, len(matched), nil
}

func (s *stubRepository) GetCountyRecords(_ context.Context, county string) ([]*models.AgriculturalRecord, error) {
	var matched []*models.AgriculturalRecord
	for _, r := range s.records {
		if r.County == county {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (s *stubRepository) GetCropProductionByYear(context.Context, string, int) ([]repository.YearProduction, error) {
	return []repository.YearProduction{{Year: 2022, Production: 120}, {Year: 2023, Production: 150}}, nil
}

func (s *stubRepository) SaveReport(_ context.Context, report *repository.StoredReport) error {
	s.reports = append(s.reports, report)
	return nil
}

func (s *stubRepository) GetReports(_ context.Context, county string, limit int) ([]*repository.StoredReport, error) {
	var matched []*repository.StoredReport
	for i := len(s.reports) - 1; i >= 0 && len(matched) < limit; i-- {
		if s.reports[i].County == county {
			matched = append(matched, s.reports[i])
		}
	}
	return matched, nil
}

func (s *stubRepository) HealthCheck(context.Context) error { return nil }

func newTestRouter(repo repository.AgriculturalRepository) *mux.Router {
	handlerMetricsOnce.Do(func() {
		handlerMetrics = metrics.NewCollector("agro_handlers_test")
	})
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)

	insightService := services.NewInsightService(repo, logger, handlerMetrics)
	ingestionService := services.NewIngestionService(repo, logger, handlerMetrics)
	handler := NewAgroHandler(insightService, ingestionService, logger, handlerMetrics, 100)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func seededRepo() *stubRepository {
	return &stubRepository{
		records: []*models.AgriculturalRecord{
			{Source: models.SourceKilimoSTAT, DataType: models.DataTypeCropProduction, County: "Nakuru", CropName: "Maize", Year: 2023, Value: 40000},
			{Source: models.SourceKilimoSTAT, DataType: models.DataTypeCropProduction, County: "Nakuru", CropName: "Beans", Year: 2023, Value: 12000},
		},
	}
}

func doRequest(t *testing.T, router *mux.Router, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetInsightsEndpoint(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec := doRequest(t, router, http.MethodGet, "/api/insights?county=Nakuru&farm_size=3&experience=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status  string `json:"status"`
		Insight struct {
			CropRecommendations []models.CropRecommendation `json:"crop_recommendations"`
			ProductivityTips    []string                    `json:"productivity_tips"`
		} `json:"insight"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "ok", body.Status)
	require.NotEmpty(t, body.Insight.CropRecommendations)
	assert.Equal(t, "Maize", body.Insight.CropRecommendations[0].Crop)
	assert.LessOrEqual(t, len(body.Insight.ProductivityTips), 5)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGetInsightsEndpoint_MissingCounty(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec := doRequest(t, router, http.MethodGet, "/api/insights")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "county")
}

func TestGetRecordsEndpoint(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec := doRequest(t, router, http.MethodGet, "/api/records?county=Nakuru&page=1&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var body PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 10, body.Limit)
}

func TestGetRecordsEndpoint_BadYear(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec := doRequest(t, router, http.MethodGet, "/api/records?year=nineteen")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLatestReportEndpoint_NotFound(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec := doRequest(t, router, http.MethodGet, "/api/reports/latest?county=Lamu")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReportEndpoint_PersistsAndServesLatest(t *testing.T) {
	repo := seededRepo()
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodGet, "/api/report?county=Nakuru&name=Wanjiku")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.reports, 1)

	rec = doRequest(t, router, http.MethodGet, "/api/reports/latest?county=Nakuru")
	require.Equal(t, http.StatusOK, rec.Code)

	var stored repository.StoredReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "Wanjiku", stored.FarmerName)
	assert.Contains(t, stored.Content, "Wanjiku")
}

func TestGetTrendsEndpoint(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec := doRequest(t, router, http.MethodGet, "/api/trends?crop=Maize&years=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Crop      string                      `json:"crop"`
		TrendData []repository.YearProduction `json:"trend_data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Maize", body.Crop)
	assert.Len(t, body.TrendData, 2)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(seededRepo())

	rec := doRequest(t, router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}
