package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"agro-platform/internal/models"
	"agro-platform/internal/repository"
	"agro-platform/internal/services"
	"agro-platform/pkg/logging"
	"agro-platform/pkg/metrics"
)

// AgroHandler handles agricultural data API endpoints.
type AgroHandler struct {
	insightService   *services.InsightService
	ingestionService *services.IngestionService
	logger           *logging.StructuredLogger
	metrics          *metrics.Collector
	batchSize        int
}

// NewAgroHandler creates a new agro handler.
func NewAgroHandler(
	insightService *services.InsightService,
	ingestionService *services.IngestionService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	batchSize int,
) *AgroHandler {
	return &AgroHandler{
		insightService:   insightService,
		ingestionService: ingestionService,
		logger:           logger,
		metrics:          metricsCollector,
		batchSize:        batchSize,
	}
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// GetRecords handles GET /api/records
func (h *AgroHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/records").Observe(duration.Seconds())
	}()

	county := r.URL.Query().Get("county")
	cropName := r.URL.Query().Get("crop")
	dataType := r.URL.Query().Get("data_type")
	yearStr := r.URL.Query().Get("year")

	page, limit := pagination(r)
	offset := (page - 1) * limit

	filter := repository.RecordFilter{
		Limit:  limit,
		Offset: offset,
	}

	if county != "" {
		filter.County = &county
	}
	if cropName != "" {
		filter.CropName = &cropName
	}
	if dataType != "" {
		filter.DataType = &dataType
	}
	if yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			h.sendError(w, r, "invalid year, expected integer", http.StatusBadRequest)
			return
		}
		filter.Year = &year
	}

	records, total, err := h.insightService.GetRecords(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_RECORDS_ERROR] Failed to get records", logging.Fields{
			"county": county,
			"crop":   cropName,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/records")
		h.sendError(w, r, "failed to retrieve records", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit

	h.metrics.RecordAPIRequest("/api/records", "GET", "200")
	h.sendJSON(w, PaginatedResponse{
		Data:       records,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, http.StatusOK)
}

// TriggerIngestion handles POST /api/ingest
func (h *AgroHandler) TriggerIngestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/ingest").Observe(duration.Seconds())
	}()

	result, err := h.ingestionService.IngestAll(ctx, h.batchSize)
	if err != nil {
		h.logger.Error(ctx, "[API_INGEST_ERROR] Ingestion failed", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/ingest")
		h.sendError(w, r, "failed to update data", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/ingest", "POST", "200")
	h.sendJSON(w, map[string]interface{}{
		"success":          true,
		"total_records":    result.TotalRecords,
		"cleaned_records":  result.CleanedRecords,
		"outliers_dropped": result.OutliersDropped,
		"invalid_dropped":  result.InvalidDropped,
		"failed_records":   result.FailedRecords,
		"errors":           result.Errors,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// GetInsights handles GET /api/insights
func (h *AgroHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/insights").Observe(duration.Seconds())
	}()

	profile, ok := h.profileFromQuery(w, r)
	if !ok {
		return
	}

	outcome := h.insightService.GenerateInsights(ctx, profile)

	// All three outcome statuses map to 200; empty and failed are data
	// conditions, not request errors.
	h.metrics.RecordAPIRequest("/api/insights", "GET", "200")
	h.sendJSON(w, outcome, http.StatusOK)
}

// GetReport handles GET /api/report
func (h *AgroHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/report").Observe(duration.Seconds())
	}()

	profile, ok := h.profileFromQuery(w, r)
	if !ok {
		return
	}

	report, outcome := h.insightService.GenerateReport(ctx, profile)

	h.metrics.RecordAPIRequest("/api/report", "GET", "200")
	h.sendJSON(w, map[string]interface{}{
		"report":          report,
		"status":          outcome.Status.String(),
		"advisor_context": h.insightService.AdvisorContext(profile),
	}, http.StatusOK)
}

// GetYieldEstimate handles GET /api/yield
func (h *AgroHandler) GetYieldEstimate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/yield").Observe(duration.Seconds())
	}()

	county := r.URL.Query().Get("county")
	if county == "" {
		h.sendError(w, r, "county is required", http.StatusBadRequest)
		return
	}

	estimate, computable, err := h.insightService.EstimateCountyYield(ctx, county)
	if err != nil {
		h.logger.Error(ctx, "[API_YIELD_ERROR] Yield estimation failed", logging.Fields{
			"county": county,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/yield")
		h.sendError(w, r, "failed to estimate yield", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/yield", "GET", "200")
	if !computable {
		h.sendJSON(w, map[string]interface{}{"computable": false}, http.StatusOK)
		return
	}
	h.sendJSON(w, map[string]interface{}{
		"computable": true,
		"estimate":   estimate,
	}, http.StatusOK)
}

// GetCropTrend handles GET /api/trends
func (h *AgroHandler) GetCropTrend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/trends").Observe(duration.Seconds())
	}()

	cropName := r.URL.Query().Get("crop")
	if cropName == "" {
		h.sendError(w, r, "crop is required", http.StatusBadRequest)
		return
	}

	years := 0
	if yearsStr := r.URL.Query().Get("years"); yearsStr != "" {
		if y, err := strconv.Atoi(yearsStr); err == nil && y > 0 {
			years = y
		}
	}

	series, err := h.insightService.GetCropTrend(ctx, cropName, years)
	if err != nil {
		h.logger.Error(ctx, "[API_TRENDS_ERROR] Failed to get crop trend", logging.Fields{
			"crop": cropName,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/trends")
		h.sendError(w, r, "failed to retrieve crop trend", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/trends", "GET", "200")
	h.sendJSON(w, map[string]interface{}{
		"crop":       cropName,
		"trend_data": series,
	}, http.StatusOK)
}

// GetStoredReports handles GET /api/reports
func (h *AgroHandler) GetStoredReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	county := r.URL.Query().Get("county")
	if county == "" {
		h.sendError(w, r, "county is required", http.StatusBadRequest)
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	reports, err := h.insightService.GetReports(ctx, county, limit)
	if err != nil {
		h.logger.Error(ctx, "[API_REPORTS_ERROR] Failed to get stored reports", logging.Fields{
			"county": county,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/reports")
		h.sendError(w, r, "failed to retrieve reports", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/reports", "GET", "200")
	h.sendJSON(w, map[string]interface{}{
		"county":  county,
		"reports": reports,
	}, http.StatusOK)
}

// GetLatestReport handles GET /api/reports/latest
func (h *AgroHandler) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	county := r.URL.Query().Get("county")
	if county == "" {
		h.sendError(w, r, "county is required", http.StatusBadRequest)
		return
	}

	report, err := h.insightService.GetLatestReport(ctx, county)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			h.sendError(w, r, notFound.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error(ctx, "[API_REPORTS_ERROR] Failed to get latest report", logging.Fields{
			"county": county,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/reports/latest")
		h.sendError(w, r, "failed to retrieve report", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/reports/latest", "GET", "200")
	h.sendJSON(w, report, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *AgroHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.insightService.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_FAILED] Database unreachable", logging.Fields{}, err)
		h.sendJSON(w, map[string]string{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// profileFromQuery builds a farmer profile from request parameters. A
// malformed crops list degrades to an empty one rather than failing the
// request; only a missing county is a client error.
func (h *AgroHandler) profileFromQuery(w http.ResponseWriter, r *http.Request) (models.FarmerProfile, bool) {
	county := r.URL.Query().Get("county")
	if county == "" {
		h.sendError(w, r, "county is required", http.StatusBadRequest)
		return models.FarmerProfile{}, false
	}

	// Unknown counties are served (they just have no data) but flagged,
	// since they are usually a client-side typo.
	if !models.IsKnownCounty(county) {
		h.logger.Warn(r.Context(), "[PROFILE_UNKNOWN_COUNTY] County not in reference list", logging.Fields{
			"county": county,
		})
	}

	profile := models.FarmerProfile{
		Name:         r.URL.Query().Get("name"),
		County:       county,
		PrimaryCrops: models.ParseCropList(r.URL.Query().Get("crops")),
	}

	if sizeStr := r.URL.Query().Get("farm_size"); sizeStr != "" {
		if size, err := strconv.ParseFloat(sizeStr, 64); err == nil && size >= 0 {
			profile.FarmSizeAcres = size
		}
	}
	if expStr := r.URL.Query().Get("experience"); expStr != "" {
		if exp, err := strconv.Atoi(expStr); err == nil && exp >= 0 {
			profile.ExperienceYears = exp
		}
	}

	return profile, true
}

// pagination parses page/limit query parameters with defaults.
func pagination(r *http.Request) (page, limit int) {
	page = 1
	limit = 100

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}
	return page, limit
}

// sendJSON sends a JSON response.
func (h *AgroHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response.
func (h *AgroHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RequestIDMiddleware assigns each request an identifier that every log
// entry for the request carries. An incoming X-Request-ID is honored so
// upstream proxies can correlate.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			buf := make([]byte, 8)
			rand.Read(buf)
			requestID = hex.EncodeToString(buf)
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RegisterRoutes registers all agro API routes.
func (h *AgroHandler) RegisterRoutes(router *mux.Router) {
	router.Use(RequestIDMiddleware)

	router.HandleFunc("/api/records", h.GetRecords).Methods("GET")
	router.HandleFunc("/api/ingest", h.TriggerIngestion).Methods("POST")
	router.HandleFunc("/api/insights", h.GetInsights).Methods("GET")
	router.HandleFunc("/api/report", h.GetReport).Methods("GET")
	router.HandleFunc("/api/reports", h.GetStoredReports).Methods("GET")
	router.HandleFunc("/api/reports/latest", h.GetLatestReport).Methods("GET")
	router.HandleFunc("/api/yield", h.GetYieldEstimate).Methods("GET")
	router.HandleFunc("/api/trends", h.GetCropTrend).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
