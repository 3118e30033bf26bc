package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agro-platform/internal/insights"
	"agro-platform/internal/models"
	"agro-platform/internal/repository"
	"agro-platform/pkg/logging"
	"agro-platform/pkg/metrics"
)

// defaultTrendYears is how far back crop trend series reach by default.
const defaultTrendYears = 5

// InsightService generates per-farmer insights, yield estimates and
// reports from persisted county records.
type InsightService struct {
	repo    repository.AgriculturalRepository
	engine  *insights.Engine
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewInsightService creates a new insight service.
func NewInsightService(repo repository.AgriculturalRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *InsightService {
	return &InsightService{
		repo:    repo,
		engine:  insights.NewEngine(logger),
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GenerateInsights computes a fresh insight for the farmer's county. The
// outcome is tagged: a repository failure or internal error yields a
// failed outcome, never a propagated error, so the caller's request always
// completes.
func (s *InsightService) GenerateInsights(ctx context.Context, profile models.FarmerProfile) insights.Outcome {
	startTime := time.Now()

	records, err := s.repo.GetCountyRecords(ctx, profile.County)
	if err != nil {
		s.logger.Error(ctx, "[INSIGHT_QUERY_ERROR] Failed to load county records", logging.Fields{
			"county": profile.County,
		}, err)
		outcome := insights.FailedOutcome(fmt.Sprintf("county records unavailable: %v", err))
		s.metrics.RecordInsightOutcome(outcome.Status.String())
		return outcome
	}

	outcome := s.engine.Generate(ctx, profile, records)

	s.metrics.RecordInsightOutcome(outcome.Status.String())
	s.metrics.InsightGenerationDuration.Observe(time.Since(startTime).Seconds())

	return outcome
}

// GenerateReport builds the full agricultural report for a farmer and
// persists a copy. A persistence failure is logged but does not void the
// returned report.
func (s *InsightService) GenerateReport(ctx context.Context, profile models.FarmerProfile) (models.Report, insights.Outcome) {
	outcome := s.GenerateInsights(ctx, profile)
	report := insights.AssembleReport(profile, outcome.Insight)

	insightPayload, err := json.Marshal(outcome.Insight)
	if err != nil {
		insightPayload = []byte("{}")
	}

	stored := &repository.StoredReport{
		FarmerName: profile.Name,
		County:     profile.County,
		Title:      report.Title,
		ReportType: report.Type,
		Content:    report.Content,
		Insights:   insightPayload,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.SaveReport(ctx, stored); err != nil {
		s.logger.Error(ctx, "[REPORT_SAVE_ERROR] Failed to persist report", logging.Fields{
			"county": profile.County,
		}, err)
	}

	return report, outcome
}

// EstimateCountyYield joins a county's production and area records per
// (crop, year) and fits the yield estimator over them. The second return
// is false when the data is insufficient for a fit, which is not an
// error.
func (s *InsightService) EstimateCountyYield(ctx context.Context, county string) (*insights.YieldEstimate, bool, error) {
	records, err := s.repo.GetCountyRecords(ctx, county)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load county records: %w", err)
	}

	estimate, ok := insights.EstimateYield(joinYieldRows(records))
	return estimate, ok, nil
}

// joinYieldRows pairs production and area-cultivated records by
// (crop, year) into estimator feature rows.
func joinYieldRows(records []*models.AgriculturalRecord) []map[string]interface{} {
	type key struct {
		crop string
		year int
	}

	areas := make(map[key]float64)
	for _, record := range records {
		if record.DataType == models.DataTypeAreaCultivated {
			areas[key{record.CropName, record.Year}] = record.Value
		}
	}

	var rows []map[string]interface{}
	for _, record := range records {
		if record.DataType != models.DataTypeCropProduction {
			continue
		}
		area, ok := areas[key{record.CropName, record.Year}]
		if !ok {
			continue
		}
		rows = append(rows, map[string]interface{}{
			models.FieldCropName:   record.CropName,
			models.FieldYear:       record.Year,
			models.FieldArea:       area,
			models.FieldProduction: record.Value,
		})
	}
	return rows
}

// GetCropTrend returns per-year production totals for a crop over the
// last N years.
func (s *InsightService) GetCropTrend(ctx context.Context, cropName string, years int) ([]repository.YearProduction, error) {
	if years <= 0 {
		years = defaultTrendYears
	}
	startYear := time.Now().Year() - years

	series, err := s.repo.GetCropProductionByYear(ctx, cropName, startYear)
	if err != nil {
		return nil, fmt.Errorf("failed to get crop trend: %w", err)
	}
	return series, nil
}

// AdvisorContext builds the structured context handed to the external
// AI-advice collaborator.
func (s *InsightService) AdvisorContext(profile models.FarmerProfile) models.AdvisorContext {
	return insights.BuildAdvisorContext(profile)
}

// GetRecords exposes filtered record queries to the API layer.
func (s *InsightService) GetRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.AgriculturalRecord, int, error) {
	return s.repo.GetRecords(ctx, filter)
}

// GetReports returns the most recently stored reports for a county.
func (s *InsightService) GetReports(ctx context.Context, county string, limit int) ([]*repository.StoredReport, error) {
	reports, err := s.repo.GetReports(ctx, county, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	return reports, nil
}

// GetLatestReport returns the newest stored report for a county, or a
// NotFoundError when none has been generated yet.
func (s *InsightService) GetLatestReport(ctx context.Context, county string) (*repository.StoredReport, error) {
	reports, err := s.repo.GetReports(ctx, county, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	if len(reports) == 0 {
		return nil, &repository.NotFoundError{Resource: "report", ID: county}
	}
	return reports[0], nil
}

// HealthCheck reports whether the backing store is reachable.
func (s *InsightService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
