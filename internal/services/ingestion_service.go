package services

import (
	"context"
	"fmt"
	"time"

	"agro-platform/internal/cleaning"
	"agro-platform/internal/models"
	"agro-platform/internal/repository"
	"agro-platform/pkg/logging"
	"agro-platform/pkg/metrics"
)

// IngestionService drives the cleaning pipeline: fetch raw records from a
// source, normalize and filter them, then upsert the survivors.
type IngestionService struct {
	repo     repository.AgriculturalRepository
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
	fetchers []DataFetcher
}

// IngestionResult contains ingestion statistics.
type IngestionResult struct {
	TotalSources    int
	TotalRecords    int
	CleanedRecords  int
	OutliersDropped int
	InvalidDropped  int
	FailedRecords   int
	Duration        time.Duration
	Errors          []string
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(repo repository.AgriculturalRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, fetchers ...DataFetcher) *IngestionService {
	return &IngestionService{
		repo:     repo,
		logger:   logger,
		metrics:  metricsCollector,
		fetchers: fetchers,
	}
}

// IngestAll fetches and ingests the latest data from every configured
// source. A failing source is recorded and skipped; the others still run.
func (s *IngestionService) IngestAll(ctx context.Context, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"source_count": len(s.fetchers),
		"batch_size":   batchSize,
		"stage":        "INITIALIZATION",
	})

	result := &IngestionResult{
		TotalSources: len(s.fetchers),
		Errors:       make([]string, 0),
	}

	for _, fetcher := range s.fetchers {
		source := fetcher.Name()
		srcLog := s.logger.WithFields(logging.Fields{"source": string(source)})

		batch, err := fetcher.Fetch(ctx)
		if err != nil {
			errMsg := fmt.Sprintf("failed to fetch from %s: %v", source, err)
			result.Errors = append(result.Errors, errMsg)
			srcLog.Error(ctx, "[INGEST_FETCH_ERROR] Source fetch failed", logging.Fields{
				"stage": "FETCH",
			}, err)
			s.metrics.RecordIngestionError("fetch_error")
			continue
		}

		sourceResult, err := s.IngestBatch(ctx, source, batch, batchSize)
		if err != nil {
			errMsg := fmt.Sprintf("failed to ingest %s batch: %v", source, err)
			result.Errors = append(result.Errors, errMsg)
			srcLog.Error(ctx, "[INGEST_SOURCE_ERROR] Source ingestion failed", logging.Fields{
				"stage": "PERSIST",
			}, err)
			s.metrics.RecordIngestionError("persist_error")
			continue
		}

		result.TotalRecords += sourceResult.TotalRecords
		result.CleanedRecords += sourceResult.CleanedRecords
		result.OutliersDropped += sourceResult.OutliersDropped
		result.InvalidDropped += sourceResult.InvalidDropped
		result.FailedRecords += sourceResult.FailedRecords

		srcLog.Info(ctx, "[INGEST_SOURCE_SUCCESS] Source ingested", logging.Fields{
			"total_records":    sourceResult.TotalRecords,
			"cleaned_records":  sourceResult.CleanedRecords,
			"outliers_dropped": sourceResult.OutliersDropped,
			"invalid_dropped":  sourceResult.InvalidDropped,
			"failed_records":   sourceResult.FailedRecords,
			"stage":            "SOURCE_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_sources":    result.TotalSources,
		"total_records":    result.TotalRecords,
		"cleaned_records":  result.CleanedRecords,
		"outliers_dropped": result.OutliersDropped,
		"invalid_dropped":  result.InvalidDropped,
		"failed_records":   result.FailedRecords,
		"duration_seconds": result.Duration.Seconds(),
		"error_count":      len(result.Errors),
		"stage":            "COMPLETE",
	})

	return result, nil
}

// IngestBatch cleans one raw batch and upserts the surviving records.
// Cleaning statistics (medians, modes, quantiles) are computed on this
// batch alone; nothing carries across calls. Re-ingesting an identical
// batch updates existing rows rather than duplicating them.
func (s *IngestionService) IngestBatch(ctx context.Context, source models.DataSource, batch []models.RawRecord, batchSize int) (*IngestionResult, error) {
	result := &IngestionResult{
		TotalRecords: len(batch),
		Errors:       make([]string, 0),
	}
	if len(batch) == 0 {
		return result, nil
	}
	if batchSize <= 0 {
		batchSize = len(batch)
	}

	rows, drops := cleaning.Clean(batch)
	result.OutliersDropped = drops.OutlierDropped
	result.InvalidDropped = drops.InvalidDropped
	s.metrics.RecordCleaningDrops(drops.OutlierDropped, drops.InvalidDropped)

	records := make([]*models.AgriculturalRecord, 0, len(rows))
	for _, row := range rows {
		record, err := models.RecordFromFields(source, row.Raw, row.Fields)
		if err != nil {
			result.FailedRecords++
			s.metrics.RecordIngestionError("conversion_error")
			continue
		}
		records = append(records, record)
	}

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.repo.UpsertRecordsBatch(ctx, records[start:end]); err != nil {
			return nil, fmt.Errorf("failed to upsert batch: %w", err)
		}
		result.CleanedRecords += end - start
	}

	return result, nil
}
