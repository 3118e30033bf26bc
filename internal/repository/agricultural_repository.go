package repository

import (
	"context"
	"fmt"
	"time"

	"agro-platform/internal/models"
	"agro-platform/pkg/database"
	"agro-platform/pkg/logging"
	"agro-platform/pkg/metrics"
)

// AgriculturalRepository provides data access for agricultural records.
// Upserts are atomic per call; the unique index on the record's natural
// key makes repeated ingestion update rather than duplicate.
type AgriculturalRepository interface {
	// Record operations
	UpsertRecord(ctx context.Context, record *models.AgriculturalRecord) error
	UpsertRecordsBatch(ctx context.Context, records []*models.AgriculturalRecord) error
	GetRecords(ctx context.Context, filter RecordFilter) ([]*models.AgriculturalRecord, int, error)
	GetCountyRecords(ctx context.Context, county string) ([]*models.AgriculturalRecord, error)
	GetCropProductionByYear(ctx context.Context, cropName string, startYear int) ([]YearProduction, error)

	// Report operations
	SaveReport(ctx context.Context, report *StoredReport) error
	GetReports(ctx context.Context, county string, limit int) ([]*StoredReport, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// RecordFilter defines filters for querying agricultural records.
type RecordFilter struct {
	County   *string
	CropName *string
	DataType *string
	Year     *int
	Limit    int
	Offset   int
}

// YearProduction is one point of a per-year production total series.
type YearProduction struct {
	Year       int     `json:"year" db:"year"`
	Production float64 `json:"production" db:"production"`
}

// StoredReport is a persisted generated report.
type StoredReport struct {
	ID         int64     `json:"id" db:"id"`
	FarmerName string    `json:"farmer_name" db:"farmer_name"`
	County     string    `json:"county" db:"county"`
	Title      string    `json:"title" db:"title"`
	ReportType string    `json:"report_type" db:"report_type"`
	Content    string    `json:"content" db:"content"`
	Insights   []byte    `json:"insights" db:"insights"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// agriculturalRepository implements AgriculturalRepository.
type agriculturalRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAgriculturalRepository creates a new agricultural repository.
func NewAgriculturalRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) AgriculturalRepository {
	return &agriculturalRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const upsertRecordQuery = `
	INSERT INTO agricultural_records (
		source, data_type, county, crop_name, season, year,
		value, unit, raw_payload, processed_payload,
		created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (source, county, crop_name, data_type, year, season) DO UPDATE SET
		value = EXCLUDED.value,
		unit = EXCLUDED.unit,
		processed_payload = EXCLUDED.processed_payload,
		updated_at = EXCLUDED.updated_at
`

// UpsertRecord creates or updates a record by its natural key.
func (r *agriculturalRepository) UpsertRecord(ctx context.Context, record *models.AgriculturalRecord) error {
	_, err := r.db.ExecContext(ctx, "upsert_record", upsertRecordQuery,
		record.Source,
		record.DataType,
		record.County,
		record.CropName,
		record.Season,
		record.Year,
		record.Value,
		record.Unit,
		record.RawPayload,
		record.ProcessedPayload,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// UpsertRecordsBatch upserts multiple records in a single transaction.
func (r *agriculturalRepository) UpsertRecordsBatch(ctx context.Context, records []*models.AgriculturalRecord) error {
	if len(records) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IngestionBatchSize.Observe(float64(len(records)))
		r.logger.Debug(ctx, "[REPO_BATCH_UPSERT] Batch upsert completed", logging.Fields{
			"count":       len(records),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertRecordQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		_, err := stmt.ExecContext(ctx,
			record.Source,
			record.DataType,
			record.County,
			record.CropName,
			record.Season,
			record.Year,
			record.Value,
			record.Unit,
			record.RawPayload,
			record.ProcessedPayload,
			record.CreatedAt,
			record.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(records)))

	return nil
}

// GetRecords retrieves records with filtering and pagination.
func (r *agriculturalRepository) GetRecords(ctx context.Context, filter RecordFilter) ([]*models.AgriculturalRecord, int, error) {
	query := `
		SELECT id, source, data_type, county, crop_name, season, year,
		       value, unit, raw_payload, processed_payload,
		       created_at, updated_at
		FROM agricultural_records
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.County != nil {
		query += fmt.Sprintf(" AND county = $%d", argNum)
		args = append(args, *filter.County)
		argNum++
	}

	if filter.CropName != nil {
		query += fmt.Sprintf(" AND crop_name = $%d", argNum)
		args = append(args, *filter.CropName)
		argNum++
	}

	if filter.DataType != nil {
		query += fmt.Sprintf(" AND data_type = $%d", argNum)
		args = append(args, *filter.DataType)
		argNum++
	}

	if filter.Year != nil {
		query += fmt.Sprintf(" AND year = $%d", argNum)
		args = append(args, *filter.Year)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_records", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	query += " ORDER BY year DESC, county, crop_name"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var records []*models.AgriculturalRecord
	err = r.db.SelectContext(ctx, "get_records", &records, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get records: %w", err)
	}

	return records, totalCount, nil
}

// GetCountyRecords retrieves all records for a county in insertion order,
// so the last entry per crop is the most recently inserted.
func (r *agriculturalRepository) GetCountyRecords(ctx context.Context, county string) ([]*models.AgriculturalRecord, error) {
	query := `
		SELECT id, source, data_type, county, crop_name, season, year,
		       value, unit, raw_payload, processed_payload,
		       created_at, updated_at
		FROM agricultural_records
		WHERE county = $1
		ORDER BY created_at ASC, id ASC
	`

	var records []*models.AgriculturalRecord
	err := r.db.SelectContext(ctx, "get_county_records", &records, query, county)
	if err != nil {
		return nil, fmt.Errorf("failed to get county records: %w", err)
	}

	return records, nil
}

// GetCropProductionByYear aggregates production totals per year for a crop
// from startYear onward.
func (r *agriculturalRepository) GetCropProductionByYear(ctx context.Context, cropName string, startYear int) ([]YearProduction, error) {
	query := `
		SELECT year, SUM(value) AS production
		FROM agricultural_records
		WHERE crop_name = $1
		  AND year >= $2
		  AND data_type = $3
		GROUP BY year
		ORDER BY year ASC
	`

	var series []YearProduction
	err := r.db.SelectContext(ctx, "get_crop_production_by_year", &series, query,
		cropName, startYear, models.DataTypeCropProduction)
	if err != nil {
		return nil, fmt.Errorf("failed to get crop production series: %w", err)
	}

	return series, nil
}

// SaveReport persists a generated report.
func (r *agriculturalRepository) SaveReport(ctx context.Context, report *StoredReport) error {
	query := `
		INSERT INTO reports (farmer_name, county, title, report_type, content, insights, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		report.FarmerName,
		report.County,
		report.Title,
		report.ReportType,
		report.Content,
		report.Insights,
		report.CreatedAt,
	).Scan(&report.ID)

	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_SAVE_REPORT] Report saved", logging.Fields{
		"county": report.County,
		"title":  report.Title,
	})

	return nil
}

// GetReports retrieves the most recent reports for a county.
func (r *agriculturalRepository) GetReports(ctx context.Context, county string, limit int) ([]*StoredReport, error) {
	query := `
		SELECT id, farmer_name, county, title, report_type, content, insights, created_at
		FROM reports
		WHERE county = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var reports []*StoredReport
	err := r.db.SelectContext(ctx, "get_reports", &reports, query, county, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}

	return reports, nil
}

// HealthCheck performs a repository health check.
func (r *agriculturalRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
