package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"agro-platform/internal/config"
	"agro-platform/internal/models"
	"agro-platform/internal/repository"
	"agro-platform/internal/services"
	"agro-platform/pkg/database"
	"agro-platform/pkg/logging"
	"agro-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	batchSize := flag.Int("batch-size", 0, "Number of records to write per batch (0 = config default)")
	seed := flag.Int64("seed", 0, "Seed for sample data generation (0 = random)")
	reportCounty := flag.String("report-county", "", "Generate a sample report for this county after ingestion")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *batchSize <= 0 {
		*batchSize = cfg.Ingestion.BatchSize
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("agro-ingester", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting agricultural data ingestion", logging.Fields{
		"version":    "1.0.0",
		"batch_size": *batchSize,
		"seed":       *seed,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("agro_ingester")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository
	agroRepo := repository.NewAgriculturalRepository(db, logger, metricsCollector)

	// Initialize services
	ingestionService := services.NewIngestionService(agroRepo, logger, metricsCollector,
		services.NewKilimoSTATFetcher(*seed),
		services.NewKNBSFetcher(*seed),
	)
	insightService := services.NewInsightService(agroRepo, logger, metricsCollector)

	// Ingest data
	result, err := ingestionService.IngestAll(ctx, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Sources:      %d\n", result.TotalSources)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Cleaned Records:    %d\n", result.CleanedRecords)
	fmt.Printf("Outliers Dropped:   %d\n", result.OutliersDropped)
	fmt.Printf("Invalid Dropped:    %d\n", result.InvalidDropped)
	fmt.Printf("Failed Records:     %d\n", result.FailedRecords)
	fmt.Printf("Duration:           %v\n", result.Duration)
	if result.Duration.Seconds() > 0 {
		fmt.Printf("Records/Second:     %.2f\n", float64(result.CleanedRecords)/result.Duration.Seconds())
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	// Generate a sample report if requested
	if *reportCounty != "" {
		fmt.Println("\n" + strings.Repeat("=", 80))
		fmt.Println("SAMPLE REPORT")
		fmt.Println(strings.Repeat("=", 80))

		profile := models.FarmerProfile{
			Name:   "Sample Farmer",
			County: *reportCounty,
		}

		report, outcome := insightService.GenerateReport(ctx, profile)
		fmt.Printf("Status: %s\n\n", outcome.Status)
		fmt.Println(report.Content)
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed successfully", logging.Fields{
		"total_records":    result.TotalRecords,
		"cleaned_records":  result.CleanedRecords,
		"outliers_dropped": result.OutliersDropped,
		"invalid_dropped":  result.InvalidDropped,
		"failed_records":   result.FailedRecords,
		"duration_seconds": result.Duration.Seconds(),
	})
}
