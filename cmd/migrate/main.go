package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"agro-platform/internal/config"
	"agro-platform/pkg/database"
	"agro-platform/pkg/logging"
)

func main() {
	// Parse command-line flags
	direction := flag.String("direction", "up", "Migration direction: up or down")
	dir := flag.String("dir", "migrations", "Directory containing migration files")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "Invalid direction %q: must be up or down\n", *direction)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("agro-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	ctx := context.Background()

	files, err := migrationFiles(*dir, *direction)
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to discover migration files", logging.Fields{
			"dir": *dir,
		}, err)
	}
	if len(files) == 0 {
		logger.Fatal(ctx, "[MIGRATE_ERROR] No migration files found", logging.Fields{
			"dir":       *dir,
			"direction": *direction,
		}, fmt.Errorf("no *.%s.sql files in %s", *direction, *dir))
	}

	// Connect to database
	dbConfig := &database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}

	db, err := sql.Open("postgres", dbConfig.DSN())
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to open database connection", logging.Fields{}, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to ping database", logging.Fields{
			"host":     cfg.Database.Host,
			"database": cfg.Database.Database,
		}, err)
	}

	logger.Info(ctx, "[MIGRATE_START] Applying migrations", logging.Fields{
		"direction": *direction,
		"count":     len(files),
	})

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to read migration file", logging.Fields{
				"file": file,
			}, err)
		}

		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			logger.Fatal(ctx, "[MIGRATE_ERROR] Migration failed", logging.Fields{
				"file": file,
			}, err)
		}

		logger.Info(ctx, "[MIGRATE_APPLIED] Migration applied", logging.Fields{
			"file": filepath.Base(file),
		})
	}

	logger.Info(ctx, "[MIGRATE_COMPLETE] All migrations applied", logging.Fields{
		"direction": *direction,
		"count":     len(files),
	})
}

// migrationFiles lists the *.<direction>.sql files under dir. Up
// migrations apply in ascending name order, down migrations in
// descending order so later schema changes unwind first.
func migrationFiles(dir, direction string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	suffix := "." + direction + ".sql"
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(files)
	if direction == "down" {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	return files, nil
}
