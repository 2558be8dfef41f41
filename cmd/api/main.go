package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	app "github.com/geomap-tools/shareholder-import/internal/application/importer"
	"github.com/geomap-tools/shareholder-import/internal/bootstrap"
	infrafile "github.com/geomap-tools/shareholder-import/internal/infrastructure/file"
	"github.com/geomap-tools/shareholder-import/internal/infrastructure/geocode"
	"github.com/geomap-tools/shareholder-import/internal/infrastructure/repository"
	"github.com/geomap-tools/shareholder-import/internal/infrastructure/spreadsheet"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("failed to create pgx pool: %v", err)
	}
	defer pool.Close()

	geocoder := geocode.NewClient(geocode.Config{
		BaseURL:           getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		UserAgent:         getEnv("GEOCODER_USER_AGENT", "shareholder-import/1.0"),
		RequestsPerSecond: float64(parseIntEnv("GEOCODER_RPS", 10)),
		ReadyTimeout:      time.Duration(parseIntEnv("GEOCODER_READY_TIMEOUT_SECONDS", 10)) * time.Second,
	})

	service := app.NewService(
		spreadsheet.NewParser(),
		geocoder,
		repository.NewShareholderBulkRepository(pool),
		repository.NewShareholderRepository(db),
		repository.NewImportRunRepository(db),
		spreadsheet.NewExporter(),
		infrafile.NewArchive(getEnv("IMPORT_ARCHIVE_DIR", "uploads")),
		app.Config{
			AddressColumn:  getEnv("IMPORT_ADDRESS_COLUMN", "address"),
			BatchSize:      parseIntEnv("IMPORT_BATCH_SIZE", 10),
			BatchDelay:     time.Duration(parseIntEnv("IMPORT_BATCH_DELAY_MS", 1000)) * time.Millisecond,
			RetryBatchSize: parseIntEnv("IMPORT_RETRY_BATCH_SIZE", 1),
			RetryDelay:     time.Duration(parseIntEnv("IMPORT_RETRY_DELAY_MS", 1000)) * time.Millisecond,
		},
	)

	server := bootstrap.NewHTTPServer(service)

	go func() {
		if err := server.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}

func parseIntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
