package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
	"github.com/geomap-tools/shareholder-import/internal/infrastructure/db/models"
)

type ImportRunRepository struct {
	db *gorm.DB
}

func NewImportRunRepository(db *gorm.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

func (r *ImportRunRepository) Create(ctx context.Context, runID, filename, archivePath string) error {
	run := models.ImportRun{
		ID:          runID,
		Filename:    filename,
		ArchivePath: archivePath,
		Status:      string(domain.RunRunning),
		StartedAt:   time.Now(),
	}

	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("create import run: %w", err)
	}
	return nil
}

func (r *ImportRunRepository) Complete(ctx context.Context, runID string, processed, succeeded, failed int64) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&models.ImportRun{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"status":          string(domain.RunCompleted),
			"processed_count": processed,
			"succeeded_count": succeeded,
			"failed_count":    failed,
			"finished_at":     &now,
		}).Error
	if err != nil {
		return fmt.Errorf("complete import run: %w", err)
	}
	return nil
}

func (r *ImportRunRepository) Fail(ctx context.Context, runID, reason string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&models.ImportRun{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"status":        string(domain.RunFailed),
			"error_message": &reason,
			"finished_at":   &now,
		}).Error
	if err != nil {
		return fmt.Errorf("fail import run: %w", err)
	}
	return nil
}

func (r *ImportRunRepository) Get(ctx context.Context, runID string) (domain.RunSummary, error) {
	var row models.ImportRun

	err := r.db.WithContext(ctx).First(&row, "id = ?", runID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RunSummary{}, domain.ErrRunNotFound
		}
		return domain.RunSummary{}, fmt.Errorf("get import run: %w", err)
	}

	summary := domain.RunSummary{
		ID:        row.ID,
		Filename:  row.Filename,
		Status:    domain.RunStatus(row.Status),
		Processed: row.ProcessedCount,
		Succeeded: row.SucceededCount,
		Failed:    row.FailedCount,
	}
	if row.ErrorMessage != nil {
		summary.ErrorReason = *row.ErrorMessage
	}
	return summary, nil
}
