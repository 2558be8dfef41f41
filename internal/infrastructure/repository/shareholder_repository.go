package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
	"github.com/geomap-tools/shareholder-import/internal/infrastructure/db/models"
)

// ShareholderRepository is the single-row persistence path, used when a
// retried ledger entry finally geocodes.
type ShareholderRepository struct {
	db *gorm.DB
}

func NewShareholderRepository(db *gorm.DB) *ShareholderRepository {
	return &ShareholderRepository{db: db}
}

func (r *ShareholderRepository) Upsert(ctx context.Context, row domain.Shareholder) error {
	record, err := toModel(row)
	if err != nil {
		return err
	}

	tx := r.db.WithContext(ctx)
	if record.ID == "" {
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("insert shareholder: %w", err)
		}
		return nil
	}

	err = tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "address", "display_address", "shares", "status",
			"memo", "company", "marker_category", "lat", "lng", "history", "updated_at",
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("upsert shareholder %s: %w", record.ID, err)
	}
	return nil
}

func toModel(row domain.Shareholder) (models.Shareholder, error) {
	history, err := json.Marshal(row.History)
	if err != nil {
		return models.Shareholder{}, fmt.Errorf("marshal history: %w", err)
	}

	return models.Shareholder{
		ID:             row.ID,
		Name:           row.Name,
		Address:        row.Address,
		DisplayAddress: row.DisplayAddress,
		Shares:         int64(row.Shares),
		Status:         string(row.Status),
		Memo:           row.Memo,
		Company:        row.Company,
		MarkerCategory: row.MarkerCategory,
		Lat:            row.Lat,
		Lng:            row.Lng,
		History:        history,
	}, nil
}
