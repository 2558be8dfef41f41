package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

const uuidRegex = "^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$"

// ShareholderBulkRepository persists a batch of successfully geocoded rows
// through a staging table COPY followed by a set-based upsert, so a batch of
// a few hundred rows costs a constant number of round trips.
type ShareholderBulkRepository struct {
	pool *pgxpool.Pool
}

func NewShareholderBulkRepository(pool *pgxpool.Pool) *ShareholderBulkRepository {
	return &ShareholderBulkRepository{pool: pool}
}

func (r *ShareholderBulkRepository) UpsertBatch(ctx context.Context, runID string, rows []domain.Shareholder) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	staged := make([][]any, 0, len(rows))
	for i, row := range rows {
		history, err := json.Marshal(row.History)
		if err != nil {
			return fmt.Errorf("marshal history for row %d: %w", i, err)
		}
		staged = append(staged, []any{
			runID,
			int64(i),
			nullableText(row.ID),
			row.Name,
			row.Address,
			row.DisplayAddress,
			int64(row.Shares),
			string(row.Status),
			row.Memo,
			row.Company,
			row.MarkerCategory,
			row.Lat,
			row.Lng,
			string(history),
		})
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"stg_shareholders"},
		[]string{
			"run_id", "row_index", "external_id", "name", "address", "display_address",
			"shares", "status", "memo", "company", "marker_category", "lat", "lng", "history",
		},
		pgx.CopyFromRows(staged),
	); err != nil {
		return fmt.Errorf("copy shareholders staging: %w", err)
	}

	if err := upsertStagedByID(ctx, tx, runID); err != nil {
		return err
	}
	if err := insertStagedWithoutID(ctx, tx, runID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM stg_shareholders WHERE run_id = $1", runID); err != nil {
		return fmt.Errorf("cleanup stg_shareholders: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit shareholder batch: %w", err)
	}
	return nil
}

func upsertStagedByID(ctx context.Context, tx pgx.Tx, runID string) error {
	if _, err := tx.Exec(ctx, `
WITH staged AS (
    SELECT DISTINCT ON (external_id)
      external_id::uuid AS ext_uuid,
      name, address, display_address, shares, status,
      memo, company, marker_category, lat, lng, history::jsonb AS history
    FROM stg_shareholders
    WHERE run_id = $1 AND external_id IS NOT NULL AND external_id ~* $2
    ORDER BY external_id, row_index DESC
)
INSERT INTO shareholders
  (id, name, address, display_address, shares, status,
   memo, company, marker_category, lat, lng, history, created_at, updated_at)
SELECT ext_uuid, name, address, display_address, shares, status,
       memo, company, marker_category, lat, lng, history, NOW(), NOW()
FROM staged
ON CONFLICT (id) DO UPDATE
  SET name = EXCLUDED.name,
      address = EXCLUDED.address,
      display_address = EXCLUDED.display_address,
      shares = EXCLUDED.shares,
      status = EXCLUDED.status,
      memo = EXCLUDED.memo,
      company = EXCLUDED.company,
      marker_category = EXCLUDED.marker_category,
      lat = EXCLUDED.lat,
      lng = EXCLUDED.lng,
      history = EXCLUDED.history,
      updated_at = NOW()
`, runID, uuidRegex); err != nil {
		return fmt.Errorf("upsert shareholders by id: %w", err)
	}
	return nil
}

func insertStagedWithoutID(ctx context.Context, tx pgx.Tx, runID string) error {
	if _, err := tx.Exec(ctx, `
INSERT INTO shareholders
  (name, address, display_address, shares, status,
   memo, company, marker_category, lat, lng, history, created_at, updated_at)
SELECT name, address, display_address, shares, status,
       memo, company, marker_category, lat, lng, history::jsonb, NOW(), NOW()
FROM stg_shareholders
WHERE run_id = $1 AND (external_id IS NULL OR NOT (external_id ~* $2))
ORDER BY row_index
`, runID, uuidRegex); err != nil {
		return fmt.Errorf("insert shareholders without id: %w", err)
	}
	return nil
}

func nullableText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
