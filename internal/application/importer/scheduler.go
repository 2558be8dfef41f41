package importer

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

// RowOutcome is one row after its geocode attempt. Row carries the resolved
// coordinates when the result is OK.
type RowOutcome struct {
	Index  int
	Row    domain.Shareholder
	Result domain.GeocodeResult
}

// BatchOutcome is delivered once per batch, after every row in the batch has
// settled. Done counts rows processed so far across the run.
type BatchOutcome struct {
	Done  int
	Total int
	Rows  []RowOutcome
}

// Scheduler drives geocoding over a row sequence in fixed-size batches: one
// concurrent lookup per row within a batch, an all-or-nothing join, then a
// delay before the next batch. The batch size is what bounds in-flight
// requests against the external service's rate limit, so at no point are more
// than BatchSize lookups outstanding.
//
// The same scheduler serves bulk retry with a different batch size (1 by
// default), which reproduces the one-at-a-time retry cadence as configuration
// rather than a second code path.
type Scheduler struct {
	Geocoder  Geocoder
	BatchSize int
	Delay     time.Duration
}

// Run processes all rows and reports each batch through onBatch. Row-level
// failures never abort the run; they surface as non-OK outcomes. An in-flight
// batch always completes, but ctx cancellation is honored between batches.
func (s *Scheduler) Run(ctx context.Context, rows []domain.Shareholder, onBatch func(BatchOutcome)) {
	total := len(rows)
	if total == 0 {
		return
	}

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	done := 0
	for start := 0; start < total; start += batchSize {
		end := min(start+batchSize, total)
		batch := rows[start:end]
		outcomes := make([]RowOutcome, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i := range batch {
			g.Go(func() error {
				row := batch[i]
				result := s.Geocoder.Resolve(gctx, row.Address)
				if result.Status == domain.GeocodeOK {
					row.Lat = result.Lat
					row.Lng = result.Lng
				}
				outcomes[i].Index = start + i
				outcomes[i].Row = row
				outcomes[i].Result = result
				return nil
			})
		}
		_ = g.Wait()

		done += len(batch)
		if onBatch != nil {
			onBatch(BatchOutcome{Done: done, Total: total, Rows: outcomes})
		}

		if end < total {
			if !sleepWithContext(ctx, s.Delay) {
				return
			}
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
