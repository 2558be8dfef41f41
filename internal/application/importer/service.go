package importer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

type Parser interface {
	Parse(contentType string, payload []byte) (domain.Sheet, error)
}

type Geocoder interface {
	Ready(ctx context.Context) error
	Resolve(ctx context.Context, address string) domain.GeocodeResult
}

type BulkStore interface {
	UpsertBatch(ctx context.Context, runID string, rows []domain.Shareholder) error
}

type RowStore interface {
	Upsert(ctx context.Context, row domain.Shareholder) error
}

type RunRecorder interface {
	Create(ctx context.Context, runID, filename, archivePath string) error
	Complete(ctx context.Context, runID string, processed, succeeded, failed int64) error
	Fail(ctx context.Context, runID, reason string) error
	Get(ctx context.Context, runID string) (domain.RunSummary, error)
}

type Exporter interface {
	Export(failures []domain.FailedRow) ([]byte, error)
}

type UploadArchiver interface {
	Save(ctx context.Context, runID, filename string, payload []byte) (string, error)
}

type Config struct {
	AddressColumn  string
	BatchSize      int
	BatchDelay     time.Duration
	RetryBatchSize int
	RetryDelay     time.Duration
}

type Upload struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// RetryResult reports a single-entry retry. Entry carries the updated ledger
// entry when the retry failed again; it is nil once the row resolved and left
// the ledger.
type RetryResult struct {
	Resolved bool          `json:"resolved"`
	Entry    *FailureEntry `json:"entry,omitempty"`
}

// API is the import pipeline surface consumed by the HTTP layer.
type API interface {
	Start(ctx context.Context, upload Upload) (string, error)
	Progress(runID string) (RunView, error)
	Run(ctx context.Context, runID string) (domain.RunSummary, error)
	Failures(runID string) ([]FailureEntry, error)
	EditFailure(runID, key string, fields EditFields) (FailureEntry, error)
	RetryFailure(ctx context.Context, runID, key, actor string) (RetryResult, error)
	RetryAllFailures(ctx context.Context, runID, actor string) (domain.RetryOutcome, error)
	ExportFailures(runID string) ([]byte, error)
}

// Service owns the import pipeline: parse and validate the upload, geocode in
// batches, persist successes, and keep the per-run failure ledger for
// edit/retry/export.
type Service struct {
	parser   Parser
	geocoder Geocoder
	bulk     BulkStore
	store    RowStore
	runs     RunRecorder
	exporter Exporter
	archive  UploadArchiver
	cfg      Config

	mu     sync.RWMutex
	active map[string]*Run
}

func NewService(parser Parser, geocoder Geocoder, bulk BulkStore, store RowStore, runs RunRecorder, exporter Exporter, archive UploadArchiver, cfg Config) *Service {
	if cfg.AddressColumn == "" {
		cfg.AddressColumn = domain.ColAddress
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = time.Second
	}
	if cfg.RetryBatchSize <= 0 {
		cfg.RetryBatchSize = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	return &Service{
		parser:   parser,
		geocoder: geocoder,
		bulk:     bulk,
		store:    store,
		runs:     runs,
		exporter: exporter,
		archive:  archive,
		cfg:      cfg,
		active:   make(map[string]*Run),
	}
}

// Start validates and parses the upload synchronously, so format, parse and
// schema errors reach the uploader before any geocoding begins, then runs the
// batch pipeline in the background. Returns the run id for progress polling.
func (s *Service) Start(ctx context.Context, upload Upload) (string, error) {
	sheet, err := s.parser.Parse(upload.ContentType, upload.Payload)
	if err != nil {
		return "", err
	}

	rows, err := mapSheet(sheet, s.cfg.AddressColumn)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()

	archivePath := ""
	if s.archive != nil {
		archivePath, err = s.archive.Save(ctx, runID, upload.Filename, upload.Payload)
		if err != nil {
			// keep importing; the archive copy is an audit aid, not a gate
			log.Printf("archive upload for run %s: %v", runID, err)
		}
	}

	if err := s.runs.Create(ctx, runID, upload.Filename, archivePath); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCreateRun, err)
	}

	run := newRun(runID, upload.Filename)
	s.mu.Lock()
	s.active[runID] = run
	s.mu.Unlock()

	go s.execute(context.Background(), run, rows)

	return runID, nil
}

func (s *Service) execute(ctx context.Context, run *Run, rows []domain.Shareholder) {
	if err := s.geocoder.Ready(ctx); err != nil {
		run.fail(err.Error())
		if dbErr := s.runs.Fail(ctx, run.ID, err.Error()); dbErr != nil {
			log.Printf("record failure for run %s: %v", run.ID, dbErr)
		}
		log.Printf("import run %s aborted: %v", run.ID, err)
		return
	}

	scheduler := &Scheduler{
		Geocoder:  s.geocoder,
		BatchSize: s.cfg.BatchSize,
		Delay:     s.cfg.BatchDelay,
	}

	scheduler.Run(ctx, rows, func(batch BatchOutcome) {
		successes := make([]domain.Shareholder, 0, len(batch.Rows))
		for _, outcome := range batch.Rows {
			if outcome.Result.Status == domain.GeocodeOK {
				successes = append(successes, outcome.Row)
			} else {
				run.Ledger.Add(outcome.Row, domain.ReasonFor(outcome.Result.Status))
			}
		}

		if len(successes) > 0 {
			if err := s.bulk.UpsertBatch(ctx, run.ID, successes); err != nil {
				// rows stay counted as geocoded; the write failure
				// surfaces as a run warning
				log.Printf("persist batch for run %s: %v", run.ID, err)
				run.addWarning(fmt.Sprintf("persist batch: %v", err))
			}
		}

		run.update(batch.Done, batch.Total, len(successes), len(batch.Rows)-len(successes))
	})

	run.complete()

	view := run.View()
	if err := s.runs.Complete(ctx, run.ID, int64(view.Progress.Current), int64(view.Succeeded), int64(view.Failed)); err != nil {
		log.Printf("record completion for run %s: %v", run.ID, err)
	}
	log.Printf("import run %s finished: %d geocoded, %d failed", run.ID, view.Succeeded, view.Failed)
}

// Progress reads the live state of an active run.
func (s *Service) Progress(runID string) (RunView, error) {
	run, err := s.runFor(runID)
	if err != nil {
		return RunView{}, err
	}
	return run.View(), nil
}

// Run returns the persisted summary, which outlives the in-memory run state.
func (s *Service) Run(ctx context.Context, runID string) (domain.RunSummary, error) {
	return s.runs.Get(ctx, runID)
}

func (s *Service) Failures(runID string) ([]FailureEntry, error) {
	run, err := s.runFor(runID)
	if err != nil {
		return nil, err
	}
	return run.Ledger.Snapshot(), nil
}

func (s *Service) EditFailure(runID, key string, fields EditFields) (FailureEntry, error) {
	run, err := s.runFor(runID)
	if err != nil {
		return FailureEntry{}, err
	}
	return run.Ledger.Edit(key, fields)
}

// RetryFailure resubmits one ledger entry. The entry leaves the ledger only
// after the persistence write is confirmed; a failed write keeps the row in
// the ledger rather than dropping it on the floor.
func (s *Service) RetryFailure(ctx context.Context, runID, key, actor string) (RetryResult, error) {
	run, err := s.runFor(runID)
	if err != nil {
		return RetryResult{}, err
	}

	entry, ok := run.Ledger.Get(key)
	if !ok {
		return RetryResult{}, ErrEntryNotFound
	}

	result := s.geocoder.Resolve(ctx, entry.Row.Address)
	if result.Status != domain.GeocodeOK {
		updated, _ := run.Ledger.SetReason(key, domain.ReasonFor(result.Status))
		return RetryResult{Resolved: false, Entry: &updated}, nil
	}

	if _, err := s.persistResolved(ctx, entry, result, actor); err != nil {
		return RetryResult{}, err
	}

	run.Ledger.Remove(key)
	run.retrySucceeded()
	return RetryResult{Resolved: true}, nil
}

// RetryAllFailures resubmits every current ledger entry exactly once through
// the retry scheduling policy (batch size 1 by default, with a fixed delay
// between attempts). Each success is persisted and removed immediately. Like
// the initial import, the retry run passes the readiness gate first; if the
// service is down it aborts before any lookup and the ledger is untouched.
func (s *Service) RetryAllFailures(ctx context.Context, runID, actor string) (domain.RetryOutcome, error) {
	run, err := s.runFor(runID)
	if err != nil {
		return domain.RetryOutcome{}, err
	}

	entries := run.Ledger.Snapshot()
	if len(entries) == 0 {
		return domain.RetryOutcome{}, nil
	}

	if err := s.geocoder.Ready(ctx); err != nil {
		return domain.RetryOutcome{}, err
	}

	rows := make([]domain.Shareholder, len(entries))
	for i, entry := range entries {
		rows[i] = entry.Row
	}

	run.resetProgress(len(entries))

	scheduler := &Scheduler{
		Geocoder:  s.geocoder,
		BatchSize: s.cfg.RetryBatchSize,
		Delay:     s.cfg.RetryDelay,
	}

	succeeded := 0
	scheduler.Run(ctx, rows, func(batch BatchOutcome) {
		for _, outcome := range batch.Rows {
			entry := entries[outcome.Index]
			if outcome.Result.Status != domain.GeocodeOK {
				run.Ledger.SetReason(entry.Key, domain.ReasonFor(outcome.Result.Status))
				continue
			}

			if _, err := s.persistResolved(ctx, entry, outcome.Result, actor); err != nil {
				log.Printf("persist retried row %s for run %s: %v", entry.Key, run.ID, err)
				run.addWarning(fmt.Sprintf("persist retried row %s: %v", entry.Key, err))
				continue
			}

			run.Ledger.Remove(entry.Key)
			run.retrySucceeded()
			succeeded++
		}

		run.update(batch.Done, batch.Total, 0, 0)
	})

	return domain.RetryOutcome{Succeeded: succeeded, Remaining: run.Ledger.Len()}, nil
}

func (s *Service) ExportFailures(runID string) ([]byte, error) {
	run, err := s.runFor(runID)
	if err != nil {
		return nil, err
	}

	entries := run.Ledger.Snapshot()
	failures := make([]domain.FailedRow, 0, len(entries))
	for _, entry := range entries {
		failures = append(failures, domain.FailedRow{Row: entry.Row, Reason: entry.Reason})
	}
	return s.exporter.Export(failures)
}

// persistResolved writes a successfully retried row, folding the operator's
// pending edits and the new coordinates into one history record.
func (s *Service) persistResolved(ctx context.Context, entry FailureEntry, result domain.GeocodeResult, actor string) (domain.Shareholder, error) {
	row := entry.Row
	changes := append([]domain.FieldChange{}, entry.Edits...)
	changes = append(changes,
		domain.FieldChange{Field: "lat", Before: row.Lat, After: result.Lat},
		domain.FieldChange{Field: "lng", Before: row.Lng, After: result.Lng},
	)
	row.Lat = result.Lat
	row.Lng = result.Lng
	row.AppendHistory(actor, time.Now(), changes)

	if err := s.store.Upsert(ctx, row); err != nil {
		return domain.Shareholder{}, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return row, nil
}

func (s *Service) runFor(runID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.active[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}
