package importer_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	app "github.com/geomap-tools/shareholder-import/internal/application/importer"
	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

// fakeGeocoder resolves addresses from a canned map and tracks how many
// lookups are in flight at once.
type fakeGeocoder struct {
	mu        sync.Mutex
	readyErr  error
	results   map[string]domain.GeocodeResult
	delay     time.Duration
	inFlight  int
	maxComing int
	calls     int
}

func (f *fakeGeocoder) Ready(ctx context.Context) error {
	return f.readyErr
}

func (f *fakeGeocoder) Resolve(ctx context.Context, address string) domain.GeocodeResult {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxComing {
		f.maxComing = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	result, ok := f.results[address]
	f.mu.Unlock()

	if !ok {
		return domain.GeocodeResult{Status: domain.GeocodeNoMatch}
	}
	return result
}

func (f *fakeGeocoder) maxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxComing
}

func makeRows(addresses ...string) []domain.Shareholder {
	rows := make([]domain.Shareholder, 0, len(addresses))
	for _, address := range addresses {
		rows = append(rows, domain.Shareholder{Name: "holder " + address, Address: address})
	}
	return rows
}

func okResult(lat, lng string) domain.GeocodeResult {
	return domain.GeocodeResult{Status: domain.GeocodeOK, Lat: lat, Lng: lng}
}

func TestSchedulerProgressSequence(t *testing.T) {
	t.Parallel()

	geocoder := &fakeGeocoder{results: map[string]domain.GeocodeResult{
		"a1": okResult("35.1", "139.1"),
		"a2": okResult("35.2", "139.2"),
		"a3": okResult("35.3", "139.3"),
		"a4": okResult("35.4", "139.4"),
		"a5": okResult("35.5", "139.5"),
	}}

	scheduler := &app.Scheduler{Geocoder: geocoder, BatchSize: 2, Delay: time.Millisecond}

	var progress []domain.Progress
	scheduler.Run(context.Background(), makeRows("a1", "a2", "a3", "a4", "a5"), func(batch app.BatchOutcome) {
		progress = append(progress, domain.Progress{Current: batch.Done, Total: batch.Total})
	})

	want := []domain.Progress{{Current: 2, Total: 5}, {Current: 4, Total: 5}, {Current: 5, Total: 5}}
	if len(progress) != len(want) {
		t.Fatalf("expected %d progress updates, got %d", len(want), len(progress))
	}
	for i, p := range want {
		if progress[i] != p {
			t.Fatalf("progress[%d] = %+v, want %+v", i, progress[i], p)
		}
	}
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	t.Parallel()

	geocoder := &fakeGeocoder{
		delay:   5 * time.Millisecond,
		results: map[string]domain.GeocodeResult{},
	}
	for _, address := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		geocoder.results[address] = okResult("1", "2")
	}

	scheduler := &app.Scheduler{Geocoder: geocoder, BatchSize: 3, Delay: time.Millisecond}
	scheduler.Run(context.Background(), makeRows("a", "b", "c", "d", "e", "f", "g", "h", "i", "j"), nil)

	if geocoder.calls != 10 {
		t.Fatalf("expected 10 lookups, got %d", geocoder.calls)
	}
	if got := geocoder.maxInFlight(); got > 3 {
		t.Fatalf("expected at most 3 in-flight lookups, observed %d", got)
	}
}

func TestSchedulerEmptyInput(t *testing.T) {
	t.Parallel()

	geocoder := &fakeGeocoder{}
	scheduler := &app.Scheduler{Geocoder: geocoder, BatchSize: 4, Delay: time.Millisecond}

	called := false
	scheduler.Run(context.Background(), nil, func(app.BatchOutcome) { called = true })

	if called {
		t.Fatal("expected no batch callbacks for empty input")
	}
	if geocoder.calls != 0 {
		t.Fatalf("expected no lookups, got %d", geocoder.calls)
	}
}

func TestSchedulerSetsCoordinatesOnSuccess(t *testing.T) {
	t.Parallel()

	geocoder := &fakeGeocoder{results: map[string]domain.GeocodeResult{
		"tokyo": okResult("35.676192", "139.650311"),
	}}

	scheduler := &app.Scheduler{Geocoder: geocoder, BatchSize: 2, Delay: time.Millisecond}

	var outcomes []app.RowOutcome
	scheduler.Run(context.Background(), makeRows("tokyo", "nowhere"), func(batch app.BatchOutcome) {
		outcomes = append(outcomes, batch.Rows...)
	})

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, outcome := range outcomes {
		switch outcome.Row.Address {
		case "tokyo":
			if outcome.Result.Status != domain.GeocodeOK {
				t.Fatalf("expected tokyo to resolve, got %s", outcome.Result.Status)
			}
			if outcome.Row.Lat != "35.676192" || outcome.Row.Lng != "139.650311" {
				t.Fatalf("unexpected coordinates: %s, %s", outcome.Row.Lat, outcome.Row.Lng)
			}
		case "nowhere":
			if outcome.Result.Status != domain.GeocodeNoMatch {
				t.Fatalf("expected no match, got %s", outcome.Result.Status)
			}
			if outcome.Row.Geocoded() {
				t.Fatal("failed row must not carry coordinates")
			}
		default:
			t.Fatalf("unexpected address %q", outcome.Row.Address)
		}
	}
}

func TestSchedulerStopsBetweenBatchesOnCancel(t *testing.T) {
	t.Parallel()

	geocoder := &fakeGeocoder{results: map[string]domain.GeocodeResult{}}
	for _, address := range []string{"a", "b", "c", "d"} {
		geocoder.results[address] = okResult("1", "2")
	}

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := &app.Scheduler{Geocoder: geocoder, BatchSize: 2, Delay: 50 * time.Millisecond}

	batches := 0
	scheduler.Run(ctx, makeRows("a", "b", "c", "d"), func(batch app.BatchOutcome) {
		batches++
		cancel()
	})

	if batches != 1 {
		t.Fatalf("expected the in-flight batch to complete and no further batches, got %d", batches)
	}
}

func TestSchedulerTreatsBothFailureKindsAsFailed(t *testing.T) {
	t.Parallel()

	geocoder := &fakeGeocoder{results: map[string]domain.GeocodeResult{
		"broken": {Status: domain.GeocodeServiceError},
	}}

	scheduler := &app.Scheduler{Geocoder: geocoder, BatchSize: 2, Delay: time.Millisecond}

	var failures []domain.FailureReason
	scheduler.Run(context.Background(), makeRows("broken", "missing"), func(batch app.BatchOutcome) {
		for _, outcome := range batch.Rows {
			if outcome.Result.Status != domain.GeocodeOK {
				failures = append(failures, domain.ReasonFor(outcome.Result.Status))
			}
		}
	})

	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	joined := strings.Join([]string{string(failures[0]), string(failures[1])}, ",")
	if !strings.Contains(joined, string(domain.ReasonServiceError)) || !strings.Contains(joined, string(domain.ReasonNoMatch)) {
		t.Fatalf("expected both failure reasons preserved, got %s", joined)
	}
}
