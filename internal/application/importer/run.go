package importer

import (
	"sync"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

// Run is the in-memory state of one import: progress counters, success and
// failure tallies, and the failure ledger. Progress is owned by the pipeline;
// consumers only ever read a copy through View.
type Run struct {
	ID       string
	Filename string
	Ledger   *Ledger

	mu        sync.RWMutex
	status    domain.RunStatus
	progress  domain.Progress
	succeeded int
	failed    int
	warnings  []string
	errReason string
}

// RunView is a read-only snapshot of a run for polling consumers.
type RunView struct {
	ID        string           `json:"id"`
	Filename  string           `json:"filename"`
	Status    domain.RunStatus `json:"status"`
	Progress  domain.Progress  `json:"progress"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Warnings  []string         `json:"warnings,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func newRun(id, filename string) *Run {
	return &Run{
		ID:       id,
		Filename: filename,
		Ledger:   NewLedger(),
		status:   domain.RunRunning,
	}
}

func (r *Run) update(done, total, succeeded, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = domain.Progress{Current: done, Total: total}
	r.succeeded += succeeded
	r.failed += failed
}

// resetProgress starts a fresh progress sequence, used when a retry run
// begins over the current ledger.
func (r *Run) resetProgress(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = domain.Progress{Current: 0, Total: total}
}

func (r *Run) retrySucceeded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded++
	if r.failed > 0 {
		r.failed--
	}
}

func (r *Run) addWarning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
}

func (r *Run) complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = domain.RunCompleted
}

func (r *Run) fail(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = domain.RunFailed
	r.errReason = reason
}

func (r *Run) View() RunView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view := RunView{
		ID:        r.ID,
		Filename:  r.Filename,
		Status:    r.status,
		Progress:  r.progress,
		Succeeded: r.succeeded,
		Failed:    r.failed,
		Error:     r.errReason,
	}
	view.Warnings = append(view.Warnings, r.warnings...)
	return view
}
