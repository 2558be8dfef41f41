package importer

import (
	"sync"

	"github.com/google/uuid"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

// FailureEntry is one row that failed geocoding, plus the edits an operator
// made to it since the failure. Edits accumulate until a retry succeeds, at
// which point they become the row's history record.
type FailureEntry struct {
	Key    string               `json:"key"`
	Row    domain.Shareholder   `json:"row"`
	Reason domain.FailureReason `json:"reason"`
	Edits  []domain.FieldChange `json:"edits,omitempty"`
}

// EditFields are the ledger fields an operator may change before resubmitting.
// Nil pointers leave the field untouched.
type EditFields struct {
	Address        *string `json:"address"`
	DisplayAddress *string `json:"display_address"`
	Memo           *string `json:"memo"`
	Status         *string `json:"status"`
}

// Ledger is the in-memory set of failed rows for one import run, in insertion
// order. It is mutated from interleaved retry completions and read by
// handlers, so every operation holds the mutex. The ledger is never persisted;
// it lives and dies with the run.
type Ledger struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*FailureEntry
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*FailureEntry)}
}

// Add inserts a failed row and returns its ledger key: the row's identifier
// when it has one, a generated one otherwise (fresh imports carry no id yet).
func (l *Ledger) Add(row domain.Shareholder, reason domain.FailureReason) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := row.ID
	if key == "" {
		key = uuid.NewString()
	}
	if _, taken := l.entries[key]; taken {
		key = uuid.NewString()
	}

	l.entries[key] = &FailureEntry{Key: key, Row: row, Reason: reason}
	l.order = append(l.order, key)
	return key
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) Get(key string) (FailureEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return FailureEntry{}, false
	}
	return *entry, true
}

// Snapshot returns the current entries in insertion order.
func (l *Ledger) Snapshot() []FailureEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]FailureEntry, 0, len(l.entries))
	for _, key := range l.order {
		if entry, ok := l.entries[key]; ok {
			out = append(out, *entry)
		}
	}
	return out
}

// Edit mutates an entry's editable fields in place and records before/after
// changes for the row's eventual history record. It does not re-attempt
// geocoding.
func (l *Ledger) Edit(key string, fields EditFields) (FailureEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return FailureEntry{}, ErrEntryNotFound
	}

	apply := func(field, before string, set func(string), after *string) {
		if after == nil || *after == before {
			return
		}
		entry.Edits = append(entry.Edits, domain.FieldChange{Field: field, Before: before, After: *after})
		set(*after)
	}

	apply("address", entry.Row.Address, func(v string) { entry.Row.Address = v }, fields.Address)
	apply("display_address", entry.Row.DisplayAddress, func(v string) { entry.Row.DisplayAddress = v }, fields.DisplayAddress)
	apply("memo", entry.Row.Memo, func(v string) { entry.Row.Memo = v }, fields.Memo)
	if fields.Status != nil {
		next := domain.ParseStatus(*fields.Status)
		if next != entry.Row.Status {
			entry.Edits = append(entry.Edits, domain.FieldChange{Field: "status", Before: string(entry.Row.Status), After: string(next)})
			entry.Row.Status = next
		}
	}

	return *entry, nil
}

// SetReason updates the stored failure reason after a retry that failed
// again. The entry stays in the ledger.
func (l *Ledger) SetReason(key string, reason domain.FailureReason) (FailureEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return FailureEntry{}, false
	}
	entry.Reason = reason
	return *entry, true
}

// Remove deletes an entry after its retry has been persisted. Removing an
// already-removed key is a no-op.
func (l *Ledger) Remove(key string) (FailureEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return FailureEntry{}, false
	}
	delete(l.entries, key)
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return *entry, true
}
