package shareholder

// RawRow is one parsed spreadsheet row, header name to cell value. Header
// names are normalized (lower-cased, trimmed) by the parser.
type RawRow map[string]string

// Sheet is the decoded form of an uploaded spreadsheet.
type Sheet struct {
	Header []string
	Rows   []RawRow
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Progress counters for one import run. Current counts rows, not batches,
// and never decreases within a run.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type RunSummary struct {
	ID          string
	Filename    string
	Status      RunStatus
	Processed   int64
	Succeeded   int64
	Failed      int64
	ErrorReason string
}

// RetryOutcome is the result of a bulk retry over the failure ledger.
type RetryOutcome struct {
	Succeeded int `json:"succeeded"`
	Remaining int `json:"remaining"`
}
