package shareholder

import (
	"strings"
	"time"
)

type Status string

const (
	StatusUnvisited Status = "unvisited"
	StatusComplete  Status = "complete"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// ParseStatus maps free-form cell values onto the status enum. Anything
// unrecognized falls back to unvisited, matching how fresh imports start.
func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusComplete:
		return StatusComplete
	case StatusPending:
		return StatusPending
	case StatusFailed:
		return StatusFailed
	default:
		return StatusUnvisited
	}
}

type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

type HistoryEntry struct {
	Actor   string        `json:"actor"`
	At      time.Time     `json:"at"`
	Changes []FieldChange `json:"changes"`
}

// Shareholder is one registry entry under import. ID is empty for rows that
// were never persisted before; Lat/Lng are decimal-degree strings and are set
// only after a successful geocode.
type Shareholder struct {
	ID             string
	Name           string
	Address        string
	DisplayAddress string
	Shares         int
	Status         Status
	Memo           string
	Company        string
	MarkerCategory string
	Lat            string
	Lng            string
	History        []HistoryEntry
}

func (s *Shareholder) Geocoded() bool {
	return s.Lat != "" && s.Lng != ""
}

func (s *Shareholder) AppendHistory(actor string, at time.Time, changes []FieldChange) {
	if len(changes) == 0 {
		return
	}
	s.History = append(s.History, HistoryEntry{Actor: actor, At: at, Changes: changes})
}
