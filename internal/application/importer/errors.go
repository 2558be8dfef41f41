package importer

import "errors"

var (
	ErrEntryNotFound = errors.New("failure entry not found")
	ErrPersistFailed = errors.New("failed to persist geocoded row")
	ErrCreateRun     = errors.New("failed to create import run")
)
