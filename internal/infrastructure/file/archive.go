package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Archive keeps a copy of every uploaded spreadsheet on disk so a run can be
// audited or replayed after the in-memory failure ledger is gone.
type Archive struct {
	BaseDir string
}

func NewArchive(baseDir string) *Archive {
	if baseDir == "" {
		baseDir = "."
	}
	return &Archive{BaseDir: baseDir}
}

func (a *Archive) Save(ctx context.Context, runID, filename string, payload []byte) (string, error) {
	if err := os.MkdirAll(a.BaseDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir %s: %w", a.BaseDir, err)
	}

	path := filepath.Join(a.BaseDir, runID+"_"+filepath.Base(filename))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("archive upload %s: %w", path, err)
	}
	return path, nil
}
