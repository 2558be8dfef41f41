package models

import "time"

type ImportRun struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	Filename       string  `gorm:"type:text;not null"`
	ArchivePath    string  `gorm:"type:text"`
	Status         string  `gorm:"type:text;not null"`
	ProcessedCount int64   `gorm:"not null;default:0"`
	SucceededCount int64   `gorm:"not null;default:0"`
	FailedCount    int64   `gorm:"not null;default:0"`
	ErrorMessage   *string `gorm:"type:text"`
	StartedAt      time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ImportRun) TableName() string {
	return "import_runs"
}
