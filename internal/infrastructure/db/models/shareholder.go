package models

import (
	"encoding/json"
	"time"
)

type Shareholder struct {
	ID             string          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name           string          `gorm:"size:255;not null"`
	Address        string          `gorm:"type:text;not null"`
	DisplayAddress string          `gorm:"type:text"`
	Shares         int64           `gorm:"not null;default:0"`
	Status         string          `gorm:"size:32;not null;default:'unvisited'"`
	Memo           string          `gorm:"type:text"`
	Company        string          `gorm:"size:255;index"`
	MarkerCategory string          `gorm:"size:64"`
	Lat            string          `gorm:"size:32"`
	Lng            string          `gorm:"size:32"`
	History        json.RawMessage `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Shareholder) TableName() string {
	return "shareholders"
}
