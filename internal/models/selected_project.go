package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SelectedProject struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement"`
	OptimizationID  uint64          `gorm:"not null;index;constraint:OnDelete:CASCADE"`
	ProjectName     string          `gorm:"type:text;not null"`
	StartPeriod     int             `gorm:"not null"`
	SetupCost       decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	TotalReward     decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	NPVContribution decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	CreatedAt       time.Time       `gorm:"type:timestamptz;not null"`
}

func (SelectedProject) TableName() string {
	return "selected_projects"
}
