package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InputTypeCost   = "cost"
	InputTypeReward = "reward"
)

// ProjectInput is a sparse per-project, per-period cash entry. Costs and
// rewards share the table, distinguished by Type.
type ProjectInput struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	OptimizationID uint64          `gorm:"not null;uniqueIndex:uq_project_inputs,priority:1;constraint:OnDelete:CASCADE"`
	ProjectName    string          `gorm:"type:text;not null;uniqueIndex:uq_project_inputs,priority:2"`
	Period         int             `gorm:"not null;uniqueIndex:uq_project_inputs,priority:3"`
	Type           string          `gorm:"type:text;not null;uniqueIndex:uq_project_inputs,priority:4"`
	Amount         decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	CreatedAt      time.Time       `gorm:"type:timestamptz;not null"`
}

func (ProjectInput) TableName() string {
	return "project_inputs"
}
