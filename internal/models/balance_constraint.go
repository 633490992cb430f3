package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BalanceConstraint struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	OptimizationID uint64          `gorm:"not null;uniqueIndex:uq_balance_constraints,priority:1;constraint:OnDelete:CASCADE"`
	Period         int             `gorm:"not null;uniqueIndex:uq_balance_constraints,priority:2"`
	MinBalance     decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	CreatedAt      time.Time       `gorm:"type:timestamptz;not null"`
}

func (BalanceConstraint) TableName() string {
	return "balance_constraints"
}
