package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PeriodBalance struct {
	ID                uint64          `gorm:"primaryKey;autoIncrement"`
	OptimizationID    uint64          `gorm:"not null;uniqueIndex:uq_period_balances,priority:1;constraint:OnDelete:CASCADE"`
	Period            int             `gorm:"not null;uniqueIndex:uq_period_balances,priority:2"`
	Balance           decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	DiscountedBalance decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	CreatedAt         time.Time       `gorm:"type:timestamptz;not null"`
}

func (PeriodBalance) TableName() string {
	return "period_balances"
}
