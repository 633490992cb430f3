package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PeriodCashFlow struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	OptimizationID uint64          `gorm:"not null;uniqueIndex:uq_period_cash_flows,priority:1;constraint:OnDelete:CASCADE"`
	Period         int             `gorm:"not null;uniqueIndex:uq_period_cash_flows,priority:2"`
	CashIn         decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	CashOut        decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	NetCashFlow    decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	CreatedAt      time.Time       `gorm:"type:timestamptz;not null"`
}

func (PeriodCashFlow) TableName() string {
	return "period_cash_flows"
}
