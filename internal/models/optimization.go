package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Optimization is the aggregate root. All input and result children hang off
// OptimizationID and are deleted with it.
type Optimization struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	Description    *string         `gorm:"type:text"`
	Status         string          `gorm:"type:text;not null;default:pending;index"`
	TotalPeriods   int             `gorm:"not null"`
	DiscountRate   decimal.Decimal `gorm:"type:numeric(8,6);not null"`
	InitialBalance decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	NbMustTakeOne  int             `gorm:"not null;default:0"`
	StatusURL      *string         `gorm:"type:text"`
	InputFiles     datatypes.JSON  `gorm:"type:jsonb"`
	OutputFiles    datatypes.JSON  `gorm:"type:jsonb"`
	ExecutionLog   string          `gorm:"type:text;not null;default:''"`
	CompletedAt    *time.Time      `gorm:"type:timestamptz"`
	CreatedAt      time.Time       `gorm:"type:timestamptz;not null;index"`
	UpdatedAt      time.Time       `gorm:"type:timestamptz;not null"`
}

func (Optimization) TableName() string {
	return "optimizations"
}

func (o *Optimization) IsRunning() bool   { return o.Status == StatusRunning }
func (o *Optimization) IsCompleted() bool { return o.Status == StatusCompleted }
