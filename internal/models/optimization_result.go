package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptimizationResult is the one-per-optimization solver summary, overwritten
// on each re-run.
type OptimizationResult struct {
	ID               uint64          `gorm:"primaryKey;autoIncrement"`
	OptimizationID   uint64          `gorm:"not null;uniqueIndex;constraint:OnDelete:CASCADE"`
	NPV              decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	FinalBalance     decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	InitialBalance   decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	TotalPeriods     int             `gorm:"not null"`
	TotalProjects    int             `gorm:"not null"`
	ProjectsSelected int             `gorm:"not null"`
	SolverStatus     string          `gorm:"type:text;not null"`
	CreatedAt        time.Time       `gorm:"type:timestamptz;not null"`
}

func (OptimizationResult) TableName() string {
	return "optimization_results"
}

// EfficiencyRate is the share of candidate projects the solver selected.
func (r *OptimizationResult) EfficiencyRate() float64 {
	if r.TotalProjects == 0 {
		return 0
	}
	return float64(r.ProjectsSelected) / float64(r.TotalProjects) * 100
}
