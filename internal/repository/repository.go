package repository

import (
	"context"

	"gorm.io/gorm"

	"capbudget/internal/models"
)

// Repository is the persistence surface for the optimization pipeline.
// Optimization is the aggregate root; child rows are always queried and
// deleted scoped to its id. Tx-suffixed methods run against a caller-supplied
// transaction handle from InTx.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Aggregate root.
	CreateOptimizationTx(ctx context.Context, tx *gorm.DB, item *models.Optimization) error
	GetOptimization(ctx context.Context, id uint64) (*models.Optimization, error)
	ListOptimizations(ctx context.Context, params ListOptimizationsParams) ([]models.Optimization, error)
	CountOptimizations(ctx context.Context, params ListOptimizationsParams) (int64, error)
	DeleteOptimization(ctx context.Context, id uint64) error
	UpdateOptimization(ctx context.Context, id uint64, updates map[string]any) error
	AppendExecutionLog(ctx context.Context, id uint64, line string) error
	ListRunningOptimizations(ctx context.Context, limit int) ([]models.Optimization, error)

	// Input children.
	InsertProjectInputsTx(ctx context.Context, tx *gorm.DB, items []models.ProjectInput) error
	InsertBalanceConstraintsTx(ctx context.Context, tx *gorm.DB, items []models.BalanceConstraint) error
	InsertProjectGroupsTx(ctx context.Context, tx *gorm.DB, items []models.ProjectGroup) error
	ListProjectInputs(ctx context.Context, optimizationID uint64, inputType string) ([]models.ProjectInput, error)
	ListBalanceConstraints(ctx context.Context, optimizationID uint64) ([]models.BalanceConstraint, error)
	ListProjectGroups(ctx context.Context, optimizationID uint64) ([]models.ProjectGroup, error)
	DistinctProjectNames(ctx context.Context, optimizationID uint64) ([]string, error)
	MaxGroupID(ctx context.Context, optimizationID uint64) (int, error)

	// Result children. Writes happen inside the ingestion transaction.
	DeleteResultsTx(ctx context.Context, tx *gorm.DB, optimizationID uint64) error
	InsertOptimizationResultTx(ctx context.Context, tx *gorm.DB, item *models.OptimizationResult) error
	InsertSelectedProjectsTx(ctx context.Context, tx *gorm.DB, items []models.SelectedProject) error
	InsertPeriodBalancesTx(ctx context.Context, tx *gorm.DB, items []models.PeriodBalance) error
	InsertPeriodCashFlowsTx(ctx context.Context, tx *gorm.DB, items []models.PeriodCashFlow) error

	GetOptimizationResult(ctx context.Context, optimizationID uint64) (*models.OptimizationResult, error)
	ListSelectedProjects(ctx context.Context, optimizationID uint64) ([]models.SelectedProject, error)
	ListPeriodBalances(ctx context.Context, optimizationID uint64) ([]models.PeriodBalance, error)
	ListPeriodCashFlows(ctx context.Context, optimizationID uint64) ([]models.PeriodCashFlow, error)
}

type ListOptimizationsParams struct {
	Limit   int
	Offset  int
	Status  *string
	OrderBy string
	Asc     *bool
}
