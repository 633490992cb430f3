package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"capbudget/internal/models"
	"capbudget/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Aggregate root ---------------------------------------------------------

func (s *Store) CreateOptimizationTx(ctx context.Context, tx *gorm.DB, item *models.Optimization) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetOptimization(ctx context.Context, id uint64) (*models.Optimization, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Optimization
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListOptimizations(ctx context.Context, params repository.ListOptimizationsParams) ([]models.Optimization, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Optimization{})
	query = applyOptimizationFilters(query, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Optimization
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountOptimizations(ctx context.Context, params repository.ListOptimizationsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Optimization{})
	query = applyOptimizationFilters(query, params)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) DeleteOptimization(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	// Children carry ON DELETE CASCADE, but delete them explicitly so the
	// behavior holds on databases migrated without the constraint.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.ProjectInput{},
			&models.BalanceConstraint{},
			&models.ProjectGroup{},
			&models.OptimizationResult{},
			&models.SelectedProject{},
			&models.PeriodBalance{},
			&models.PeriodCashFlow{},
		} {
			if err := tx.Where("optimization_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Optimization{}, "id = ?", id).Error
	})
}

func (s *Store) UpdateOptimization(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Optimization{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// AppendExecutionLog adds a line to the execution log without ever
// overwriting what is already there.
func (s *Store) AppendExecutionLog(ctx context.Context, id uint64, line string) error {
	if s == nil || s.db == nil || strings.TrimSpace(line) == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Optimization{}).
		Where("id = ?", id).
		UpdateColumn("execution_log",
			gorm.Expr("CASE WHEN execution_log = '' THEN ? ELSE execution_log || chr(10) || ? END", line, line)).Error
}

func (s *Store) ListRunningOptimizations(ctx context.Context, limit int) ([]models.Optimization, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Optimization
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusRunning).
		Order("created_at asc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Input children ---------------------------------------------------------

func (s *Store) InsertProjectInputsTx(ctx context.Context, tx *gorm.DB, items []models.ProjectInput) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (s *Store) InsertBalanceConstraintsTx(ctx context.Context, tx *gorm.DB, items []models.BalanceConstraint) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (s *Store) InsertProjectGroupsTx(ctx context.Context, tx *gorm.DB, items []models.ProjectGroup) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (s *Store) ListProjectInputs(ctx context.Context, optimizationID uint64, inputType string) ([]models.ProjectInput, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Where("optimization_id = ?", optimizationID)
	if inputType != "" {
		query = query.Where("type = ?", inputType)
	}
	var items []models.ProjectInput
	if err := query.Order("project_name asc").Order("period asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListBalanceConstraints(ctx context.Context, optimizationID uint64) ([]models.BalanceConstraint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.BalanceConstraint
	err := s.db.WithContext(ctx).
		Where("optimization_id = ?", optimizationID).
		Order("period asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListProjectGroups(ctx context.Context, optimizationID uint64) ([]models.ProjectGroup, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ProjectGroup
	err := s.db.WithContext(ctx).
		Where("optimization_id = ?", optimizationID).
		Order("group_id asc").Order("project_name asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DistinctProjectNames(ctx context.Context, optimizationID uint64) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var names []string
	err := s.db.WithContext(ctx).
		Model(&models.ProjectInput{}).
		Where("optimization_id = ?", optimizationID).
		Distinct("project_name").
		Order("project_name asc").
		Pluck("project_name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Store) MaxGroupID(ctx context.Context, optimizationID uint64) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var max int
	err := s.db.WithContext(ctx).
		Model(&models.ProjectGroup{}).
		Where("optimization_id = ?", optimizationID).
		Select("COALESCE(MAX(group_id), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

// --- Result children --------------------------------------------------------

func (s *Store) DeleteResultsTx(ctx context.Context, tx *gorm.DB, optimizationID uint64) error {
	if tx == nil {
		return nil
	}
	for _, model := range []any{
		&models.OptimizationResult{},
		&models.SelectedProject{},
		&models.PeriodBalance{},
		&models.PeriodCashFlow{},
	} {
		if err := tx.WithContext(ctx).Where("optimization_id = ?", optimizationID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertOptimizationResultTx(ctx context.Context, tx *gorm.DB, item *models.OptimizationResult) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) InsertSelectedProjectsTx(ctx context.Context, tx *gorm.DB, items []models.SelectedProject) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (s *Store) InsertPeriodBalancesTx(ctx context.Context, tx *gorm.DB, items []models.PeriodBalance) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (s *Store) InsertPeriodCashFlowsTx(ctx context.Context, tx *gorm.DB, items []models.PeriodCashFlow) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (s *Store) GetOptimizationResult(ctx context.Context, optimizationID uint64) (*models.OptimizationResult, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.OptimizationResult
	err := s.db.WithContext(ctx).First(&item, "optimization_id = ?", optimizationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSelectedProjects(ctx context.Context, optimizationID uint64) ([]models.SelectedProject, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SelectedProject
	err := s.db.WithContext(ctx).
		Where("optimization_id = ?", optimizationID).
		Order("start_period asc").Order("project_name asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListPeriodBalances(ctx context.Context, optimizationID uint64) ([]models.PeriodBalance, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PeriodBalance
	err := s.db.WithContext(ctx).
		Where("optimization_id = ?", optimizationID).
		Order("period asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListPeriodCashFlows(ctx context.Context, optimizationID uint64) ([]models.PeriodCashFlow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PeriodCashFlow
	err := s.db.WithContext(ctx).
		Where("optimization_id = ?", optimizationID).
		Order("period asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func applyOptimizationFilters(query *gorm.DB, params repository.ListOptimizationsParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := fallback
	switch strings.TrimSpace(orderBy) {
	case "created_at", "updated_at", "completed_at", "status":
		column = strings.TrimSpace(orderBy)
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
