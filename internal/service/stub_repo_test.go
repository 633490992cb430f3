package service

import (
	"context"
	"maps"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"capbudget/internal/models"
	"capbudget/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Mutations are applied to the maps so tests can assert on the state the
// services left behind.
type stubRepo struct {
	optimizations map[uint64]*models.Optimization
	inputs        []models.ProjectInput
	constraints   []models.BalanceConstraint
	groups        []models.ProjectGroup

	results   map[uint64]*models.OptimizationResult
	selected  map[uint64][]models.SelectedProject
	balances  map[uint64][]models.PeriodBalance
	cashFlows map[uint64][]models.PeriodCashFlow

	nextID        uint64
	resultDeletes int
	txErr         error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		optimizations: map[uint64]*models.Optimization{},
		results:       map[uint64]*models.OptimizationResult{},
		selected:      map[uint64][]models.SelectedProject{},
		balances:      map[uint64][]models.PeriodBalance{},
		cashFlows:     map[uint64][]models.PeriodCashFlow{},
	}
}

// InTx restores the result tables when fn errors, so atomicity assertions
// hold against the stub too. Snapshots are shallow map copies; inserts only
// replace slice headers, so the old headers stay intact.
func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	results := maps.Clone(s.results)
	selected := maps.Clone(s.selected)
	balances := maps.Clone(s.balances)
	cashFlows := maps.Clone(s.cashFlows)
	if err := fn(nil); err != nil {
		s.results = results
		s.selected = selected
		s.balances = balances
		s.cashFlows = cashFlows
		return err
	}
	return nil
}

func (s *stubRepo) CreateOptimizationTx(ctx context.Context, tx *gorm.DB, item *models.Optimization) error {
	s.nextID++
	item.ID = s.nextID
	item.CreatedAt = time.Now().UTC()
	s.optimizations[item.ID] = item
	return nil
}

func (s *stubRepo) GetOptimization(ctx context.Context, id uint64) (*models.Optimization, error) {
	opt, ok := s.optimizations[id]
	if !ok {
		return nil, nil
	}
	copied := *opt
	return &copied, nil
}

func (s *stubRepo) ListOptimizations(ctx context.Context, params repository.ListOptimizationsParams) ([]models.Optimization, error) {
	var out []models.Optimization
	for _, opt := range s.optimizations {
		if params.Status != nil && opt.Status != *params.Status {
			continue
		}
		out = append(out, *opt)
	}
	return out, nil
}

func (s *stubRepo) CountOptimizations(ctx context.Context, params repository.ListOptimizationsParams) (int64, error) {
	items, _ := s.ListOptimizations(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) DeleteOptimization(ctx context.Context, id uint64) error {
	delete(s.optimizations, id)
	return nil
}

func (s *stubRepo) UpdateOptimization(ctx context.Context, id uint64, updates map[string]any) error {
	opt, ok := s.optimizations[id]
	if !ok {
		return nil
	}
	if v, ok := updates["status"].(string); ok {
		opt.Status = v
	}
	if v, ok := updates["status_url"].(string); ok {
		opt.StatusURL = &v
	}
	if v, ok := updates["input_files"].([]byte); ok {
		opt.InputFiles = datatypes.JSON(v)
	}
	if v, ok := updates["output_files"].([]byte); ok {
		opt.OutputFiles = datatypes.JSON(v)
	}
	if v, ok := updates["completed_at"].(*time.Time); ok {
		opt.CompletedAt = v
	}
	return nil
}

func (s *stubRepo) AppendExecutionLog(ctx context.Context, id uint64, line string) error {
	opt, ok := s.optimizations[id]
	if !ok {
		return nil
	}
	if opt.ExecutionLog == "" {
		opt.ExecutionLog = line
	} else {
		opt.ExecutionLog += "\n" + line
	}
	return nil
}

func (s *stubRepo) ListRunningOptimizations(ctx context.Context, limit int) ([]models.Optimization, error) {
	var out []models.Optimization
	for _, opt := range s.optimizations {
		if opt.Status == models.StatusRunning {
			out = append(out, *opt)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertProjectInputsTx(ctx context.Context, tx *gorm.DB, items []models.ProjectInput) error {
	s.inputs = append(s.inputs, items...)
	return nil
}

func (s *stubRepo) InsertBalanceConstraintsTx(ctx context.Context, tx *gorm.DB, items []models.BalanceConstraint) error {
	s.constraints = append(s.constraints, items...)
	return nil
}

func (s *stubRepo) InsertProjectGroupsTx(ctx context.Context, tx *gorm.DB, items []models.ProjectGroup) error {
	s.groups = append(s.groups, items...)
	return nil
}

func (s *stubRepo) ListProjectInputs(ctx context.Context, optimizationID uint64, inputType string) ([]models.ProjectInput, error) {
	var out []models.ProjectInput
	for _, in := range s.inputs {
		if in.OptimizationID != optimizationID {
			continue
		}
		if inputType != "" && in.Type != inputType {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

func (s *stubRepo) ListBalanceConstraints(ctx context.Context, optimizationID uint64) ([]models.BalanceConstraint, error) {
	var out []models.BalanceConstraint
	for _, c := range s.constraints {
		if c.OptimizationID == optimizationID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubRepo) ListProjectGroups(ctx context.Context, optimizationID uint64) ([]models.ProjectGroup, error) {
	var out []models.ProjectGroup
	for _, g := range s.groups {
		if g.OptimizationID == optimizationID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *stubRepo) DistinctProjectNames(ctx context.Context, optimizationID uint64) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, in := range s.inputs {
		if in.OptimizationID == optimizationID && !seen[in.ProjectName] {
			seen[in.ProjectName] = true
			out = append(out, in.ProjectName)
		}
	}
	return out, nil
}

func (s *stubRepo) MaxGroupID(ctx context.Context, optimizationID uint64) (int, error) {
	max := 0
	for _, g := range s.groups {
		if g.OptimizationID == optimizationID && g.GroupID > max {
			max = g.GroupID
		}
	}
	return max, nil
}

func (s *stubRepo) DeleteResultsTx(ctx context.Context, tx *gorm.DB, optimizationID uint64) error {
	s.resultDeletes++
	delete(s.results, optimizationID)
	delete(s.selected, optimizationID)
	delete(s.balances, optimizationID)
	delete(s.cashFlows, optimizationID)
	return nil
}

func (s *stubRepo) InsertOptimizationResultTx(ctx context.Context, tx *gorm.DB, item *models.OptimizationResult) error {
	s.results[item.OptimizationID] = item
	return nil
}

func (s *stubRepo) InsertSelectedProjectsTx(ctx context.Context, tx *gorm.DB, items []models.SelectedProject) error {
	for _, item := range items {
		s.selected[item.OptimizationID] = append(s.selected[item.OptimizationID], item)
	}
	return nil
}

func (s *stubRepo) InsertPeriodBalancesTx(ctx context.Context, tx *gorm.DB, items []models.PeriodBalance) error {
	for _, item := range items {
		s.balances[item.OptimizationID] = append(s.balances[item.OptimizationID], item)
	}
	return nil
}

func (s *stubRepo) InsertPeriodCashFlowsTx(ctx context.Context, tx *gorm.DB, items []models.PeriodCashFlow) error {
	for _, item := range items {
		s.cashFlows[item.OptimizationID] = append(s.cashFlows[item.OptimizationID], item)
	}
	return nil
}

func (s *stubRepo) GetOptimizationResult(ctx context.Context, optimizationID uint64) (*models.OptimizationResult, error) {
	return s.results[optimizationID], nil
}

func (s *stubRepo) ListSelectedProjects(ctx context.Context, optimizationID uint64) ([]models.SelectedProject, error) {
	return s.selected[optimizationID], nil
}

func (s *stubRepo) ListPeriodBalances(ctx context.Context, optimizationID uint64) ([]models.PeriodBalance, error) {
	return s.balances[optimizationID], nil
}

func (s *stubRepo) ListPeriodCashFlows(ctx context.Context, optimizationID uint64) ([]models.PeriodCashFlow, error) {
	return s.cashFlows[optimizationID], nil
}
