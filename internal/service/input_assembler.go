package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"capbudget/internal/csvcodec"
	"capbudget/internal/models"
	"capbudget/internal/repository"
)

// Canonical input filenames the solver deployment expects verbatim.
const (
	FileParameters     = "parameters.csv"
	FileProjectCosts   = "ProjectCosts.csv"
	FileProjectRewards = "ProjectRewards.csv"
	FileMinBal         = "MinBal.csv"
	FileMustTakeOne    = "MustTakeOne.csv"
)

// InputFileNames lists the five canonical input files in upload order.
var InputFileNames = []string{
	FileParameters,
	FileProjectCosts,
	FileProjectRewards,
	FileMinBal,
	FileMustTakeOne,
}

// InputAssembler turns one optimization's stored input rows into the five
// canonical CSV payloads, and pre-validates completeness before submission.
type InputAssembler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// BuildInputFiles returns the five canonical CSV payloads keyed by filename.
func (a *InputAssembler) BuildInputFiles(ctx context.Context, opt *models.Optimization) (map[string]string, error) {
	parameters, err := a.buildParameters(opt)
	if err != nil {
		return nil, err
	}
	costs, err := a.buildProjectEntries(ctx, opt.ID, models.InputTypeCost, []string{"project", "period", "cost"})
	if err != nil {
		return nil, err
	}
	rewards, err := a.buildProjectEntries(ctx, opt.ID, models.InputTypeReward, []string{"project", "period", "reward"})
	if err != nil {
		return nil, err
	}
	minBal, err := a.buildMinBalances(ctx, opt.ID)
	if err != nil {
		return nil, err
	}
	mustTakeOne, err := a.buildMustTakeOne(ctx, opt.ID)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		FileParameters:     parameters,
		FileProjectCosts:   costs,
		FileProjectRewards: rewards,
		FileMinBal:         minBal,
		FileMustTakeOne:    mustTakeOne,
	}, nil
}

func (a *InputAssembler) buildParameters(opt *models.Optimization) (string, error) {
	return csvcodec.Encode([]string{"Parameter", "Value"}, [][]string{
		{"T", strconv.Itoa(opt.TotalPeriods)},
		{"Rate", opt.DiscountRate.String()},
		{"InitBal", opt.InitialBalance.String()},
		{"NbMustTakeOne", strconv.Itoa(opt.NbMustTakeOne)},
	})
}

func (a *InputAssembler) buildProjectEntries(ctx context.Context, optimizationID uint64, inputType string, header []string) (string, error) {
	entries, err := a.Repo.ListProjectInputs(ctx, optimizationID, inputType)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.ProjectName, strconv.Itoa(e.Period), e.Amount.String()})
	}
	return csvcodec.Encode(header, rows)
}

func (a *InputAssembler) buildMinBalances(ctx context.Context, optimizationID uint64) (string, error) {
	constraints, err := a.Repo.ListBalanceConstraints(ctx, optimizationID)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(constraints))
	for _, c := range constraints {
		rows = append(rows, []string{strconv.Itoa(c.Period), c.MinBalance.String()})
	}
	return csvcodec.Encode([]string{"Period", "MinBal"}, rows)
}

func (a *InputAssembler) buildMustTakeOne(ctx context.Context, optimizationID uint64) (string, error) {
	groups, err := a.Repo.ListProjectGroups(ctx, optimizationID)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{strconv.Itoa(g.GroupID), g.ProjectName})
	}
	return csvcodec.Encode([]string{"group", "project"}, rows)
}

// Validate checks input completeness before submission. It returns one
// message per problem and never mutates state; callers decide whether the
// list blocks submission.
func (a *InputAssembler) Validate(ctx context.Context, opt *models.Optimization) ([]string, error) {
	var problems []string

	inputs, err := a.Repo.ListProjectInputs(ctx, opt.ID, "")
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		problems = append(problems, "optimization has no project inputs")
	}

	hasCost := map[string]bool{}
	for _, in := range inputs {
		if in.Type == models.InputTypeCost {
			hasCost[in.ProjectName] = true
		}
	}
	names, err := a.Repo.DistinctProjectNames(ctx, opt.ID)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if !hasCost[name] {
			problems = append(problems, fmt.Sprintf("project %q has no cost entries", name))
		}
	}

	if opt.TotalPeriods <= 0 {
		problems = append(problems, "total_periods must be positive")
	}
	if opt.InitialBalance.LessThanOrEqual(decimal.Zero) {
		problems = append(problems, "initial_balance must be greater than zero")
	}

	if opt.NbMustTakeOne > 0 {
		maxGroup, err := a.Repo.MaxGroupID(ctx, opt.ID)
		if err != nil {
			return nil, err
		}
		if maxGroup != opt.NbMustTakeOne {
			problems = append(problems, fmt.Sprintf("nb_must_take_one is %d but the highest group id present is %d", opt.NbMustTakeOne, maxGroup))
		}
	}

	if len(problems) > 0 && a.Logger != nil {
		a.Logger.Debug("input validation found problems",
			zap.Uint64("optimization_id", opt.ID),
			zap.Strings("problems", problems),
		)
	}
	return problems, nil
}
