package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"capbudget/internal/csvcodec"
	"capbudget/internal/models"
	"capbudget/internal/repository"
)

// Canonical result filenames produced by the solver deployment.
const (
	FileSolutionResults  = "SolutionResults.csv"
	FileSelectedProjects = "SelectedProjectsOutput.csv"
	FileBalanceResults   = "BalanceResults.csv"
	FileCashFlowResults  = "CashFlowResults.csv"
)

// ResultFileNames lists the four canonical result files in ingest order.
var ResultFileNames = []string{
	FileSolutionResults,
	FileSelectedProjects,
	FileBalanceResults,
	FileCashFlowResults,
}

// IngestError reports which result file failed and why. Any single failure
// aborts the whole ingestion transaction.
type IngestError struct {
	File string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.File, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// IngestSummary reports what one Ingest call wrote.
type IngestSummary struct {
	FilesIngested []string `json:"files_ingested"`
	FilesMissing  []string `json:"files_missing"`
	RowsInserted  int      `json:"rows_inserted"`
}

// ResultsProcessor parses downloaded result CSVs into the result tables.
// Ingestion is transactional and idempotent: previous rows for the same
// optimization are wiped first, so re-running a completed job replaces its
// results instead of duplicating them.
type ResultsProcessor struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// Ingest writes the result rows for one optimization from the given payloads,
// keyed by canonical filename. Missing files are logged and skipped; having
// no files at all is an error. It never touches the optimization's status.
func (p *ResultsProcessor) Ingest(ctx context.Context, optimizationID uint64, files map[string]string) (IngestSummary, error) {
	var summary IngestSummary
	for _, name := range ResultFileNames {
		if _, ok := files[name]; ok {
			continue
		}
		summary.FilesMissing = append(summary.FilesMissing, name)
		if p.Logger != nil {
			p.Logger.Warn("result file missing, skipping",
				zap.Uint64("optimization_id", optimizationID),
				zap.String("file", name),
			)
		}
	}
	if len(summary.FilesMissing) == len(ResultFileNames) {
		return IngestSummary{}, errors.New("no result files available to ingest")
	}

	err := p.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := p.Repo.DeleteResultsTx(ctx, tx, optimizationID); err != nil {
			return err
		}
		for _, name := range ResultFileNames {
			content, ok := files[name]
			if !ok {
				continue
			}
			inserted, err := p.ingestFile(ctx, tx, optimizationID, name, content)
			if err != nil {
				return &IngestError{File: name, Err: err}
			}
			summary.FilesIngested = append(summary.FilesIngested, name)
			summary.RowsInserted += inserted
		}
		return nil
	})
	if err != nil {
		return IngestSummary{}, err
	}
	return summary, nil
}

func (p *ResultsProcessor) ingestFile(ctx context.Context, tx *gorm.DB, optimizationID uint64, name, content string) (int, error) {
	rows := csvcodec.Decode(content)
	switch name {
	case FileSolutionResults:
		return p.ingestSolution(ctx, tx, optimizationID, rows)
	case FileSelectedProjects:
		return p.ingestSelectedProjects(ctx, tx, optimizationID, rows)
	case FileBalanceResults:
		return p.ingestBalances(ctx, tx, optimizationID, rows)
	case FileCashFlowResults:
		return p.ingestCashFlows(ctx, tx, optimizationID, rows)
	}
	return 0, fmt.Errorf("unknown result file %q", name)
}

// ingestSolution takes the first data row; the solver writes exactly one.
func (p *ResultsProcessor) ingestSolution(ctx context.Context, tx *gorm.DB, optimizationID uint64, rows []map[string]string) (int, error) {
	if len(rows) == 0 {
		return 0, errors.New("no data rows")
	}
	row := rows[0]
	npv, err := parseDecimal(row, "NPV")
	if err != nil {
		return 0, err
	}
	finalBalance, err := parseDecimal(row, "FinalBalance")
	if err != nil {
		return 0, err
	}
	initialBalance, err := parseDecimal(row, "InitialBalance")
	if err != nil {
		return 0, err
	}
	totalPeriods, err := parseInt(row, "TotalPeriods")
	if err != nil {
		return 0, err
	}
	totalProjects, err := parseInt(row, "TotalProjects")
	if err != nil {
		return 0, err
	}
	projectsSelected, err := parseInt(row, "ProjectsSelected")
	if err != nil {
		return 0, err
	}
	item := &models.OptimizationResult{
		OptimizationID:   optimizationID,
		NPV:              npv,
		FinalBalance:     finalBalance,
		InitialBalance:   initialBalance,
		TotalPeriods:     totalPeriods,
		TotalProjects:    totalProjects,
		ProjectsSelected: projectsSelected,
		SolverStatus:     strings.TrimSpace(row["Status"]),
	}
	if err := p.Repo.InsertOptimizationResultTx(ctx, tx, item); err != nil {
		return 0, err
	}
	return 1, nil
}

func (p *ResultsProcessor) ingestSelectedProjects(ctx context.Context, tx *gorm.DB, optimizationID uint64, rows []map[string]string) (int, error) {
	items := make([]models.SelectedProject, 0, len(rows))
	for _, row := range rows {
		startPeriod, err := parseInt(row, "StartPeriod")
		if err != nil {
			return 0, err
		}
		setupCost, err := parseDecimal(row, "SetupCost")
		if err != nil {
			return 0, err
		}
		totalReward, err := parseDecimal(row, "TotalReward")
		if err != nil {
			return 0, err
		}
		npvContribution, err := parseDecimal(row, "NPV_Contribution")
		if err != nil {
			return 0, err
		}
		items = append(items, models.SelectedProject{
			OptimizationID:  optimizationID,
			ProjectName:     strings.TrimSpace(row["ProjectName"]),
			StartPeriod:     startPeriod,
			SetupCost:       setupCost,
			TotalReward:     totalReward,
			NPVContribution: npvContribution,
		})
	}
	if err := p.Repo.InsertSelectedProjectsTx(ctx, tx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (p *ResultsProcessor) ingestBalances(ctx context.Context, tx *gorm.DB, optimizationID uint64, rows []map[string]string) (int, error) {
	items := make([]models.PeriodBalance, 0, len(rows))
	for _, row := range rows {
		period, err := parseInt(row, "Period")
		if err != nil {
			return 0, err
		}
		balance, err := parseDecimal(row, "Balance")
		if err != nil {
			return 0, err
		}
		discounted, err := parseDecimal(row, "DiscountedBalance")
		if err != nil {
			return 0, err
		}
		items = append(items, models.PeriodBalance{
			OptimizationID:    optimizationID,
			Period:            period,
			Balance:           balance,
			DiscountedBalance: discounted,
		})
	}
	if err := p.Repo.InsertPeriodBalancesTx(ctx, tx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (p *ResultsProcessor) ingestCashFlows(ctx context.Context, tx *gorm.DB, optimizationID uint64, rows []map[string]string) (int, error) {
	items := make([]models.PeriodCashFlow, 0, len(rows))
	for _, row := range rows {
		period, err := parseInt(row, "Period")
		if err != nil {
			return 0, err
		}
		cashIn, err := parseDecimal(row, "CashIn")
		if err != nil {
			return 0, err
		}
		cashOut, err := parseDecimal(row, "CashOut")
		if err != nil {
			return 0, err
		}
		net, err := parseDecimal(row, "NetCashFlow")
		if err != nil {
			return 0, err
		}
		items = append(items, models.PeriodCashFlow{
			OptimizationID: optimizationID,
			Period:         period,
			CashIn:         cashIn,
			CashOut:        cashOut,
			NetCashFlow:    net,
		})
	}
	if err := p.Repo.InsertPeriodCashFlowsTx(ctx, tx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func parseDecimal(row map[string]string, key string) (decimal.Decimal, error) {
	raw, ok := row[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("column %q missing", key)
	}
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("column %q: %w", key, err)
	}
	return value, nil
}

func parseInt(row map[string]string, key string) (int, error) {
	raw, ok := row[key]
	if !ok {
		return 0, fmt.Errorf("column %q missing", key)
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", key, err)
	}
	return value, nil
}
