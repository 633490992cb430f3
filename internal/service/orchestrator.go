package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"capbudget/internal/client/ibm"
	"capbudget/internal/models"
	"capbudget/internal/repository"
)

var (
	ErrOptimizationNotFound = errors.New("optimization not found")
	ErrNotRunning           = errors.New("optimization is not running")
	ErrNoRunHandle          = errors.New("optimization has no recorded run handle")
)

const jobStartedPrefix = "Job started: "

// CreateInput is everything needed to persist a new optimization with its
// input rows in one transaction.
type CreateInput struct {
	Description    *string
	TotalPeriods   int
	DiscountRate   decimal.Decimal
	InitialBalance decimal.Decimal
	NbMustTakeOne  int

	ProjectCosts       []ProjectEntry
	ProjectRewards     []ProjectEntry
	BalanceConstraints []BalanceEntry
	MustTakeOneGroups  []GroupEntry
}

type ProjectEntry struct {
	Project string
	Period  int
	Amount  decimal.Decimal
}

type BalanceEntry struct {
	Period     int
	MinBalance decimal.Decimal
}

type GroupEntry struct {
	GroupID int
	Project string
}

// SubmitOutcome distinguishes a validation refusal, which changes nothing,
// from an accepted submission.
type SubmitOutcome struct {
	ValidationErrors []string `json:"validation_errors,omitempty"`
	UploadedFiles    []string `json:"uploaded_files,omitempty"`
	RuntimeJobID     string   `json:"runtime_job_id,omitempty"`
	StatusURL        string   `json:"status_url,omitempty"`
}

// StatusOutcome is one CheckStatus observation.
type StatusOutcome struct {
	OptimizationStatus string         `json:"optimization_status"`
	JobState           string         `json:"job_state,omitempty"`
	JobError           string         `json:"job_error,omitempty"`
	Ingested           *IngestSummary `json:"ingested,omitempty"`
}

type LogsOutcome struct {
	ExecutionLog string          `json:"execution_log"`
	JobLogs      json.RawMessage `json:"job_logs,omitempty"`
}

// Orchestrator drives the optimization lifecycle from creation through
// submission to result ingestion. Status transitions all live here so the
// handlers and the background poller share one set of rules.
type Orchestrator struct {
	Repo      repository.Repository
	Assembler *InputAssembler
	Results   *ResultsProcessor
	Store     *ibm.ObjectStore
	Jobs      *ibm.JobRunner
	Logger    *zap.Logger
}

// Create persists the optimization and its input rows in one transaction.
// The record starts out pending; nothing is uploaded or submitted yet.
func (o *Orchestrator) Create(ctx context.Context, in CreateInput) (*models.Optimization, error) {
	opt := &models.Optimization{
		Description:    in.Description,
		Status:         models.StatusPending,
		TotalPeriods:   in.TotalPeriods,
		DiscountRate:   in.DiscountRate,
		InitialBalance: in.InitialBalance,
		NbMustTakeOne:  in.NbMustTakeOne,
	}
	err := o.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := o.Repo.CreateOptimizationTx(ctx, tx, opt); err != nil {
			return err
		}
		inputs := make([]models.ProjectInput, 0, len(in.ProjectCosts)+len(in.ProjectRewards))
		for _, e := range in.ProjectCosts {
			inputs = append(inputs, models.ProjectInput{
				OptimizationID: opt.ID,
				ProjectName:    e.Project,
				Period:         e.Period,
				Type:           models.InputTypeCost,
				Amount:         e.Amount,
			})
		}
		for _, e := range in.ProjectRewards {
			inputs = append(inputs, models.ProjectInput{
				OptimizationID: opt.ID,
				ProjectName:    e.Project,
				Period:         e.Period,
				Type:           models.InputTypeReward,
				Amount:         e.Amount,
			})
		}
		if err := o.Repo.InsertProjectInputsTx(ctx, tx, inputs); err != nil {
			return err
		}

		constraints := make([]models.BalanceConstraint, 0, len(in.BalanceConstraints))
		for _, e := range in.BalanceConstraints {
			constraints = append(constraints, models.BalanceConstraint{
				OptimizationID: opt.ID,
				Period:         e.Period,
				MinBalance:     e.MinBalance,
			})
		}
		if err := o.Repo.InsertBalanceConstraintsTx(ctx, tx, constraints); err != nil {
			return err
		}

		groups := make([]models.ProjectGroup, 0, len(in.MustTakeOneGroups))
		for _, e := range in.MustTakeOneGroups {
			groups = append(groups, models.ProjectGroup{
				OptimizationID: opt.ID,
				GroupID:        e.GroupID,
				ProjectName:    e.Project,
			})
		}
		return o.Repo.InsertProjectGroupsTx(ctx, tx, groups)
	})
	if err != nil {
		return nil, err
	}
	return opt, nil
}

// Get returns the optimization or ErrOptimizationNotFound.
func (o *Orchestrator) Get(ctx context.Context, id uint64) (*models.Optimization, error) {
	opt, err := o.Repo.GetOptimization(ctx, id)
	if err != nil {
		return nil, err
	}
	if opt == nil {
		return nil, ErrOptimizationNotFound
	}
	return opt, nil
}

// Preview builds the input CSVs without uploading anything.
func (o *Orchestrator) Preview(ctx context.Context, id uint64) (map[string]string, error) {
	opt, err := o.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.Assembler.BuildInputFiles(ctx, opt)
}

// Submit validates, uploads the five input files concurrently, then submits
// one solver run. Validation problems come back in the outcome and leave the
// record untouched; any later failure marks the optimization failed and is
// re-signaled to the caller.
func (o *Orchestrator) Submit(ctx context.Context, id uint64) (SubmitOutcome, error) {
	opt, err := o.Get(ctx, id)
	if err != nil {
		return SubmitOutcome{}, err
	}

	problems, err := o.Assembler.Validate(ctx, opt)
	if err != nil {
		return SubmitOutcome{}, err
	}
	if len(problems) > 0 {
		return SubmitOutcome{ValidationErrors: problems}, nil
	}

	files, err := o.Assembler.BuildInputFiles(ctx, opt)
	if err != nil {
		return SubmitOutcome{}, o.markFailed(ctx, id, fmt.Errorf("build input files: %w", err))
	}

	// The run must not start before every input file is in place, so the
	// uploads complete as a group before submission.
	g, uploadCtx := errgroup.WithContext(ctx)
	for _, name := range InputFileNames {
		content := files[name]
		g.Go(func() error {
			_, err := o.Store.Upload(uploadCtx, name, []byte(content), "text/csv")
			if err != nil {
				return fmt.Errorf("upload %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SubmitOutcome{}, o.markFailed(ctx, id, err)
	}

	run, err := o.Jobs.Submit(ctx)
	if err != nil {
		return SubmitOutcome{}, o.markFailed(ctx, id, fmt.Errorf("submit job: %w", err))
	}

	inputFiles, err := json.Marshal(InputFileNames)
	if err != nil {
		return SubmitOutcome{}, o.markFailed(ctx, id, err)
	}
	updates := map[string]any{
		"status":      models.StatusRunning,
		"status_url":  run.StatusURL,
		"input_files": inputFiles,
	}
	if err := o.Repo.UpdateOptimization(ctx, id, updates); err != nil {
		return SubmitOutcome{}, err
	}
	if err := o.Repo.AppendExecutionLog(ctx, id, jobStartedPrefix+run.RuntimeJobID); err != nil {
		return SubmitOutcome{}, err
	}
	if o.Logger != nil {
		o.Logger.Info("optimization submitted",
			zap.Uint64("optimization_id", id),
			zap.String("runtime_job_id", run.RuntimeJobID),
		)
	}
	return SubmitOutcome{
		UploadedFiles: InputFileNames,
		RuntimeJobID:  run.RuntimeJobID,
		StatusURL:     run.StatusURL,
	}, nil
}

// CheckStatus polls the solver once and applies whatever transition the
// observed state implies. Calling it on an already completed optimization is
// a no-op, so results are never ingested twice.
func (o *Orchestrator) CheckStatus(ctx context.Context, id uint64) (StatusOutcome, error) {
	opt, err := o.Get(ctx, id)
	if err != nil {
		return StatusOutcome{}, err
	}
	if opt.IsCompleted() {
		return StatusOutcome{OptimizationStatus: models.StatusCompleted, JobState: ibm.JobStateCompleted}, nil
	}
	if !opt.IsRunning() {
		return StatusOutcome{OptimizationStatus: opt.Status}, nil
	}

	statusURL, ok := o.runStatusURL(opt)
	if !ok {
		return StatusOutcome{}, ErrNoRunHandle
	}

	status, err := o.Jobs.PollStatus(ctx, statusURL)
	if err != nil {
		return StatusOutcome{}, o.markFailed(ctx, id, fmt.Errorf("poll status: %w", err))
	}

	outcome := StatusOutcome{
		OptimizationStatus: opt.Status,
		JobState:           status.State,
		JobError:           status.ErrorMessage,
	}
	switch status.State {
	case ibm.JobStateCompleted:
		summary, err := o.ingestResults(ctx, id)
		if err != nil {
			return StatusOutcome{}, o.markFailed(ctx, id, err)
		}
		outcome.OptimizationStatus = models.StatusCompleted
		outcome.Ingested = &summary
	case ibm.JobStateFailed, ibm.JobStateCanceled:
		// An observed terminal failure is a normal outcome, not a pipeline
		// error; only a persistence failure propagates.
		reason := status.ErrorMessage
		if reason == "" {
			reason = "job ended in state " + status.State
		}
		if err := o.recordFailure(ctx, id, reason); err != nil {
			return StatusOutcome{}, err
		}
		outcome.OptimizationStatus = models.StatusFailed
	}
	return outcome, nil
}

func (o *Orchestrator) ingestResults(ctx context.Context, id uint64) (IngestSummary, error) {
	files := make(map[string]string, len(ResultFileNames))
	for _, name := range ResultFileNames {
		content, err := o.Store.Download(ctx, name)
		if err != nil {
			var notFound *ibm.NotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			return IngestSummary{}, fmt.Errorf("download %s: %w", name, err)
		}
		files[name] = string(content)
	}

	summary, err := o.Results.Ingest(ctx, id, files)
	if err != nil {
		return IngestSummary{}, err
	}

	outputFiles, err := json.Marshal(summary.FilesIngested)
	if err != nil {
		return IngestSummary{}, err
	}
	now := time.Now().UTC()
	updates := map[string]any{
		"status":       models.StatusCompleted,
		"output_files": outputFiles,
		"completed_at": &now,
	}
	if err := o.Repo.UpdateOptimization(ctx, id, updates); err != nil {
		return IngestSummary{}, err
	}
	line := fmt.Sprintf("Job completed: %d rows ingested from %d files", summary.RowsInserted, len(summary.FilesIngested))
	if err := o.Repo.AppendExecutionLog(ctx, id, line); err != nil {
		return IngestSummary{}, err
	}
	if o.Logger != nil {
		o.Logger.Info("results ingested",
			zap.Uint64("optimization_id", id),
			zap.Int("rows", summary.RowsInserted),
			zap.Strings("missing", summary.FilesMissing),
		)
	}
	return summary, nil
}

// Cancel stops local tracking of a running optimization. The remote run is
// left alone; a later poll of a cancelled record is simply never made.
func (o *Orchestrator) Cancel(ctx context.Context, id uint64) error {
	opt, err := o.Get(ctx, id)
	if err != nil {
		return err
	}
	if !opt.IsRunning() {
		return ErrNotRunning
	}
	updates := map[string]any{"status": models.StatusCancelled}
	if err := o.Repo.UpdateOptimization(ctx, id, updates); err != nil {
		return err
	}
	return o.Repo.AppendExecutionLog(ctx, id, "Cancelled by user")
}

// Logs returns the stored execution log plus, when a run handle exists, the
// solver's own run logs. Remote log failures are swallowed; the local log is
// always served.
func (o *Orchestrator) Logs(ctx context.Context, id uint64) (LogsOutcome, error) {
	opt, err := o.Get(ctx, id)
	if err != nil {
		return LogsOutcome{}, err
	}
	outcome := LogsOutcome{ExecutionLog: opt.ExecutionLog}
	if runtimeJobID, ok := runtimeJobIDFromLog(opt.ExecutionLog); ok {
		jobLogs, err := o.Jobs.FetchLogs(ctx, runtimeJobID)
		if err != nil {
			if o.Logger != nil {
				o.Logger.Warn("fetch job logs failed",
					zap.Uint64("optimization_id", id),
					zap.Error(err),
				)
			}
		} else {
			outcome.JobLogs = jobLogs
		}
	}
	return outcome, nil
}

// recordFailure moves the record to failed and appends the reason. It
// returns only persistence errors.
func (o *Orchestrator) recordFailure(ctx context.Context, id uint64, reason string) error {
	if err := o.Repo.UpdateOptimization(ctx, id, map[string]any{"status": models.StatusFailed}); err != nil {
		return err
	}
	return o.Repo.AppendExecutionLog(ctx, id, "Error: "+reason)
}

// markFailed records the failure and re-signals the cause, for pipeline
// errors the caller must still surface.
func (o *Orchestrator) markFailed(ctx context.Context, id uint64, cause error) error {
	if err := o.recordFailure(ctx, id, cause.Error()); err != nil && o.Logger != nil {
		o.Logger.Error("mark failed", zap.Uint64("optimization_id", id), zap.Error(err))
	}
	return cause
}

// runStatusURL prefers the stored href and falls back to rebuilding the poll
// URL from the runtime job id recorded in the execution log.
func (o *Orchestrator) runStatusURL(opt *models.Optimization) (string, bool) {
	if opt.StatusURL != nil && *opt.StatusURL != "" {
		return *opt.StatusURL, true
	}
	if runtimeJobID, ok := runtimeJobIDFromLog(opt.ExecutionLog); ok {
		return o.Jobs.RunStatusURL(runtimeJobID), true
	}
	return "", false
}

func runtimeJobIDFromLog(log string) (string, bool) {
	var id string
	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, jobStartedPrefix); ok {
			if rest = strings.TrimSpace(rest); rest != "" {
				id = rest
			}
		}
	}
	return id, id != ""
}
