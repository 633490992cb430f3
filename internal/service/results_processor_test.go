package service

import (
	"context"
	"errors"
	"testing"

	"capbudget/internal/models"
)

func sampleResultFiles() map[string]string {
	return map[string]string{
		FileSolutionResults:  "NPV,FinalBalance,InitialBalance,TotalPeriods,TotalProjects,ProjectsSelected,Status\n1250.75,3200.00,1000.00,3,4,2,Optimal\n",
		FileSelectedProjects: "ProjectName,StartPeriod,SetupCost,TotalReward,NPV_Contribution\nAlpha,1,200.00,350.50,150.50\nBeta,2,150.00,400.00,250.00\n",
		FileBalanceResults:   "Period,Balance,DiscountedBalance\n1,800.00,761.90\n2,1150.50,1043.08\n3,3200.00,2764.48\n",
		FileCashFlowResults:  "Period,CashIn,CashOut,NetCashFlow\n1,0.00,350.00,-350.00\n2,350.50,0.00,350.50\n3,400.00,0.00,400.00\n",
	}
}

func TestIngest_AllFiles(t *testing.T) {
	repo := newStubRepo()
	processor := &ResultsProcessor{Repo: repo}

	summary, err := processor.Ingest(context.Background(), 7, sampleResultFiles())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(summary.FilesIngested) != 4 || len(summary.FilesMissing) != 0 {
		t.Fatalf("summary=%+v", summary)
	}
	if summary.RowsInserted != 1+2+3+3 {
		t.Fatalf("rows=%d want 9", summary.RowsInserted)
	}

	result := repo.results[7]
	if result == nil {
		t.Fatalf("no optimization result stored")
	}
	if result.NPV.String() != "1250.75" || result.SolverStatus != "Optimal" {
		t.Fatalf("result=%+v", result)
	}
	if result.TotalProjects != 4 || result.ProjectsSelected != 2 {
		t.Fatalf("result=%+v", result)
	}
	if len(repo.selected[7]) != 2 || len(repo.balances[7]) != 3 || len(repo.cashFlows[7]) != 3 {
		t.Fatalf("children: %d selected, %d balances, %d cash flows",
			len(repo.selected[7]), len(repo.balances[7]), len(repo.cashFlows[7]))
	}
	if repo.selected[7][0].ProjectName != "Alpha" || repo.selected[7][0].NPVContribution.String() != "150.5" {
		t.Fatalf("selected[0]=%+v", repo.selected[7][0])
	}
	if repo.cashFlows[7][0].NetCashFlow.String() != "-350" {
		t.Fatalf("cashflow[0]=%+v", repo.cashFlows[7][0])
	}
}

func TestIngest_MissingFileSkipped(t *testing.T) {
	repo := newStubRepo()
	processor := &ResultsProcessor{Repo: repo}
	files := sampleResultFiles()
	delete(files, FileCashFlowResults)

	summary, err := processor.Ingest(context.Background(), 7, files)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(summary.FilesMissing) != 1 || summary.FilesMissing[0] != FileCashFlowResults {
		t.Fatalf("missing=%v", summary.FilesMissing)
	}
	if len(repo.cashFlows[7]) != 0 {
		t.Fatalf("cash flows should be empty")
	}
	if repo.results[7] == nil {
		t.Fatalf("solution row should still be ingested")
	}
}

func TestIngest_NoFiles(t *testing.T) {
	repo := newStubRepo()
	processor := &ResultsProcessor{Repo: repo}

	if _, err := processor.Ingest(context.Background(), 7, map[string]string{}); err == nil {
		t.Fatalf("expected error")
	}
	if repo.resultDeletes != 0 {
		t.Fatalf("nothing should have been deleted")
	}
}

func TestIngest_BadNumberAborts(t *testing.T) {
	repo := newStubRepo()
	processor := &ResultsProcessor{Repo: repo}
	files := sampleResultFiles()
	files[FileSolutionResults] = "NPV,FinalBalance,InitialBalance,TotalPeriods,TotalProjects,ProjectsSelected,Status\nnot-a-number,3200.00,1000.00,3,4,2,Optimal\n"

	_, err := processor.Ingest(context.Background(), 7, files)
	if err == nil {
		t.Fatalf("expected error")
	}
	var ingestErr *IngestError
	if !errors.As(err, &ingestErr) {
		t.Fatalf("err=%T want *IngestError", err)
	}
	if ingestErr.File != FileSolutionResults {
		t.Fatalf("file=%q", ingestErr.File)
	}
}

func TestIngest_FailureDiscardsEarlierFiles(t *testing.T) {
	repo := newStubRepo()
	processor := &ResultsProcessor{Repo: repo}
	files := sampleResultFiles()
	// Balances are ingested after the solution and selected-project rows;
	// the bad value must take those earlier inserts down with it.
	files[FileBalanceResults] = "Period,Balance,DiscountedBalance\n1,800.00,not-a-number\n"

	_, err := processor.Ingest(context.Background(), 7, files)
	if err == nil {
		t.Fatalf("expected error")
	}
	var ingestErr *IngestError
	if !errors.As(err, &ingestErr) || ingestErr.File != FileBalanceResults {
		t.Fatalf("err=%v", err)
	}
	if repo.results[7] != nil {
		t.Fatalf("solution row persisted after aborted ingest")
	}
	if len(repo.selected[7]) != 0 || len(repo.balances[7]) != 0 || len(repo.cashFlows[7]) != 0 {
		t.Fatalf("children persisted after aborted ingest: %d selected, %d balances, %d cash flows",
			len(repo.selected[7]), len(repo.balances[7]), len(repo.cashFlows[7]))
	}
}

func TestIngest_ReplacesPreviousResults(t *testing.T) {
	repo := newStubRepo()
	repo.results[7] = &models.OptimizationResult{OptimizationID: 7}
	repo.selected[7] = []models.SelectedProject{{OptimizationID: 7, ProjectName: "Stale"}}
	processor := &ResultsProcessor{Repo: repo}

	if _, err := processor.Ingest(context.Background(), 7, sampleResultFiles()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if repo.resultDeletes != 1 {
		t.Fatalf("deletes=%d want 1", repo.resultDeletes)
	}
	for _, sp := range repo.selected[7] {
		if sp.ProjectName == "Stale" {
			t.Fatalf("stale row survived ingestion")
		}
	}
}

func TestIngest_DropsTruncatedRows(t *testing.T) {
	repo := newStubRepo()
	processor := &ResultsProcessor{Repo: repo}
	files := sampleResultFiles()
	files[FileBalanceResults] = "Period,Balance,DiscountedBalance\n1,800.00,761.90\n2,1150.50\n3,3200.00,2764.48\n"

	summary, err := processor.Ingest(context.Background(), 7, files)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(repo.balances[7]) != 2 {
		t.Fatalf("balances=%d want 2", len(repo.balances[7]))
	}
	if summary.RowsInserted != 1+2+2+3 {
		t.Fatalf("rows=%d want 8", summary.RowsInserted)
	}
}
