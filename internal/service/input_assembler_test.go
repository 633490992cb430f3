package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"capbudget/internal/models"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func seedOptimization(t *testing.T, repo *stubRepo) *models.Optimization {
	t.Helper()
	opt := &models.Optimization{
		Status:         models.StatusPending,
		TotalPeriods:   3,
		DiscountRate:   dec(t, "0.05"),
		InitialBalance: dec(t, "1000"),
		NbMustTakeOne:  1,
	}
	if err := repo.CreateOptimizationTx(context.Background(), nil, opt); err != nil {
		t.Fatalf("seed optimization: %v", err)
	}
	repo.inputs = append(repo.inputs,
		models.ProjectInput{OptimizationID: opt.ID, ProjectName: "Alpha", Period: 1, Type: models.InputTypeCost, Amount: dec(t, "200")},
		models.ProjectInput{OptimizationID: opt.ID, ProjectName: "Alpha", Period: 2, Type: models.InputTypeReward, Amount: dec(t, "350.50")},
		models.ProjectInput{OptimizationID: opt.ID, ProjectName: "Beta", Period: 1, Type: models.InputTypeCost, Amount: dec(t, "150")},
		models.ProjectInput{OptimizationID: opt.ID, ProjectName: "Beta", Period: 3, Type: models.InputTypeReward, Amount: dec(t, "400")},
	)
	repo.constraints = append(repo.constraints,
		models.BalanceConstraint{OptimizationID: opt.ID, Period: 1, MinBalance: dec(t, "100")},
		models.BalanceConstraint{OptimizationID: opt.ID, Period: 2, MinBalance: dec(t, "50")},
	)
	repo.groups = append(repo.groups,
		models.ProjectGroup{OptimizationID: opt.ID, GroupID: 1, ProjectName: "Alpha"},
		models.ProjectGroup{OptimizationID: opt.ID, GroupID: 1, ProjectName: "Beta"},
	)
	return opt
}

func TestBuildInputFiles_Parameters(t *testing.T) {
	repo := newStubRepo()
	opt := seedOptimization(t, repo)
	assembler := &InputAssembler{Repo: repo}

	files, err := assembler.BuildInputFiles(context.Background(), opt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := "Parameter,Value\nT,3\nRate,0.05\nInitBal,1000\nNbMustTakeOne,1\n"
	if files[FileParameters] != want {
		t.Fatalf("parameters=%q want %q", files[FileParameters], want)
	}
}

func TestBuildInputFiles_AllFilesPresent(t *testing.T) {
	repo := newStubRepo()
	opt := seedOptimization(t, repo)
	assembler := &InputAssembler{Repo: repo}

	files, err := assembler.BuildInputFiles(context.Background(), opt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(files) != len(InputFileNames) {
		t.Fatalf("got %d files, want %d", len(files), len(InputFileNames))
	}
	for _, name := range InputFileNames {
		if _, ok := files[name]; !ok {
			t.Fatalf("missing %s", name)
		}
	}
	if got := files[FileProjectCosts]; got != "project,period,cost\nAlpha,1,200\nBeta,1,150\n" {
		t.Fatalf("costs=%q", got)
	}
	if got := files[FileProjectRewards]; got != "project,period,reward\nAlpha,2,350.5\nBeta,3,400\n" {
		t.Fatalf("rewards=%q", got)
	}
	if got := files[FileMinBal]; got != "Period,MinBal\n1,100\n2,50\n" {
		t.Fatalf("minbal=%q", got)
	}
	if got := files[FileMustTakeOne]; got != "group,project\n1,Alpha\n1,Beta\n" {
		t.Fatalf("musttakeone=%q", got)
	}
}

func TestValidate_CleanInputs(t *testing.T) {
	repo := newStubRepo()
	opt := seedOptimization(t, repo)
	assembler := &InputAssembler{Repo: repo}

	problems, err := assembler.Validate(context.Background(), opt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("problems=%v want none", problems)
	}
}

func TestValidate_NoInputs(t *testing.T) {
	repo := newStubRepo()
	opt := &models.Optimization{TotalPeriods: 3, DiscountRate: dec(t, "0.05"), InitialBalance: dec(t, "1000")}
	if err := repo.CreateOptimizationTx(context.Background(), nil, opt); err != nil {
		t.Fatalf("seed: %v", err)
	}
	assembler := &InputAssembler{Repo: repo}

	problems, err := assembler.Validate(context.Background(), opt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "no project inputs") {
		t.Fatalf("problems=%v", problems)
	}
}

func TestValidate_ProjectWithoutCost(t *testing.T) {
	repo := newStubRepo()
	opt := seedOptimization(t, repo)
	repo.inputs = append(repo.inputs,
		models.ProjectInput{OptimizationID: opt.ID, ProjectName: "Gamma", Period: 2, Type: models.InputTypeReward, Amount: dec(t, "75")},
	)
	assembler := &InputAssembler{Repo: repo}

	problems, err := assembler.Validate(context.Background(), opt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(problems) != 1 || !strings.Contains(problems[0], `"Gamma"`) {
		t.Fatalf("problems=%v", problems)
	}
}

func TestValidate_GroupCountMismatch(t *testing.T) {
	repo := newStubRepo()
	opt := seedOptimization(t, repo)
	opt.NbMustTakeOne = 2
	assembler := &InputAssembler{Repo: repo}

	problems, err := assembler.Validate(context.Background(), opt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "group id") {
		t.Fatalf("problems=%v", problems)
	}
}

func TestValidate_BadScalars(t *testing.T) {
	repo := newStubRepo()
	opt := seedOptimization(t, repo)
	opt.TotalPeriods = 0
	opt.InitialBalance = decimal.Zero
	assembler := &InputAssembler{Repo: repo}

	problems, err := assembler.Validate(context.Background(), opt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(problems) != 2 {
		t.Fatalf("problems=%v want 2", problems)
	}
}
