package service

import (
	"context"
	"strings"
	"testing"

	"capbudget/internal/config"
	"capbudget/internal/models"
)

func TestSweep_TimesOutAfterMaxAttempts(t *testing.T) {
	orch, repo, cloud := newTestOrchestrator(t)
	opt := submitRunning(t, orch, repo)
	cloud.jobState = "running"

	poller := &StatusPoller{
		Repo:         repo,
		Orchestrator: orch,
		Config:       config.PollerConfig{MaxAttempts: 2},
	}

	poller.SweepOnce(context.Background())
	if repo.optimizations[opt.ID].Status != models.StatusRunning {
		t.Fatalf("failed too early")
	}

	poller.SweepOnce(context.Background())
	stored := repo.optimizations[opt.ID]
	if stored.Status != models.StatusFailed {
		t.Fatalf("status=%q want failed", stored.Status)
	}
	if !strings.Contains(stored.ExecutionLog, "no terminal state after 2 status checks") {
		t.Fatalf("log=%q", stored.ExecutionLog)
	}
	if len(poller.attempts) != 0 {
		t.Fatalf("attempts leaked: %v", poller.attempts)
	}
}

func TestSweep_CompletedRecordIsFinished(t *testing.T) {
	orch, repo, cloud := newTestOrchestrator(t)
	opt := submitRunning(t, orch, repo)
	cloud.jobState = "completed"
	for name, content := range sampleResultFiles() {
		cloud.objects[name] = []byte(content)
	}

	poller := &StatusPoller{
		Repo:         repo,
		Orchestrator: orch,
		Config:       config.PollerConfig{MaxAttempts: 180},
	}
	poller.SweepOnce(context.Background())

	if repo.optimizations[opt.ID].Status != models.StatusCompleted {
		t.Fatalf("status=%q", repo.optimizations[opt.ID].Status)
	}
	if len(poller.attempts) != 0 {
		t.Fatalf("attempts leaked: %v", poller.attempts)
	}
}

func TestSweep_ForgetsRecordsNoLongerRunning(t *testing.T) {
	orch, repo, cloud := newTestOrchestrator(t)
	opt := submitRunning(t, orch, repo)
	cloud.jobState = "running"

	poller := &StatusPoller{
		Repo:         repo,
		Orchestrator: orch,
		Config:       config.PollerConfig{MaxAttempts: 180},
	}
	poller.SweepOnce(context.Background())
	if poller.attempts[opt.ID] != 1 {
		t.Fatalf("attempts=%v", poller.attempts)
	}

	// Cancelled outside the poller; the counter must go with it.
	repo.optimizations[opt.ID].Status = models.StatusCancelled
	poller.SweepOnce(context.Background())
	if len(poller.attempts) != 0 {
		t.Fatalf("attempts leaked: %v", poller.attempts)
	}
}

func TestSweep_PollFailureDoesNotPanicWithoutLogger(t *testing.T) {
	orch, repo, _ := newTestOrchestrator(t)
	opt := seedOptimization(t, repo)
	repo.optimizations[opt.ID].Status = models.StatusRunning

	poller := &StatusPoller{
		Repo:         repo,
		Orchestrator: orch,
		Config:       config.PollerConfig{MaxAttempts: 1},
	}
	// No run handle recorded; the sweep counts the attempt and times out.
	poller.SweepOnce(context.Background())
	if repo.optimizations[opt.ID].Status != models.StatusFailed {
		t.Fatalf("status=%q", repo.optimizations[opt.ID].Status)
	}
}
