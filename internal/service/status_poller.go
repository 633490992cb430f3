package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"capbudget/internal/config"
	"capbudget/internal/models"
	"capbudget/internal/repository"
)

// StatusPoller periodically sweeps running optimizations and asks the
// orchestrator to check each one. Attempt counts live in memory only; a
// restart starts the counting over, which just delays the timeout.
type StatusPoller struct {
	Repo         repository.Repository
	Orchestrator *Orchestrator
	Logger       *zap.Logger
	Config       config.PollerConfig

	mu       sync.Mutex
	attempts map[uint64]int
}

// Run blocks until ctx is cancelled, sweeping once per configured interval.
func (p *StatusPoller) Run(ctx context.Context) {
	interval := p.Config.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if p.Logger != nil {
		p.Logger.Info("status poller started",
			zap.Duration("interval", interval),
			zap.Int("max_attempts", p.Config.MaxAttempts),
		)
	}
	for {
		select {
		case <-ctx.Done():
			if p.Logger != nil {
				p.Logger.Info("status poller stopped")
			}
			return
		case <-ticker.C:
			p.sweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep. Exposed so a cron schedule can drive the
// poller instead of Run's own ticker.
func (p *StatusPoller) SweepOnce(ctx context.Context) {
	p.sweepOnce(ctx)
}

func (p *StatusPoller) sweepOnce(ctx context.Context) {
	running, err := p.Repo.ListRunningOptimizations(ctx, 0)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Error("list running optimizations", zap.Error(err))
		}
		return
	}
	alive := make(map[uint64]bool, len(running))
	for _, opt := range running {
		alive[opt.ID] = true
		p.checkOne(ctx, opt.ID)
	}
	p.forgetFinished(alive)
}

func (p *StatusPoller) checkOne(ctx context.Context, id uint64) {
	outcome, err := p.Orchestrator.CheckStatus(ctx, id)
	if err != nil {
		// Poll failures moved the record to failed already. A record with
		// no run handle stays running; its attempts keep counting so the
		// timeout below eventually ends it.
		if p.Logger != nil {
			p.Logger.Warn("status check failed", zap.Uint64("optimization_id", id), zap.Error(err))
		}
	} else if outcome.OptimizationStatus != models.StatusRunning {
		p.forget(id)
		return
	}

	attempts := p.bump(id)
	if p.Config.MaxAttempts > 0 && attempts >= p.Config.MaxAttempts {
		cause := fmt.Errorf("no terminal state after %d status checks", attempts)
		// markFailed re-signals the cause; here there is no caller to pass
		// it to, so it is logged and dropped.
		_ = p.Orchestrator.markFailed(ctx, id, cause)
		if p.Logger != nil {
			p.Logger.Warn("optimization timed out", zap.Uint64("optimization_id", id), zap.Int("attempts", attempts))
		}
		p.forget(id)
	}
}

func (p *StatusPoller) bump(id uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempts == nil {
		p.attempts = make(map[uint64]int)
	}
	p.attempts[id]++
	return p.attempts[id]
}

func (p *StatusPoller) forget(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.attempts, id)
}

// forgetFinished drops counters for records no longer running, so ids
// cancelled or deleted outside a sweep do not leak.
func (p *StatusPoller) forgetFinished(alive map[uint64]bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.attempts {
		if !alive[id] {
			delete(p.attempts, id)
		}
	}
}
