package lifecycle

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/repository"
)

// Sweeper finds requests whose automatic step should already have fired, for
// instance after a restart dropped in-process timers, and runs the step.
type Sweeper struct {
	engine *Engine
	repo   repository.LoanRequestRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewSweeper(engine *Engine, repo repository.LoanRequestRepository, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		engine: engine,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source used for the staleness cutoff
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// SweepResult counts the outcomes of one sweep
type SweepResult struct {
	Scanned   int
	Applied   int
	Discarded int
}

// Sweep runs overdue steps once. Steps are guarded, so work already done by a
// timer elsewhere is a no-op here.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	delays := s.engine.Delays()
	now := s.now()

	passes := []struct {
		status domain.Status
		step   Step
		delay  time.Duration
	}{
		{domain.StatusIdentityCheck, StepIdentityCheck, delays.IdentityCheck},
		{domain.StatusWaitingForLetter, StepLetterFallback, delays.LetterFallback},
	}

	for _, pass := range passes {
		stale, err := s.repo.ListStale(ctx, pass.status, now.Add(-pass.delay))
		if err != nil {
			return result, err
		}

		for _, req := range stale {
			result.Scanned++
			outcome, err := s.engine.Execute(ctx, Task{
				LoanID:   req.ID,
				Step:     pass.step,
				Expected: pass.status,
			})
			if err != nil {
				return result, err
			}
			switch outcome {
			case OutcomeApplied:
				result.Applied++
			case OutcomeDiscarded:
				result.Discarded++
			}
		}
	}

	return result, nil
}

// Register adds the sweep to c on the given cron schedule
func (s *Sweeper) Register(c *cron.Cron, schedule string) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		result, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error("Lifecycle sweep failed", zap.Error(err))
			return
		}
		if result.Scanned > 0 {
			s.logger.Info("Lifecycle sweep finished",
				zap.Int("scanned", result.Scanned),
				zap.Int("applied", result.Applied),
				zap.Int("discarded", result.Discarded),
			)
		}
	})
}
