package lifecycle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/metrics"
	"github.com/segyhp/travel-loan-engine/internal/repository"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

// Step names an automatic transition
type Step string

const (
	StepIdentityCheck  Step = "identity_check"
	StepLetterFallback Step = "letter_fallback"
)

// Outcome reports what a step did when it fired
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeNoop      Outcome = "noop"
	OutcomeDiscarded Outcome = "discarded"
)

const stepTimeout = 10 * time.Second

// Task is a deferred transition for one request. Expected is the status the
// request must still be in when the task fires.
type Task struct {
	LoanID   string
	Step     Step
	Expected domain.Status
}

type Delays struct {
	IdentityCheck  time.Duration
	LetterFallback time.Duration
}

// Engine drives the automatic part of the lifecycle: identity check, then the
// letter fallback if the check passed.
type Engine struct {
	repo      repository.LoanRequestRepository
	scheduler Scheduler
	oracle    VerificationOracle
	delays    Delays
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewEngine(
	repo repository.LoanRequestRepository,
	scheduler Scheduler,
	oracle VerificationOracle,
	delays Delays,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		repo:      repo,
		scheduler: scheduler,
		oracle:    oracle,
		delays:    delays,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source used to stamp transitions
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) Delays() Delays {
	return e.delays
}

// Admit schedules the identity check for a freshly created request
func (e *Engine) Admit(req *domain.LoanRequest) {
	e.schedule(e.delays.IdentityCheck, Task{
		LoanID:   req.ID,
		Step:     StepIdentityCheck,
		Expected: domain.StatusIdentityCheck,
	})
}

func (e *Engine) schedule(delay time.Duration, task Task) {
	e.logger.Debug("Scheduling lifecycle step",
		zap.String("loan_id", task.LoanID),
		zap.String("step", string(task.Step)),
		zap.Duration("delay", delay),
	)
	e.scheduler.Schedule(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
		defer cancel()
		if _, err := e.Execute(ctx, task); err != nil {
			e.logger.Error("Lifecycle step failed",
				zap.String("loan_id", task.LoanID),
				zap.String("step", string(task.Step)),
				zap.Error(err),
			)
		}
	})
}

// Execute runs a task against the current stored state. A request that was
// removed, closed or moved on is discarded without error. Only store failures
// are returned.
func (e *Engine) Execute(ctx context.Context, task Task) (Outcome, error) {
	req, err := e.repo.GetByID(ctx, task.LoanID)
	if err != nil {
		if errors.Is(err, customError.ErrNotFound) {
			return e.discard(task, "request no longer exists"), nil
		}
		return "", err
	}

	target := e.target(task, req)
	if req.Status == target {
		e.logger.Debug("Lifecycle step already applied",
			zap.String("loan_id", task.LoanID),
			zap.String("step", string(task.Step)),
		)
		return OutcomeNoop, nil
	}
	if req.Status != task.Expected {
		return e.discard(task, "request is in "+req.Status.String()), nil
	}

	if task.Step == StepIdentityCheck {
		// the oracle decides the target on the first attempt only
		if e.oracle.Verify(ctx, req) {
			target = domain.StatusWaitingForLetter
		} else {
			target = domain.StatusRejectedByShahkar
		}
	}

	updated, err := e.repo.Update(ctx, req.ID, req.Version, func(r *domain.LoanRequest) error {
		_, err := domain.ApplyTransition(r, target, e.now())
		return err
	})
	if err != nil {
		if errors.Is(err, customError.ErrStaleWrite) ||
			errors.Is(err, customError.ErrNotFound) ||
			errors.Is(err, customError.ErrInvalidStateTransition) {
			return e.discard(task, "request changed during the step"), nil
		}
		return "", err
	}

	e.metrics.ObserveTransition(req.Status.String(), updated.Status.String(), metrics.SourceLifecycle)
	e.logger.Info("Lifecycle transition applied",
		zap.String("loan_id", updated.ID),
		zap.String("from", req.Status.String()),
		zap.String("to", updated.Status.String()),
	)

	if updated.Status == domain.StatusWaitingForLetter {
		e.schedule(e.delays.LetterFallback, Task{
			LoanID:   updated.ID,
			Step:     StepLetterFallback,
			Expected: domain.StatusWaitingForLetter,
		})
	}
	return OutcomeApplied, nil
}

// target is the status a step leaves the request in. For the identity check
// either outcome counts as applied.
func (e *Engine) target(task Task, req *domain.LoanRequest) domain.Status {
	switch task.Step {
	case StepLetterFallback:
		return domain.StatusLetterIssued
	default:
		if req.Status == domain.StatusWaitingForLetter || req.Status == domain.StatusRejectedByShahkar {
			return req.Status
		}
		return domain.StatusWaitingForLetter
	}
}

func (e *Engine) discard(task Task, reason string) Outcome {
	e.metrics.IncrementStepsDiscarded(string(task.Step))
	e.logger.Debug("Lifecycle step discarded",
		zap.String("loan_id", task.LoanID),
		zap.String("step", string(task.Step)),
		zap.String("reason", reason),
	)
	return OutcomeDiscarded
}
