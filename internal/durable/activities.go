package durable

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// HeartbeatInterval is how often ExecuteGoal reports liveness.
var HeartbeatInterval = 30 * time.Second

// Runner executes goals. *workflow.Engine satisfies it.
type Runner interface {
	RunWithID(ctx context.Context, runID, goal string) (*workflow.Report, error)
}

// Activities holds the dependencies of the goal activities. Register the
// value with a worker; GoalWorkflow calls its methods by name.
type Activities struct {
	runner Runner
	logger *logging.Logger
}

// NewActivities returns activities backed by runner.
func NewActivities(runner Runner, logger *logging.Logger) *Activities {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Activities{runner: runner, logger: logger.Named("durable")}
}

// ExecuteGoal runs one goal to a terminal state. A FAILED run is returned as
// a result, not an error, so Temporal does not re-run a goal the engine has
// already given up on.
func (a *Activities) ExecuteGoal(ctx context.Context, input GoalInput) (*GoalResult, error) {
	runID := input.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logging.WithRunID(ctx, runID)
	start := time.Now()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				activity.RecordHeartbeat(ctx, runID)
			case <-stop:
				return
			}
		}
	}()

	report, err := a.runner.RunWithID(ctx, runID, input.Goal)
	if report == nil {
		recordExecution(ctx, "error", time.Since(start))
		if errors.Is(err, workflow.ErrInvalidInput) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
		}
		return nil, err
	}
	if errors.Is(err, workflow.ErrCancelled) && ctx.Err() != nil {
		// Lost attempt; let Temporal decide whether to retry.
		recordExecution(ctx, "cancelled", time.Since(start))
		return nil, ctx.Err()
	}

	result := resultFromReport(report)
	recordExecution(ctx, string(result.Status), time.Since(start))
	a.logger.Info(ctx, "goal executed",
		zap.String("status", string(result.Status)),
		zap.Int("iterations", result.Iterations),
		zap.Bool("failed", err != nil),
	)
	return result, nil
}
