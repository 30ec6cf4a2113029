package durable

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DefaultAttemptTimeout bounds one ExecuteGoal attempt.
const DefaultAttemptTimeout = 30 * time.Minute

// GoalWorkflow executes one goal through the workflow engine.
//
// The engine's own budgets decide DONE versus FAILED; Temporal only retries
// the activity when an attempt is lost (worker crash, heartbeat timeout).
// A retried attempt restarts the run from INIT under the same run id.
func GoalWorkflow(ctx workflow.Context, input GoalInput) (*GoalResult, error) {
	logger := workflow.GetLogger(ctx)
	if input.RunID == "" {
		input.RunID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}
	timeout := input.Timeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}

	status := StatusPending
	if err := workflow.SetQueryHandler(ctx, QueryStatus, func() (string, error) {
		return status, nil
	}); err != nil {
		return nil, err
	}

	logger.Info("Starting goal workflow", "run_id", input.RunID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        2,
			NonRetryableErrorTypes: []string{ErrTypeInvalidInput},
		},
	})

	status = StatusRunning
	var a *Activities
	var result GoalResult
	if err := workflow.ExecuteActivity(ctx, a.ExecuteGoal, input).Get(ctx, &result); err != nil {
		status = "FAILED"
		logger.Error("Goal activity failed", "run_id", input.RunID, "error", err)
		return nil, err
	}
	status = string(result.Status)

	logger.Info("Goal workflow complete",
		"run_id", result.RunID,
		"status", result.Status,
		"iterations", result.Iterations,
	)
	return &result, nil
}
