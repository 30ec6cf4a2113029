// Package durable runs goals as Temporal workflows so a run survives worker
// restarts and can be submitted from another process.
package durable

import (
	"time"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// DefaultTaskQueue is used when no task queue is configured.
const DefaultTaskQueue = "genagent-goals"

// QueryStatus is the query name answering the workflow's current status.
const QueryStatus = "status"

// ErrTypeInvalidInput is the application error type for goals the engine
// rejects outright. It is never retried.
const ErrTypeInvalidInput = "InvalidInput"

// Workflow statuses besides the engine's terminal states.
const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
)

// GoalInput starts a GoalWorkflow.
type GoalInput struct {
	// RunID defaults to the workflow id.
	RunID string
	Goal  string
	// Timeout bounds one execution attempt. Zero means DefaultAttemptTimeout.
	Timeout time.Duration
}

// GoalResult is the serializable summary of a finished run. A FAILED run is
// a successful workflow whose Status is FAILED.
type GoalResult struct {
	RunID           string         `json:"run_id" yaml:"run_id"`
	Goal            string         `json:"goal" yaml:"goal"`
	Status          workflow.State `json:"status" yaml:"status"`
	FinalAnswer     string         `json:"final_answer" yaml:"final_answer"`
	FailureReason   string         `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
	Iterations      int            `json:"iterations" yaml:"iterations"`
	ReplanCount     int            `json:"replan_count" yaml:"replan_count"`
	PassedChecks    int            `json:"passed_checks" yaml:"passed_checks"`
	TotalChecks     int            `json:"total_checks" yaml:"total_checks"`
	Duration        time.Duration  `json:"duration" yaml:"duration"`
	FailedTaskCount int            `json:"failed_task_count" yaml:"failed_task_count"`
}

// Succeeded reports whether the run reached DONE.
func (r *GoalResult) Succeeded() bool { return r != nil && r.Status == workflow.StateDone }

func resultFromReport(r *workflow.Report) *GoalResult {
	passed, total := r.ValidationCounts()
	res := &GoalResult{
		RunID:         r.RunID,
		Goal:          r.Goal,
		Status:        r.Status,
		FinalAnswer:   r.FinalAnswer,
		FailureReason: r.FailureReason,
		Iterations:    r.Iterations,
		ReplanCount:   r.ReplanCount,
		PassedChecks:  passed,
		TotalChecks:   total,
		Duration:      r.Duration,
	}
	for _, t := range r.Tasks {
		if t.Status == workflow.TaskFailed {
			res.FailedTaskCount++
		}
	}
	return res
}
