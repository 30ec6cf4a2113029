package workflow

import (
	"errors"
	"fmt"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
)

var (
	// ErrInvalidInput is returned for an empty goal.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPlanning marks a malformed, empty or cyclic plan.
	ErrPlanning = errors.New("planning failed")

	// ErrAgentOutputParse marks structured output that could not be parsed
	// even after a corrective re-prompt.
	ErrAgentOutputParse = errors.New("agent output could not be parsed")

	// ErrIterationBudgetExceeded is returned when max_iterations is reached.
	ErrIterationBudgetExceeded = errors.New("iteration budget exceeded")

	// ErrRetryBudgetExceeded is recorded when a task fails because its retry
	// or re-plan budget is spent.
	ErrRetryBudgetExceeded = errors.New("retry budget exceeded")

	// ErrCancelled is returned when the caller aborts a run.
	ErrCancelled = errors.New("run cancelled")
)

// Aliases so callers can match every per-task error through this package.
var (
	ErrToolLimit        = tools.ErrToolLimit
	ErrToolExecution    = tools.ErrToolExecution
	ErrModelUnavailable = reasoning.ErrModelUnavailable
)

// Failure is the typed outcome of a run that ended in FAILED. It carries the
// reason, the last validation outcome and the last committed state.
type Failure struct {
	Reason      error
	LastOutcome *ValidationOutcome
	State       *RunState
}

func (f *Failure) Error() string {
	if f.State != nil {
		return fmt.Sprintf("run %s failed after %d iterations: %v", f.State.RunID, f.State.IterationCount, f.Reason)
	}
	return fmt.Sprintf("run failed: %v", f.Reason)
}

func (f *Failure) Unwrap() error { return f.Reason }

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrToolLimit):
		return KindToolLimit
	case errors.Is(err, ErrAgentOutputParse):
		return KindAgentOutputParse
	case errors.Is(err, ErrModelUnavailable):
		return KindModelUnavailable
	default:
		return KindToolExecution
	}
}
