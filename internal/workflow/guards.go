package workflow

// Guards are pure functions of (state, latest outcome) that pick the next
// state. They never mutate their inputs.

// allowedTransitions lists every edge of the state machine. FAILED is
// reachable from every non-terminal state and is not listed.
var allowedTransitions = map[State][]State{
	StateInit:        {StatePlanning},
	StatePlanning:    {StateExecuting, StateRetryPlan},
	StateExecuting:   {StateValidating, StateMemoryWrite},
	StateValidating:  {StateExecuting, StateRetryExec, StateRetryPlan, StateMemoryWrite},
	StateRetryExec:   {StateExecuting},
	StateRetryPlan:   {StatePlanning},
	StateMemoryWrite: {StateDone},
}

// CanTransition reports whether from → to is an edge of the state machine.
func CanTransition(from, to State) bool {
	if to == StateFailed {
		return !from.Terminal()
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Budget is the slice of settings the guards consult.
type Budget struct {
	MaxRetries   int
	ReplanBudget int
}

// Decision is the result of routing a validation outcome.
type Decision struct {
	Next State
	// TaskStatus is the new status of the validated task.
	TaskStatus TaskStatus
	// BudgetExceeded is set when the task failed because its retry or
	// re-plan budget was spent.
	BudgetExceeded bool
}

// routeValidation maps an outcome to the next state. retries is the task's
// retry count, replans the run's re-plan count, and hasEligible whether
// another task could run once this one is settled.
func routeValidation(o ValidationOutcome, retries, replans int, b Budget, hasEligible func(TaskStatus) bool) Decision {
	settle := func(status TaskStatus, exceeded bool) Decision {
		next := StateMemoryWrite
		if hasEligible(status) {
			next = StateExecuting
		}
		return Decision{Next: next, TaskStatus: status, BudgetExceeded: exceeded}
	}

	switch o.SuggestedAction {
	case ActionAccept:
		return settle(TaskSucceeded, false)
	case ActionRetryWithReplan:
		if replans < b.ReplanBudget {
			return Decision{Next: StateRetryPlan, TaskStatus: TaskPending}
		}
		return settle(TaskFailed, true)
	default:
		if retries < b.MaxRetries {
			return Decision{Next: StateRetryExec, TaskStatus: TaskRunning}
		}
		return settle(TaskFailed, true)
	}
}

// routePlanningFailure picks RETRY_PLAN while re-plan budget remains.
func routePlanningFailure(replans int, b Budget) State {
	if replans < b.ReplanBudget {
		return StateRetryPlan
	}
	return StateFailed
}

// exhausted reports whether another transition would exceed maxIterations.
func exhausted(iterations, maxIterations int) bool {
	return iterations >= maxIterations
}
