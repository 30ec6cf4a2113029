package workflow

import (
	"time"
)

// State is a node of the run state machine.
type State string

const (
	// StateInit creates the run state and recalls memory context.
	StateInit State = "INIT"

	// StatePlanning asks the Planner for a task list.
	StatePlanning State = "PLANNING"

	// StateExecuting runs the next eligible task.
	StateExecuting State = "EXECUTING"

	// StateValidating judges the latest Result.
	StateValidating State = "VALIDATING"

	// StateRetryExec resets the current task for another attempt.
	StateRetryExec State = "RETRY_EXEC"

	// StateRetryPlan spends one unit of the re-plan budget.
	StateRetryPlan State = "RETRY_PLAN"

	// StateMemoryWrite persists what the run learned.
	StateMemoryWrite State = "MEMORY_WRITE"

	// StateDone is terminal: the run produced an answer.
	StateDone State = "DONE"

	// StateFailed is terminal: the run could not produce an answer.
	StateFailed State = "FAILED"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// TaskStatus is the lifecycle position of a Task. Only the engine changes it.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

// Action is the Validator's routing suggestion.
type Action string

const (
	ActionAccept          Action = "accept"
	ActionRetrySameTask   Action = "retry_same_task"
	ActionRetryWithReplan Action = "retry_with_replan"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionAccept, ActionRetrySameTask, ActionRetryWithReplan:
		return true
	}
	return false
}

// Task is a unit of planned work.
type Task struct {
	ID           string     `json:"id" yaml:"id"`
	Description  string     `json:"description" yaml:"description"`
	ToolHint     string     `json:"tool_hint,omitempty" yaml:"tool_hint,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Status       TaskStatus `json:"status" yaml:"status"`
}

// Error kinds recorded on failed Results.
const (
	KindToolLimit        = "tool_limit"
	KindToolExecution    = "tool_execution"
	KindAgentOutputParse = "agent_output_parse"
	KindModelUnavailable = "model_unavailable"
)

// Result is the outcome of executing one task once. A retry produces a new
// Result that replaces the previous one in RunState.Results.
type Result struct {
	TaskID      string `json:"task_id" yaml:"task_id"`
	RawOutput   string `json:"raw_output" yaml:"raw_output"`
	ToolUsed    string `json:"tool_used,omitempty" yaml:"tool_used,omitempty"`
	Succeeded   bool   `json:"succeeded" yaml:"succeeded"`
	ErrorDetail string `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`

	// Deterministic is set when ToolUsed always yields the same output for
	// the same arguments.
	Deterministic bool          `json:"deterministic,omitempty" yaml:"deterministic,omitempty"`
	Attempt       int           `json:"attempt" yaml:"attempt"`
	Duration      time.Duration `json:"duration" yaml:"duration"`

	// Err is the typed error behind ErrorDetail. It does not survive
	// serialization; use ErrorKind across process boundaries.
	Err error `json:"-" yaml:"-"`
}

// ValidationOutcome is the Validator's judgment of one Result.
type ValidationOutcome struct {
	TaskID          string  `json:"task_id" yaml:"task_id"`
	Passed          bool    `json:"passed" yaml:"passed"`
	Score           float64 `json:"score" yaml:"score"`
	Reason          string  `json:"reason" yaml:"reason"`
	SuggestedAction Action  `json:"suggested_action" yaml:"suggested_action"`
}

// RunState is the single value threaded through every transition.
type RunState struct {
	RunID             string              `json:"run_id"`
	Goal              string              `json:"goal"`
	State             State               `json:"state"`
	Version           int                 `json:"version"`
	Tasks             []Task              `json:"tasks"`
	CurrentTaskIndex  int                 `json:"current_task_index"`
	Results           map[string]Result   `json:"results"`
	ValidationHistory []ValidationOutcome `json:"validation_history"`
	RetryCount        map[string]int      `json:"retry_count"`
	IterationCount    int                 `json:"iteration_count"`
	ReplanCount       int                 `json:"replan_count"`
	MemoryContext     []string            `json:"memory_context"`
	Notes             []string            `json:"notes,omitempty"`
	FinalAnswer       string              `json:"final_answer,omitempty"`
	StartedAt         time.Time           `json:"started_at"`

	// PlanFeedback explains why the previous plan was rejected. It is
	// passed to the Planner on the next attempt and cleared on success.
	PlanFeedback string `json:"plan_feedback,omitempty"`
}

// NewRunState returns a fresh state in INIT with zeroed counters.
func NewRunState(runID, goal string, now time.Time) *RunState {
	return &RunState{
		RunID:            runID,
		Goal:             goal,
		State:            StateInit,
		CurrentTaskIndex: -1,
		Results:          make(map[string]Result),
		RetryCount:       make(map[string]int),
		StartedAt:        now,
	}
}

// Clone returns a deep copy.
func (s *RunState) Clone() *RunState {
	if s == nil {
		return nil
	}
	c := *s
	c.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		t.Dependencies = append([]string(nil), t.Dependencies...)
		c.Tasks[i] = t
	}
	c.Results = make(map[string]Result, len(s.Results))
	for k, v := range s.Results {
		c.Results[k] = v
	}
	c.RetryCount = make(map[string]int, len(s.RetryCount))
	for k, v := range s.RetryCount {
		c.RetryCount[k] = v
	}
	c.ValidationHistory = append([]ValidationOutcome(nil), s.ValidationHistory...)
	c.MemoryContext = append([]string(nil), s.MemoryContext...)
	c.Notes = append([]string(nil), s.Notes...)
	return &c
}

// TaskIndex returns the position of id in the task list, or -1.
func (s *RunState) TaskIndex(id string) int {
	for i, t := range s.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// CurrentTask returns the task selected by the last EXECUTING step.
func (s *RunState) CurrentTask() (Task, bool) {
	if s.CurrentTaskIndex < 0 || s.CurrentTaskIndex >= len(s.Tasks) {
		return Task{}, false
	}
	return s.Tasks[s.CurrentTaskIndex], true
}

// LastOutcome returns the most recent validation outcome, if any.
func (s *RunState) LastOutcome() *ValidationOutcome {
	if len(s.ValidationHistory) == 0 {
		return nil
	}
	o := s.ValidationHistory[len(s.ValidationHistory)-1]
	return &o
}

// SuccessfulResults returns the succeeded tasks' results in task-list order.
func (s *RunState) SuccessfulResults() []Result {
	var out []Result
	for _, t := range s.Tasks {
		if t.Status != TaskSucceeded {
			continue
		}
		if r, ok := s.Results[t.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// ValidationCounts returns (passed, total) over the validation history.
func (s *RunState) ValidationCounts() (passed, total int) {
	for _, o := range s.ValidationHistory {
		if o.Passed {
			passed++
		}
	}
	return passed, len(s.ValidationHistory)
}

func (s *RunState) note(msg string) {
	s.Notes = append(s.Notes, msg)
}
