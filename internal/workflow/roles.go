package workflow

import (
	"context"
	"time"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
)

// Role is the capability every agent shares: consume a role-specific input
// and produce a role-specific output.
type Role[In, Out any] interface {
	Invoke(ctx context.Context, in In) (Out, error)
}

// RoleFunc adapts a function to Role.
type RoleFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Invoke calls f.
func (f RoleFunc[In, Out]) Invoke(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// PlanInput is what the Planner sees. On a re-plan Previous, Results and
// ValidationHistory describe the run so far and Feedback explains why the
// engine asked again.
type PlanInput struct {
	RunID             string
	Goal              string
	MemoryContext     []string
	Tools             []tools.Descriptor
	Previous          []Task
	Results           map[string]Result
	ValidationHistory []ValidationOutcome
	Feedback          string
	Replan            bool
}

// ExecInput is what the Executor sees.
type ExecInput struct {
	RunID       string
	Goal        string
	Task        Task
	Results     map[string]Result
	Tools       ToolRegistry
	ToolTimeout time.Duration
	Attempt     int
}

// ValidateInput is what the Validator sees.
type ValidateInput struct {
	Goal   string
	Task   Task
	Result Result
}

// MemoryInput is what the MemoryWriter sees. State is a private copy.
type MemoryInput struct {
	State  *RunState
	Answer string
}

// Roles holds one implementation per agent role. Memory may be nil, in
// which case nothing is persisted at the end of a run.
type Roles struct {
	Planner   Role[PlanInput, []Task]
	Executor  Role[ExecInput, Result]
	Validator Role[ValidateInput, ValidationOutcome]
	Memory    Role[MemoryInput, []memory.Record]
}

// ToolRegistry is the tool contract the engine and Executor depend on.
// *tools.Registry satisfies it.
type ToolRegistry interface {
	List() []tools.Descriptor
	Get(name string) (tools.Descriptor, bool)
	Has(name string) bool
	Infer(description string) (string, bool)
	Call(ctx context.Context, name string, args map[string]any, timeout time.Duration) tools.Result
}

// MemoryStore is the memory contract. *memory.Service satisfies it.
type MemoryStore interface {
	Write(ctx context.Context, records []memory.Record) error
	Search(ctx context.Context, query string, topK int) ([]memory.Hit, error)
}

// Transcript is the optional conversation log. *memory.ConversationLog
// satisfies it.
type Transcript interface {
	Append(ctx context.Context, m memory.Message) (memory.Message, error)
}
