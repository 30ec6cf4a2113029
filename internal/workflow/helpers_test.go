package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
)

// MockMemoryStore is a mock implementation of MemoryStore
type MockMemoryStore struct {
	mock.Mock
}

func (m *MockMemoryStore) Write(ctx context.Context, records []memory.Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockMemoryStore) Search(ctx context.Context, query string, topK int) ([]memory.Hit, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]memory.Hit), args.Error(1)
}

func testRegistry(t *testing.T, extra ...tools.Tool) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	require.NoError(t, r.Register(tools.Calculator()))
	for _, tool := range extra {
		require.NoError(t, r.Register(tool))
	}
	return r
}

func noArgTool(name string, exec tools.Func) tools.Tool {
	return tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        name,
			Description: "test tool " + name,
			Parameters:  map[string]any{"type": "object"},
		},
		Exec: exec,
	}
}

func fixedPlan(tasks ...Task) Role[PlanInput, []Task] {
	return RoleFunc[PlanInput, []Task](func(context.Context, PlanInput) ([]Task, error) {
		return append([]Task(nil), tasks...), nil
	})
}

// toolExecutor calls the task's tool hint with args and maps the tool result.
func toolExecutor(args map[string]any) Role[ExecInput, Result] {
	return RoleFunc[ExecInput, Result](func(ctx context.Context, in ExecInput) (Result, error) {
		res := in.Tools.Call(ctx, in.Task.ToolHint, args, in.ToolTimeout)
		return Result{
			RawOutput:   res.Output,
			ToolUsed:    res.Tool,
			Succeeded:   res.Success,
			ErrorDetail: res.Error,
			Err:         res.Err,
		}, nil
	})
}

// echoExecutor succeeds with the task description and records call order.
type echoExecutor struct {
	mu    sync.Mutex
	order []string
}

func (e *echoExecutor) Invoke(_ context.Context, in ExecInput) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.order = append(e.order, in.Task.ID)
	return Result{RawOutput: "done: " + in.Task.Description, Succeeded: true}, nil
}

func (e *echoExecutor) calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

func constValidator(action Action) Role[ValidateInput, ValidationOutcome] {
	return RoleFunc[ValidateInput, ValidationOutcome](func(context.Context, ValidateInput) (ValidationOutcome, error) {
		return ValidationOutcome{Passed: action == ActionAccept, Score: 1, Reason: string(action), SuggestedAction: action}, nil
	})
}

// resultValidator accepts successful results and retries failures.
func resultValidator() Role[ValidateInput, ValidationOutcome] {
	return RoleFunc[ValidateInput, ValidationOutcome](func(_ context.Context, in ValidateInput) (ValidationOutcome, error) {
		if in.Result.Succeeded {
			return ValidationOutcome{Passed: true, Score: 1, Reason: "ok", SuggestedAction: ActionAccept}, nil
		}
		return ValidationOutcome{Passed: false, Reason: in.Result.ErrorDetail, SuggestedAction: ActionRetrySameTask}, nil
	})
}

func testSettings() Settings {
	s := DefaultSettings()
	s.RoleTimeout = 2 * time.Second
	s.ToolTimeout = time.Second
	s.MemoryTimeout = time.Second
	return s
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []Transition
	finished    []*Report
	started     int
}

func (r *recordingObserver) OnStart(context.Context, string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingObserver) OnTransition(_ context.Context, t Transition, _ *RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *recordingObserver) OnFinish(_ context.Context, rep *Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, rep)
}

func (r *recordingObserver) path() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []State
	for i, t := range r.transitions {
		if i == 0 {
			out = append(out, t.From)
		}
		out = append(out, t.To)
	}
	return out
}

func newTestEngine(t *testing.T, roles Roles, registry ToolRegistry, store MemoryStore, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithSettings(testSettings())}, opts...)
	e, err := NewEngine(roles, registry, store, opts...)
	require.NoError(t, err)
	return e
}

func requireFailure(t *testing.T, err error) *Failure {
	t.Helper()
	var f *Failure
	require.True(t, errors.As(err, &f), "expected *Failure, got %v", err)
	return f
}
