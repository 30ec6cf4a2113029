package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
)

// Engine drives runs through the state machine. One Engine serves any
// number of concurrent runs; each run owns its RunState.
type Engine struct {
	roles      Roles
	tools      ToolRegistry
	memory     MemoryStore
	transcript Transcript

	settings  atomic.Pointer[Settings]
	observers observers
	logger    *logging.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings sets the initial run limits.
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings.Store(&s) }
}

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithTranscript records goals and answers in a conversation log.
func WithTranscript(t Transcript) Option {
	return func(e *Engine) { e.transcript = t }
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer sets the tracer used for run and transition spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// NewEngine creates an engine. Planner, Executor and Validator are required;
// a nil store disables memory.
func NewEngine(roles Roles, registry ToolRegistry, store MemoryStore, opts ...Option) (*Engine, error) {
	if roles.Planner == nil || roles.Executor == nil || roles.Validator == nil {
		return nil, errors.New("planner, executor and validator roles are required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if store == nil {
		store = memory.NewService(nil)
	}

	e := &Engine{
		roles:  roles,
		tools:  registry,
		memory: store,
		logger: logging.NewNop(),
		tracer: otel.Tracer(instrumentationName),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	defaults := DefaultSettings()
	e.settings.Store(&defaults)
	for _, opt := range opts {
		opt(e)
	}
	if err := e.Settings().Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	e.observers = append(observers{logObserver{logger: e.logger}}, e.observers...)
	return e, nil
}

// Settings returns the limits new runs will use.
func (e *Engine) Settings() Settings { return *e.settings.Load() }

// UpdateSettings swaps the limits for runs started after the call.
func (e *Engine) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.settings.Store(&s)
	return nil
}

// Tools returns the registry the engine executes against.
func (e *Engine) Tools() ToolRegistry { return e.tools }

// Run drives goal to a terminal state. On DONE it returns the report and a
// nil error. On FAILED it returns the report and a *Failure. An empty goal
// returns ErrInvalidInput and no report.
func (e *Engine) Run(ctx context.Context, goal string) (*Report, error) {
	return e.RunWithID(ctx, e.newID(), goal)
}

// RunWithID is Run with a caller-chosen run id, used when the id must be
// known before the run starts (async API submissions, durable workflows).
func (e *Engine) RunWithID(ctx context.Context, runID, goal string) (*Report, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, fmt.Errorf("%w: goal must not be empty", ErrInvalidInput)
	}
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("%w: run id must not be empty", ErrInvalidInput)
	}
	settings := e.Settings()

	ctx = logging.WithRunID(ctx, runID)
	ctx, span := e.tracer.Start(ctx, "workflow.Run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("max_iterations", settings.MaxIterations),
	))
	defer span.End()

	committed := NewRunState(runID, goal, e.now())
	e.observers.OnStart(ctx, runID, goal)

	for !committed.State.Terminal() {
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, span, committed, fmt.Errorf("%w: %w", ErrCancelled, err))
		}
		if exhausted(committed.IterationCount, settings.MaxIterations) {
			return e.fail(ctx, span, committed, fmt.Errorf("%w: %d iterations used, stopped in %s",
				ErrIterationBudgetExceeded, committed.IterationCount, committed.State))
		}

		start := e.now()
		next := committed.Clone()
		to, err := e.step(ctx, next, settings)
		if err == nil && ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		if err == nil && !CanTransition(committed.State, to) {
			err = fmt.Errorf("illegal transition %s -> %s", committed.State, to)
		}
		if err != nil {
			return e.fail(ctx, span, committed, err)
		}

		from := committed.State
		next.State = to
		next.IterationCount++
		next.Version++
		committed = next

		t := Transition{
			RunID:     runID,
			From:      from,
			To:        to,
			Iteration: committed.IterationCount,
			Version:   committed.Version,
			At:        e.now(),
			Duration:  e.now().Sub(start),
		}
		if task, ok := committed.CurrentTask(); ok {
			t.TaskID = task.ID
		}
		e.observers.OnTransition(ctx, t, committed)
	}

	report := newReport(committed, nil, e.now())
	span.SetAttributes(attribute.String("status", string(report.Status)), attribute.Int("iterations", report.Iterations))
	span.SetStatus(codes.Ok, "")
	e.observers.OnFinish(ctx, report)
	return report, nil
}

// fail moves the last committed state to FAILED. The failing transition's
// partial work is discarded.
func (e *Engine) fail(ctx context.Context, span trace.Span, committed *RunState, reason error) (*Report, error) {
	final := committed.Clone()
	from := final.State
	final.State = StateFailed
	final.Version++
	final.FinalAnswer = "Run failed: " + reason.Error()

	span.RecordError(reason)
	span.SetStatus(codes.Error, reason.Error())

	e.observers.OnTransition(ctx, Transition{
		RunID:     final.RunID,
		From:      from,
		To:        StateFailed,
		Iteration: final.IterationCount,
		Version:   final.Version,
		At:        e.now(),
	}, final)

	report := newReport(final, reason, e.now())
	e.observers.OnFinish(ctx, report)
	return report, &Failure{Reason: reason, LastOutcome: final.LastOutcome(), State: final}
}

// step runs the handler of s.State against s, which is a private clone, and
// returns the next state.
func (e *Engine) step(ctx context.Context, s *RunState, set Settings) (State, error) {
	ctx, span := e.tracer.Start(ctx, "workflow."+string(s.State), trace.WithAttributes(
		attribute.Int("iteration", s.IterationCount+1),
	))
	defer span.End()

	var (
		next State
		err  error
	)
	switch s.State {
	case StateInit:
		next, err = e.initRun(ctx, s, set)
	case StatePlanning:
		next, err = e.plan(ctx, s, set)
	case StateExecuting:
		next, err = e.execute(ctx, s, set)
	case StateValidating:
		next, err = e.validate(ctx, s, set)
	case StateRetryExec:
		next, err = e.retryExec(s)
	case StateRetryPlan:
		s.ReplanCount++
		next = StatePlanning
	case StateMemoryWrite:
		next, err = e.writeMemory(ctx, s, set)
	default:
		err = fmt.Errorf("no handler for state %s", s.State)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("next", string(next)))
	return next, nil
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

func (e *Engine) initRun(ctx context.Context, s *RunState, set Settings) (State, error) {
	if set.MemoryTopK > 0 {
		mctx, cancel := context.WithTimeout(ctx, set.MemoryTimeout)
		hits, err := e.memory.Search(mctx, s.Goal, set.MemoryTopK)
		cancel()
		if err := cancelled(ctx); err != nil {
			return "", err
		}
		if err != nil {
			e.logger.Warn(ctx, "memory recall failed, continuing without context", zap.Error(err))
			s.note("memory unavailable: " + err.Error())
		}
		for i, h := range hits {
			s.MemoryContext = append(s.MemoryContext, fmt.Sprintf("[%d] %s", i+1, h.Record.Content))
		}
	}
	e.appendTranscript(ctx, s, "user", s.Goal, set)
	return StatePlanning, nil
}

func (e *Engine) plan(ctx context.Context, s *RunState, set Settings) (State, error) {
	in := PlanInput{
		RunID:             s.RunID,
		Goal:              s.Goal,
		MemoryContext:     s.MemoryContext,
		Tools:             e.tools.List(),
		Previous:          s.Tasks,
		Results:           s.Results,
		ValidationHistory: s.ValidationHistory,
		Feedback:          s.PlanFeedback,
		Replan:            s.ReplanCount > 0,
	}
	rctx, cancel := context.WithTimeout(ctx, set.RoleTimeout)
	plan, err := e.roles.Planner.Invoke(rctx, in)
	cancel()
	if err := cancelled(ctx); err != nil {
		return "", err
	}

	if err == nil {
		err = validatePlan(plan, s.Tasks)
	}
	if err == nil {
		if cycle := findCycle(mergePlan(s.Tasks, plan)); cycle != nil {
			err = fmt.Errorf("%w: dependency cycle %s", ErrPlanning, strings.Join(cycle, " -> "))
		}
	}
	if err != nil {
		if !errors.Is(err, ErrPlanning) {
			err = fmt.Errorf("%w: %w", ErrPlanning, err)
		}
		if routePlanningFailure(s.ReplanCount, set.budget()) == StateFailed {
			return "", err
		}
		e.logger.Warn(ctx, "plan rejected, re-planning", zap.Error(err))
		s.PlanFeedback = err.Error()
		s.note("plan rejected: " + err.Error())
		return StateRetryPlan, nil
	}

	for i := range plan {
		if hint := plan[i].ToolHint; hint != "" && !e.tools.Has(hint) {
			e.logger.Info(ctx, "clearing unknown tool hint",
				zap.String("task.id", plan[i].ID), zap.String("hint", hint))
			s.note(fmt.Sprintf("task %s: unknown tool hint %q cleared", plan[i].ID, hint))
			plan[i].ToolHint = ""
		}
		plan[i].Dependencies = append([]string(nil), plan[i].Dependencies...)
	}
	s.Tasks = mergePlan(s.Tasks, plan)
	s.PlanFeedback = ""
	s.CurrentTaskIndex = -1
	return StateExecuting, nil
}

func (e *Engine) execute(ctx context.Context, s *RunState, set Settings) (State, error) {
	idx := nextEligible(s.Tasks)
	if idx < 0 {
		if skipped := skipPending(s.Tasks); len(skipped) > 0 {
			s.note("skipped tasks with unmet dependencies: " + strings.Join(skipped, ", "))
		}
		return StateMemoryWrite, nil
	}

	s.CurrentTaskIndex = idx
	s.Tasks[idx].Status = TaskRunning
	task := s.Tasks[idx]
	attempt := s.RetryCount[task.ID] + 1

	tctx := logging.WithTaskID(ctx, task.ID)
	rctx, cancel := context.WithTimeout(tctx, set.RoleTimeout)
	started := e.now()
	res, err := e.roles.Executor.Invoke(rctx, ExecInput{
		RunID:       s.RunID,
		Goal:        s.Goal,
		Task:        task,
		Results:     s.Results,
		Tools:       e.tools,
		ToolTimeout: set.ToolTimeout,
		Attempt:     attempt,
	})
	cancel()
	if err := cancelled(ctx); err != nil {
		return "", err
	}
	if err != nil {
		e.logger.Warn(tctx, "executor failed", zap.Error(err))
		res = Result{Succeeded: false, ErrorDetail: err.Error(), ErrorKind: ErrorKind(err), Err: err}
	}
	res.TaskID = task.ID
	res.Attempt = attempt
	if res.Duration == 0 {
		res.Duration = e.now().Sub(started)
	}
	if !res.Succeeded && res.ErrorKind == "" {
		res.ErrorKind = ErrorKind(res.Err)
	}
	s.Results[task.ID] = res
	return StateValidating, nil
}

func (e *Engine) validate(ctx context.Context, s *RunState, set Settings) (State, error) {
	task, ok := s.CurrentTask()
	if !ok {
		return "", errors.New("validating without a current task")
	}
	res := s.Results[task.ID]

	tctx := logging.WithTaskID(ctx, task.ID)
	rctx, cancel := context.WithTimeout(tctx, set.RoleTimeout)
	out, err := e.roles.Validator.Invoke(rctx, ValidateInput{Goal: s.Goal, Task: task, Result: res})
	cancel()
	if err := cancelled(ctx); err != nil {
		return "", err
	}
	if err != nil {
		e.logger.Warn(tctx, "validator failed", zap.Error(err))
		out = ValidationOutcome{Passed: false, Reason: "validator error: " + err.Error(), SuggestedAction: ActionRetrySameTask}
	}
	out.TaskID = task.ID
	if !out.SuggestedAction.Valid() {
		out.SuggestedAction = ActionRetrySameTask
	}
	s.ValidationHistory = append(s.ValidationHistory, out)

	idx := s.CurrentTaskIndex
	d := routeValidation(out, s.RetryCount[task.ID], s.ReplanCount, set.budget(), func(st TaskStatus) bool {
		probe := append([]Task(nil), s.Tasks...)
		probe[idx].Status = st
		return nextEligible(probe) >= 0
	})
	s.Tasks[idx].Status = d.TaskStatus
	if d.BudgetExceeded {
		e.logger.Info(tctx, "task failed", zap.String("action", string(out.SuggestedAction)))
		s.note(fmt.Sprintf("task %s failed: %v", task.ID, ErrRetryBudgetExceeded))
	}
	if d.Next == StateMemoryWrite {
		if skipped := skipPending(s.Tasks); len(skipped) > 0 {
			s.note("skipped tasks with unmet dependencies: " + strings.Join(skipped, ", "))
		}
	}
	return d.Next, nil
}

func (e *Engine) retryExec(s *RunState) (State, error) {
	task, ok := s.CurrentTask()
	if !ok {
		return "", errors.New("retrying without a current task")
	}
	s.RetryCount[task.ID]++
	s.Tasks[s.CurrentTaskIndex].Status = TaskPending
	return StateExecuting, nil
}

func (e *Engine) writeMemory(ctx context.Context, s *RunState, set Settings) (State, error) {
	answer := composeAnswer(s)

	if e.roles.Memory != nil {
		rctx, cancel := context.WithTimeout(ctx, set.RoleTimeout)
		records, err := e.roles.Memory.Invoke(rctx, MemoryInput{State: s.Clone(), Answer: answer})
		cancel()
		if err := cancelled(ctx); err != nil {
			return "", err
		}
		if err != nil {
			e.logger.Warn(ctx, "memory distillation failed", zap.Error(err))
			s.note("memory distillation failed: " + err.Error())
		}
		if len(records) > 0 {
			wctx, cancel := context.WithTimeout(ctx, set.MemoryTimeout)
			err := e.memory.Write(wctx, records)
			cancel()
			if err != nil {
				e.logger.Warn(ctx, "memory write failed", zap.Error(err))
				s.note("memory write failed: " + err.Error())
			}
		}
	}
	e.appendTranscript(ctx, s, "assistant", answer, set)

	s.FinalAnswer = answer
	return StateDone, nil
}

func (e *Engine) appendTranscript(ctx context.Context, s *RunState, role, content string, set Settings) {
	if e.transcript == nil {
		return
	}
	tctx, cancel := context.WithTimeout(ctx, set.MemoryTimeout)
	defer cancel()
	if _, err := e.transcript.Append(tctx, memory.Message{RunID: s.RunID, Role: role, Content: content}); err != nil {
		e.logger.Warn(ctx, "conversation log append failed", zap.Error(err))
	}
}
