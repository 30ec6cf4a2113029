package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
)

// Transition describes one committed state change.
type Transition struct {
	RunID     string        `json:"run_id"`
	From      State         `json:"from"`
	To        State         `json:"to"`
	Iteration int           `json:"iteration"`
	Version   int           `json:"version"`
	TaskID    string        `json:"task_id,omitempty"`
	At        time.Time     `json:"at"`
	Duration  time.Duration `json:"duration"`
}

// Observer receives run lifecycle callbacks. Callbacks run on the run's
// goroutine and must not block.
type Observer interface {
	OnStart(ctx context.Context, runID, goal string)
	OnTransition(ctx context.Context, t Transition, state *RunState)
	OnFinish(ctx context.Context, report *Report)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	Start      func(ctx context.Context, runID, goal string)
	Transition func(ctx context.Context, t Transition, state *RunState)
	Finish     func(ctx context.Context, report *Report)
}

func (o ObserverFuncs) OnStart(ctx context.Context, runID, goal string) {
	if o.Start != nil {
		o.Start(ctx, runID, goal)
	}
}

func (o ObserverFuncs) OnTransition(ctx context.Context, t Transition, state *RunState) {
	if o.Transition != nil {
		o.Transition(ctx, t, state)
	}
}

func (o ObserverFuncs) OnFinish(ctx context.Context, report *Report) {
	if o.Finish != nil {
		o.Finish(ctx, report)
	}
}

type observers []Observer

func (os observers) OnStart(ctx context.Context, runID, goal string) {
	for _, o := range os {
		o.OnStart(ctx, runID, goal)
	}
}

func (os observers) OnTransition(ctx context.Context, t Transition, state *RunState) {
	for _, o := range os {
		o.OnTransition(ctx, t, state)
	}
}

func (os observers) OnFinish(ctx context.Context, report *Report) {
	for _, o := range os {
		o.OnFinish(ctx, report)
	}
}

// logObserver writes transitions to the structured logger.
type logObserver struct {
	logger *logging.Logger
}

func (l logObserver) OnStart(ctx context.Context, runID, goal string) {
	l.logger.Info(ctx, "run started", zap.String("goal", goal))
}

func (l logObserver) OnTransition(ctx context.Context, t Transition, _ *RunState) {
	fields := []zap.Field{
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.Int("iteration", t.Iteration),
		zap.Duration("duration", t.Duration),
	}
	if t.TaskID != "" {
		fields = append(fields, zap.String("task.id", t.TaskID))
	}
	l.logger.Debug(ctx, "transition", fields...)
}

func (l logObserver) OnFinish(ctx context.Context, r *Report) {
	fields := []zap.Field{
		zap.String("status", string(r.Status)),
		zap.Int("iterations", r.Iterations),
		zap.Duration("duration", r.Duration),
	}
	if r.Status == StateFailed {
		l.logger.Warn(ctx, "run failed", append(fields, zap.String("reason", r.FailureReason))...)
		return
	}
	l.logger.Info(ctx, "run finished", fields...)
}
