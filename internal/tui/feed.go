package tui

import (
	"context"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

const feedBuffer = 64

// Feed is a workflow observer that forwards transitions to the chat view.
// Sends never block the engine; transitions are dropped when the view falls
// behind.
type Feed struct {
	ch chan workflow.Transition
}

// NewFeed creates a Feed. Register it on the engine with
// workflow.WithObserver and pass it to NewModel.
func NewFeed() *Feed {
	return &Feed{ch: make(chan workflow.Transition, feedBuffer)}
}

func (f *Feed) OnStart(context.Context, string, string) {}

func (f *Feed) OnTransition(_ context.Context, t workflow.Transition, _ *workflow.RunState) {
	select {
	case f.ch <- t:
	default:
	}
}

func (f *Feed) OnFinish(context.Context, *workflow.Report) {}

// C returns the receive side.
func (f *Feed) C() <-chan workflow.Transition { return f.ch }
