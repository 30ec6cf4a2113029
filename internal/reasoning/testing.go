package reasoning

import (
	"context"
	"fmt"
	"sync"
)

// Call is one recorded Generate invocation.
type Call struct {
	Prompt string
	Opts   Options
}

// Reply is a scripted response: text, or an error when Err is set.
type Reply struct {
	Text string
	Err  error
}

// ScriptedModel replays queued replies in order. It is deterministic and safe
// for concurrent use, which makes it suitable for workflow tests.
type ScriptedModel struct {
	mu       sync.Mutex
	replies  []Reply
	calls    []Call
	fallback *Reply
}

// NewScriptedModel creates a model that returns texts in order.
func NewScriptedModel(texts ...string) *ScriptedModel {
	s := &ScriptedModel{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Then queues another reply.
func (s *ScriptedModel) Then(r Reply) *ScriptedModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, r)
	return s
}

// Always sets the reply used once the queue is drained.
func (s *ScriptedModel) Always(r Reply) *ScriptedModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = &r
	return s
}

// Name implements Model.
func (s *ScriptedModel) Name() string { return "scripted" }

// Generate implements Model.
func (s *ScriptedModel) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Prompt: prompt, Opts: opts})

	var r Reply
	switch {
	case len(s.replies) > 0:
		r = s.replies[0]
		s.replies = s.replies[1:]
	case s.fallback != nil:
		r = *s.fallback
	default:
		return "", unavailable("scripted", fmt.Errorf("no scripted reply for call %d", len(s.calls)))
	}
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

// Calls returns a copy of the recorded calls.
func (s *ScriptedModel) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}
