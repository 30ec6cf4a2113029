// Package events publishes run lifecycle events to NATS.
//
// Events are published to subjects:
//   - {prefix}.runs.{run_id}.started
//   - {prefix}.runs.{run_id}.transition
//   - {prefix}.runs.{run_id}.finished
//
// The payload is a JSON Event. Publishing is best effort: a run never fails
// because an event could not be delivered.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "genagent"

// Event types, also the last subject token.
const (
	TypeStarted    = "started"
	TypeTransition = "transition"
	TypeFinished   = "finished"
)

// Event is one published lifecycle event.
type Event struct {
	Type          string         `json:"type"`
	RunID         string         `json:"run_id"`
	Goal          string         `json:"goal,omitempty"`
	From          workflow.State `json:"from,omitempty"`
	To            workflow.State `json:"to,omitempty"`
	Iteration     int            `json:"iteration,omitempty"`
	Version       int            `json:"version,omitempty"`
	TaskID        string         `json:"task_id,omitempty"`
	Status        workflow.State `json:"status,omitempty"`
	FinalAnswer   string         `json:"final_answer,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	At            time.Time      `json:"at"`
}

// Terminal reports whether e is the last event of its run.
func (e Event) Terminal() bool { return e.Type == TypeFinished }

// Publisher is a workflow.Observer that publishes to NATS.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	owned  bool
	logger *logging.Logger
}

// NewPublisher wraps an existing connection. The caller keeps ownership of nc.
func NewPublisher(nc *nats.Conn, prefix string, logger *logging.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{nc: nc, prefix: prefix, logger: logger.Named("events")}
}

// Connect dials the configured server and returns a publisher that owns the
// connection.
func Connect(cfg config.NATSConfig, logger *logging.Logger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("genagent"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.URL, err)
	}
	p := NewPublisher(nc, cfg.SubjectPrefix, logger)
	p.owned = true
	return p, nil
}

// Conn returns the underlying connection.
func (p *Publisher) Conn() *nats.Conn { return p.nc }

// Prefix returns the subject prefix.
func (p *Publisher) Prefix() string { return p.prefix }

// Subject returns the subject for one event of a run.
func Subject(prefix, runID, eventType string) string {
	return fmt.Sprintf("%s.runs.%s.%s", prefix, runID, eventType)
}

// Publish sends e on its subject.
func (p *Publisher) Publish(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(Subject(p.prefix, e.RunID, e.Type), data); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, e Event) {
	if err := p.Publish(e); err != nil {
		p.logger.Warn(ctx, "event publish failed", zap.Error(err), zap.String("event", e.Type))
	}
}

// OnStart implements workflow.Observer.
func (p *Publisher) OnStart(ctx context.Context, runID, goal string) {
	p.publish(ctx, Event{Type: TypeStarted, RunID: runID, Goal: goal, At: time.Now().UTC()})
}

// OnTransition implements workflow.Observer.
func (p *Publisher) OnTransition(ctx context.Context, t workflow.Transition, _ *workflow.RunState) {
	p.publish(ctx, Event{
		Type:      TypeTransition,
		RunID:     t.RunID,
		From:      t.From,
		To:        t.To,
		Iteration: t.Iteration,
		Version:   t.Version,
		TaskID:    t.TaskID,
		At:        t.At.UTC(),
	})
}

// OnFinish implements workflow.Observer.
func (p *Publisher) OnFinish(ctx context.Context, r *workflow.Report) {
	p.publish(ctx, Event{
		Type:          TypeFinished,
		RunID:         r.RunID,
		Goal:          r.Goal,
		Status:        r.Status,
		Iteration:     r.Iterations,
		FinalAnswer:   r.FinalAnswer,
		FailureReason: r.FailureReason,
		At:            time.Now().UTC(),
	})
	if err := p.nc.FlushTimeout(time.Second); err != nil {
		p.logger.Debug(ctx, "event flush failed", zap.Error(err))
	}
}

// Close drains the connection if the publisher owns it.
func (p *Publisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}

// Subscribe delivers every event of one run, or of all runs when runID is
// "*", to ch until the subscription is removed.
func Subscribe(nc *nats.Conn, prefix, runID string, ch chan<- Event) (*nats.Subscription, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return nc.Subscribe(Subject(prefix, runID, "*"), func(msg *nats.Msg) {
		var e Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return
		}
		if e.Type == "" {
			e.Type = msg.Subject[strings.LastIndex(msg.Subject, ".")+1:]
		}
		ch <- e
	})
}
