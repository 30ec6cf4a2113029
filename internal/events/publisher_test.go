package events

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "genagent.runs.abc.started", Subject("genagent", "abc", TypeStarted))
	assert.Equal(t, "x.runs.*.*", Subject("x", "*", "*"))
}

func TestPublisher_ObserverEvents(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ch := make(chan Event, 16)
	sub, err := Subscribe(nc, "test", "run-1", ch)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()
	require.NoError(t, nc.Flush())

	p := NewPublisher(nc, "test", nil)
	ctx := context.Background()
	p.OnStart(ctx, "run-1", "goal")
	p.OnTransition(ctx, workflow.Transition{RunID: "run-1", From: workflow.StateInit, To: workflow.StatePlanning, Iteration: 1, Version: 1, At: time.Now()}, nil)
	p.OnFinish(ctx, &workflow.Report{RunID: "run-1", Goal: "goal", Status: workflow.StateDone, FinalAnswer: "42", Iterations: 5})

	started := receive(t, ch)
	assert.Equal(t, TypeStarted, started.Type)
	assert.Equal(t, "goal", started.Goal)

	tr := receive(t, ch)
	assert.Equal(t, TypeTransition, tr.Type)
	assert.Equal(t, workflow.StatePlanning, tr.To)

	done := receive(t, ch)
	assert.True(t, done.Terminal())
	assert.Equal(t, workflow.StateDone, done.Status)
	assert.Equal(t, "42", done.FinalAnswer)
	assert.NoError(t, p.Close(), "borrowed connections are not closed")
	assert.False(t, nc.IsClosed())
}

func TestPublisher_FullRun(t *testing.T) {
	server := startTestNATSServer(t)
	p, err := Connect(config.NATSConfig{Enabled: true, URL: server.ClientURL()}, nil)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, DefaultSubjectPrefix, p.Prefix())

	ch := make(chan Event, 32)
	sub, err := Subscribe(p.Conn(), "", "*", ch)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()
	require.NoError(t, p.Conn().Flush())

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tools.Calculator()))
	engine, err := workflow.NewEngine(workflow.Roles{
		Planner: workflow.RoleFunc[workflow.PlanInput, []workflow.Task](func(context.Context, workflow.PlanInput) ([]workflow.Task, error) {
			return []workflow.Task{{ID: "t1", Description: "answer"}}, nil
		}),
		Executor: workflow.RoleFunc[workflow.ExecInput, workflow.Result](func(context.Context, workflow.ExecInput) (workflow.Result, error) {
			return workflow.Result{RawOutput: "ok", Succeeded: true}, nil
		}),
		Validator: workflow.RoleFunc[workflow.ValidateInput, workflow.ValidationOutcome](func(context.Context, workflow.ValidateInput) (workflow.ValidationOutcome, error) {
			return workflow.ValidationOutcome{Passed: true, Score: 1, SuggestedAction: workflow.ActionAccept}, nil
		}),
	}, registry, nil, workflow.WithObserver(p))
	require.NoError(t, err)

	report, err := engine.RunWithID(context.Background(), "run-full", "say ok")
	require.NoError(t, err)

	var got []Event
	for {
		e := receive(t, ch)
		assert.Equal(t, "run-full", e.RunID)
		got = append(got, e)
		if e.Terminal() {
			break
		}
	}
	assert.Len(t, got, 1+report.Iterations+1)
	assert.Equal(t, TypeStarted, got[0].Type)
	assert.Equal(t, workflow.StateDone, got[len(got)-1].Status)
	assert.Equal(t, workflow.StateDone, got[len(got)-2].To)
}
