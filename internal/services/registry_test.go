package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/events"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Memory.Chromem.Path = filepath.Join(dir, "memory")
	cfg.Memory.Conversation.Path = filepath.Join(dir, "conversation.db")
	cfg.Embeddings.Provider = "hash"
	cfg.Embeddings.Dimension = 64
	return cfg
}

func calculatorScript() *reasoning.ScriptedModel {
	return reasoning.NewScriptedModel(
		`{"tasks":[{"id":"t1","description":"Calculate 15% of 890","tool_hint":"calculator","dependencies":[]}]}`,
		`{"tool":"calculator","arguments":{"expression":"890 * 0.15"}}`,
		`{"memories":["15% of 890 is 133.5"]}`,
	)
}

func build(t *testing.T, opts Options) Registry {
	t.Helper()
	if opts.Config == nil {
		opts.Config = testConfig(t)
	}
	if opts.Model == nil {
		opts.Model = calculatorScript()
	}
	reg, err := Build(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestBuild_RequiresConfig(t *testing.T) {
	_, err := Build(context.Background(), Options{})
	require.Error(t, err)
}

func TestBuild_UnknownModelProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.Provider = "carrier-pigeon"
	_, err := Build(context.Background(), Options{Config: cfg})
	require.Error(t, err)
}

func TestBuild_RunsGoalEndToEnd(t *testing.T) {
	reg := build(t, Options{})
	ctx := context.Background()

	report, err := reg.Engine().Run(ctx, "Calculate 15% of 890")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateDone, report.Status)
	assert.Equal(t, "133.5", report.FinalAnswer)

	require.NotNil(t, reg.Memory())
	hits, err := reg.Memory().Search(ctx, "15% of 890", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	msgs, err := reg.Conversation().Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "Calculate 15% of 890", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
}

func TestBuild_RegistersBuiltinTools(t *testing.T) {
	reg := build(t, Options{})

	var names []string
	for _, d := range reg.Tools().List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"calculator", "file_reader", "memory_search", "python_executor"}, names)
}

func TestBuild_WithoutMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Memory.Provider = "none"
	reg := build(t, Options{Config: cfg})

	assert.Nil(t, reg.Memory())
	assert.False(t, reg.Tools().Has("memory_search"))

	report, err := reg.Engine().Run(context.Background(), "Calculate 15% of 890")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateDone, report.Status)
	assert.Empty(t, report.Notes, "a disabled memory store is not degraded")
}

func TestBuild_Surfaces(t *testing.T) {
	reg := build(t, Options{Version: "1.2.3"})

	srv, err := reg.NewHTTPServer()
	require.NoError(t, err)
	assert.NotNil(t, srv)

	mcpServer, err := reg.NewMCPServer()
	require.NoError(t, err)
	assert.NotNil(t, mcpServer)

	assert.NotNil(t, reg.NewActivities())
}

func TestBuild_SecretScrubbing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secrets.Enabled = false
	reg := build(t, Options{Config: cfg})
	assert.False(t, reg.Scrubber().IsEnabled())

	cfg = testConfig(t)
	cfg.Secrets.Enabled = true
	reg = build(t, Options{Config: cfg})
	assert.True(t, reg.Scrubber().IsEnabled())
}

func TestRegistry_Reload(t *testing.T) {
	reg := build(t, Options{})

	next := testConfig(t)
	next.Workflow.MaxIterations = 7
	next.Workflow.ReplanBudget = 3
	require.NoError(t, reg.Reload(next))

	settings := reg.Engine().Settings()
	assert.Equal(t, 7, settings.MaxIterations)
	assert.Equal(t, 3, settings.ReplanBudget)

	bad := testConfig(t)
	bad.Workflow.MaxIterations = 0
	require.Error(t, reg.Reload(bad))
	assert.Equal(t, 7, reg.Engine().Settings().MaxIterations, "rejected reload keeps the previous settings")

	require.Error(t, reg.Reload(nil))
}

func TestBuild_PublishesEvents(t *testing.T) {
	srv := startTestNATSServer(t)

	cfg := testConfig(t)
	cfg.NATS.Enabled = true
	cfg.NATS.URL = srv.ClientURL()
	reg := build(t, Options{Config: cfg, Events: true})
	require.NotNil(t, reg.Events())

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ch := make(chan events.Event, 64)
	sub, err := events.Subscribe(nc, reg.Events().Prefix(), "*", ch)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()
	require.NoError(t, nc.Flush())

	report, err := reg.Engine().Run(context.Background(), "Calculate 15% of 890")
	require.NoError(t, err)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Terminal() {
				assert.Equal(t, report.RunID, e.RunID)
				assert.Equal(t, workflow.StateDone, e.Status)
				return
			}
		case <-deadline:
			t.Fatal("no finished event received")
		}
	}
}

func TestBuild_EventsNeedBothSwitches(t *testing.T) {
	cfg := testConfig(t)
	cfg.NATS.Enabled = true
	cfg.NATS.URL = "nats://127.0.0.1:1"
	reg := build(t, Options{Config: cfg, Events: false})
	assert.Nil(t, reg.Events())
}

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	server, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(server.Shutdown)
	return server
}
