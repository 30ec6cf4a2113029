package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/embeddings"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

func TestRoles_EndToEnd(t *testing.T) {
	model := reasoning.NewScriptedModel(
		`{"tasks":[{"id":"t1","description":"Calculate 15% of 890","tool_hint":"calculator","dependencies":[]}]}`,
		`{"tool":"calculator","arguments":{"expression":"890 * 0.15"}}`,
		`{"memories":["15% of 890 is 133.5"]}`,
	)

	store, err := memory.NewChromemStore("", false, "", embeddings.NewHashEmbedder(64))
	require.NoError(t, err)
	svc := memory.NewService(store)

	cfg := config.Default()
	engine, err := workflow.NewEngine(NewRoles(model, cfg), newRegistry(t), svc)
	require.NoError(t, err)

	report, err := engine.Run(context.Background(), "Calculate 15% of 890")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateDone, report.Status)
	assert.Equal(t, "133.5", report.FinalAnswer)
	assert.Len(t, model.Calls(), 3, "deterministic output skips the validator model")

	passed, total := report.ValidationCounts()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, total)
	assert.Equal(t, 3, store.Count())

	hits, err := svc.Search(context.Background(), "15% of 890", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	second, err := engine.Run(context.Background(), "Calculate 15% of 890")
	require.ErrorIs(t, err, workflow.ErrPlanning, "script is drained, so the planner model is unavailable")
	assert.Equal(t, workflow.StateFailed, second.Status)
}
