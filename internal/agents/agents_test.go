package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

var testRole = config.RoleConfig{Temperature: 0.2, MaxTokens: 256, SystemPrompt: "be precise"}

func newRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	require.NoError(t, r.Register(tools.Calculator()))
	require.NoError(t, r.Register(tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "echo",
			Description: "Repeat the given text back",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"text": map[string]any{"type": "string"}},
				"required":   []string{"text"},
			},
		},
		Exec: func(_ context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
	}))
	return r
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
		err   bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"prose around", "Sure! Here it is: {\"a\":{\"b\":2}} hope it helps", `{"a":{"b":2}}`, false},
		{"none", "I cannot help with that", "", true},
		{"reversed braces", "} nope {", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.reply)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAsk_CorrectiveReprompt(t *testing.T) {
	model := reasoning.NewScriptedModel("not json at all", `{"tasks":[{"id":"a","description":"x"}]}`)
	p := NewPlanner(model, testRole)

	tasks, err := p.Invoke(context.Background(), workflow.PlanInput{Goal: "g"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	calls := model.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Prompt, "could not be used")
	assert.Equal(t, reasoning.Options{Temperature: 0.2, MaxTokens: 256, System: "be precise"}, calls[0].Opts)
}

func TestAsk_SecondParseFailureIsParseError(t *testing.T) {
	model := reasoning.NewScriptedModel("nope", "still nope")
	_, err := NewPlanner(model, testRole).Invoke(context.Background(), workflow.PlanInput{Goal: "g"})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrAgentOutputParse)
	assert.Len(t, model.Calls(), 2)
}

func TestAsk_ModelErrorIsNotReprompted(t *testing.T) {
	model := reasoning.NewScriptedModel().Then(reasoning.Reply{Err: &reasoning.UnavailableError{Provider: "test", Err: errors.New("503")}})
	_, err := NewPlanner(model, testRole).Invoke(context.Background(), workflow.PlanInput{Goal: "g"})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrModelUnavailable)
	assert.Equal(t, workflow.KindModelUnavailable, workflow.ErrorKind(err))
	assert.Len(t, model.Calls(), 1)
}

func TestAsk_ModelRetryIsSpentOncePerInvocation(t *testing.T) {
	down := &reasoning.UnavailableError{Provider: "test", Retryable: true, Err: errors.New("503")}
	scripted := reasoning.NewScriptedModel()
	scripted.
		Then(reasoning.Reply{Err: down}).
		Then(reasoning.Reply{Text: "not json"}).
		Then(reasoning.Reply{Err: down}).
		Then(reasoning.Reply{Text: `{"tasks":[{"id":"a","description":"x"}]}`})
	model := reasoning.WithRetry(scripted, reasoning.Backoff{}, 1)

	_, err := NewPlanner(model, testRole).Invoke(context.Background(), workflow.PlanInput{Goal: "g"})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrModelUnavailable)
	assert.Len(t, scripted.Calls(), 3, "the corrective call is not retried")
}

func TestAsk_NilModel(t *testing.T) {
	_, err := NewPlanner(nil, testRole).Invoke(context.Background(), workflow.PlanInput{Goal: "g"})
	assert.ErrorIs(t, err, workflow.ErrModelUnavailable)
}

func TestPlanner(t *testing.T) {
	reply := "```json\n" + `{"tasks":[
		{"id":"task_1","description":" Calculate 15% of 890 ","tool_hint":"Calculator","dependencies":[]},
		{"id":"","description":"Explain the result","tool_hint":"none","dependencies":["task_1", " "]}
	]}` + "\n```"
	model := reasoning.NewScriptedModel(reply)
	reg := newRegistry(t)

	tasks, err := NewPlanner(model, testRole).Invoke(context.Background(), workflow.PlanInput{
		Goal:          "Calculate 15% of 890 and explain",
		MemoryContext: []string{"[1] User Goal: Calculate 10% of 500"},
		Tools:         reg.List(),
	})
	require.NoError(t, err)
	assert.Equal(t, []workflow.Task{
		{ID: "task_1", Description: "Calculate 15% of 890", ToolHint: "calculator", Dependencies: []string{}, Status: workflow.TaskPending},
		{ID: "task_2", Description: "Explain the result", Dependencies: []string{"task_1"}, Status: workflow.TaskPending},
	}, tasks)

	prompt := model.Calls()[0].Prompt
	assert.Contains(t, prompt, "User Goal: Calculate 15% of 890 and explain")
	assert.Contains(t, prompt, "[1] User Goal: Calculate 10% of 500")
	assert.Contains(t, prompt, "- calculator:")
	assert.Contains(t, prompt, "- echo:")
	assert.NotContains(t, prompt, "re-plan")
}

func TestPlanner_RejectsShapeErrors(t *testing.T) {
	for _, reply := range []string{`{"steps":[]}`, `{"tasks":[]}`, `{"tasks": 3}`} {
		_, err := parsePlan(reply)
		assert.Error(t, err, reply)
	}
}

func TestPlanner_ReplanPrompt(t *testing.T) {
	model := reasoning.NewScriptedModel(`{"tasks":[{"id":"b","description":"retry differently"}]}`)
	_, err := NewPlanner(model, testRole).Invoke(context.Background(), workflow.PlanInput{
		Goal:     "g",
		Replan:   true,
		Feedback: "planning failed: dependency cycle a -> a",
		Previous: []workflow.Task{
			{ID: "a", Description: "fetch", Status: workflow.TaskSucceeded},
			{ID: "b", Description: "parse", Status: workflow.TaskPending},
		},
		Results: map[string]workflow.Result{
			"a": {RawOutput: "payload", Succeeded: true},
			"b": {ErrorDetail: "bad format"},
		},
		ValidationHistory: []workflow.ValidationOutcome{
			{TaskID: "b", Score: 0.2, Reason: "wrong parser", SuggestedAction: workflow.ActionRetryWithReplan},
		},
	})
	require.NoError(t, err)

	prompt := model.Calls()[0].Prompt
	assert.Contains(t, prompt, "This is a re-plan")
	assert.Contains(t, prompt, "dependency cycle a -> a")
	assert.Contains(t, prompt, "- a [succeeded]: fetch\n  Result: payload")
	assert.Contains(t, prompt, "Error: bad format")
	assert.Contains(t, prompt, "wrong parser")
}

func TestExecutor_JSONToolCall(t *testing.T) {
	model := reasoning.NewScriptedModel(`{"tool": "calculator", "arguments": {"expression": "890 * 0.15"}}`)
	res, err := NewExecutor(model, testRole).Invoke(context.Background(), workflow.ExecInput{
		Goal:        "Calculate 15% of 890",
		Task:        workflow.Task{ID: "t1", Description: "Calculate 15% of 890", ToolHint: "calculator"},
		Tools:       newRegistry(t),
		ToolTimeout: time.Second,
		Attempt:     1,
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "133.5", res.RawOutput)
	assert.Equal(t, "calculator", res.ToolUsed)
	assert.True(t, res.Deterministic)

	prompt := model.Calls()[0].Prompt
	assert.Contains(t, prompt, "Suggested tool: calculator")
	assert.NotContains(t, prompt, "- echo:", "only the hinted tool is offered")
}

func TestExecutor_InfersToolWithoutHint(t *testing.T) {
	model := reasoning.NewScriptedModel(`{"tool":"calculator","arguments":{"expression":"2+2"}}`)
	_, err := NewExecutor(model, testRole).Invoke(context.Background(), workflow.ExecInput{
		Task:        workflow.Task{ID: "t1", Description: "compute the percentage"},
		Tools:       newRegistry(t),
		ToolTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.Contains(t, model.Calls()[0].Prompt, "Suggested tool: calculator")
}

func TestExecutor_LegacyLineFormat(t *testing.T) {
	model := reasoning.NewScriptedModel("Let me do that.\nTOOL: echo | INPUT: hello world")
	res, err := NewExecutor(model, testRole).Invoke(context.Background(), workflow.ExecInput{
		Task:        workflow.Task{ID: "t1", Description: "say hello", ToolHint: "echo"},
		Tools:       newRegistry(t),
		ToolTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "hello world", res.RawOutput)
	assert.False(t, res.Deterministic)
}

func TestExecutor_LineMarkersInsideJSONAreData(t *testing.T) {
	model := reasoning.NewScriptedModel(`{"tool":"echo","arguments":{"text":"TOOL: calculator | INPUT: 1+1"}}`)
	res, err := NewExecutor(model, testRole).Invoke(context.Background(), workflow.ExecInput{
		Task:        workflow.Task{ID: "t1", Description: "repeat the instruction", ToolHint: "echo"},
		Tools:       newRegistry(t),
		ToolTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded, res.ErrorDetail)
	assert.Equal(t, "echo", res.ToolUsed)
	assert.Equal(t, "TOOL: calculator | INPUT: 1+1", res.RawOutput)
}

func TestExecutor_DirectAnswerMentioningLineFormat(t *testing.T) {
	model := reasoning.NewScriptedModel(`{"tool":"none","answer":"Reply on one line as TOOL: name | INPUT: text."}`)
	res, err := NewExecutor(model, testRole).Invoke(context.Background(), workflow.ExecInput{
		Task:  workflow.Task{ID: "t1", Description: "describe the reply format"},
		Tools: newRegistry(t),
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "Reply on one line as TOOL: name | INPUT: text.", res.RawOutput)
	assert.Len(t, model.Calls(), 1)
}

func TestParseAction_LineFormatMustStartALine(t *testing.T) {
	reg := newRegistry(t)

	act, err := parseAction("Sure.\n  TOOL: echo | INPUT: hi there", reg)
	require.NoError(t, err)
	assert.Equal(t, action{Tool: "echo", Arguments: map[string]any{"text": "hi there"}}, act)

	_, err = parseAction("I would use TOOL: echo | INPUT: hi", reg)
	assert.ErrorIs(t, err, errNoJSON)
}

func TestExecutor_DirectAnswer(t *testing.T) {
	model := reasoning.NewScriptedModel(`{"tool":"none","answer":"Paris is the capital of France."}`)
	res, err := NewExecutor(model, testRole).Invoke(context.Background(), workflow.ExecInput{
		Task:  workflow.Task{ID: "t1", Description: "name the capital of France"},
		Tools: newRegistry(t),
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "Paris is the capital of France.", res.RawOutput)
	assert.Empty(t, res.ToolUsed)
}

func TestExecutor_ToolFailureIsAResult(t *testing.T) {
	model := reasoning.NewScriptedModel(`{"tool":"calculator","arguments":{"expression":"1/0"}}`)
	res, err := NewExecutor(model, testRole).Invoke(context.Background(), workflow.ExecInput{
		Task:        workflow.Task{ID: "t1", Description: "divide", ToolHint: "calculator"},
		Tools:       newRegistry(t),
		ToolTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, workflow.KindToolExecution, res.ErrorKind)
	assert.ErrorIs(t, res.Err, workflow.ErrToolExecution)
	assert.Contains(t, res.ErrorDetail, "division by zero")
}

func TestExecutor_UnknownToolIsReprompted(t *testing.T) {
	model := reasoning.NewScriptedModel(
		`{"tool":"web_search","arguments":{"q":"x"}}`,
		`{"tool":"none","answer":"fine"}`,
	)
	res, err := NewExecutor(model, testRole).Invoke(context.Background(), workflow.ExecInput{
		Task:  workflow.Task{ID: "t1", Description: "look it up"},
		Tools: newRegistry(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "fine", res.RawOutput)
	assert.Contains(t, model.Calls()[1].Prompt, `unknown tool "web_search"`)
}

func TestExecutor_IncludesDependencyResults(t *testing.T) {
	model := reasoning.NewScriptedModel(`{"tool":"none","answer":"ok"}`)
	_, err := NewExecutor(model, testRole).Invoke(context.Background(), workflow.ExecInput{
		Task: workflow.Task{ID: "t2", Description: "summarize", Dependencies: []string{"t1"}},
		Results: map[string]workflow.Result{
			"t1": {RawOutput: "42 rows", Succeeded: true},
			"t9": {RawOutput: "unrelated", Succeeded: true},
		},
		Tools: newRegistry(t),
	})
	require.NoError(t, err)
	prompt := model.Calls()[0].Prompt
	assert.Contains(t, prompt, "Result from t1: 42 rows")
	assert.NotContains(t, prompt, "unrelated")
}

func TestValidator_Normalize(t *testing.T) {
	v := NewValidator(nil, testRole, config.ValidatorConfig{})
	yes, no := true, false

	tests := []struct {
		name       string
		vd         verdict
		wantAction workflow.Action
		wantPassed bool
	}{
		{"clean accept", verdict{Passed: &yes, Score: 0.9, SuggestedAction: "accept"}, workflow.ActionAccept, true},
		{"accept below threshold", verdict{Passed: &yes, Score: 0.5, SuggestedAction: "accept"}, workflow.ActionRetrySameTask, false},
		{"accept while failing", verdict{Passed: &no, Score: 0.95, SuggestedAction: "accept"}, workflow.ActionRetrySameTask, false},
		{"passed but asks to replan", verdict{Passed: &yes, Score: 0.9, SuggestedAction: "retry_with_replan"}, workflow.ActionRetrySameTask, false},
		{"replan", verdict{Passed: &no, Score: 0.1, SuggestedAction: "RETRY_WITH_REPLAN"}, workflow.ActionRetryWithReplan, false},
		{"missing action passes", verdict{Passed: &yes, Score: 1}, workflow.ActionAccept, true},
		{"garbage action fails", verdict{Passed: &no, Score: 0.3, SuggestedAction: "panic"}, workflow.ActionRetrySameTask, false},
		{"score clamped", verdict{Passed: &yes, Score: 7, SuggestedAction: "accept"}, workflow.ActionAccept, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := v.normalize(tt.vd)
			assert.Equal(t, tt.wantAction, out.SuggestedAction)
			assert.Equal(t, tt.wantPassed, out.Passed)
			assert.LessOrEqual(t, out.Score, 1.0)
		})
	}
}

func TestValidator_DeterministicFastPath(t *testing.T) {
	model := reasoning.NewScriptedModel()
	v := NewValidator(model, testRole, config.ValidatorConfig{})

	out, err := v.Invoke(context.Background(), workflow.ValidateInput{
		Task:   workflow.Task{ID: "t1"},
		Result: workflow.Result{RawOutput: "133.5", ToolUsed: "calculator", Succeeded: true, Deterministic: true},
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.ActionAccept, out.SuggestedAction)
	assert.Equal(t, "t1", out.TaskID)
	assert.Empty(t, model.Calls())

	off := false
	model = reasoning.NewScriptedModel(`{"passed": true, "score": 0.9, "reason": "correct", "suggested_action": "accept"}`)
	v = NewValidator(model, testRole, config.ValidatorConfig{AcceptDeterministic: &off})
	out, err = v.Invoke(context.Background(), workflow.ValidateInput{
		Task:   workflow.Task{ID: "t1"},
		Result: workflow.Result{RawOutput: "133.5", Succeeded: true, Deterministic: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "correct", out.Reason)
	assert.Len(t, model.Calls(), 1)
}

func TestValidator_ToolLimitRetriesWithoutModel(t *testing.T) {
	model := reasoning.NewScriptedModel()
	out, err := NewValidator(model, testRole, config.ValidatorConfig{}).Invoke(context.Background(), workflow.ValidateInput{
		Task:   workflow.Task{ID: "t1"},
		Result: workflow.Result{ErrorDetail: "slow timed out after 1s", ErrorKind: workflow.KindToolLimit},
	})
	require.NoError(t, err)
	assert.False(t, out.Passed)
	assert.Equal(t, workflow.ActionRetrySameTask, out.SuggestedAction)
	assert.Empty(t, model.Calls())
}

func TestValidator_ModelVerdict(t *testing.T) {
	model := reasoning.NewScriptedModel(`Here you go: {"passed": false, "score": 0.2, "reason": "answers a different question", "suggested_action": "retry_with_replan"}`)
	out, err := NewValidator(model, testRole, config.ValidatorConfig{Threshold: 0.7}).Invoke(context.Background(), workflow.ValidateInput{
		Goal:   "g",
		Task:   workflow.Task{ID: "t1", Description: "d"},
		Result: workflow.Result{RawOutput: "something", Succeeded: true},
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.ActionRetryWithReplan, out.SuggestedAction)
	assert.Equal(t, "answers a different question", out.Reason)
	assert.InDelta(t, 0.2, out.Score, 1e-9)
	assert.Contains(t, model.Calls()[0].Prompt, "Result:\nsomething")
}

func TestValidator_MissingPassedIsReprompted(t *testing.T) {
	model := reasoning.NewScriptedModel(`{"score": 1}`, `{"passed": true, "score": 1, "suggested_action": "accept"}`)
	out, err := NewValidator(model, testRole, config.ValidatorConfig{}).Invoke(context.Background(), workflow.ValidateInput{
		Result: workflow.Result{RawOutput: "x", Succeeded: true},
	})
	require.NoError(t, err)
	assert.True(t, out.Passed)
	assert.Len(t, model.Calls(), 2)
}

func memoryInput() workflow.MemoryInput {
	s := workflow.NewRunState("run-1", "Calculate 15% of 890", time.Now())
	s.Tasks = []workflow.Task{
		{ID: "t1", Description: "Calculate 15% of 890", Status: workflow.TaskSucceeded},
		{ID: "t2", Description: "Explain", Status: workflow.TaskFailed},
	}
	s.Results["t1"] = workflow.Result{RawOutput: "133.5\n", Succeeded: true}
	s.Results["t2"] = workflow.Result{ErrorDetail: "boom"}
	return workflow.MemoryInput{State: s, Answer: "133.5"}
}

func TestMemoryWriter(t *testing.T) {
	model := reasoning.NewScriptedModel(`{"memories": ["15% of 890 is 133.5", "  ", "percentages use the calculator", "a", "b"]}`)
	records, err := NewMemoryWriter(model, testRole).Invoke(context.Background(), memoryInput())
	require.NoError(t, err)

	var contents []string
	for _, r := range records {
		assert.Equal(t, "run-1", r.SourceRunID)
		contents = append(contents, r.Content)
	}
	assert.Equal(t, []string{
		"User Goal: Calculate 15% of 890",
		"Task: Calculate 15% of 890\nResult: 133.5",
		"15% of 890 is 133.5",
		"percentages use the calculator",
		"a",
	}, contents)
	assert.Equal(t, "t1", records[1].TaskID)
}

func TestMemoryWriter_DistillationFailureKeepsRecords(t *testing.T) {
	model := reasoning.NewScriptedModel("no", "still no")
	records, err := NewMemoryWriter(model, testRole).Invoke(context.Background(), memoryInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrAgentOutputParse)
	assert.Len(t, records, 2)
}

func TestMemoryWriter_NoModel(t *testing.T) {
	records, err := NewMemoryWriter(nil, testRole).Invoke(context.Background(), memoryInput())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.True(t, strings.HasPrefix(records[0].Content, "User Goal:"))
}
