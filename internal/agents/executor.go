package agents

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// noTool is the tool name an Executor reply uses to answer directly.
const noTool = "none"

// Executor carries out one task, through a tool or by answering directly.
type Executor struct {
	inv invoker
}

// NewExecutor creates an Executor.
func NewExecutor(model reasoning.Model, cfg config.RoleConfig, opts ...Option) *Executor {
	return &Executor{inv: newInvoker("executor", model, cfg, opts)}
}

// action is a decoded Executor reply.
type action struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Answer    string         `json:"answer"`
}

// Invoke implements workflow.Role. Tool failures are reported in the Result;
// the error return is reserved for model and parse failures.
func (e *Executor) Invoke(ctx context.Context, in workflow.ExecInput) (workflow.Result, error) {
	toolName := in.Task.ToolHint
	if toolName == "" {
		if name, ok := in.Tools.Infer(in.Task.Description); ok {
			toolName = name
			e.inv.logger.Debug(ctx, "inferred tool", zap.String("tool", name))
		}
	}

	var candidates []tools.Descriptor
	if d, ok := in.Tools.Get(toolName); ok {
		candidates = []tools.Descriptor{d}
	} else {
		candidates = in.Tools.List()
	}

	act, err := ask(ctx, e.inv, execPrompt(in, candidates, toolName), func(reply string) (action, error) {
		return parseAction(reply, in.Tools)
	})
	if err != nil {
		return workflow.Result{}, err
	}

	if act.Tool == "" || act.Tool == noTool {
		answer := strings.TrimSpace(act.Answer)
		if answer == "" {
			return workflow.Result{Succeeded: false, ErrorDetail: "executor returned an empty answer"}, nil
		}
		return workflow.Result{RawOutput: answer, Succeeded: true}, nil
	}

	res := in.Tools.Call(ctx, act.Tool, act.Arguments, in.ToolTimeout)
	out := workflow.Result{
		RawOutput:   res.Output,
		ToolUsed:    act.Tool,
		Succeeded:   res.Success,
		ErrorDetail: res.Error,
		Duration:    res.Duration,
		Err:         res.Err,
	}
	if res.Success {
		if d, ok := in.Tools.Get(act.Tool); ok {
			out.Deterministic = d.Deterministic
		}
	} else {
		out.ErrorKind = workflow.ErrorKind(res.Err)
	}
	e.inv.logger.Info(ctx, "task executed",
		zap.String("tool", act.Tool),
		zap.Bool("success", res.Success),
		zap.String("call_id", res.CallID),
		zap.Duration("duration", res.Duration))
	return out, nil
}

// legacyAction matches the line format "TOOL: name | INPUT: text" when it
// starts a line.
var legacyAction = regexp.MustCompile(`(?m)^\s*TOOL:\s*([^|\n]*?)\s*(?:\|\s*)?INPUT:\s*(.*)$`)

// parseAction accepts the JSON reply format and, when the reply holds no
// usable JSON object, the line format.
func parseAction(reply string, registry workflow.ToolRegistry) (action, error) {
	var act action
	if err := decodeJSON(reply, &act); err != nil {
		if legacy, ok, lerr := parseLegacyAction(reply, registry); ok {
			return legacy, lerr
		}
		return action{}, err
	}
	act.Tool = strings.ToLower(strings.TrimSpace(act.Tool))
	switch {
	case act.Tool == "" || act.Tool == noTool:
		if strings.TrimSpace(act.Answer) == "" {
			return action{}, errors.New(`"answer" is required when no tool is used`)
		}
	case !registry.Has(act.Tool):
		return action{}, fmt.Errorf("unknown tool %q", act.Tool)
	}
	return act, nil
}

func parseLegacyAction(reply string, registry workflow.ToolRegistry) (action, bool, error) {
	m := legacyAction.FindStringSubmatch(reply)
	if m == nil {
		return action{}, false, nil
	}
	name := strings.ToLower(strings.TrimSpace(m[1]))
	input := strings.TrimSpace(m[2])

	d, ok := registry.Get(name)
	if !ok {
		return action{}, true, fmt.Errorf("unknown tool %q", name)
	}
	params := d.RequiredParams()
	if len(params) == 0 {
		return action{Tool: name, Arguments: map[string]any{}}, true, nil
	}
	return action{Tool: name, Arguments: map[string]any{params[0]: input}}, true, nil
}

func execPrompt(in workflow.ExecInput, candidates []tools.Descriptor, suggested string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Overall goal: %s\n\n", in.Goal)
	fmt.Fprintf(&b, "Task: %s\n\n", in.Task.Description)

	b.WriteString("Previous Results:\n")
	wrote := false
	for _, dep := range in.Task.Dependencies {
		if r, ok := in.Results[dep]; ok && r.Succeeded {
			fmt.Fprintf(&b, "Result from %s: %s\n", dep, truncate(r.RawOutput, 1000))
			wrote = true
		}
	}
	if !wrote {
		b.WriteString("No previous results\n")
	}
	if in.Attempt > 1 {
		if r, ok := in.Results[in.Task.ID]; ok && !r.Succeeded {
			fmt.Fprintf(&b, "\nAttempt %d. The last attempt failed: %s\n", in.Attempt, truncate(r.ErrorDetail, 300))
		}
	}

	b.WriteString("\nAvailable Tools:\n")
	for _, d := range candidates {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
		if params := d.RequiredParams(); len(params) > 0 {
			fmt.Fprintf(&b, "  required arguments: %s\n", strings.Join(params, ", "))
		}
	}
	if suggested != "" {
		fmt.Fprintf(&b, "\nSuggested tool: %s\n", suggested)
	}

	b.WriteString("\nDecide whether a tool is needed. Output ONLY valid JSON, one of:\n")
	b.WriteString(`{"tool": "<tool name>", "arguments": {"<argument>": "<value>"}}`)
	b.WriteString("\n")
	b.WriteString(`{"tool": "none", "answer": "<your direct answer>"}`)
	b.WriteString("\n\nExample: ")
	b.WriteString(`{"tool": "calculator", "arguments": {"expression": "5 + 3 * 2"}}`)
	b.WriteString("\n")
	return b.String()
}
