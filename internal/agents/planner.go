package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// Planner decomposes a goal into an ordered task list.
type Planner struct {
	inv invoker
}

// NewPlanner creates a Planner.
func NewPlanner(model reasoning.Model, cfg config.RoleConfig, opts ...Option) *Planner {
	return &Planner{inv: newInvoker("planner", model, cfg, opts)}
}

type planReply struct {
	Tasks *[]planTask `json:"tasks"`
}

type planTask struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	ToolHint     string   `json:"tool_hint"`
	Dependencies []string `json:"dependencies"`
}

// Invoke implements workflow.Role.
func (p *Planner) Invoke(ctx context.Context, in workflow.PlanInput) ([]workflow.Task, error) {
	tasks, err := ask(ctx, p.inv, planPrompt(in), parsePlan)
	if err != nil {
		return nil, err
	}
	p.inv.logger.Info(ctx, "plan created", zap.Int("tasks", len(tasks)), zap.Bool("replan", in.Replan))
	return tasks, nil
}

// parsePlan decodes a plan reply. Structural checks beyond shape (ids,
// dependencies, cycles) belong to the engine.
func parsePlan(reply string) ([]workflow.Task, error) {
	var r planReply
	if err := decodeJSON(reply, &r); err != nil {
		return nil, err
	}
	if r.Tasks == nil {
		return nil, errors.New(`missing "tasks" array`)
	}
	if len(*r.Tasks) == 0 {
		return nil, errors.New(`"tasks" is empty`)
	}

	out := make([]workflow.Task, 0, len(*r.Tasks))
	for i, t := range *r.Tasks {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			id = fmt.Sprintf("task_%d", i+1)
		}
		hint := strings.ToLower(strings.TrimSpace(t.ToolHint))
		if hint == "none" {
			hint = ""
		}
		deps := make([]string, 0, len(t.Dependencies))
		for _, d := range t.Dependencies {
			if d = strings.TrimSpace(d); d != "" {
				deps = append(deps, d)
			}
		}
		out = append(out, workflow.Task{
			ID:           id,
			Description:  strings.TrimSpace(t.Description),
			ToolHint:     hint,
			Dependencies: deps,
			Status:       workflow.TaskPending,
		})
	}
	return out, nil
}

func planPrompt(in workflow.PlanInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User Goal: %s\n\n", in.Goal)

	if len(in.MemoryContext) > 0 {
		b.WriteString("Relevant past context:\n")
		for _, m := range in.MemoryContext {
			b.WriteString(m)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Available Tools:\n")
	if len(in.Tools) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, d := range in.Tools {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}
	b.WriteString("\n")

	if in.Replan {
		writeReplanContext(&b, in)
	}

	b.WriteString("Create a step-by-step plan to achieve this goal.\n")
	b.WriteString("Output ONLY valid JSON with this exact structure:\n")
	b.WriteString(`{
  "tasks": [
    {"id": "task_1", "description": "Clear description of what to do", "tool_hint": "calculator", "dependencies": []},
    {"id": "task_2", "description": "Next task description", "tool_hint": "", "dependencies": ["task_1"]}
  ]
}`)
	b.WriteString("\n\nRules:\n")
	fmt.Fprintf(&b, "1. Use between 1 and %d tasks; simple goals need one task.\n", workflow.MaxPlanTasks)
	b.WriteString("2. Each task uses at most ONE tool. tool_hint is a tool name from the list above or empty.\n")
	b.WriteString("3. dependencies lists ids of tasks that must finish first. No cycles.\n")
	b.WriteString("4. Ids are unique. Keep tasks atomic and executable.\n")
	if in.Replan {
		b.WriteString("5. Keep the ids of tasks you want to retry. Do not repeat tasks that already succeeded.\n")
	}
	return b.String()
}

func writeReplanContext(b *strings.Builder, in workflow.PlanInput) {
	b.WriteString("This is a re-plan. The previous plan did not work out.\n")
	if in.Feedback != "" {
		fmt.Fprintf(b, "Reason: %s\n", in.Feedback)
	}

	if len(in.Previous) > 0 {
		b.WriteString("\nPrevious tasks:\n")
		for _, t := range in.Previous {
			fmt.Fprintf(b, "- %s [%s]: %s", t.ID, t.Status, t.Description)
			if r, ok := in.Results[t.ID]; ok {
				if r.Succeeded {
					fmt.Fprintf(b, "\n  Result: %s", truncate(r.RawOutput, 300))
				} else {
					fmt.Fprintf(b, "\n  Error: %s", truncate(r.ErrorDetail, 300))
				}
			}
			b.WriteString("\n")
		}
	}

	if len(in.ValidationHistory) > 0 {
		b.WriteString("\nValidation feedback:\n")
		history := in.ValidationHistory
		if len(history) > 5 {
			history = history[len(history)-5:]
		}
		for _, o := range history {
			fmt.Fprintf(b, "- %s: %s (score %.2f): %s\n", o.TaskID, o.SuggestedAction, o.Score, o.Reason)
		}
	}
	b.WriteString("\n")
}
