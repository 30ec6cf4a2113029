package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// maxInsights caps the model-distilled records per run.
const maxInsights = 3

// MemoryWriter decides what a finished run leaves behind in long-term
// memory.
type MemoryWriter struct {
	inv invoker
}

// NewMemoryWriter creates a MemoryWriter. A nil model writes only the
// deterministic records.
func NewMemoryWriter(model reasoning.Model, cfg config.RoleConfig, opts ...Option) *MemoryWriter {
	return &MemoryWriter{inv: newInvoker("memory", model, cfg, opts)}
}

type insightReply struct {
	Memories *[]string `json:"memories"`
}

// Invoke implements workflow.Role. When distillation fails the deterministic
// records are still returned alongside the error.
func (w *MemoryWriter) Invoke(ctx context.Context, in workflow.MemoryInput) ([]memory.Record, error) {
	s := in.State
	records := []memory.Record{{
		Content:     "User Goal: " + s.Goal,
		SourceRunID: s.RunID,
		Kind:        memory.KindGoal,
	}}
	successes := 0
	for _, t := range s.Tasks {
		r, ok := s.Results[t.ID]
		if t.Status != workflow.TaskSucceeded || !ok {
			continue
		}
		successes++
		records = append(records, memory.Record{
			Content:     fmt.Sprintf("Task: %s\nResult: %s", t.Description, strings.TrimSpace(r.RawOutput)),
			SourceRunID: s.RunID,
			Kind:        memory.KindTaskResult,
			TaskID:      t.ID,
		})
	}

	if w.inv.model == nil || successes == 0 {
		return records, nil
	}

	insights, err := ask(ctx, w.inv, insightPrompt(in), parseInsights)
	if err != nil {
		w.inv.logger.Warn(ctx, "insight distillation failed", zap.Error(err))
		return records, err
	}
	for _, text := range insights {
		records = append(records, memory.Record{
			Content:     text,
			SourceRunID: s.RunID,
			Kind:        memory.KindInsight,
		})
	}
	return records, nil
}

func parseInsights(reply string) ([]string, error) {
	var r insightReply
	if err := decodeJSON(reply, &r); err != nil {
		return nil, err
	}
	if r.Memories == nil {
		return nil, errors.New(`missing "memories" array`)
	}
	var out []string
	for _, m := range *r.Memories {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
		if len(out) == maxInsights {
			break
		}
	}
	return out, nil
}

func insightPrompt(in workflow.MemoryInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", in.State.Goal)
	b.WriteString("Final answer:\n")
	b.WriteString(truncate(in.Answer, 2000))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Write at most %d short, self-contained facts or lessons from this run that would help with similar goals later. ", maxInsights)
	b.WriteString("Skip anything trivial or already obvious from the goal.\n")
	b.WriteString("Output ONLY valid JSON:\n")
	b.WriteString(`{"memories": ["first fact", "second fact"]}`)
	b.WriteString("\n")
	return b.String()
}
