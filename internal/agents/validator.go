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

// DefaultThreshold is the minimum score for an accept.
const DefaultThreshold = 0.8

// Validator judges one Result against its task and the goal.
type Validator struct {
	inv                 invoker
	threshold           float64
	acceptDeterministic bool
}

// NewValidator creates a Validator.
func NewValidator(model reasoning.Model, cfg config.RoleConfig, vcfg config.ValidatorConfig, opts ...Option) *Validator {
	threshold := vcfg.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Validator{
		inv:                 newInvoker("validator", model, cfg, opts),
		threshold:           threshold,
		acceptDeterministic: vcfg.AcceptsDeterministic(),
	}
}

type verdict struct {
	Passed          *bool   `json:"passed"`
	Score           float64 `json:"score"`
	Reason          string  `json:"reason"`
	SuggestedAction string  `json:"suggested_action"`
}

// Invoke implements workflow.Role.
func (v *Validator) Invoke(ctx context.Context, in workflow.ValidateInput) (workflow.ValidationOutcome, error) {
	res := in.Result
	switch {
	case !res.Succeeded && (res.ErrorKind == workflow.KindToolLimit || errors.Is(res.Err, workflow.ErrToolLimit)):
		return workflow.ValidationOutcome{
			TaskID:          in.Task.ID,
			Reason:          "tool limit hit: " + res.ErrorDetail,
			SuggestedAction: workflow.ActionRetrySameTask,
		}, nil
	case res.Succeeded && res.Deterministic && v.acceptDeterministic:
		v.inv.logger.Debug(ctx, "accepting deterministic tool output", zap.String("tool", res.ToolUsed))
		return workflow.ValidationOutcome{
			TaskID:          in.Task.ID,
			Passed:          true,
			Score:           1,
			Reason:          fmt.Sprintf("deterministic output from %s accepted", res.ToolUsed),
			SuggestedAction: workflow.ActionAccept,
		}, nil
	}

	vd, err := ask(ctx, v.inv, validationPrompt(in), parseVerdict)
	if err != nil {
		return workflow.ValidationOutcome{}, err
	}
	out := v.normalize(vd)
	out.TaskID = in.Task.ID
	v.inv.logger.Info(ctx, "result judged",
		zap.Bool("passed", out.Passed),
		zap.Float64("score", out.Score),
		zap.String("action", string(out.SuggestedAction)))
	return out, nil
}

func parseVerdict(reply string) (verdict, error) {
	var vd verdict
	if err := decodeJSON(reply, &vd); err != nil {
		return verdict{}, err
	}
	if vd.Passed == nil {
		return verdict{}, errors.New(`missing "passed"`)
	}
	return vd, nil
}

// normalize turns a model verdict into an outcome. accept requires passed
// and a score at or above the threshold; any other combination that claims
// success is treated as inconsistent and retried.
func (v *Validator) normalize(vd verdict) workflow.ValidationOutcome {
	score := vd.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	passed := *vd.Passed && score >= v.threshold

	act := workflow.Action(strings.ToLower(strings.TrimSpace(vd.SuggestedAction)))
	switch {
	case !act.Valid():
		act = workflow.ActionRetrySameTask
		if passed {
			act = workflow.ActionAccept
		}
	case act == workflow.ActionAccept && !passed:
		act = workflow.ActionRetrySameTask
	case act != workflow.ActionAccept && passed:
		act = workflow.ActionRetrySameTask
		passed = false
	}

	return workflow.ValidationOutcome{
		Passed:          passed,
		Score:           score,
		Reason:          strings.TrimSpace(vd.Reason),
		SuggestedAction: act,
	}
}

func validationPrompt(in workflow.ValidateInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original Goal: %s\n\n", in.Goal)
	fmt.Fprintf(&b, "Task %s: %s\n", in.Task.ID, in.Task.Description)
	if in.Result.ToolUsed != "" {
		fmt.Fprintf(&b, "Tool used: %s\n", in.Result.ToolUsed)
	}
	if in.Result.Succeeded {
		fmt.Fprintf(&b, "Result:\n%s\n\n", truncate(in.Result.RawOutput, 2000))
	} else {
		fmt.Fprintf(&b, "The task FAILED with error:\n%s\n\n", truncate(in.Result.ErrorDetail, 1000))
	}

	b.WriteString("Evaluate whether this result completes the task correctly and helps answer the goal.\n")
	b.WriteString("Consider:\n")
	b.WriteString("1. Does the result actually do what the task asked?\n")
	b.WriteString("2. Is it correct and consistent with the goal?\n")
	b.WriteString("3. If it failed, would retrying the same task help, or does the plan need to change?\n\n")
	b.WriteString("Output ONLY valid JSON:\n")
	b.WriteString(`{"passed": true, "score": 0.0, "reason": "short explanation", "suggested_action": "accept"}`)
	b.WriteString("\n\nscore is between 0.0 and 1.0. suggested_action is one of accept, retry_same_task, retry_with_replan.\n")
	return b.String()
}
