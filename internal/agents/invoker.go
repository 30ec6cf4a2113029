// Package agents implements the four workflow roles on top of a reasoning
// model: Planner, Executor, Validator and MemoryWriter.
//
// Every role sends one prompt, extracts a JSON object from the reply and
// decodes it. A reply that cannot be decoded gets exactly one corrective
// re-prompt; a second failure is workflow.ErrAgentOutputParse.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

const instrumentationName = "genagent.agents"

// errNoJSON is returned when a reply holds no JSON object at all.
var errNoJSON = errors.New("no JSON object in reply")

// Option configures a role.
type Option func(*invoker)

// WithLogger sets the role logger.
func WithLogger(l *logging.Logger) Option {
	return func(i *invoker) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithTracer sets the tracer used for role spans.
func WithTracer(t trace.Tracer) Option {
	return func(i *invoker) {
		if t != nil {
			i.tracer = t
		}
	}
}

// invoker is the model call shared by every role.
type invoker struct {
	role   string
	model  reasoning.Model
	opts   reasoning.Options
	logger *logging.Logger
	tracer trace.Tracer
}

func newInvoker(role string, model reasoning.Model, cfg config.RoleConfig, opts []Option) invoker {
	inv := invoker{
		role:  role,
		model: model,
		opts: reasoning.Options{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			System:      cfg.SystemPrompt,
		},
		logger: logging.NewNop(),
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(&inv)
	}
	inv.logger = inv.logger.Named(role)
	return inv
}

// ask sends prompt and decodes the reply with parse. Model errors are
// returned as they are; parse errors earn one corrective re-prompt. The
// model gets a single unavailability retry for the whole invocation.
func ask[T any](ctx context.Context, inv invoker, prompt string, parse func(string) (T, error)) (T, error) {
	var zero T
	if inv.model == nil {
		return zero, fmt.Errorf("%s: %w: no model configured", inv.role, workflow.ErrModelUnavailable)
	}

	ctx, span := inv.tracer.Start(ctx, "agents."+inv.role, trace.WithAttributes(
		attribute.String("model", inv.model.Name()),
		attribute.Int("prompt.length", len(prompt)),
	))
	defer span.End()
	ctx = reasoning.WithRetryBudget(ctx, 1)

	reply, err := inv.model.Generate(ctx, prompt, inv.opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, fmt.Errorf("%s: %w", inv.role, err)
	}
	out, perr := parse(reply)
	if perr == nil {
		return out, nil
	}

	inv.logger.Debug(ctx, "reply rejected, re-prompting", zap.Error(perr), zap.Int("reply.length", len(reply)))
	span.AddEvent("corrective_reprompt")
	reply, err = inv.model.Generate(ctx, correctivePrompt(prompt, perr), inv.opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, fmt.Errorf("%s: %w", inv.role, err)
	}
	out, perr = parse(reply)
	if perr != nil {
		err := fmt.Errorf("%s: %w: %v", inv.role, workflow.ErrAgentOutputParse, perr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	return out, nil
}

func correctivePrompt(prompt string, cause error) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nYour previous reply could not be used: ")
	b.WriteString(cause.Error())
	b.WriteString(".\nReply again with ONLY the JSON object described above. No prose, no code fences.")
	return b.String()
}

// extractJSON strips markdown code fences and returns the text from the
// first '{' to the last '}'.
func extractJSON(reply string) (string, error) {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}

// decodeJSON extracts the JSON object in reply and unmarshals it into v.
func decodeJSON(reply string, v any) error {
	raw, err := extractJSON(reply)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
