// Package tools implements the tool registry used by the executor role.
//
// Every tool call goes through Registry.Call, which validates arguments
// against the tool's JSON schema, runs the tool under a timeout and caps the
// size of its output. Calls never share mutable state: arguments are copied
// before they reach the tool.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
)

var (
	// ErrToolLimit marks a call that timed out or produced too much output.
	ErrToolLimit = errors.New("tool limit exceeded")

	// ErrToolExecution marks an unknown tool, invalid arguments or a
	// failure reported by the tool itself.
	ErrToolExecution = errors.New("tool execution failed")
)

// DefaultMaxOutputBytes caps tool output when no limit is configured.
const DefaultMaxOutputBytes = 64 * 1024

var toolNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Descriptor describes a registered tool to planners and executors.
type Descriptor struct {
	Name          string         `json:"name" yaml:"name"`
	Description   string         `json:"description" yaml:"description"`
	Parameters    map[string]any `json:"parameters" yaml:"parameters"`
	Keywords      []string       `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Deterministic bool           `json:"deterministic" yaml:"deterministic"`
}

// RequiredParams returns the schema's required parameter names in order.
func (d Descriptor) RequiredParams() []string {
	raw, ok := d.Parameters["required"]
	if !ok {
		return nil
	}
	var out []string
	switch v := raw.(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// Func executes a tool with validated arguments and returns its text output.
type Func func(ctx context.Context, args map[string]any) (string, error)

// Tool is a descriptor plus its implementation.
type Tool struct {
	Descriptor
	Exec Func
}

// Result is the normalized outcome of one call.
type Result struct {
	CallID   string        `json:"call_id"`
	Tool     string        `json:"tool"`
	Success  bool          `json:"success"`
	Output   string        `json:"output"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	// Err wraps ErrToolLimit or ErrToolExecution when Success is false.
	Err error `json:"-"`
}

type registered struct {
	Tool
	schema *jsonschema.Schema
}

// Registry holds the tools available to a process. It is safe for
// concurrent use by multiple runs.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	tools     map[string]*registered
	maxOutput int
	logger    *logging.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxOutputBytes sets the output size limit applied to every call.
func WithMaxOutputBytes(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxOutput = n
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:     make(map[string]*registered),
		maxOutput: DefaultMaxOutputBytes,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. Names must be unique lowercase identifiers.
func (r *Registry) Register(t Tool) error {
	if !toolNamePattern.MatchString(t.Name) {
		return fmt.Errorf("invalid tool name %q", t.Name)
	}
	if t.Exec == nil {
		return fmt.Errorf("tool %s missing executor", t.Name)
	}
	schema, err := compileSchema(t.Name, t.Parameters)
	if err != nil {
		return fmt.Errorf("tool %s schema: %w", t.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = &registered{Tool: t, schema: schema}
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister registers t and panics on error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// List returns descriptors in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Descriptor)
	}
	return out
}

// Get returns the descriptor of name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return Descriptor{}, false
	}
	return t.Descriptor, true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Call runs the named tool with args under timeout. It never returns a Go
// error: every failure is reported in the Result.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any, timeout time.Duration) Result {
	res := Result{CallID: ulid.Make().String(), Tool: name}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		observeCall(name, res)
	}()

	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		res.fail(fmt.Errorf("%w: unknown tool %q", ErrToolExecution, name))
		return res
	}

	callArgs, err := copyArgs(args)
	if err != nil {
		res.fail(fmt.Errorf("%w: invalid arguments: %v", ErrToolExecution, err))
		return res
	}
	if err := t.schema.Validate(callArgs); err != nil {
		res.fail(fmt.Errorf("%w: invalid arguments for %s: %v", ErrToolExecution, name, err))
		return res
	}

	callCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("tool panicked: %v", p)}
			}
		}()
		out, err := t.Exec(callCtx, callArgs)
		done <- outcome{out: out, err: err}
	}()

	r.logger.Debug(ctx, "tool call started",
		zap.String("tool", name),
		zap.String("call_id", res.CallID),
		zap.Duration("timeout", timeout))

	select {
	case o := <-done:
		switch {
		case o.err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			res.fail(fmt.Errorf("%w: %s timed out after %s", ErrToolLimit, name, timeout))
		case o.err != nil:
			res.fail(fmt.Errorf("%w: %s: %v", ErrToolExecution, name, o.err))
		case len(o.out) > r.maxOutput:
			res.fail(fmt.Errorf("%w: %s output is %d bytes (max %d)", ErrToolLimit, name, len(o.out), r.maxOutput))
		default:
			res.Success = true
			res.Output = o.out
		}
	case <-callCtx.Done():
		if ctx.Err() != nil {
			res.fail(fmt.Errorf("%w: %s cancelled: %v", ErrToolExecution, name, ctx.Err()))
		} else {
			res.fail(fmt.Errorf("%w: %s timed out after %s", ErrToolLimit, name, timeout))
		}
	}

	if !res.Success {
		r.logger.Warn(ctx, "tool call failed",
			zap.String("tool", name),
			zap.String("call_id", res.CallID),
			zap.String("error", res.Error))
	}
	return res
}

func (res *Result) fail(err error) {
	res.Success = false
	res.Err = err
	res.Error = err.Error()
}

// copyArgs returns a JSON-normalized deep copy so that schema validation sees
// JSON types and tools cannot mutate the caller's map.
func copyArgs(args map[string]any) (map[string]any, error) {
	if len(args) == 0 {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	url := name + ".schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, strings.NewReader(string(b))); err != nil {
		return nil, err
	}
	return c.Compile(url)
}
