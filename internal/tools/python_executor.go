package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
)

// PythonExecutorName is the registered name of the code execution tool.
const PythonExecutorName = "python_executor"

const (
	defaultMaxSteps = 10_000_000
	noOutput        = "Code executed successfully (no output)"
)

var codeForbidden = []string{
	"import os", "import sys", "__import__", "eval", "compile",
	"open", "file", "input", "raw_input",
}

// Python constructs Starlark leaves off by default: set(), while loops,
// recursion, top-level if/for and reassigning globals.
func init() {
	resolve.AllowSet = true
	resolve.AllowRecursion = true
	resolve.AllowGlobalReassign = true
}

// PythonExecutor returns a tool that runs Python-dialect snippets in a
// Starlark interpreter. Snippets have no file, network or process access;
// only the math, json and time modules are predeclared. Output is whatever
// the snippet prints, or the value of a global named result.
func PythonExecutor(cfg config.PythonExecutorConfig) Tool {
	maxSteps := cfg.MaxSteps
	if maxSteps == 0 {
		maxSteps = defaultMaxSteps
	}

	return Tool{
		Descriptor: Descriptor{
			Name:        PythonExecutorName,
			Description: "Execute a short Python snippet (Starlark dialect) in a sandbox. Modules: math, json, time. Use print() or assign the answer to a variable named result.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code": map[string]any{
						"type":        "string",
						"description": "Python source, e.g. \"print(math.sqrt(16))\"",
						"minLength":   1,
					},
				},
				"required":             []string{"code"},
				"additionalProperties": false,
			},
			Keywords: []string{"python", "code", "script", "program", "snippet", "loop", "statistics"},
		},
		Exec: func(ctx context.Context, args map[string]any) (string, error) {
			code, _ := args["code"].(string)
			return runSnippet(ctx, code, maxSteps)
		},
	}
}

func runSnippet(ctx context.Context, code string, maxSteps uint64) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", errors.New("code is required")
	}
	lower := strings.ToLower(code)
	for _, kw := range codeForbidden {
		if strings.Contains(lower, kw) {
			return "", fmt.Errorf("dangerous operation not allowed: %s", kw)
		}
	}

	var out strings.Builder
	thread := &starlark.Thread{
		Name: PythonExecutorName,
		Print: func(_ *starlark.Thread, msg string) {
			out.WriteString(msg)
			out.WriteByte('\n')
		},
	}
	thread.SetMaxExecutionSteps(maxSteps)
	stop := context.AfterFunc(ctx, func() { thread.Cancel(ctx.Err().Error()) })
	defer stop()

	predeclared := starlark.StringDict{
		"math": starlarkmath.Module,
		"json": starlarkjson.Module,
		"time": starlarktime.Module,
	}
	globals, err := starlark.ExecFile(thread, "snippet.py", code, predeclared)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return "", fmt.Errorf("execution error: %s", evalErr.Msg)
		}
		return "", fmt.Errorf("execution error: %w", err)
	}

	if out.Len() > 0 {
		return strings.TrimRight(out.String(), "\n"), nil
	}
	if v, ok := globals["result"]; ok {
		if s, ok := starlark.AsString(v); ok {
			return s, nil
		}
		return v.String(), nil
	}
	return noOutput, nil
}
