package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
)

func TestPythonExecutor(t *testing.T) {
	tool := PythonExecutor(config.PythonExecutorConfig{})
	assert.False(t, tool.Deterministic)
	assert.Equal(t, []string{"code"}, tool.RequiredParams())

	tests := []struct {
		name string
		code string
		want string
	}{
		{"print", "print(math.sqrt(16))", "4.0"},
		{"loop", "total = 0\nfor x in [1, 2, 3, 4]:\n    total += x\nprint(\"mean\", total / 4)", "mean 2.5"},
		{"multiple prints", "print(1)\nprint(2)", "1\n2"},
		{"json", `print(json.encode({"a": 1}))`, `{"a":1}`},
		{"recursion", "def fact(n):\n    return 1 if n <= 1 else n * fact(n - 1)\nresult = fact(5)", "120"},
		{"while", "n = 0\nwhile n < 3:\n    n += 1\nresult = n", "3"},
		{"string result", `result = "done"`, "done"},
		{"no output", "x = 1", noOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tool.Exec(context.Background(), map[string]any{"code": tt.code})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestPythonExecutor_Errors(t *testing.T) {
	tool := PythonExecutor(config.PythonExecutorConfig{})

	tests := []struct {
		name    string
		code    string
		wantErr string
	}{
		{"open", `data = open("/etc/passwd")`, "dangerous operation not allowed: open"},
		{"import os", "import os", "dangerous operation not allowed: import os"},
		{"dunder import", `m = __import__("os")`, "dangerous operation not allowed: __import__"},
		{"eval", `eval("1")`, "dangerous operation not allowed: eval"},
		{"case insensitive", `EVAL("1")`, "dangerous operation not allowed: eval"},
		{"runtime", "x = 1 // 0", "division by zero"},
		{"undefined name", "print(os.getcwd())", "execution error"},
		{"syntax", "def (:", "execution error"},
		{"empty", "  ", "code is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Exec(context.Background(), map[string]any{"code": tt.code})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPythonExecutor_StepLimit(t *testing.T) {
	tool := PythonExecutor(config.PythonExecutorConfig{MaxSteps: 1000})

	_, err := tool.Exec(context.Background(), map[string]any{"code": "while True:\n    pass"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many steps")
}

func TestPythonExecutor_ThroughRegistry(t *testing.T) {
	r := NewRegistry(WithMaxOutputBytes(64))
	require.NoError(t, r.Register(PythonExecutor(config.PythonExecutorConfig{MaxSteps: 1 << 62})))

	t.Run("success", func(t *testing.T) {
		res := r.Call(context.Background(), PythonExecutorName, map[string]any{"code": "print(6 * 7)"}, time.Second)
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "42", res.Output)
	})

	t.Run("timeout is a tool limit", func(t *testing.T) {
		start := time.Now()
		res := r.Call(context.Background(), PythonExecutorName, map[string]any{"code": "while True:\n    pass"}, 50*time.Millisecond)
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, ErrToolLimit)
		assert.Contains(t, res.Error, "timed out")
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("oversized output is a tool limit", func(t *testing.T) {
		res := r.Call(context.Background(), PythonExecutorName, map[string]any{"code": `print("x" * 100)`}, time.Second)
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, ErrToolLimit)
	})

	t.Run("blocked keyword is an execution error", func(t *testing.T) {
		res := r.Call(context.Background(), PythonExecutorName, map[string]any{"code": `open("x")`}, time.Second)
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, ErrToolExecution)
		assert.True(t, strings.Contains(res.Error, "dangerous operation"), res.Error)
	})
}
