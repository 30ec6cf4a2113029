package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/secrets"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

const (
	defaultTopK = 3
	maxTopK     = 20
)

// Runner executes goals. *workflow.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, goal string) (*workflow.Report, error)
}

// ToolLister lists registered tools. *tools.Registry satisfies it.
type ToolLister interface {
	List() []tools.Descriptor
}

// MemorySearcher searches long-term memory. *memory.Service satisfies it.
type MemorySearcher interface {
	Search(ctx context.Context, query string, topK int) ([]memory.Hit, error)
}

// Server is an MCP server over the workflow engine.
type Server struct {
	mcp      *mcp.Server
	runner   Runner
	tools    ToolLister
	memory   MemorySearcher
	scrubber secrets.Scrubber
	metrics  *Metrics
	logger   *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "genagent")
	Name string

	// Version is the server version (default: "dev")
	Version string

	Logger *logging.Logger

	// Scrubber redacts secrets from returned text. Default: no scrubbing.
	Scrubber secrets.Scrubber
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:     "genagent",
		Version:  "dev",
		Logger:   logging.NewNop(),
		Scrubber: secrets.Noop{},
	}
}

// NewServer creates an MCP server. memory is optional; without it
// memory_search is not registered.
func NewServer(cfg *Config, runner Runner, toolList ToolLister, mem MemorySearcher) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if toolList == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	defaults := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}
	if cfg.Scrubber == nil {
		cfg.Scrubber = defaults.Scrubber
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		runner:   runner,
		tools:    toolList,
		memory:   mem,
		scrubber: cfg.Scrubber,
		logger:   cfg.Logger.Named("mcp"),
	}
	s.metrics = NewMetrics(nil, s.logger)
	s.registerTools()
	return s, nil
}

// Run serves on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "run_goal",
		Description: "Run a natural-language goal through the planner, executor, validator and memory agents and return the final answer.",
	}, s.runGoal)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_tools",
		Description: "List the tools the executor can call, with their parameter schemas.",
	}, s.listTools)

	if s.memory != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "memory_search",
			Description: "Search long-term memory of previous runs by semantic similarity.",
		}, s.memorySearch)
	}
}

// instrument records metrics and logs around one tool call.
func (s *Server) instrument(ctx context.Context, tool string) func(err error) {
	end := s.metrics.begin(ctx, tool)
	return func(err error) {
		end(err)
		if err != nil {
			s.logger.Warn(ctx, "mcp tool failed", zap.String("tool", tool), zap.Error(err))
		}
	}
}

type runGoalInput struct {
	Goal string `json:"goal" jsonschema:"The goal to accomplish"`
}

type runGoalOutput struct {
	RunID         string `json:"run_id"`
	Status        string `json:"status"`
	FinalAnswer   string `json:"final_answer"`
	FailureReason string `json:"failure_reason,omitempty"`
	Iterations    int    `json:"iterations"`
	Passed        int    `json:"validations_passed"`
	Total         int    `json:"validations_total"`
}

func (s *Server) runGoal(ctx context.Context, _ *mcp.CallToolRequest, args runGoalInput) (res *mcp.CallToolResult, out runGoalOutput, err error) {
	done := s.instrument(ctx, "run_goal")
	defer func() { done(err) }()

	report, err := s.runner.Run(ctx, args.Goal)
	if report == nil {
		if err == nil {
			err = errors.New("run produced no report")
		}
		return nil, runGoalOutput{}, err
	}

	passed, total := report.ValidationCounts()
	out = runGoalOutput{
		RunID:         report.RunID,
		Status:        string(report.Status),
		FinalAnswer:   s.scrubber.Scrub(report.FinalAnswer).Scrubbed,
		FailureReason: report.FailureReason,
		Iterations:    report.Iterations,
		Passed:        passed,
		Total:         total,
	}
	// A FAILED run is a result the client should see, not a protocol error.
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("[%s] %s", out.Status, out.FinalAnswer)},
		},
	}, out, nil
}

type listToolsInput struct{}

type toolInfo struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Deterministic bool           `json:"deterministic"`
}

type listToolsOutput struct {
	Tools []toolInfo `json:"tools"`
	Count int        `json:"count"`
}

func (s *Server) listTools(ctx context.Context, _ *mcp.CallToolRequest, _ listToolsInput) (*mcp.CallToolResult, listToolsOutput, error) {
	done := s.instrument(ctx, "list_tools")
	defer done(nil)

	descs := s.tools.List()
	out := listToolsOutput{Tools: make([]toolInfo, 0, len(descs)), Count: len(descs)}
	for _, d := range descs {
		out.Tools = append(out.Tools, toolInfo{
			Name:          d.Name,
			Description:   d.Description,
			Parameters:    d.Parameters,
			Deterministic: d.Deterministic,
		})
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Found %d tools", out.Count)},
		},
	}, out, nil
}

type memorySearchInput struct {
	Query string `json:"query" jsonschema:"Text to search for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Maximum number of results (default 3, max 20)"`
}

type memoryHit struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	RunID   string  `json:"run_id"`
	Kind    string  `json:"kind,omitempty"`
}

type memorySearchOutput struct {
	Results []memoryHit `json:"results"`
	Count   int         `json:"count"`
}

func (s *Server) memorySearch(ctx context.Context, _ *mcp.CallToolRequest, args memorySearchInput) (res *mcp.CallToolResult, out memorySearchOutput, err error) {
	done := s.instrument(ctx, "memory_search")
	defer func() { done(err) }()

	if args.Query == "" {
		return nil, memorySearchOutput{}, fmt.Errorf("%w: query is required", workflow.ErrInvalidInput)
	}
	k := args.TopK
	if k <= 0 {
		k = defaultTopK
	}
	if k > maxTopK {
		k = maxTopK
	}

	hits, err := s.memory.Search(ctx, args.Query, k)
	if err != nil {
		return nil, memorySearchOutput{}, fmt.Errorf("memory search: %w", err)
	}
	out.Results = make([]memoryHit, 0, len(hits))
	for _, h := range hits {
		out.Results = append(out.Results, memoryHit{
			Content: s.scrubber.Scrub(h.Record.Content).Scrubbed,
			Score:   h.Score,
			RunID:   h.Record.SourceRunID,
			Kind:    h.Record.Kind,
		})
	}
	out.Count = len(out.Results)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Found %d memories", out.Count)},
		},
	}, out, nil
}
