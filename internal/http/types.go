package http

import (
	"time"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// Run statuses reported by the API. Finished runs carry the workflow's
// terminal state (DONE or FAILED) instead.
const (
	RunStatusRunning = "RUNNING"
)

// RunRequest is the request body for POST /api/v1/runs.
type RunRequest struct {
	Goal string `json:"goal"`
	// Wait runs the goal inside the request and returns the report.
	Wait bool `json:"wait"`
}

// RunResponse describes one submitted run.
type RunResponse struct {
	RunID       string           `json:"run_id"`
	Goal        string           `json:"goal"`
	Status      string           `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Report      *workflow.Report `json:"report,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Finished reports whether the run reached a terminal state.
func (r RunResponse) Finished() bool { return r.Status != RunStatusRunning }

// ToolsResponse is the response body for GET /api/v1/tools.
type ToolsResponse struct {
	Tools []tools.Descriptor `json:"tools"`
}

// MemorySearchResponse is the response body for GET /api/v1/memory/search.
type MemorySearchResponse struct {
	Query string       `json:"query"`
	Hits  []memory.Hit `json:"hits"`
}

// ConversationResponse is the response body for GET /api/v1/conversation.
type ConversationResponse struct {
	Messages []memory.Message `json:"messages"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services"`
}
