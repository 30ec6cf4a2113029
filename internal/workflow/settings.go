package workflow

import (
	"fmt"
	"time"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
)

// Settings are the limits of one run. The engine reads them once at run
// start; later updates only affect new runs.
type Settings struct {
	MaxIterations int
	MaxRetries    int
	ReplanBudget  int
	RoleTimeout   time.Duration
	ToolTimeout   time.Duration
	MemoryTimeout time.Duration
	MemoryTopK    int
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations: 25,
		MaxRetries:    2,
		ReplanBudget:  1,
		RoleTimeout:   60 * time.Second,
		ToolTimeout:   30 * time.Second,
		MemoryTimeout: 5 * time.Second,
		MemoryTopK:    3,
	}
}

// SettingsFromConfig converts the workflow section of a config snapshot.
func SettingsFromConfig(c config.WorkflowConfig) Settings {
	return Settings{
		MaxIterations: c.MaxIterations,
		MaxRetries:    c.MaxRetries,
		ReplanBudget:  c.ReplanBudget,
		RoleTimeout:   c.RoleTimeout,
		ToolTimeout:   c.ToolTimeout,
		MemoryTimeout: c.MemoryTimeout,
		MemoryTopK:    c.MemoryTopK,
	}
}

// Validate rejects settings the engine cannot run with.
func (s Settings) Validate() error {
	switch {
	case s.MaxIterations < 1:
		return fmt.Errorf("max_iterations must be >= 1, got %d", s.MaxIterations)
	case s.MaxRetries < 0:
		return fmt.Errorf("max_retries must be >= 0, got %d", s.MaxRetries)
	case s.ReplanBudget < 0:
		return fmt.Errorf("replan_budget must be >= 0, got %d", s.ReplanBudget)
	case s.RoleTimeout <= 0 || s.ToolTimeout <= 0 || s.MemoryTimeout <= 0:
		return fmt.Errorf("timeouts must be positive")
	case s.MemoryTopK < 0:
		return fmt.Errorf("memory_top_k must be >= 0, got %d", s.MemoryTopK)
	}
	return nil
}

func (s Settings) budget() Budget {
	return Budget{MaxRetries: s.MaxRetries, ReplanBudget: s.ReplanBudget}
}
