package agents

import (
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// NewRoles builds all four roles over one model.
func NewRoles(model reasoning.Model, cfg *config.Config, opts ...Option) workflow.Roles {
	return workflow.Roles{
		Planner:   NewPlanner(model, cfg.Agents.Planner, opts...),
		Executor:  NewExecutor(model, cfg.Agents.Executor, opts...),
		Validator: NewValidator(model, cfg.Agents.Validator, cfg.Validator, opts...),
		Memory:    NewMemoryWriter(model, cfg.Agents.Memory, opts...),
	}
}
