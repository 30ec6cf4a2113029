// Package workflow implements the goal orchestration engine.
//
// # Overview
//
// A run takes a natural-language goal through a finite state machine:
//
//	INIT → PLANNING → EXECUTING → VALIDATING → (RETRY_EXEC | RETRY_PLAN | MEMORY_WRITE) → DONE
//
// plus a terminal FAILED state reachable from anywhere. Each state invokes at
// most one agent role (Planner, Executor, Validator, MemoryWriter) or external
// collaborator (tool registry, memory store) and then picks the next state
// with a pure guard function.
//
// # Run State
//
// The RunState is owned by the goroutine driving the run. Every transition
// works on a deep clone of the last committed snapshot; the clone becomes the
// new snapshot only when the handler returns without error and the context is
// still live. A failed or cancelled transition leaves the committed snapshot
// untouched and moves the run to FAILED.
//
// # Budgets
//
//   - max_iterations bounds the number of committed transitions; the check
//     runs before every transition.
//   - max_retries bounds RETRY_EXEC per task.
//   - replan_budget bounds RETRY_PLAN per run.
//
// Per-task failures (tool errors, parse errors, model outages) never escape
// the engine: they are captured in Results and ValidationOutcomes and routed
// by the retry logic. Only run-level conditions end in a *Failure.
//
// # Usage Example
//
//	engine, err := workflow.NewEngine(workflow.Roles{
//	    Planner:   agents.NewPlanner(model, cfg.Agents.Planner),
//	    Executor:  agents.NewExecutor(model, cfg.Agents.Executor),
//	    Validator: agents.NewValidator(model, cfg.Agents.Validator, cfg.Validator),
//	    Memory:    agents.NewMemoryWriter(model, cfg.Agents.Memory),
//	}, registry, memorySvc, workflow.WithSettings(workflow.SettingsFromConfig(cfg.Workflow)))
//
//	report, err := engine.Run(ctx, "Calculate 15% of 890")
//	var failure *workflow.Failure
//	if errors.As(err, &failure) {
//	    // report.FinalAnswer carries the failure message
//	}
package workflow
