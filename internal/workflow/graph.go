package workflow

import (
	"fmt"
	"strings"
)

// MaxPlanTasks caps the size of a single plan.
const MaxPlanTasks = 8

// validatePlan checks a Planner output before it is merged. known holds the
// tasks already in the run; new tasks may depend on them.
func validatePlan(plan []Task, known []Task) error {
	if len(plan) == 0 {
		return fmt.Errorf("%w: plan has no tasks", ErrPlanning)
	}
	if len(plan) > MaxPlanTasks {
		return fmt.Errorf("%w: plan has %d tasks (max %d)", ErrPlanning, len(plan), MaxPlanTasks)
	}

	ids := make(map[string]bool, len(plan)+len(known))
	for _, t := range known {
		ids[t.ID] = true
	}
	seen := make(map[string]bool, len(plan))
	for _, t := range plan {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("%w: task with empty id", ErrPlanning)
		}
		if strings.TrimSpace(t.Description) == "" {
			return fmt.Errorf("%w: task %q has no description", ErrPlanning, t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate task id %q", ErrPlanning, t.ID)
		}
		seen[t.ID] = true
		ids[t.ID] = true
	}
	for _, t := range plan {
		for _, dep := range t.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("%w: task %q depends on unknown task %q", ErrPlanning, t.ID, dep)
			}
		}
	}
	return nil
}

// findCycle returns the first dependency cycle in tasks as a list of ids, or
// nil if the graph is acyclic.
func findCycle(tasks []Task) []string {
	deps := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		deps[t.ID] = t.Dependencies
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	color := make(map[string]int, len(tasks))

	var visit func(id string, path []string) []string
	visit = func(id string, path []string) []string {
		switch color[id] {
		case visited:
			return nil
		case visiting:
			for i, p := range path {
				if p == id {
					return append(append([]string(nil), path[i:]...), id)
				}
			}
			return []string{id, id}
		}
		color[id] = visiting
		for _, dep := range deps[id] {
			if cycle := visit(dep, append(path, id)); cycle != nil {
				return cycle
			}
		}
		color[id] = visited
		return nil
	}

	for _, t := range tasks {
		if color[t.ID] == unvisited {
			if cycle := visit(t.ID, nil); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// nextEligible returns the index of the first pending task, in list order,
// whose dependencies have all succeeded; -1 if there is none.
func nextEligible(tasks []Task) int {
	status := make(map[string]TaskStatus, len(tasks))
	for _, t := range tasks {
		status[t.ID] = t.Status
	}
	for i, t := range tasks {
		if t.Status != TaskPending {
			continue
		}
		ready := true
		for _, dep := range t.Dependencies {
			if status[dep] != TaskSucceeded {
				ready = false
				break
			}
		}
		if ready {
			return i
		}
	}
	return -1
}

// skipPending marks every remaining pending task skipped and returns their ids.
func skipPending(tasks []Task) []string {
	var skipped []string
	for i := range tasks {
		if tasks[i].Status == TaskPending {
			tasks[i].Status = TaskSkipped
			skipped = append(skipped, tasks[i].ID)
		}
	}
	return skipped
}

// mergePlan folds a new plan into the existing task list. Succeeded tasks
// are kept as they are. Unfinished tasks the new plan repeats by id are
// replaced and reset to pending; unfinished tasks it omits are skipped.
// Failed tasks stay failed. New ids are appended in plan order.
func mergePlan(existing, plan []Task) []Task {
	byID := make(map[string]Task, len(plan))
	for _, t := range plan {
		byID[t.ID] = t
	}

	merged := make([]Task, 0, len(existing)+len(plan))
	kept := make(map[string]bool, len(existing))
	for _, old := range existing {
		kept[old.ID] = true
		if old.Status == TaskSucceeded || old.Status == TaskFailed || old.Status == TaskSkipped {
			merged = append(merged, old)
			continue
		}
		if repl, ok := byID[old.ID]; ok {
			repl.Status = TaskPending
			merged = append(merged, repl)
			continue
		}
		old.Status = TaskSkipped
		merged = append(merged, old)
	}
	for _, t := range plan {
		if kept[t.ID] {
			continue
		}
		t.Status = TaskPending
		merged = append(merged, t)
	}
	return merged
}
