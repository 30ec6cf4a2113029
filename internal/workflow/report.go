package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Report is what a finished run returns to its caller, for both DONE and
// FAILED.
type Report struct {
	RunID             string              `json:"run_id" yaml:"run_id"`
	Goal              string              `json:"goal" yaml:"goal"`
	Status            State               `json:"status" yaml:"status"`
	FinalAnswer       string              `json:"final_answer" yaml:"final_answer"`
	FailureReason     string              `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
	Iterations        int                 `json:"iterations" yaml:"iterations"`
	ReplanCount       int                 `json:"replan_count" yaml:"replan_count"`
	Tasks             []Task              `json:"tasks" yaml:"tasks"`
	Results           map[string]Result   `json:"results" yaml:"results"`
	ValidationHistory []ValidationOutcome `json:"validation_history" yaml:"validation_history"`
	RetryCount        map[string]int      `json:"retry_count" yaml:"retry_count"`
	Notes             []string            `json:"notes,omitempty" yaml:"notes,omitempty"`
	StartedAt         time.Time           `json:"started_at" yaml:"started_at"`
	Duration          time.Duration       `json:"duration" yaml:"duration"`
}

// Succeeded reports whether the run reached DONE.
func (r *Report) Succeeded() bool { return r != nil && r.Status == StateDone }

// ValidationCounts returns (passed, total).
func (r *Report) ValidationCounts() (passed, total int) {
	for _, o := range r.ValidationHistory {
		if o.Passed {
			passed++
		}
	}
	return passed, len(r.ValidationHistory)
}

func newReport(s *RunState, reason error, finished time.Time) *Report {
	r := &Report{
		RunID:             s.RunID,
		Goal:              s.Goal,
		Status:            s.State,
		FinalAnswer:       s.FinalAnswer,
		Iterations:        s.IterationCount,
		ReplanCount:       s.ReplanCount,
		Tasks:             s.Tasks,
		Results:           s.Results,
		ValidationHistory: s.ValidationHistory,
		RetryCount:        s.RetryCount,
		Notes:             s.Notes,
		StartedAt:         s.StartedAt,
		Duration:          finished.Sub(s.StartedAt),
	}
	if reason != nil {
		r.FailureReason = reason.Error()
	}
	return r
}

// composeAnswer joins the successful results in task-list order. When some
// tasks did not succeed, a trailing note lists them.
func composeAnswer(s *RunState) string {
	var b strings.Builder
	successes := s.SuccessfulResults()
	for i, r := range successes {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(r.RawOutput))
	}

	var failed, skipped []string
	for _, t := range s.Tasks {
		switch t.Status {
		case TaskSucceeded:
		case TaskSkipped:
			skipped = append(skipped, fmt.Sprintf("- %s (skipped)", t.Description))
		default:
			detail := "not completed"
			if r, ok := s.Results[t.ID]; ok && r.ErrorDetail != "" {
				detail = r.ErrorDetail
			} else if reason := lastReason(s.ValidationHistory, t.ID); reason != "" {
				detail = reason
			}
			failed = append(failed, fmt.Sprintf("✗ %s: %s", t.Description, detail))
		}
	}

	if len(failed) == 0 && len(skipped) == 0 {
		if len(successes) == 0 {
			return "No tasks were completed."
		}
		return b.String()
	}

	if len(successes) == 0 {
		b.WriteString("No tasks completed successfully.")
	}
	b.WriteString("\n\nPartial failure: ")
	fmt.Fprintf(&b, "%d of %d tasks did not succeed.", len(failed)+len(skipped), len(s.Tasks))
	for _, line := range append(failed, skipped...) {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func lastReason(history []ValidationOutcome, taskID string) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].TaskID == taskID {
			return history[i].Reason
		}
	}
	return ""
}
