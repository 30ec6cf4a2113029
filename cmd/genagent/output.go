package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/durable"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format %q (want text, json or yaml)", f)
}

// encode writes v as JSON or YAML. It reports false for text output.
func encode(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func statusColor(status workflow.State) *color.Color {
	switch status {
	case workflow.StateDone:
		return color.New(color.FgGreen, color.Bold)
	case workflow.StateFailed:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow)
	}
}

var label = color.New(color.FgCyan).SprintFunc()

// summary is the subset of a run shown in text mode. Reports and durable
// results both reduce to it.
type summary struct {
	status     workflow.State
	runID      string
	iterations int
	passed     int
	total      int
	answer     string
	failure    string
	notes      []string
	duration   time.Duration
}

func summaryFromReport(r *workflow.Report) summary {
	passed, total := r.ValidationCounts()
	return summary{
		status:     r.Status,
		runID:      r.RunID,
		iterations: r.Iterations,
		passed:     passed,
		total:      total,
		answer:     r.FinalAnswer,
		failure:    r.FailureReason,
		notes:      r.Notes,
		duration:   r.Duration,
	}
}

func summaryFromResult(r *durable.GoalResult) summary {
	return summary{
		status:     r.Status,
		runID:      r.RunID,
		iterations: r.Iterations,
		passed:     r.PassedChecks,
		total:      r.TotalChecks,
		answer:     r.FinalAnswer,
		failure:    r.FailureReason,
		duration:   r.Duration,
	}
}

func writeSummary(w io.Writer, s summary) {
	fmt.Fprintf(w, "%s %s\n", label("Status:    "), statusColor(s.status).Sprint(s.status))
	fmt.Fprintf(w, "%s %s\n", label("Run:       "), s.runID)
	fmt.Fprintf(w, "%s %d\n", label("Iterations:"), s.iterations)
	fmt.Fprintf(w, "%s %d/%d passed\n", label("Validation:"), s.passed, s.total)
	fmt.Fprintf(w, "%s %s\n", label("Duration:  "), s.duration.Round(time.Millisecond))
	if s.status == workflow.StateDone {
		fmt.Fprintf(w, "%s\n%s\n", label("Answer:"), indent(s.answer))
	} else {
		fmt.Fprintf(w, "%s %s\n", label("Failure:   "), color.RedString(s.failure))
	}
	if len(s.notes) > 0 {
		fmt.Fprintln(w, label("Warnings:"))
		for _, n := range s.notes {
			fmt.Fprintf(w, "  %s %s\n", color.YellowString("!"), n)
		}
	}
}

func indent(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

func printReport(w io.Writer, format string, r *workflow.Report) error {
	if done, err := encode(w, format, r); done {
		return err
	}
	writeSummary(w, summaryFromReport(r))
	return nil
}

func printResult(w io.Writer, format string, r *durable.GoalResult) error {
	if done, err := encode(w, format, r); done {
		return err
	}
	writeSummary(w, summaryFromResult(r))
	return nil
}

func printTools(w io.Writer, format string, descs []tools.Descriptor) error {
	if done, err := encode(w, format, descs); done {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDETERMINISTIC\tPARAMETERS\tDESCRIPTION")
	for _, d := range descs {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", d.Name, d.Deterministic, strings.Join(d.RequiredParams(), ","), d.Description)
	}
	return tw.Flush()
}

type hitOutput struct {
	Score   float64 `json:"score" yaml:"score"`
	Content string  `json:"content" yaml:"content"`
	RunID   string  `json:"run_id" yaml:"run_id"`
	Kind    string  `json:"kind" yaml:"kind"`
}

func printHits(w io.Writer, format string, hits []memory.Hit) error {
	out := make([]hitOutput, 0, len(hits))
	for _, h := range hits {
		out = append(out, hitOutput{Score: h.Score, Content: h.Record.Content, RunID: h.Record.SourceRunID, Kind: h.Record.Kind})
	}
	if done, err := encode(w, format, out); done {
		return err
	}
	if len(out) == 0 {
		fmt.Fprintln(w, "No memories found.")
		return nil
	}
	for i, h := range out {
		fmt.Fprintf(w, "[%d] %s %s\n%s\n", i+1, label(fmt.Sprintf("(score %.3f)", h.Score)), color.HiBlackString(h.Kind), indent(h.Content))
	}
	return nil
}
