package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// Adaptive colours keep the chat readable on light and dark terminals.
var (
	accent = lipgloss.AdaptiveColor{Light: "25", Dark: "51"}
	muted  = lipgloss.AdaptiveColor{Light: "243", Dark: "245"}
	good   = lipgloss.AdaptiveColor{Light: "28", Dark: "46"}
	bad    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	warn   = lipgloss.AdaptiveColor{Light: "136", Dark: "226"}
)

type theme struct {
	title, goal, key, value, muted lipgloss.Style
	ok, fail, warn                 lipgloss.Style
	answer                         lipgloss.Style
}

var th = theme{
	title: lipgloss.NewStyle().Bold(true).Reverse(true).Foreground(accent).Padding(0, 1),
	goal:  lipgloss.NewStyle().Bold(true).Foreground(accent),
	key:   lipgloss.NewStyle().Foreground(accent).Faint(true),
	value: lipgloss.NewStyle().Bold(true),
	muted: lipgloss.NewStyle().Foreground(muted),
	ok:    lipgloss.NewStyle().Bold(true).Foreground(good),
	fail:  lipgloss.NewStyle().Bold(true).Foreground(bad),
	warn:  lipgloss.NewStyle().Foreground(warn),
	answer: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(muted).
		Padding(0, 1),
}

func statusBadge(s workflow.State) string {
	switch s {
	case workflow.StateDone:
		return th.ok.Render("✓ " + string(s))
	case workflow.StateFailed:
		return th.fail.Render("✗ " + string(s))
	}
	return th.warn.Render("… " + string(s))
}

// keyHelp renders "[key] action" pairs for the footer.
func keyHelp(pairs ...string) string {
	out := ""
	for i := 0; i+1 < len(pairs); i += 2 {
		if out != "" {
			out += "  "
		}
		out += th.goal.Render("["+pairs[i]+"]") + th.muted.Render(" "+pairs[i+1])
	}
	return out
}
