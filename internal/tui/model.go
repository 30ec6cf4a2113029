// Package tui is the interactive chat front end: each submitted line is run
// as a goal and the report is rendered inline.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	chromeHeight  = 5
)

// Runner executes goals. *workflow.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, goal string) (*workflow.Report, error)
}

// IsExitCommand reports whether line asks to leave the chat.
func IsExitCommand(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit", "q":
		return true
	}
	return false
}

type exchange struct {
	goal   string
	stage  workflow.State
	report *workflow.Report
	err    error
}

func (e exchange) finished() bool { return e.report != nil || e.err != nil }

type reportMsg struct {
	report *workflow.Report
	err    error
}

type transitionMsg workflow.Transition

// Model is the bubbletea chat model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	runner Runner
	feed   *Feed

	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	validation progress.Model

	history  []exchange
	running  bool
	width    int
	quitting bool
}

// NewModel creates a chat model. feed may be nil, in which case stage
// progress is not shown while a run is in flight.
func NewModel(ctx context.Context, runner Runner, feed *Feed) Model {
	ctx, cancel := context.WithCancel(ctx)

	input := textinput.New()
	input.Placeholder = "Describe a goal, or type exit"
	input.Prompt = "› "
	input.CharLimit = 2000
	input.Width = defaultWidth - 4
	input.Focus()

	return Model{
		ctx:      ctx,
		cancel:   cancel,
		runner:   runner,
		feed:     feed,
		input:    input,
		viewport: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		validation: progress.New(
			progress.WithGradient("#ff0000", "#00ff00"),
			progress.WithWidth(20),
		),
		width: defaultWidth,
	}
}

// Init starts the cursor blink and the transition listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForTransition())
}

func (m Model) runGoal(goal string) tea.Cmd {
	return func() tea.Msg {
		report, err := m.runner.Run(m.ctx, goal)
		return reportMsg{report: report, err: err}
	}
}

func (m Model) waitForTransition() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	ch := m.feed.C()
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return nil
		}
		return transitionMsg(t)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m.quit()
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case reportMsg:
		if n := len(m.history); n > 0 {
			m.history[n-1].report = msg.report
			m.history[n-1].err = msg.err
		}
		m.running = false
		m.refresh()
		return m, nil

	case transitionMsg:
		if n := len(m.history); m.running && n > 0 {
			m.history[n-1].stage = msg.To
			m.refresh()
		}
		return m, m.waitForTransition()

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	if IsExitCommand(line) {
		return m.quit()
	}

	m.input.Reset()
	m.history = append(m.history, exchange{goal: line, stage: workflow.StateInit})
	m.running = true
	m.refresh()
	return m, tea.Batch(m.runGoal(line), m.spinner.Tick)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// View renders the chat.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	header := th.title.Render("genagent")
	if m.running {
		header += "  " + m.spinner.View() + th.muted.Render(" working")
	}
	footer := keyHelp("enter", "run", "pgup/pgdn", "scroll", "esc", "quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
		footer,
	)
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return th.muted.Render("No runs yet. Type a goal and press enter.")
	}
	var b strings.Builder
	for i, e := range m.history {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(th.goal.Render("› "+e.goal) + "\n")
		b.WriteString(m.renderExchange(e))
	}
	return b.String()
}

func (m Model) renderExchange(e exchange) string {
	if !e.finished() {
		return m.spinner.View() + " " + th.muted.Render(string(e.stage)) + "\n"
	}
	if e.report == nil {
		return th.fail.Render("error: ") + e.err.Error() + "\n"
	}

	r := e.report
	var b strings.Builder
	passed, total := r.ValidationCounts()
	ratio := 0.0
	if total > 0 {
		ratio = float64(passed) / float64(total)
	}

	fmt.Fprintf(&b, "%s  %s %s  %s %s  %s %s\n",
		statusBadge(r.Status),
		th.key.Render("run"), th.muted.Render(shortID(r.RunID)),
		th.key.Render("iterations"), th.value.Render(fmt.Sprint(r.Iterations)),
		th.key.Render("took"), th.muted.Render(r.Duration.Round(time.Millisecond).String()),
	)
	fmt.Fprintf(&b, "%s %s %s\n",
		th.key.Render("validation"),
		m.validation.ViewAs(ratio),
		th.muted.Render(fmt.Sprintf("%d/%d", passed, total)),
	)

	width := max(m.width-4, 20)
	if r.Succeeded() {
		b.WriteString(th.answer.Width(width).Render(r.FinalAnswer) + "\n")
	} else {
		b.WriteString(th.fail.Render(r.FailureReason) + "\n")
	}
	for _, note := range r.Notes {
		b.WriteString(th.warn.Render("! "+note) + "\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Run starts the chat program on the alternate screen and blocks until the
// user leaves or ctx is cancelled.
func Run(ctx context.Context, runner Runner, feed *Feed) error {
	p := tea.NewProgram(NewModel(ctx, runner, feed), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}
