package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/services"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tui"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genagent [goal]",
		Short: "Run natural-language goals through planning, tool use and validation",
		Long: `genagent turns a natural-language goal into a plan of tasks, executes each
task with a tool or a direct answer, validates every result and stores what it
learned in long-term memory.

With a goal argument it runs once and exits with 0 on DONE, 1 on FAILED and 2
on setup errors. Without arguments it reads goals line by line until exit,
quit, q or end of input.

Examples:
  # One goal
  genagent "What is 15% of 890?"

  # Interactive loop
  genagent

  # Machine-readable report
  genagent --output json "Summarize README.md"`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validFormat(a.output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return a.runOnce(cmd.Context(), strings.Join(args, " "))
			}
			return a.interactive(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/genagent/config.yaml)")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", formatText, "output format: text, json or yaml")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(
		newRunCmd(a),
		newChatCmd(a),
		newServeCmd(a),
		newWorkerCmd(a),
		newSubmitCmd(a),
		newMCPCmd(a),
		newToolsCmd(a),
		newMemoryCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <goal>",
		Short: "Run one goal and print its report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd.Context(), strings.Join(args, " "))
		},
	}
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive terminal chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			feed := tui.NewFeed()
			s, err := a.openServices(cmd.Context(), services.Options{Observers: []workflow.Observer{feed}})
			if err != nil {
				return err
			}
			defer s.Close()
			return tui.Run(cmd.Context(), s.reg.Engine(), feed)
		},
	}
}

func (a *app) runOnce(ctx context.Context, goal string) error {
	s, err := a.openServices(ctx, services.Options{})
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := a.runGoal(ctx, s, goal)
	if err != nil {
		return err
	}
	if !report.Succeeded() {
		return &exitError{code: exitFailed}
	}
	return nil
}

// runGoal runs one goal and prints the report. Input errors have no report
// and come back as errors; a FAILED report is printed and returned.
func (a *app) runGoal(ctx context.Context, s *session, goal string) (*workflow.Report, error) {
	report, err := s.reg.Engine().Run(ctx, goal)
	if report == nil {
		if errors.Is(err, workflow.ErrInvalidInput) {
			return nil, setupError(err)
		}
		return nil, &exitError{code: exitFailed, err: err}
	}
	if perr := printReport(a.out, a.output, report); perr != nil {
		return nil, fmt.Errorf("writing report: %w", perr)
	}
	return report, nil
}

func (a *app) interactive(ctx context.Context) error {
	s, err := a.openServices(ctx, services.Options{})
	if err != nil {
		return err
	}
	defer s.Close()

	prompt := color.New(color.FgCyan, color.Bold).Sprint("genagent> ")
	scanner := bufio.NewScanner(a.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(a.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(a.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case tui.IsExitCommand(line):
			return nil
		}

		if _, err := a.runGoal(ctx, s, line); err != nil {
			var ee *exitError
			if !errors.As(err, &ee) || ee.err != nil {
				fmt.Fprintf(a.errOut, "Error: %v\n", err)
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintln(a.out)
	}
}
