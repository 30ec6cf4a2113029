package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/durable"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/services"
)

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker that executes submitted goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.openServices(ctx, services.Options{Events: true})
			if err != nil {
				return err
			}
			defer s.Close()

			c, err := durable.Dial(s.cfg.Temporal, s.logger)
			if err != nil {
				return setupError(err)
			}
			defer c.Close()

			w := c.NewWorker(s.reg.NewActivities())
			if err := w.Start(); err != nil {
				return setupError(fmt.Errorf("starting worker: %w", err))
			}
			s.logger.Info(ctx, "worker started",
				zap.String("task_queue", c.TaskQueue()),
				zap.String("host_port", s.cfg.Temporal.HostPort),
			)
			<-ctx.Done()
			w.Stop()
			return nil
		},
	}
}

func newSubmitCmd(a *app) *cobra.Command {
	var detach bool
	cmd := &cobra.Command{
		Use:   "submit <goal>",
		Short: "Submit a goal to the Temporal worker pool",
		Long: `Submit a goal as a durable workflow. By default the command waits for the
result and exits like a local run; with --detach it prints the workflow id and
returns immediately.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx, a, nil)
			if err != nil {
				return setupError(err)
			}
			defer s.Close()

			c, err := durable.Dial(s.cfg.Temporal, s.logger)
			if err != nil {
				return setupError(err)
			}
			defer c.Close()

			goal := strings.Join(args, " ")
			if detach {
				run, err := c.Submit(ctx, goal)
				if err != nil {
					return setupError(err)
				}
				fmt.Fprintln(a.out, run.GetID())
				return nil
			}

			result, err := c.Run(ctx, goal)
			if err != nil {
				return &exitError{code: exitFailed, err: err}
			}
			if err := printResult(a.out, a.output, result); err != nil {
				return err
			}
			if !result.Succeeded() {
				return &exitError{code: exitFailed}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&detach, "detach", false, "print the workflow id and return without waiting")
	return cmd
}
