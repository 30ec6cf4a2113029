package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/services"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the REST API for submitting runs and reading reports, tools, memory and
conversation history. Run lifecycle events are published to NATS when
nats.enabled is set, and edits to the config file change the workflow limits
of runs started afterwards.

Examples:
  genagent serve
  GENAGENT_SERVER_PORT=9000 genagent serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	s, err := a.openServices(ctx, services.Options{Events: true})
	if err != nil {
		return err
	}
	defer s.Close()

	srv, err := s.reg.NewHTTPServer()
	if err != nil {
		return setupError(err)
	}

	if path, ok := a.configFile(); ok {
		stop, err := services.Watch(ctx, s.reg, path, s.logger)
		if err != nil {
			s.logger.Warn(ctx, "config hot reload disabled", zap.Error(err))
		} else {
			defer stop()
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	s.logger.Info(ctx, "genagent serving",
		zap.String("addr", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)),
		zap.Bool("events", s.reg.Events() != nil),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	s.logger.Info(shutdownCtx, "shutting down")
	return srv.Shutdown(shutdownCtx)
}
