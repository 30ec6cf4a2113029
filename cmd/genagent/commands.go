package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/services"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve run_goal, memory_search and list_tools over MCP stdio",
		Long: `Start an MCP server on stdin/stdout. Logs go to stderr.

Example client configuration:
  {"command": "genagent", "args": ["mcp"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openServices(cmd.Context(), services.Options{})
			if err != nil {
				return err
			}
			defer s.Close()

			srv, err := s.reg.NewMCPServer()
			if err != nil {
				return setupError(err)
			}
			return srv.Run(cmd.Context())
		},
	}
}

func newToolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the executor can call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openServices(cmd.Context(), services.Options{})
			if err != nil {
				return err
			}
			defer s.Close()
			return printTools(a.out, a.output, s.reg.Tools().List())
		},
	}
}

func newMemoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect long-term memory",
	}

	var topK int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search memory by semantic similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if topK <= 0 {
				return setupError(fmt.Errorf("--top-k must be positive, got %d", topK))
			}
			s, err := a.openServices(cmd.Context(), services.Options{})
			if err != nil {
				return err
			}
			defer s.Close()

			if s.reg.Memory() == nil {
				return setupError(errors.New(`memory is disabled (memory.provider is "none")`))
			}
			hits, err := s.reg.Memory().Search(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return &exitError{code: exitFailed, err: err}
			}
			return printHits(a.out, a.output, hits)
		},
	}
	search.Flags().IntVarP(&topK, "top-k", "k", 5, "maximum number of results")

	cmd.AddCommand(search)
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.out, "genagent %s\n", version)
			fmt.Fprintf(a.out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(a.out, "Build Date: %s\n", buildDate)
		},
	}
}
