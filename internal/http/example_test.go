package http_test

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	httpserver "github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/http"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

// ExampleServer demonstrates how to create and start the HTTP server.
func ExampleServer() {
	registry := tools.NewRegistry()
	registry.MustRegister(tools.Calculator())

	engine, err := workflow.NewEngine(workflow.Roles{
		Planner: workflow.RoleFunc[workflow.PlanInput, []workflow.Task](func(context.Context, workflow.PlanInput) ([]workflow.Task, error) {
			return []workflow.Task{{ID: "t1", Description: "answer"}}, nil
		}),
		Executor: workflow.RoleFunc[workflow.ExecInput, workflow.Result](func(context.Context, workflow.ExecInput) (workflow.Result, error) {
			return workflow.Result{RawOutput: "42", Succeeded: true}, nil
		}),
		Validator: workflow.RoleFunc[workflow.ValidateInput, workflow.ValidationOutcome](func(context.Context, workflow.ValidateInput) (workflow.ValidationOutcome, error) {
			return workflow.ValidationOutcome{Passed: true, Score: 1, SuggestedAction: workflow.ActionAccept}, nil
		}),
	}, registry, nil)
	if err != nil {
		panic(err)
	}

	logger := logging.NewNop()

	server, err := httpserver.NewServer(httpserver.Deps{Runner: engine, Tools: registry}, logger, config.ServerConfig{
		Host: "127.0.0.1",
		Port: 18088,
	})
	if err != nil {
		panic(err)
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error(context.Background(), "server error", zap.Error(err))
		}
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error(ctx, "shutdown error", zap.Error(err))
	}

	fmt.Println("Server started and stopped successfully")
	// Output: Server started and stopped successfully
}
