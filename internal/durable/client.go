package durable

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
)

// Client submits goals to Temporal.
type Client struct {
	temporal  client.Client
	taskQueue string
	logger    *logging.Logger
}

// Dial connects to the configured Temporal frontend.
func Dial(cfg config.TemporalConfig, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Temporal client: %w", err)
	}
	return NewClient(c, cfg.TaskQueue, logger), nil
}

// NewClient wraps an existing Temporal client.
func NewClient(c client.Client, taskQueue string, logger *logging.Logger) *Client {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{temporal: c, taskQueue: taskQueue, logger: logger.Named("durable")}
}

// Temporal returns the underlying client.
func (c *Client) Temporal() client.Client { return c.temporal }

// TaskQueue returns the queue goals are submitted to.
func (c *Client) TaskQueue() string { return c.taskQueue }

// Submit starts a GoalWorkflow and returns without waiting. The workflow id
// is also the run id.
func (c *Client) Submit(ctx context.Context, goal string) (client.WorkflowRun, error) {
	id := "goal-" + uuid.NewString()
	run, err := c.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: c.taskQueue,
	}, GoalWorkflow, GoalInput{RunID: id, Goal: goal})
	if err != nil {
		return nil, fmt.Errorf("failed to start workflow: %w", err)
	}

	c.logger.Info(ctx, "workflow started",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
	)
	return run, nil
}

// Run submits goal and waits for the result.
func (c *Client) Run(ctx context.Context, goal string) (*GoalResult, error) {
	run, err := c.Submit(ctx, goal)
	if err != nil {
		return nil, err
	}
	var result GoalResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", run.GetID(), err)
	}
	return &result, nil
}

// Close closes the Temporal connection.
func (c *Client) Close() { c.temporal.Close() }

// NewWorker returns a worker on the client's task queue with the goal
// workflow and activities registered.
func (c *Client) NewWorker(acts *Activities) worker.Worker {
	w := worker.New(c.temporal, c.taskQueue, worker.Options{})
	w.RegisterWorkflow(GoalWorkflow)
	w.RegisterActivity(acts)
	return w
}
