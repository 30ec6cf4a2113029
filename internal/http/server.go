// Package http provides the HTTP API for genagent.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

const (
	defaultSearchK = 5
	maxSearchK     = 50
)

// Runner executes goals. *workflow.Engine satisfies it.
type Runner interface {
	RunWithID(ctx context.Context, runID, goal string) (*workflow.Report, error)
}

// ToolLister lists registered tools. *tools.Registry satisfies it.
type ToolLister interface {
	List() []tools.Descriptor
}

// MemorySearcher searches long-term memory. *memory.Service satisfies it.
type MemorySearcher interface {
	Search(ctx context.Context, query string, topK int) ([]memory.Hit, error)
}

// ConversationReader reads the conversation log.
// *memory.ConversationLog satisfies it.
type ConversationReader interface {
	Recent(ctx context.Context, n int) ([]memory.Message, error)
}

// Deps are the components the server exposes. Runner and Tools are
// required; the rest disable their endpoints when nil.
type Deps struct {
	Runner       Runner
	Tools        ToolLister
	Memory       MemorySearcher
	Conversation ConversationReader
	Events       *nats.Conn
	EventPrefix  string
	Metrics      *HTTPMetrics
	Version      string
}

// Server provides HTTP endpoints for genagent.
type Server struct {
	echo    *echo.Echo
	deps    Deps
	logger  *logging.Logger
	config  config.ServerConfig
	history *RunHistory
	newID   func() string

	runCtx     context.Context
	cancelRuns context.CancelFunc
	runs       sync.WaitGroup
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *logging.Logger, cfg config.ServerConfig) (*Server, error) {
	if deps.Runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if deps.Tools == nil {
		return nil, fmt.Errorf("tool registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8088
	}

	history, err := NewRunHistory(cfg.RunHistory)
	if err != nil {
		return nil, fmt.Errorf("create run history: %w", err)
	}

	logger = logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	})
	if deps.Metrics != nil {
		e.Use(deps.Metrics.MetricsMiddleware())
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		echo:       e,
		deps:       deps,
		logger:     logger,
		config:     cfg,
		history:    history,
		newID:      uuid.NewString,
		runCtx:     runCtx,
		cancelRuns: cancel,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/runs", s.handleCreateRun)
	v1.GET("/runs/:id", s.handleGetRun)
	v1.GET("/runs/:id/events", s.handleRunEvents)
	v1.GET("/tools", s.handleTools)
	v1.GET("/memory/search", s.handleMemorySearch)
	v1.GET("/conversation", s.handleConversation)
}

// History returns the run history.
func (s *Server) History() *RunHistory { return s.history }

func (s *Server) handleHealth(c echo.Context) error {
	services := map[string]string{
		"memory":       enabledString(s.deps.Memory != nil),
		"conversation": enabledString(s.deps.Conversation != nil),
		"events":       "disabled",
	}
	if s.deps.Events != nil {
		services["events"] = strings.ToLower(s.deps.Events.Status().String())
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.deps.Version, Services: services})
}

func enabledString(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}

// handleCreateRun submits a goal. With wait it answers once the run is
// terminal; otherwise it answers 202 and the run continues in the
// background.
func (s *Server) handleCreateRun(c echo.Context) error {
	var req RunRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid run request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Goal = strings.TrimSpace(req.Goal)
	if req.Goal == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "goal field is required")
	}

	run := RunResponse{
		RunID:       s.newID(),
		Goal:        req.Goal,
		Status:      RunStatusRunning,
		SubmittedAt: time.Now().UTC(),
	}
	s.history.Put(run)
	s.deps.Metrics.RunSubmitted(c.Request().Context(), req.Wait)

	if req.Wait {
		report, err := s.deps.Runner.RunWithID(c.Request().Context(), run.RunID, run.Goal)
		if errors.Is(err, workflow.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		run = s.finish(c.Request().Context(), run, report, err)
		return c.JSON(http.StatusOK, run)
	}

	ctx := logging.WithRequestID(s.runCtx, logging.RequestIDFromContext(c.Request().Context()))
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		report, err := s.deps.Runner.RunWithID(ctx, run.RunID, run.Goal)
		s.finish(ctx, run, report, err)
	}()

	return c.JSON(http.StatusAccepted, run)
}

func (s *Server) finish(ctx context.Context, run RunResponse, report *workflow.Report, err error) RunResponse {
	run.Status = string(workflow.StateFailed)
	if report != nil {
		run.Status = string(report.Status)
		run.Report = report
	}
	if err != nil {
		run.Error = err.Error()
	}
	s.history.Put(run)

	s.logger.Info(ctx, "run finished",
		zap.String("run.id", run.RunID),
		zap.String("status", run.Status),
		zap.Bool("failed", err != nil),
	)
	return run
}

func (s *Server) handleGetRun(c echo.Context) error {
	run, ok := s.history.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleTools(c echo.Context) error {
	return c.JSON(http.StatusOK, ToolsResponse{Tools: s.deps.Tools.List()})
}

func (s *Server) handleMemorySearch(c echo.Context) error {
	if s.deps.Memory == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory is disabled")
	}
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q parameter is required")
	}
	k, err := intParam(c, "k", defaultSearchK)
	if err != nil || k < 1 || k > maxSearchK {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("k must be between 1 and %d", maxSearchK))
	}

	hits, err := s.deps.Memory.Search(c.Request().Context(), query, k)
	if err != nil {
		s.logger.Warn(c.Request().Context(), "memory search failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory search failed")
	}
	if hits == nil {
		hits = []memory.Hit{}
	}
	return c.JSON(http.StatusOK, MemorySearchResponse{Query: query, Hits: hits})
}

func (s *Server) handleConversation(c echo.Context) error {
	if s.deps.Conversation == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "conversation log is disabled")
	}
	limit, err := intParam(c, "limit", 0)
	if err != nil || limit < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
	}

	msgs, err := s.deps.Conversation.Recent(c.Request().Context(), limit)
	if err != nil {
		s.logger.Warn(c.Request().Context(), "conversation read failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "conversation read failed")
	}
	if msgs == nil {
		msgs = []memory.Message{}
	}
	return c.JSON(http.StatusOK, ConversationResponse{Messages: msgs})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for background runs until ctx
// expires, after which they are cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	err := s.echo.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn(ctx, "cancelling background runs")
		s.cancelRuns()
		<-done
	}
	s.cancelRuns()
	return err
}
