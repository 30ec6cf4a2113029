package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/embeddings"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/events"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/tools"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

type runnerFunc func(ctx context.Context, runID, goal string) (*workflow.Report, error)

func (f runnerFunc) RunWithID(ctx context.Context, runID, goal string) (*workflow.Report, error) {
	return f(ctx, runID, goal)
}

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	require.NoError(t, r.Register(tools.Calculator()))
	return r
}

func answeringEngine(t *testing.T, answer string, opts ...workflow.Option) *workflow.Engine {
	t.Helper()
	engine, err := workflow.NewEngine(workflow.Roles{
		Planner: workflow.RoleFunc[workflow.PlanInput, []workflow.Task](func(context.Context, workflow.PlanInput) ([]workflow.Task, error) {
			return []workflow.Task{{ID: "t1", Description: "answer"}}, nil
		}),
		Executor: workflow.RoleFunc[workflow.ExecInput, workflow.Result](func(context.Context, workflow.ExecInput) (workflow.Result, error) {
			return workflow.Result{RawOutput: answer, Succeeded: true}, nil
		}),
		Validator: workflow.RoleFunc[workflow.ValidateInput, workflow.ValidationOutcome](func(context.Context, workflow.ValidateInput) (workflow.ValidationOutcome, error) {
			return workflow.ValidationOutcome{Passed: true, Score: 1, SuggestedAction: workflow.ActionAccept}, nil
		}),
	}, testRegistry(t), nil, opts...)
	require.NoError(t, err)
	return engine
}

func setupTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Runner == nil {
		deps.Runner = answeringEngine(t, "42")
	}
	if deps.Tools == nil {
		deps.Tools = testRegistry(t)
	}
	server, err := NewServer(deps, logging.NewNop(), config.ServerConfig{RunHistory: 16})
	require.NoError(t, err)
	return server
}

func doRequest(s *Server, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		server, err := NewServer(Deps{Runner: answeringEngine(t, "x"), Tools: testRegistry(t)}, logging.NewNop(), config.ServerConfig{})
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", server.config.Host)
		assert.Equal(t, 8088, server.config.Port)
		assert.Equal(t, 0, server.History().Len())
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(Deps{Runner: answeringEngine(t, "x"), Tools: testRegistry(t)}, nil, config.ServerConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when runner is nil", func(t *testing.T) {
		_, err := NewServer(Deps{Tools: testRegistry(t)}, logging.NewNop(), config.ServerConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "runner cannot be nil")
	})

	t.Run("returns error when tools are nil", func(t *testing.T) {
		_, err := NewServer(Deps{Runner: answeringEngine(t, "x")}, logging.NewNop(), config.ServerConfig{})
		require.Error(t, err)
	})
}

func TestHandleHealth(t *testing.T) {
	server := setupTestServer(t, Deps{Version: "1.2.3"})

	rec := doRequest(server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "disabled", resp.Services["memory"])
	assert.Equal(t, "disabled", resp.Services["events"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestHandleMetrics(t *testing.T) {
	server := setupTestServer(t, Deps{})
	rec := doRequest(server, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCreateRun(t *testing.T) {
	t.Run("wait returns the report", func(t *testing.T) {
		server := setupTestServer(t, Deps{})

		rec := doRequest(server, http.MethodPost, "/api/v1/runs", RunRequest{Goal: "what is the answer", Wait: true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		run := decode[RunResponse](t, rec)
		assert.Equal(t, string(workflow.StateDone), run.Status)
		require.NotNil(t, run.Report)
		assert.Equal(t, "42", run.Report.FinalAnswer)
		assert.Equal(t, run.RunID, run.Report.RunID)
		assert.Empty(t, run.Error)

		rec = doRequest(server, http.MethodGet, "/api/v1/runs/"+run.RunID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		stored := decode[RunResponse](t, rec)
		assert.Equal(t, run.Status, stored.Status)
		assert.True(t, stored.Finished())
	})

	t.Run("failed run is still a 200", func(t *testing.T) {
		server := setupTestServer(t, Deps{Runner: runnerFunc(func(_ context.Context, runID, goal string) (*workflow.Report, error) {
			reason := errors.New("planner gave up")
			return &workflow.Report{RunID: runID, Goal: goal, Status: workflow.StateFailed, FailureReason: reason.Error()}, &workflow.Failure{Reason: reason}
		})})

		rec := doRequest(server, http.MethodPost, "/api/v1/runs", RunRequest{Goal: "x", Wait: true})
		require.Equal(t, http.StatusOK, rec.Code)
		run := decode[RunResponse](t, rec)
		assert.Equal(t, string(workflow.StateFailed), run.Status)
		assert.Contains(t, run.Error, "planner gave up")
	})

	t.Run("async run finishes in the background", func(t *testing.T) {
		release := make(chan struct{})
		engine := answeringEngine(t, "later")
		server := setupTestServer(t, Deps{Runner: runnerFunc(func(ctx context.Context, runID, goal string) (*workflow.Report, error) {
			<-release
			return engine.RunWithID(ctx, runID, goal)
		})})

		rec := doRequest(server, http.MethodPost, "/api/v1/runs", RunRequest{Goal: "take your time"})
		require.Equal(t, http.StatusAccepted, rec.Code)
		run := decode[RunResponse](t, rec)
		assert.Equal(t, RunStatusRunning, run.Status)
		require.NotEmpty(t, run.RunID)

		rec = doRequest(server, http.MethodGet, "/api/v1/runs/"+run.RunID, nil)
		assert.Equal(t, RunStatusRunning, decode[RunResponse](t, rec).Status)

		close(release)
		require.Eventually(t, func() bool {
			got, ok := server.History().Get(run.RunID)
			return ok && got.Finished()
		}, 5*time.Second, 10*time.Millisecond)

		rec = doRequest(server, http.MethodGet, "/api/v1/runs/"+run.RunID, nil)
		final := decode[RunResponse](t, rec)
		assert.Equal(t, string(workflow.StateDone), final.Status)
		assert.Equal(t, "later", final.Report.FinalAnswer)
	})

	t.Run("rejects empty goal", func(t *testing.T) {
		server := setupTestServer(t, Deps{})
		rec := doRequest(server, http.MethodPost, "/api/v1/runs", RunRequest{Goal: "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "goal field is required")
		assert.Equal(t, 0, server.History().Len())
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		server := setupTestServer(t, Deps{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetRun_NotFound(t *testing.T) {
	server := setupTestServer(t, Deps{})
	rec := doRequest(server, http.MethodGet, "/api/v1/runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunHistory_Evicts(t *testing.T) {
	h, err := NewRunHistory(2)
	require.NoError(t, err)
	h.Put(RunResponse{RunID: "a"})
	h.Put(RunResponse{RunID: "b"})
	h.Put(RunResponse{RunID: "c"})

	_, ok := h.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, h.Len())

	h.Put(RunResponse{RunID: "b", Status: "DONE"})
	got, ok := h.Get("b")
	require.True(t, ok)
	assert.Equal(t, "DONE", got.Status)
}

func TestHandleTools(t *testing.T) {
	server := setupTestServer(t, Deps{})
	rec := doRequest(server, http.MethodGet, "/api/v1/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ToolsResponse](t, rec)
	require.Len(t, resp.Tools, 1)
	assert.Equal(t, "calculator", resp.Tools[0].Name)
}

func TestHandleMemorySearch(t *testing.T) {
	t.Run("disabled without a memory store", func(t *testing.T) {
		server := setupTestServer(t, Deps{})
		rec := doRequest(server, http.MethodGet, "/api/v1/memory/search?q=x", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	store, err := memory.NewChromemStore("", false, "", embeddings.NewHashEmbedder(64))
	require.NoError(t, err)
	svc := memory.NewService(store)
	require.NoError(t, svc.Write(context.Background(), []memory.Record{
		{Content: "15% of 890 is 133.5", SourceRunID: "r1", Kind: memory.KindInsight},
	}))
	server := setupTestServer(t, Deps{Memory: svc})

	t.Run("returns hits", func(t *testing.T) {
		rec := doRequest(server, http.MethodGet, "/api/v1/memory/search?q=15%25+of+890&k=3", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[MemorySearchResponse](t, rec)
		assert.Equal(t, "15% of 890", resp.Query)
		require.NotEmpty(t, resp.Hits)
		assert.Equal(t, "15% of 890 is 133.5", resp.Hits[0].Record.Content)
	})

	t.Run("validates parameters", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, doRequest(server, http.MethodGet, "/api/v1/memory/search", nil).Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(server, http.MethodGet, "/api/v1/memory/search?q=x&k=0", nil).Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(server, http.MethodGet, "/api/v1/memory/search?q=x&k=abc", nil).Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(server, http.MethodGet, "/api/v1/memory/search?q=x&k=51", nil).Code)
	})
}

func TestHandleConversation(t *testing.T) {
	log, err := memory.OpenConversationLog(":memory:", 0)
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	_, err = log.Append(ctx, memory.Message{RunID: "r1", Role: "user", Content: "hello"})
	require.NoError(t, err)
	_, err = log.Append(ctx, memory.Message{RunID: "r1", Role: "assistant", Content: "hi"})
	require.NoError(t, err)

	server := setupTestServer(t, Deps{Conversation: log})

	rec := doRequest(server, http.MethodGet, "/api/v1/conversation?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ConversationResponse](t, rec)
	require.Len(t, resp.Messages, 2)

	assert.Equal(t, http.StatusBadRequest, doRequest(server, http.MethodGet, "/api/v1/conversation?limit=-1", nil).Code)

	disabled := setupTestServer(t, Deps{})
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(disabled, http.MethodGet, "/api/v1/conversation", nil).Code)
}

func TestShutdown_CancelsBackgroundRuns(t *testing.T) {
	started := make(chan struct{})
	server := setupTestServer(t, Deps{Runner: runnerFunc(func(ctx context.Context, runID, goal string) (*workflow.Report, error) {
		close(started)
		<-ctx.Done()
		return &workflow.Report{RunID: runID, Goal: goal, Status: workflow.StateFailed}, ctx.Err()
	})})

	rec := doRequest(server, http.MethodPost, "/api/v1/runs", RunRequest{Goal: "forever"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	run := decode[RunResponse](t, rec)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	got, ok := server.History().Get(run.RunID)
	require.True(t, ok)
	assert.Equal(t, string(workflow.StateFailed), got.Status)
	assert.Contains(t, got.Error, "context canceled")
}

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestHandleRunEvents(t *testing.T) {
	ns := startTestNATSServer(t)
	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	t.Run("disabled without nats", func(t *testing.T) {
		server := setupTestServer(t, Deps{})
		rec := doRequest(server, http.MethodGet, "/api/v1/runs/x/events", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("unknown run", func(t *testing.T) {
		server := setupTestServer(t, Deps{Events: nc})
		rec := doRequest(server, http.MethodGet, "/api/v1/runs/x/events", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("finished run replays the final event", func(t *testing.T) {
		server := setupTestServer(t, Deps{Events: nc})
		run := decode[RunResponse](t, doRequest(server, http.MethodPost, "/api/v1/runs", RunRequest{Goal: "x", Wait: true}))

		rec := doRequest(server, http.MethodGet, "/api/v1/runs/"+run.RunID+"/events", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		body := rec.Body.String()
		assert.True(t, strings.HasPrefix(body, "event: finished\n"), body)
		assert.Contains(t, body, `"final_answer":"42"`)
	})

	t.Run("missed terminal event is recovered from history", func(t *testing.T) {
		heartbeat := sseHeartbeat
		sseHeartbeat = 10 * time.Millisecond
		t.Cleanup(func() { sseHeartbeat = heartbeat })

		// This engine publishes nothing, so only the history says the run ended.
		engine := answeringEngine(t, "quiet")
		release := make(chan struct{})
		server := setupTestServer(t, Deps{Events: nc, Runner: runnerFunc(func(ctx context.Context, runID, goal string) (*workflow.Report, error) {
			<-release
			return engine.RunWithID(ctx, runID, goal)
		})})

		run := decode[RunResponse](t, doRequest(server, http.MethodPost, "/api/v1/runs", RunRequest{Goal: "finish quietly"}))

		subs := nc.NumSubscriptions()
		done := make(chan *httptest.ResponseRecorder)
		go func() {
			done <- doRequest(server, http.MethodGet, "/api/v1/runs/"+run.RunID+"/events", nil)
		}()
		require.Eventually(t, func() bool { return nc.NumSubscriptions() > subs }, 5*time.Second, 5*time.Millisecond)
		close(release)

		var rec *httptest.ResponseRecorder
		select {
		case rec = <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("event stream did not finish")
		}
		body := rec.Body.String()
		assert.Contains(t, body[strings.LastIndex(body, "event: "):], "event: finished")
		assert.Contains(t, body, `"final_answer":"quiet"`)
	})

	t.Run("live run streams every event", func(t *testing.T) {
		engine := answeringEngine(t, "streamed", workflow.WithObserver(events.NewPublisher(nc, "", nil)))
		release := make(chan struct{})
		server := setupTestServer(t, Deps{Events: nc, Runner: runnerFunc(func(ctx context.Context, runID, goal string) (*workflow.Report, error) {
			<-release
			return engine.RunWithID(ctx, runID, goal)
		})})

		run := decode[RunResponse](t, doRequest(server, http.MethodPost, "/api/v1/runs", RunRequest{Goal: "stream it"}))

		subs := nc.NumSubscriptions()
		done := make(chan *httptest.ResponseRecorder)
		go func() {
			done <- doRequest(server, http.MethodGet, "/api/v1/runs/"+run.RunID+"/events", nil)
		}()
		require.Eventually(t, func() bool { return nc.NumSubscriptions() > subs }, 5*time.Second, 5*time.Millisecond)
		require.NoError(t, nc.Flush())
		close(release)

		var rec *httptest.ResponseRecorder
		select {
		case rec = <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("event stream did not finish")
		}
		body := rec.Body.String()
		assert.Contains(t, body, "event: started\n")
		assert.Contains(t, body, "event: transition\n")
		assert.Contains(t, body, `"to":"DONE"`)
		assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "}"), body)
		assert.Contains(t, body[strings.LastIndex(body, "event: "):], "event: finished")
		assert.Contains(t, body, `"final_answer":"streamed"`)
	})
}
