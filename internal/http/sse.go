package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/events"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/workflow"
)

var sseHeartbeat = 30 * time.Second

// handleRunEvents streams a run's lifecycle events via Server-Sent Events
// until the run finishes or the client disconnects. Each heartbeat also
// checks the run history, so a terminal event published before the
// subscription went live still ends the stream.
//
//	GET /api/v1/runs/{id}/events
//
//	event: transition
//	data: {"type":"transition","run_id":"...","from":"PLANNING","to":"EXECUTING",...}
//
//	event: finished
//	data: {"type":"finished","run_id":"...","status":"DONE","final_answer":"..."}
func (s *Server) handleRunEvents(c echo.Context) error {
	if s.deps.Events == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event streaming is disabled")
	}
	runID := c.Param("id")
	run, ok := s.history.Get(runID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if run.Finished() {
		return writeSSE(w, finishedEvent(run))
	}

	ch := make(chan events.Event, 64)
	sub, err := events.Subscribe(s.deps.Events, s.deps.EventPrefix, runID, ch)
	if err != nil {
		return err
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	// The run may have finished before the subscription was live.
	if run, _ = s.history.Get(runID); run.Finished() {
		return writeSSE(w, finishedEvent(run))
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case e := <-ch:
			if err := writeSSE(w, e); err != nil {
				return err
			}
			if e.Terminal() {
				return nil
			}
		case <-ticker.C:
			if run, ok := s.history.Get(runID); ok && run.Finished() {
				return writeSSE(w, finishedEvent(run))
			}
			fmt.Fprintf(w, ": heartbeat\n\n")
			w.Flush()
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

func writeSSE(w *echo.Response, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\n", e.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
	w.Flush()
	return nil
}

func finishedEvent(run RunResponse) events.Event {
	e := events.Event{
		Type:          events.TypeFinished,
		RunID:         run.RunID,
		Goal:          run.Goal,
		Status:        workflow.State(run.Status),
		FailureReason: run.Error,
		At:            time.Now().UTC(),
	}
	if r := run.Report; r != nil {
		e.Iteration = r.Iterations
		e.FinalAnswer = r.FinalAnswer
		e.FailureReason = r.FailureReason
	}
	return e
}
