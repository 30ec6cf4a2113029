package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
)

const httpInstrumentationName = "github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/http"

// HTTPMetrics instruments the API: per-route request counts and latency,
// requests in flight, and run submissions by mode.
type HTTPMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	inflight metric.Int64UpDownCounter
	runs     metric.Int64Counter
}

// NewHTTPMetrics registers on meter, or on the global provider when meter
// is nil. Instruments that fail to register become no-ops.
func NewHTTPMetrics(meter metric.Meter, logger *logging.Logger) *HTTPMetrics {
	if meter == nil {
		meter = otel.Meter(httpInstrumentationName)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	warn := func(name string, err error) {
		logger.Warn(context.Background(), "http instrument unavailable", zap.String("instrument", name), zap.Error(err))
	}

	m := &HTTPMetrics{}
	var err error
	if m.requests, err = meter.Int64Counter("genagent.http.requests_total",
		metric.WithDescription("API requests by method, route pattern and status"), metric.WithUnit("{request}")); err != nil {
		warn("requests_total", err)
		m.requests = noop.Int64Counter{}
	}
	if m.latency, err = meter.Float64Histogram("genagent.http.request_duration_seconds",
		metric.WithDescription("API request latency; synchronous runs include the whole run"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.5, 1, 5, 15, 30, 60, 120)); err != nil {
		warn("request_duration_seconds", err)
		m.latency = noop.Float64Histogram{}
	}
	if m.inflight, err = meter.Int64UpDownCounter("genagent.http.active_requests",
		metric.WithDescription("API requests in progress"), metric.WithUnit("{request}")); err != nil {
		warn("active_requests", err)
		m.inflight = noop.Int64UpDownCounter{}
	}
	if m.runs, err = meter.Int64Counter("genagent.http.runs_submitted_total",
		metric.WithDescription("Goals accepted by POST /api/v1/runs, by mode (sync or async)"), metric.WithUnit("{run}")); err != nil {
		warn("runs_submitted_total", err)
		m.runs = noop.Int64Counter{}
	}
	return m
}

// MetricsMiddleware labels by route pattern (/api/v1/runs/:id), never the
// raw path, so run ids stay out of the label set. Unmatched requests are
// labelled "unmatched".
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()
			m.inflight.Add(ctx, 1)
			defer m.inflight.Add(ctx, -1)

			err := next(c)

			// Handler errors are written by echo after the middleware chain.
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("route", routeLabel(c.Path())),
				attribute.Int("status", status),
			)
			m.requests.Add(ctx, 1, attrs)
			m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
			return err
		}
	}
}

// RunSubmitted counts an accepted goal.
func (m *HTTPMetrics) RunSubmitted(ctx context.Context, wait bool) {
	if m == nil {
		return
	}
	mode := "async"
	if wait {
		mode = "sync"
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

func routeLabel(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
