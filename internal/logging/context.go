package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	runKey ctxKey = iota
	taskKey
	requestKey
	loggerKey
)

// ContextFields returns the correlation fields carried by ctx: the active
// span, then run, task and request ids when set.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.Stringer("trace_id", sc.TraceID()),
			zap.Stringer("span_id", sc.SpanID()),
		)
	}
	for _, k := range []struct {
		key  ctxKey
		name string
	}{{runKey, "run.id"}, {taskKey, "task.id"}, {requestKey, "request.id"}} {
		if v := stringValue(ctx, k.key); v != "" {
			fields = append(fields, zap.String(k.name, v))
		}
	}
	return fields
}

func stringValue(ctx context.Context, k ctxKey) string {
	s, _ := ctx.Value(k).(string)
	return s
}

// WithRunID tags ctx with the workflow run it belongs to.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runKey, id)
}

// RunIDFromContext returns the run id or "".
func RunIDFromContext(ctx context.Context) string { return stringValue(ctx, runKey) }

// WithTaskID tags ctx with the task being executed or validated.
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskKey, id)
}

// TaskIDFromContext returns the task id or "".
func TaskIDFromContext(ctx context.Context) string { return stringValue(ctx, taskKey) }

// WithRequestID tags ctx with an inbound HTTP or MCP request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, requestKey) }

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored by WithLogger, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return NewNop()
}
