package reasoning

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/reasoning"

type instrumented struct {
	next     Model
	tracer   trace.Tracer
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

// Instrument records a span and duration/failure metrics for every call.
func Instrument(next Model, tp trace.TracerProvider, mp metric.MeterProvider) Model {
	meter := mp.Meter(instrumentationName)
	m := &instrumented{next: next, tracer: tp.Tracer(instrumentationName)}
	// Instrument creation only fails on invalid names; a nil instrument is skipped.
	m.duration, _ = meter.Float64Histogram(
		"genagent.model.generate_duration_seconds",
		metric.WithDescription("Duration of model generate calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	m.failures, _ = meter.Int64Counter(
		"genagent.model.failures_total",
		metric.WithDescription("Model generate calls that returned an error"),
		metric.WithUnit("{error}"),
	)
	return m
}

func (m *instrumented) Name() string { return m.next.Name() }

func (m *instrumented) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	attrs := []attribute.KeyValue{
		attribute.String("model", m.next.Name()),
		attribute.Float64("temperature", opts.Temperature),
		attribute.Int("max_tokens", opts.MaxTokens),
	}
	ctx, span := m.tracer.Start(ctx, "reasoning.Generate", trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	out, err := m.next.Generate(ctx, prompt, opts)
	if m.duration != nil {
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs[0]))
	}
	if err != nil {
		if m.failures != nil {
			m.failures.Add(ctx, 1, metric.WithAttributes(attrs[0]))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("prompt.length", len(prompt)), attribute.Int("output.length", len(out)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}
