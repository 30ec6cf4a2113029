package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/embeddings"

// Metrics records embedding latency, batch sizes and failures.
type Metrics struct {
	duration  metric.Float64Histogram
	batchSize metric.Int64Histogram
	errors    metric.Int64Counter
}

// NewMetrics creates instruments on mp.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(instrumentationName)
	m := &Metrics{}
	m.duration, _ = meter.Float64Histogram(
		"genagent.embedding.duration_seconds",
		metric.WithDescription("Duration of embedding generation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5),
	)
	m.batchSize, _ = meter.Int64Histogram(
		"genagent.embedding.batch_size",
		metric.WithDescription("Number of texts per embedding request"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100),
	)
	m.errors, _ = meter.Int64Counter(
		"genagent.embedding.errors_total",
		metric.WithDescription("Embedding generation failures"),
		metric.WithUnit("{error}"),
	)
	return m
}

// RecordGeneration records one embedding call.
func (m *Metrics) RecordGeneration(ctx context.Context, model, operation string, d time.Duration, batch int, err error) {
	opt := metric.WithAttributes(attribute.String("model", model), attribute.String("operation", operation))
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), opt)
	}
	if batch > 0 && m.batchSize != nil {
		m.batchSize.Record(ctx, int64(batch), opt)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, opt)
	}
}

type instrumented struct {
	Provider
	model   string
	metrics *Metrics
}

func withMetrics(p Provider, model string) Provider {
	return &instrumented{Provider: p, model: model, metrics: NewMetrics(otel.GetMeterProvider())}
}

func (i *instrumented) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	out, err := i.Provider.EmbedDocuments(ctx, texts)
	i.metrics.RecordGeneration(ctx, i.model, "embed_documents", time.Since(start), len(texts), err)
	return out, err
}

func (i *instrumented) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	out, err := i.Provider.EmbedQuery(ctx, text)
	i.metrics.RecordGeneration(ctx, i.model, "embed_query", time.Since(start), 1, err)
	return out, err
}
