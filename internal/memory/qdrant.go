package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/embeddings"
)

// pointNamespace derives stable Qdrant point UUIDs from record IDs.
var pointNamespace = uuid.MustParse("6f1c1b9e-8a43-4f3e-9a55-3d1c2a7b9e10")

const maxGRPCMessageSize = 32 * 1024 * 1024

// QdrantStore is the remote vector index.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	embedder   embeddings.Provider
}

// NewQdrantStore connects to Qdrant over gRPC and makes sure the collection
// exists with the embedder's dimension.
func NewQdrantStore(ctx context.Context, cfg config.QdrantConfig, embedder embeddings.Provider) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey.Value(),
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxGRPCMessageSize),
				grpc.MaxCallSendMsgSize(maxGRPCMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s := &QdrantStore{client: client, collection: cfg.Collection, embedder: embedder}
	if s.collection == "" {
		s.collection = "genagent_memory"
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %s: %v", ErrUnavailable, s.collection, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.embedder.Dimension()),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.collection, err)
	}
	return nil
}

// PointID maps a record ID onto the UUID space Qdrant requires.
func PointID(recordID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}

func recordPayload(r Record) map[string]*qdrant.Value {
	str := func(v string) *qdrant.Value {
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
	}
	return map[string]*qdrant.Value{
		"id":            str(r.ID),
		"content":       str(r.Content),
		"timestamp":     str(r.Timestamp.UTC().Format(time.RFC3339Nano)),
		"source_run_id": str(r.SourceRunID),
		"kind":          str(r.Kind),
		"task_id":       str(r.TaskID),
	}
}

func recordFromPayload(payload map[string]*qdrant.Value) Record {
	get := func(k string) string {
		if v, ok := payload[k]; ok {
			if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
				return s.StringValue
			}
		}
		return ""
	}
	ts, _ := time.Parse(time.RFC3339Nano, get("timestamp"))
	return Record{
		ID:          get("id"),
		Content:     get("content"),
		Timestamp:   ts,
		SourceRunID: get("source_run_id"),
		Kind:        get("kind"),
		TaskID:      get("task_id"),
	}
}

// Upsert implements Store.
func (s *QdrantStore) Upsert(ctx context.Context, records []Record) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.Upsert")
	defer span.End()
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("embedding records: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(r.ID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: recordPayload(r),
		}
	}
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: upserting points: %v", ErrUnavailable, err)
	}
	span.SetAttributes(attribute.Int("points", len(points)))
	return nil
}

// Search implements Store.
func (s *QdrantStore) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Search")
	defer span.End()
	if topK <= 0 {
		return nil, nil
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: querying: %v", ErrUnavailable, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, Hit{Record: recordFromPayload(p.GetPayload()), Score: float64(p.GetScore())})
	}
	return hits, nil
}

// Close implements Store.
func (s *QdrantStore) Close() error { return s.client.Close() }
