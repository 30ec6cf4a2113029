package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/embeddings"
)

var tracer = otel.Tracer("genagent.memory")

// ChromemStore is the embedded vector index.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
}

// NewChromemStore opens (or creates) a persistent chromem database at path.
// An empty path keeps everything in memory.
func NewChromemStore(path string, compress bool, collection string, embedder embeddings.Embedder) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		expanded, err := expandPath(path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(expanded, 0o700); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", expanded, err)
		}
		db, err = chromem.NewPersistentDB(expanded, compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}
	if collection == "" {
		collection = "genagent_memory"
	}
	c, err := db.GetOrCreateCollection(collection, nil, func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", collection, err)
	}
	return &ChromemStore{db: db, collection: c, embedder: embedder}, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Upsert implements Store.
func (s *ChromemStore) Upsert(ctx context.Context, records []Record) error {
	ctx, span := tracer.Start(ctx, "ChromemStore.Upsert")
	defer span.End()
	span.SetAttributes(attribute.Int("record_count", len(records)))
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
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("embedding records: %w", err)
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Content,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"timestamp":     r.Timestamp.UTC().Format(time.RFC3339Nano),
				"source_run_id": r.SourceRunID,
				"kind":          r.Kind,
				"task_id":       r.TaskID,
			},
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Search implements Store.
func (s *ChromemStore) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	ctx, span := tracer.Start(ctx, "ChromemStore.Search")
	defer span.End()

	// chromem requires nResults <= document count.
	n := s.collection.Count()
	if n == 0 || topK <= 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := s.collection.QueryEmbedding(ctx, vec, topK, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		ts, _ := time.Parse(time.RFC3339Nano, r.Metadata["timestamp"])
		hits = append(hits, Hit{
			Record: Record{
				ID:          r.ID,
				Content:     r.Content,
				Embedding:   r.Embedding,
				Timestamp:   ts,
				SourceRunID: r.Metadata["source_run_id"],
				Kind:        r.Metadata["kind"],
				TaskID:      r.Metadata["task_id"],
			},
			Score: float64(r.Similarity),
		})
	}
	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "")
	return hits, nil
}

// Count returns the number of stored records.
func (s *ChromemStore) Count() int { return s.collection.Count() }

// Close implements Store. Persistent chromem databases write through on
// every insert, so there is nothing to flush.
func (s *ChromemStore) Close() error { return nil }
