// Package memory is the long-term memory store: a similarity-searchable index
// of records written at the end of each run, plus an append-only
// conversation log.
package memory

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/zeebo/blake3"
)

// ErrUnavailable is returned when the backing index cannot be reached.
var ErrUnavailable = errors.New("memory store unavailable")

// Record kinds.
const (
	KindGoal       = "goal"
	KindTaskResult = "task_result"
	KindInsight    = "insight"
)

// Record is one persisted unit of memory. Records are never mutated; writing
// the same content with the same timestamp again is an upsert of the same ID.
type Record struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"-"`
	Timestamp   time.Time `json:"timestamp"`
	SourceRunID string    `json:"source_run_id"`
	Kind        string    `json:"kind,omitempty"`
	TaskID      string    `json:"task_id,omitempty"`
}

// Hit is a search result.
type Hit struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}

// NewRecord builds a record with its content-addressed ID.
func NewRecord(content, runID, kind, taskID string, ts time.Time) Record {
	ts = ts.UTC()
	return Record{
		ID:          RecordID(content, ts),
		Content:     content,
		Timestamp:   ts,
		SourceRunID: runID,
		Kind:        kind,
		TaskID:      taskID,
	}
}

// RecordID is the BLAKE3 hash of content and timestamp.
func RecordID(content string, ts time.Time) string {
	h := blake3.New()
	_, _ = h.Write([]byte(content))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(ts.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Store is a vector index backend.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, query string, topK int) ([]Hit, error)
	Close() error
}

// NopStore is used when memory is disabled: writes are dropped and searches
// return nothing.
type NopStore struct{}

func (NopStore) Upsert(context.Context, []Record) error { return nil }

func (NopStore) Search(context.Context, string, int) ([]Hit, error) { return nil, nil }

func (NopStore) Close() error { return nil }
