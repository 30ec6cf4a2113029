package memory

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/embeddings"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/secrets"
)

func newTestChromem(t *testing.T) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore("", false, "test", embeddings.NewHashEmbedder(128))
	require.NoError(t, err)
	return s
}

func TestRecordID(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := RecordID("hello", ts)
	assert.Equal(t, a, RecordID("hello", ts))
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, RecordID("hello", ts.Add(time.Nanosecond)))
	assert.NotEqual(t, a, RecordID("hello!", ts))

	local := ts.In(time.FixedZone("X", 3600))
	assert.Equal(t, a, RecordID("hello", local), "id must not depend on the timezone")

	r := NewRecord("hello", "run-1", KindGoal, "", local)
	assert.Equal(t, a, r.ID)
	assert.Equal(t, time.UTC, r.Timestamp.Location())
}

func TestChromemStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestChromem(t)

	hits, err := s.Search(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, hits, "empty collection")

	ts := time.Now()
	recs := []Record{
		NewRecord("User Goal: Calculate 15% of 890", "run-1", KindGoal, "", ts),
		NewRecord("Task: Compute percentage\nResult: 133.5", "run-1", KindTaskResult, "t1", ts),
		NewRecord("The capital of France is Paris", "run-2", KindInsight, "", ts),
	}
	require.NoError(t, s.Upsert(ctx, recs))
	assert.Equal(t, 3, s.Count())

	// Same IDs again is an upsert, not a duplicate.
	require.NoError(t, s.Upsert(ctx, recs[:1]))
	assert.Equal(t, 3, s.Count())

	hits, err = s.Search(ctx, "The capital of France is Paris", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3, "k is capped at the collection size")
	assert.Equal(t, recs[2].ID, hits[0].Record.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-4)
	assert.Equal(t, "run-2", hits[0].Record.SourceRunID)
	assert.Equal(t, KindInsight, hits[0].Record.Kind)
	assert.True(t, hits[0].Record.Timestamp.Equal(ts.UTC()))
}

func TestChromemStore_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "mem")
	emb := embeddings.NewHashEmbedder(64)

	s, err := NewChromemStore(dir, false, "", emb)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, []Record{NewRecord("persist me", "r", KindInsight, "", time.Now())}))
	require.NoError(t, s.Close())

	reopened, err := NewChromemStore(dir, false, "", emb)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Count())
}

type stubStore struct {
	mu      sync.Mutex
	written []Record
	hits    []Hit
	err     error
}

func (s *stubStore) Upsert(_ context.Context, r []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.written = append(s.written, r...)
	return nil
}

func (s *stubStore) Search(context.Context, string, int) ([]Hit, error) {
	return append([]Hit(nil), s.hits...), s.err
}

func (s *stubStore) Close() error { return nil }

type replaceScrubber struct{ secret string }

func (r replaceScrubber) Scrub(content string) secrets.Result {
	if !strings.Contains(content, r.secret) {
		return secrets.Result{Scrubbed: content}
	}
	return secrets.Result{
		Scrubbed: strings.ReplaceAll(content, r.secret, "[REDACTED:test]"),
		Findings: []secrets.Finding{{RuleID: "test"}},
	}
}

func (replaceScrubber) IsEnabled() bool { return true }

func TestService_Write(t *testing.T) {
	ctx := context.Background()
	store := &stubStore{}
	svc := NewService(store, WithScrubber(replaceScrubber{secret: "hunter2"}))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	original := NewRecord("password is hunter2", "run", KindTaskResult, "t1", fixed)
	err := svc.Write(ctx, []Record{
		original,
		{Content: "  "},
		{Content: "no timestamp", SourceRunID: "run"},
	})
	require.NoError(t, err)
	require.Len(t, store.written, 2)

	scrubbed := store.written[0]
	assert.Equal(t, "password is [REDACTED:test]", scrubbed.Content)
	assert.NotEqual(t, original.ID, scrubbed.ID)
	assert.Equal(t, RecordID(scrubbed.Content, fixed), scrubbed.ID)

	stamped := store.written[1]
	assert.Equal(t, fixed, stamped.Timestamp)
	assert.Equal(t, RecordID("no timestamp", fixed), stamped.ID)
}

func TestService_WriteError(t *testing.T) {
	svc := NewService(&stubStore{err: ErrUnavailable})
	err := svc.Write(context.Background(), []Record{{Content: "x"}})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()
	store := &stubStore{hits: []Hit{
		{Record: Record{ID: "b"}, Score: 0.5},
		{Record: Record{ID: "c"}, Score: 0.9},
		{Record: Record{ID: "a"}, Score: 0.5},
		{Record: Record{ID: "d"}, Score: 0.1},
	}}
	svc := NewService(store)

	hits, err := svc.Search(ctx, "q", 3)
	require.NoError(t, err)
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Record.ID
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	hits, err = svc.Search(ctx, "q", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = svc.Search(ctx, "   ", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	store.err = errors.New("connection refused")
	_, err = svc.Search(ctx, "q", 3)
	assert.Error(t, err)
}

func TestService_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)
	svc := NewService(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, svc.Write(ctx, []Record{{Content: "note " + strings.Repeat("x", i+1)}}))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, store.Count())
}

func TestNopStore(t *testing.T) {
	svc := NewService(nil)
	require.NoError(t, svc.Write(context.Background(), []Record{{Content: "dropped"}}))
	hits, err := svc.Search(context.Background(), "dropped", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestNewStore(t *testing.T) {
	emb := embeddings.NewHashEmbedder(32)

	s, err := NewStore(context.Background(), config.MemoryConfig{Provider: "none"}, emb)
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	s, err = NewStore(context.Background(), config.MemoryConfig{
		Provider: "chromem",
		Chromem:  config.ChromemConfig{Path: t.TempDir()},
	}, emb)
	require.NoError(t, err)
	assert.IsType(t, &ChromemStore{}, s)

	_, err = NewStore(context.Background(), config.MemoryConfig{Provider: "pinecone"}, emb)
	assert.Error(t, err)
}

func TestQdrantPayloadRoundTrip(t *testing.T) {
	r := NewRecord("content", "run-9", KindTaskResult, "t3", time.Now())
	got := recordFromPayload(recordPayload(r))
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.Content, got.Content)
	assert.Equal(t, r.TaskID, got.TaskID)
	assert.True(t, r.Timestamp.Equal(got.Timestamp))

	// Non-string values are ignored.
	assert.Equal(t, "", recordFromPayload(map[string]*qdrant.Value{
		"id": {Kind: &qdrant.Value_IntegerValue{IntegerValue: 3}},
	}).ID)

	assert.Equal(t, PointID("abc"), PointID("abc"))
	assert.NotEqual(t, PointID("abc"), PointID("abd"))
}

func TestConversationLog(t *testing.T) {
	ctx := context.Background()
	log, err := OpenConversationLog(":memory:", 2)
	require.NoError(t, err)
	defer log.Close()

	for _, m := range []Message{
		{RunID: "r1", Role: "user", Content: "Calculate 15% of 890"},
		{RunID: "r1", Role: "assistant", Content: "133.5"},
		{RunID: "r2", Role: "user", Content: "what is 100_000 in words"},
	} {
		saved, err := log.Append(ctx, m)
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
		assert.False(t, saved.CreatedAt.IsZero())
	}

	recent, err := log.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2, "default window")
	assert.Equal(t, "133.5", recent[0].Content)
	assert.Equal(t, "r2", recent[1].RunID)

	all, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := log.Search(ctx, "CALCULATE")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "user", found[0].Role)

	found, err = log.Search(ctx, "_")
	require.NoError(t, err)
	assert.Len(t, found, 1, "underscore matches literally")

	found, err = log.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestConversationLog_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "conv.db")
	log, err := OpenConversationLog(path, 0)
	require.NoError(t, err)
	_, err = log.Append(ctx, Message{RunID: "r", Role: "user", Content: "hi"})
	require.NoError(t, err)
	require.NoError(t, log.Close())

	log, err = OpenConversationLog(path, 0)
	require.NoError(t, err)
	defer log.Close()
	msgs, err := log.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
