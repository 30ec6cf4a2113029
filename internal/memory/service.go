package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/logging"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/secrets"
)

// Service is the memory store used by the workflow: scrubbing, ID
// assignment and deterministic ordering on top of a Store backend.
type Service struct {
	store    Store
	scrubber secrets.Scrubber
	logger   *logging.Logger
	now      func() time.Time

	writeMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithScrubber redacts secrets from records before they are written.
func WithScrubber(s secrets.Scrubber) Option {
	return func(svc *Service) {
		if s != nil {
			svc.scrubber = s
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// NewService wraps store.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		store = NopStore{}
	}
	s := &Service{
		store:    store,
		scrubber: secrets.Noop{},
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write persists records. Content is scrubbed first; records without an ID
// or timestamp get one. Concurrent writers are serialized.
func (s *Service) Write(ctx context.Context, records []Record) (err error) {
	start := time.Now()
	defer func() { observe("write", start, err) }()

	prepared := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		if res := s.scrubber.Scrub(r.Content); res.HasFindings() {
			redactionsTotal.Inc()
			s.logger.Warn(ctx, "redacted secrets from memory record",
				zap.Strings("rules", res.RuleIDs()),
				zap.String("task_id", r.TaskID))
			r.Content = res.Scrubbed
			// Content changed, so any precomputed ID no longer addresses it.
			r.ID = ""
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = s.now()
		}
		r.Timestamp = r.Timestamp.UTC()
		if r.ID == "" {
			r.ID = RecordID(r.Content, r.Timestamp)
		}
		prepared = append(prepared, r)
	}
	if len(prepared) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.Upsert(ctx, prepared); err != nil {
		return fmt.Errorf("writing %d memory records: %w", len(prepared), err)
	}
	s.logger.Debug(ctx, "memory records written", zap.Int("count", len(prepared)))
	return nil
}

// Search returns at most topK hits ordered by descending score, ties broken
// by record ID.
func (s *Service) Search(ctx context.Context, query string, topK int) (hits []Hit, err error) {
	start := time.Now()
	defer func() { observe("search", start, err) }()

	if topK <= 0 || strings.TrimSpace(query) == "" {
		return []Hit{}, nil
	}
	hits, err = s.store.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("searching memory: %w", err)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	if hits == nil {
		hits = []Hit{}
	}
	return hits, nil
}

// Close closes the backend.
func (s *Service) Close() error { return s.store.Close() }
