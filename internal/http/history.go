package http

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRunHistory is used when no history size is configured.
const DefaultRunHistory = 256

// RunHistory keeps the most recent runs submitted through the API. Older
// runs are evicted; their memories stay in the memory store.
type RunHistory struct {
	cache *lru.Cache[string, RunResponse]
}

// NewRunHistory returns a history holding at most size runs.
func NewRunHistory(size int) (*RunHistory, error) {
	if size <= 0 {
		size = DefaultRunHistory
	}
	cache, err := lru.New[string, RunResponse](size)
	if err != nil {
		return nil, err
	}
	return &RunHistory{cache: cache}, nil
}

// Put records or replaces a run.
func (h *RunHistory) Put(r RunResponse) { h.cache.Add(r.RunID, r) }

// Get looks a run up without changing its recency.
func (h *RunHistory) Get(runID string) (RunResponse, bool) { return h.cache.Peek(runID) }

// Len returns the number of tracked runs.
func (h *RunHistory) Len() int { return h.cache.Len() }
