package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/memory"
)

// MemorySearchName is the registered name of the memory search tool.
const MemorySearchName = "memory_search"

// Searcher is the subset of the memory service used by memory_search.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]memory.Hit, error)
}

// MemorySearch returns a tool that queries long-term memory.
func MemorySearch(s Searcher) Tool {
	return Tool{
		Descriptor: Descriptor{
			Name:        MemorySearchName,
			Description: "Search past conversation memory for relevant context.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "What to look for",
						"minLength":   1,
					},
					"max_results": map[string]any{
						"type":    "integer",
						"minimum": 1,
						"maximum": 20,
						"default": 5,
					},
				},
				"required":             []string{"query"},
				"additionalProperties": false,
			},
			Keywords: []string{"remember", "recall", "previous", "earlier", "history", "past"},
		},
		Exec: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			k := 5
			if v, ok := args["max_results"].(float64); ok && v >= 1 {
				k = int(v)
			}
			hits, err := s.Search(ctx, query, k)
			if err != nil {
				return "", fmt.Errorf("memory search failed: %w", err)
			}
			return FormatHits(hits), nil
		},
	}
}

// FormatHits renders hits as numbered, scored snippets.
func FormatHits(hits []memory.Hit) string {
	if len(hits) == 0 {
		return "No relevant memories found"
	}
	parts := make([]string, 0, len(hits))
	for i, h := range hits {
		parts = append(parts, fmt.Sprintf("[%d] (Score: %.2f)\n%s", i+1, h.Score, h.Record.Content))
	}
	return strings.Join(parts, "\n\n")
}
