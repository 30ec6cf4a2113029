package memory

import (
	"context"
	"fmt"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/embeddings"
)

// NewStore builds the backend named by cfg.Provider.
func NewStore(ctx context.Context, cfg config.MemoryConfig, embedder embeddings.Provider) (Store, error) {
	switch cfg.Provider {
	case "", "chromem":
		return NewChromemStore(cfg.Chromem.Path, cfg.Chromem.Compress, cfg.Chromem.Collection, embedder)
	case "qdrant":
		return NewQdrantStore(ctx, cfg.Qdrant, embedder)
	case "none":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unsupported memory provider: %s", cfg.Provider)
	}
}
