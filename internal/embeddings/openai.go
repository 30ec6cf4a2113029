package embeddings

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultOpenAIEmbeddingModel = "text-embedding-3-small"

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL   string
	Model     string
	APIKey    string
	Dimension int
}

// OpenAI embeds through langchaingo's OpenAI client.
type OpenAI struct {
	embedder  lcembeddings.Embedder
	dimension int
}

// NewOpenAI creates an OpenAI-compatible embedder.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIEmbeddingModel
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: api key required for the OpenAI embeddings API", ErrInvalidConfig)
		}
		// Self-hosted compatible servers ignore the token but the client requires one.
		apiKey = "unused"
	}

	opts := []openai.Option{
		openai.WithEmbeddingModel(model),
		openai.WithToken(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	dim := cfg.Dimension
	if dim <= 0 {
		dim = detectDimensionFromModel(model)
	}
	return &OpenAI{embedder: embedder, dimension: dim}, nil
}

// NewOpenAIFromEmbedder wraps an existing langchaingo embedder.
func NewOpenAIFromEmbedder(e lcembeddings.Embedder, dimension int) *OpenAI {
	return &OpenAI{embedder: e, dimension: dimension}
}

// EmbedDocuments implements Embedder.
func (o *OpenAI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	vectors, err := o.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

// EmbedQuery implements Embedder.
func (o *OpenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vec, err := o.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vec, nil
}

// Dimension implements Provider.
func (o *OpenAI) Dimension() int { return o.dimension }

// Close implements Provider.
func (o *OpenAI) Close() error { return nil }
