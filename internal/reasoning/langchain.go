package reasoning

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// LangChain adapts any langchaingo llms.Model.
type LangChain struct {
	llm      llms.Model
	provider string
	model    string
}

// NewLangChain wraps an existing langchaingo model.
func NewLangChain(provider, model string, llm llms.Model) *LangChain {
	return &LangChain{llm: llm, provider: provider, model: model}
}

// NewOpenAI creates an OpenAI-compatible provider. baseURL may point at any
// server that speaks the chat completions API.
func NewOpenAI(apiKey, model, baseURL string) (*LangChain, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key required (set model.api_key or OPENAI_API_KEY)")
	}
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	return NewLangChain("openai", model, llm), nil
}

// NewOllama creates a provider backed by a local Ollama server.
func NewOllama(model, serverURL string) (*LangChain, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return NewLangChain("ollama", model, llm), nil
}

// Name implements Model.
func (l *LangChain) Name() string { return l.provider + "/" + l.model }

// Generate implements Model.
func (l *LangChain) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	var messages []llms.MessageContent
	if strings.TrimSpace(opts.System) != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, opts.System))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, prompt))

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := l.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", unavailable(l.provider, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", unavailable(l.provider, fmt.Errorf("empty response"))
	}
	return resp.Choices[0].Content, nil
}
