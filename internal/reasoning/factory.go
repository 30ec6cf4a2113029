package reasoning

import (
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/VIGNESH246A/GenAgent-Pro-Agentic-AI-Workflow/internal/config"
)

// NewProvider creates the bare provider selected by cfg.
func NewProvider(cfg config.ModelConfig) (Model, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGemini(GeminiConfig{
			APIKey:  cfg.APIKey.Value(),
			Model:   cfg.Name,
			BaseURL: cfg.BaseURL,
			TopP:    cfg.TopP,
			TopK:    cfg.TopK,
			Timeout: cfg.Timeout,
		})
	case "anthropic":
		return NewAnthropic(AnthropicConfig{
			APIKey:  cfg.APIKey.Value(),
			Model:   cfg.Name,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
	case "openai":
		return NewOpenAI(cfg.APIKey.Value(), cfg.Name, cfg.BaseURL)
	case "ollama":
		return NewOllama(cfg.Name, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported model provider: %q", cfg.Provider)
	}
}

// New creates the provider selected by cfg wrapped with rate limiting,
// tracing and a single retry on unavailability.
func New(cfg config.ModelConfig) (Model, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(provider, cfg), nil
}

// Wrap layers the standard middleware over an existing provider.
func Wrap(provider Model, cfg config.ModelConfig) Model {
	m := WithRateLimit(provider, cfg.RateLimit, cfg.Burst)
	m = Instrument(m, otel.GetTracerProvider(), otel.GetMeterProvider())
	return WithRetry(m, Backoff{
		InitialDelay: cfg.Retry.InitialDelay,
		Factor:       cfg.Retry.Factor,
		MaxDelay:     cfg.Retry.MaxDelay,
	}, 1)
}
