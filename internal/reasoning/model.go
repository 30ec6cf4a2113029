// Package reasoning provides the text-generation capability used by every
// agent role.
//
// A Model maps a prompt plus decoding options to text. Providers are thin
// adapters over vendor APIs; retry, rate limiting and tracing are layered on
// top as wrappers so every provider behaves the same to callers.
package reasoning

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelUnavailable is wrapped by every provider failure.
var ErrModelUnavailable = errors.New("model unavailable")

// Options are the per-call decoding parameters.
type Options struct {
	Temperature float64
	MaxTokens   int
	// System is an optional system instruction.
	System string
}

// Model generates text from a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	// Name identifies the provider and model, e.g. "gemini/gemini-2.0-flash".
	Name() string
}

// UnavailableError describes a failed provider call.
type UnavailableError struct {
	Provider  string
	Status    int
	Retryable bool
	Err       error
}

func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %v (status %d): %v", e.Provider, ErrModelUnavailable, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, ErrModelUnavailable, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *UnavailableError) Unwrap() []error {
	return []error{ErrModelUnavailable, e.Err}
}

func unavailable(provider string, err error) error {
	return &UnavailableError{Provider: provider, Retryable: true, Err: err}
}

// IsRetryable reports whether err is a provider failure worth retrying.
// Context cancellation and permanent request errors are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return errors.Is(err, ErrModelUnavailable)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, prompt string, opts Options) (string, error)

// Generate calls f.
func (f ModelFunc) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// Name implements Model.
func (f ModelFunc) Name() string { return "func" }
