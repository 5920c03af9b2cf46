package tabula

import (
	"context"
	"fmt"
)

// Provider is a strategy pattern interface for LLM providers. Complete
// sends one chat completion request and returns the completion text.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderFactory builds a Provider for a model configuration. The
// configuration can change between turns, so generators resolve a provider
// per call.
type ProviderFactory func(ctx context.Context, cfg ModelConfig) (Provider, error)

// Request carries model selection and generation parameters.
// The provider uses its own defaults when fields are zero/nil.
type Request struct {
	Model        string // model ID, provider-specific; empty = provider default
	SystemPrompt string
	Messages     []ChatMessage
	MaxTokens    int      // 0 = provider default
	Temperature  *float64 // nil = provider default
}

// Validate checks universal constraints on Request.
// Provider implementations may apply additional provider-specific validation.
func (r Request) Validate() error {
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: unknown role %q: %w", i, m.Role, ErrValidation)
		}
	}
	return nil
}
