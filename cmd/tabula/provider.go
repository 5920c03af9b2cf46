package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/anthropic"
	"github.com/fwojciec/tabula/gemini"
	"github.com/fwojciec/tabula/openai"
)

// newProvider builds the provider a model configuration selects. OpenAI,
// Azure and custom endpoints share the chat completions client.
func newProvider(ctx context.Context, cfg tabula.ModelConfig) (tabula.Provider, error) {
	switch cfg.Provider {
	case tabula.ProviderOpenAI, tabula.ProviderCustom:
		if cfg.Provider == tabula.ProviderCustom && cfg.BaseURL == "" {
			return nil, fmt.Errorf("custom provider needs base_url: %w", tabula.ErrValidation)
		}
		var opts []openai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.ModelName != "" {
			opts = append(opts, openai.WithModel(cfg.ModelName))
		}
		return openai.New(cfg.APIKey, opts...), nil
	case tabula.ProviderAzure:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("azure provider needs base_url: %w", tabula.ErrValidation)
		}
		return openai.New(cfg.APIKey,
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithAzure(""),
			openai.WithModel(cfg.ModelName),
		), nil
	case tabula.ProviderAnthropic:
		return anthropic.New(cfg.APIKey, anthropic.WithBaseURL(cfg.BaseURL)), nil
	case tabula.ProviderGemini:
		opts := []gemini.Option{gemini.WithBaseURL(cfg.BaseURL)}
		if cfg.ModelName != "" {
			opts = append(opts, gemini.WithModel(cfg.ModelName))
		}
		return gemini.New(ctx, cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q: %w", cfg.Provider, tabula.ErrValidation)
	}
}
