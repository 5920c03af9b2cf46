package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fwojciec/tabula"
)

// complete resolves a provider for cfg and sends one request.
func complete(ctx context.Context, factory tabula.ProviderFactory, cfg tabula.ModelConfig, systemPrompt string, msgs []tabula.ChatMessage) (string, error) {
	if cfg.APIKey == "" {
		return "", tabula.ErrMissingCredential
	}
	provider, err := factory(ctx, cfg)
	if err != nil {
		return "", err
	}
	temp := cfg.Temperature
	text, err := provider.Complete(ctx, tabula.Request{
		Model:        cfg.ModelName,
		SystemPrompt: systemPrompt,
		Messages:     msgs,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  &temp,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

// CodeGenerator turns an analysis request into Python code.
type CodeGenerator struct {
	factory tabula.ProviderFactory
}

// NewCodeGenerator creates a CodeGenerator that resolves providers with
// factory.
func NewCodeGenerator(factory tabula.ProviderFactory) *CodeGenerator {
	return &CodeGenerator{factory: factory}
}

// Generate asks the model for code performing request on the table
// described by profile. On failure it returns a commented diagnostic in
// place of code together with a *tabula.GenerationError.
func (g *CodeGenerator) Generate(ctx context.Context, cfg tabula.ModelConfig, request, profile string) (string, error) {
	text, err := complete(ctx, g.factory, cfg, cfg.SystemPrompt, []tabula.ChatMessage{
		{Role: tabula.RoleUser, Content: codePrompt(request, profile)},
	})
	if err != nil {
		return "# " + Diagnostic(err), &tabula.GenerationError{Stage: tabula.StageCode, Err: err}
	}
	return StripCodeFence(text), nil
}

func codePrompt(request, profile string) string {
	return fmt.Sprintf(`I need to analyze the following data.

Data information:
%s
User request:
%s

Write Python code that performs this analysis using pandas, numpy, matplotlib and seaborn.
The data is already loaded into a DataFrame named df. pd, np, plt and sns are imported.
Draw charts with plt; do not call plt.show(). To return a table, assign a DataFrame to result_df.
Do not read or write files and do not import os, sys or subprocess.
Return only the Python code, without explanations.`, profile, request)
}

// Diagnostic formats a generation failure as a single line.
func Diagnostic(err error) string {
	return "Error: " + strings.Join(strings.Fields(err.Error()), " ")
}

// StripCodeFence removes a markdown code fence wrapping s, together with
// its language tag, and trims surrounding whitespace.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		if tag, body, found := strings.Cut(rest, "\n"); found && isFenceTag(tag) {
			rest = body
		} else if !found {
			rest = strings.TrimPrefix(rest, "python")
		}
		s = rest
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isFenceTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '+', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
