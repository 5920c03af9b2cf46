package agent

import (
	"context"

	"github.com/fwojciec/tabula"
)

// Responder writes the natural-language reply of a turn.
type Responder struct {
	factory tabula.ProviderFactory
}

// NewResponder creates a Responder that resolves providers with factory.
func NewResponder(factory tabula.ProviderFactory) *Responder {
	return &Responder{factory: factory}
}

// Reply sends history to the model. A non-empty profile is appended to
// the system prompt. Messages with roles other than user, assistant and
// system are dropped. On failure it returns a diagnostic reply together
// with a *tabula.GenerationError.
func (r *Responder) Reply(ctx context.Context, cfg tabula.ModelConfig, history []tabula.ChatMessage, profile string) (string, error) {
	system := cfg.SystemPrompt
	if profile != "" {
		system += "\n\nCurrent dataset:\n" + profile
	}
	msgs := make([]tabula.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role.Valid() {
			msgs = append(msgs, m)
		}
	}
	text, err := complete(ctx, r.factory, cfg, system, msgs)
	if err != nil {
		return Diagnostic(err) + ". Please check the model configuration.", &tabula.GenerationError{Stage: tabula.StageReply, Err: err}
	}
	return text, nil
}
