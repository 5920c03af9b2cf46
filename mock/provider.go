// Package mock provides test doubles for tabula interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/tabula"
)

// Interface compliance checks.
var (
	_ tabula.Provider = (*Provider)(nil)
	_ tabula.Executor = (*Executor)(nil)
)

// Provider is a test double for tabula.Provider.
// Set CompleteFn before calling Complete.
type Provider struct {
	CompleteFn func(ctx context.Context, req tabula.Request) (string, error)
}

// Complete delegates to CompleteFn.
func (p *Provider) Complete(ctx context.Context, req tabula.Request) (string, error) {
	return p.CompleteFn(ctx, req)
}

// Executor is a test double for tabula.Executor.
// Set ExecuteFn before calling Execute.
type Executor struct {
	ExecuteFn func(ctx context.Context, code string, scope tabula.Scope) (tabula.ExecutionResult, error)
}

// Execute delegates to ExecuteFn.
func (e *Executor) Execute(ctx context.Context, code string, scope tabula.Scope) (tabula.ExecutionResult, error) {
	return e.ExecuteFn(ctx, code, scope)
}
