package tabula

import "context"

// Scope is what analysis code can see when it runs: the active dataset and
// its table, and the user the artifacts belong to.
type Scope struct {
	Dataset Dataset
	Table   *Table
	UserID  string
}

// Executor runs analysis code against the active dataset. Faults raised by
// the code are reported in ExecutionResult.Error; Execute returns an error
// only for infrastructure failures (interpreter missing, scratch space
// unavailable).
type Executor interface {
	Execute(ctx context.Context, code string, scope Scope) (ExecutionResult, error)
}
