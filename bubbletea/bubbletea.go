// Package bubbletea provides a Bubble Tea chat TUI for tabula.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tabula"
)

// Backend performs the work behind the TUI. Ask blocks until the turn is
// recorded; onEvent receives progress events while it runs.
type Backend interface {
	Ask(ctx context.Context, s *tabula.Session, text string, onEvent func(tabula.Event)) error
	Upload(s *tabula.Session, path string) (tabula.Dataset, error)
	SelectDataset(s *tabula.Session, name string) (*tabula.Table, error)
	NewConversation(user string) (*tabula.Session, error)
	ClearConversation(s *tabula.Session) error
}

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown: when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// TurnEventMsg wraps a progress event for delivery to the Bubble Tea model.
type TurnEventMsg struct {
	Event tabula.Event
}

// TurnDoneMsg signals that a turn has completed.
type TurnDoneMsg struct {
	Err error
}

// CommandDoneMsg carries the outcome of a slash command.
type CommandDoneMsg struct {
	Notice string
	Err    error

	// Session replaces the current session when set.
	Session *tabula.Session
	// Reset clears the transcript view.
	Reset bool
}
