package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tabula"
	bt "github.com/fwojciec/tabula/bubbletea"
	"github.com/fwojciec/tabula/mock"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a function-field Backend. Unset methods fail the test.
type fakeBackend struct {
	t        *testing.T
	AskFn    func(ctx context.Context, s *tabula.Session, text string, onEvent func(tabula.Event)) error
	UploadFn func(s *tabula.Session, path string) (tabula.Dataset, error)
	SelectFn func(s *tabula.Session, name string) (*tabula.Table, error)
	NewFn    func(user string) (*tabula.Session, error)
	ClearFn  func(s *tabula.Session) error
}

func (b *fakeBackend) Ask(ctx context.Context, s *tabula.Session, text string, onEvent func(tabula.Event)) error {
	if b.AskFn == nil {
		b.t.Error("unexpected Ask")
		return nil
	}
	return b.AskFn(ctx, s, text, onEvent)
}

func (b *fakeBackend) Upload(s *tabula.Session, path string) (tabula.Dataset, error) {
	if b.UploadFn == nil {
		b.t.Error("unexpected Upload")
		return tabula.Dataset{}, nil
	}
	return b.UploadFn(s, path)
}

func (b *fakeBackend) SelectDataset(s *tabula.Session, name string) (*tabula.Table, error) {
	if b.SelectFn == nil {
		b.t.Error("unexpected SelectDataset")
		return nil, nil
	}
	return b.SelectFn(s, name)
}

func (b *fakeBackend) NewConversation(user string) (*tabula.Session, error) {
	if b.NewFn == nil {
		b.t.Error("unexpected NewConversation")
		return nil, nil
	}
	return b.NewFn(user)
}

func (b *fakeBackend) ClearConversation(s *tabula.Session) error {
	if b.ClearFn == nil {
		b.t.Error("unexpected ClearConversation")
		return nil
	}
	return b.ClearFn(s)
}

var salesTable = tabula.NewTable(
	[]string{"region", "sales"},
	[][]string{{"north", "10"}, {"south", "20"}},
)

func newSession(msgs ...tabula.Message) *tabula.Session {
	loader := &mock.TableLoader{LoadFn: func(string) (*tabula.Table, error) { return salesTable, nil }}
	return tabula.NewSession("ann", tabula.Conversation{ID: "20260301_090000_abcd1234", Owner: "ann", Messages: msgs}, loader)
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, backend bt.Backend, session *tabula.Session) bt.Model {
	t.Helper()
	m := bt.New(backend, session, tabula.DefaultTheme())
	return updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// typeText sets the input and presses Enter, returning the command.
func typeText(t *testing.T, m bt.Model, text string) (bt.Model, tea.Cmd) {
	t.Helper()
	m.Input.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model, cmd
}
