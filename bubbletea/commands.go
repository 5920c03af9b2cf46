package bubbletea

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tabula"
)

const helpText = `Commands:
  /upload <path>  load a CSV or Excel file and make it active
  /use <name>     switch to an uploaded dataset
  /datasets       list the datasets of this conversation
  /new            start a new conversation
  /clear          clear this conversation
  /help           show this help`

// runCommand executes a slash command. Commands that touch the session run
// as a tea.Cmd with the model marked running, like a turn.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/help":
		m.blocks = append(m.blocks, NewNoticeBlock(helpText, m.styles))
		return m.refresh(), nil

	case "/datasets":
		m.blocks = append(m.blocks, NewNoticeBlock(listDatasets(m.session.Registry), m.styles))
		return m.refresh(), nil

	case "/upload", "/use":
		if arg == "" {
			m.blocks = append(m.blocks, NewErrorBlock(fmt.Errorf("%s needs an argument, try /help", name), m.styles))
			return m.refresh(), nil
		}
	case "/new", "/clear":
	default:
		m.blocks = append(m.blocks, NewErrorBlock(fmt.Errorf("unknown command %s, try /help", name), m.styles))
		return m.refresh(), nil
	}

	m.running = true
	m.stage = stageCommand
	m.Input.Blur()
	return m, tea.Batch(command(m.backend, m.session, name, arg), m.spinner.Tick)
}

func command(backend Backend, s *tabula.Session, name, arg string) tea.Cmd {
	return func() tea.Msg {
		switch name {
		case "/upload":
			d, err := backend.Upload(s, arg)
			if err != nil {
				return CommandDoneMsg{Err: err}
			}
			t := s.Registry.Active()
			return CommandDoneMsg{Notice: fmt.Sprintf("Uploaded file: %s (%d rows x %d columns)", d.Name, t.NumRows(), t.NumCols())}
		case "/use":
			t, err := backend.SelectDataset(s, arg)
			if err != nil {
				return CommandDoneMsg{Err: err}
			}
			return CommandDoneMsg{Notice: fmt.Sprintf("Using %s (%d rows x %d columns)", arg, t.NumRows(), t.NumCols())}
		case "/new":
			next, err := backend.NewConversation(s.User)
			if err != nil {
				return CommandDoneMsg{Err: err}
			}
			return CommandDoneMsg{Session: next, Notice: "New conversation " + next.Conversation.ID}
		default: // "/clear"
			if err := backend.ClearConversation(s); err != nil {
				return CommandDoneMsg{Err: err}
			}
			return CommandDoneMsg{Reset: true, Notice: "Conversation cleared"}
		}
	}
}

func listDatasets(r *tabula.Registry) string {
	datasets := r.Datasets()
	if len(datasets) == 0 {
		return "No datasets yet. Use /upload <path>."
	}
	active, _ := r.ActiveDataset()
	var b strings.Builder
	b.WriteString("Datasets:")
	for _, d := range datasets {
		marker := "  "
		if d.Name == active.Name {
			marker = "* "
		}
		b.WriteString("\n" + marker + d.Name)
	}
	return b.String()
}
