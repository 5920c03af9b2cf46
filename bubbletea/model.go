package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tabula"
)

var _ tea.Model = Model{}

// Stages shown in the status line while a turn runs.
const (
	stageGenerating = "Generating analysis code"
	stageExecuting  = "Running analysis"
	stageReplying   = "Writing reply"
	stageCommand    = "Working"
)

// Model is the Bubble Tea model for the tabula TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	spinner spinner.Model
	backend Backend
	session *tabula.Session
	theme   tabula.Theme
	styles  Styles

	blocks     []MessageBlock
	blockFocus int // index of focused collapsible block (-1 = none)

	// dataset is the active dataset name. It is cached so View never
	// reads the session while a command or turn owns it.
	dataset string

	running bool
	stage   string
	cancel  context.CancelFunc
	eventCh chan tabula.Event
	doneCh  chan error
	err     error
	ready   bool
}

// New creates a new TUI Model for session.
func New(backend Backend, session *tabula.Session, theme tabula.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about your data, or /help"
	ti.Prompt = "› "
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		Input:      ti,
		spinner:    sp,
		backend:    backend,
		session:    session,
		theme:      theme,
		styles:     NewStyles(theme),
		blockFocus: -1,
	}
	m.dataset = activeDataset(session)
	return m
}

// Running returns whether a turn or command is in progress.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Stage returns the status of the running turn.
func (m Model) Stage() string { return m.stage }

// Session returns the current session.
func (m Model) Session() *tabula.Session { return m.session }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TurnEventMsg:
		m = m.processEvent(msg.Event)
		m = m.refresh()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case TurnDoneMsg:
		if m.cancel != nil {
			m.cancel()
		}
		m.cancel = nil
		m.eventCh = nil
		m.doneCh = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
			m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
		}
		return m.finish()

	case CommandDoneMsg:
		if msg.Session != nil {
			m.session = msg.Session
		}
		if msg.Reset || msg.Session != nil {
			m.blocks = nil
		}
		if msg.Err != nil {
			m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
		}
		if msg.Notice != "" {
			m.blocks = append(m.blocks, NewNoticeBlock(msg.Notice, m.styles))
		}
		return m.finish()
	}

	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// finish returns the model to idle after a turn or command.
func (m Model) finish() (tea.Model, tea.Cmd) {
	m.running = false
	m.stage = ""
	m.dataset = activeDataset(m.session)
	m = m.updateBlockFocus()
	m = m.refresh()
	return m, m.Input.Focus()
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	const inputHeight, statusHeight, borderHeight = 1, 1, 2
	vpHeight := max(msg.Height-inputHeight-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.renderSession()
		m = m.updateBlockFocus()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m = m.refresh()
	m.Input.Width = msg.Width - 2
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		m.Input.SetValue("")
		m.err = nil
		if strings.HasPrefix(text, "/") {
			return m.runCommand(text)
		}
		return m.submitInput(text)

	case tea.KeyTab:
		if !m.running && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.running {
			m = m.cycleFocusPrev()
		}
		return m, nil
	}

	// When idle, pass keys to both the input (for typing) and the
	// viewport (for scrolling). Character keys only go to the input.
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m = m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan tabula.Event, 16)
	m.doneCh = make(chan error, 1)
	m.running = true
	m.stage = stageReplying
	if m.dataset != "" {
		m.stage = stageGenerating
	}
	m.Input.Blur()

	return m, tea.Batch(
		startTurn(m.backend, ctx, m.session, text, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
		m.spinner.Tick,
	)
}

// renderSession creates blocks from the stored transcript.
func (m Model) renderSession() Model {
	for _, msg := range m.session.Conversation.Messages {
		switch msg.Role {
		case tabula.RoleUser:
			m.blocks = append(m.blocks, NewUserMessageBlock(msg.Content, m.styles))
		case tabula.RoleSystem:
			m.blocks = append(m.blocks, NewNoticeBlock(msg.Content, m.styles))
		case tabula.RoleAssistant:
			if msg.Code != "" {
				failed := msg.Result != nil && strings.HasPrefix(msg.Code, "# Error:")
				m.blocks = append(m.blocks, NewCodeBlock(msg.Code, failed, m.theme, m.styles))
			}
			if msg.Result != nil {
				m.blocks = append(m.blocks, NewResultBlock(*msg.Result, m.styles))
			}
			m.blocks = append(m.blocks, NewAssistantTextBlock(msg.Content, m.theme))
		}
	}
	return m
}

func (m Model) refresh() Model {
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString(blockSeparator(m.blocks[i-1], block))
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

// blockSeparator keeps the code and result of one execution together and
// puts a blank line between everything else.
func blockSeparator(prev, curr MessageBlock) string {
	_, prevCode := prev.(*CodeBlock)
	_, currResult := curr.(*ResultBlock)
	if prevCode && currResult {
		return "\n"
	}
	return "\n\n"
}

// processEvent turns a progress event into blocks and advances the stage.
func (m Model) processEvent(evt tabula.Event) Model {
	switch e := evt.(type) {
	case tabula.EventCodeGenerated:
		m.blocks = append(m.blocks, NewCodeBlock(e.Code, e.Failed, m.theme, m.styles))
		m.stage = stageExecuting
	case tabula.EventExecuted:
		m.blocks = append(m.blocks, NewResultBlock(e.Result, m.styles))
		m.stage = stageReplying
	case tabula.EventReplied:
		m.blocks = append(m.blocks, NewAssistantTextBlock(e.Text, m.theme))
	}
	return m
}

// updateBlockFocus focuses the last collapsible block. Only the focused
// block responds to Tab; ShiftTab cycles to the previous one.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if _, ok := m.blocks[i].(collapsible); ok {
			m.blockFocus = i
			return m
		}
	}
	return m
}

// cycleFocusPrev moves blockFocus to the previous collapsible block, wrapping around.
func (m Model) cycleFocusPrev() Model {
	start := m.blockFocus - 1
	if start < 0 {
		start = len(m.blocks) - 1
	}
	for i := range len(m.blocks) {
		idx := (start - i + len(m.blocks)) % len(m.blocks)
		if _, ok := m.blocks[idx].(collapsible); ok {
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	if m.running {
		return m.spinner.View() + " " + m.styles.Muted.Render(m.stage+"...")
	}
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	dataset := "no dataset"
	if m.dataset != "" {
		dataset = "dataset: " + m.dataset
	}
	return m.styles.Accent.Render(dataset) + m.styles.Muted.Render("  Enter to send, Tab to fold, /help, Ctrl+C to quit")
}

func activeDataset(s *tabula.Session) string {
	if s == nil || s.Registry == nil {
		return ""
	}
	d, ok := s.Registry.ActiveDataset()
	if !ok {
		return ""
	}
	return d.Name
}

// startTurn runs the turn in a goroutine and signals completion.
func startTurn(backend Backend, ctx context.Context, session *tabula.Session, text string, eventCh chan<- tabula.Event, doneCh chan<- error) tea.Cmd {
	return func() tea.Msg {
		err := backend.Ask(ctx, session, text, func(e tabula.Event) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		})
		close(eventCh)
		doneCh <- err
		return nil
	}
}

// listenForEvent waits for the next event from the channel.
// When the channel closes, it reads the error from doneCh and returns TurnDoneMsg.
func listenForEvent(ch <-chan tabula.Event, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return TurnDoneMsg{Err: <-doneCh}
		}
		return TurnEventMsg{Event: evt}
	}
}
