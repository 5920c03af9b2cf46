package bubbletea

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/tabula"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	UserMsg  lipgloss.Style
	System   lipgloss.Style
	Code     lipgloss.Style
	Output   lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Muted    lipgloss.Style
	Accent   lipgloss.Style
	UserBg   lipgloss.Style
	ResultBg lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t tabula.Theme) Styles {
	return Styles{
		UserMsg:  lipgloss.NewStyle().Foreground(ansiColor(t.UserMsg)).Bold(true),
		System:   lipgloss.NewStyle().Foreground(ansiColor(t.System)),
		Code:     lipgloss.NewStyle().Foreground(ansiColor(t.Code)),
		Output:   lipgloss.NewStyle().Foreground(ansiColor(t.Output)),
		Error:    lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Success:  lipgloss.NewStyle().Foreground(ansiColor(t.Success)),
		Muted:    lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Accent:   lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
		UserBg:   lipgloss.NewStyle().Background(ansiColor(t.UserMsg)).Foreground(lipgloss.Color("15")).PaddingLeft(1),
		ResultBg: lipgloss.NewStyle().PaddingLeft(1).BorderLeft(true).BorderStyle(lipgloss.NormalBorder()).BorderForeground(ansiColor(t.Muted)),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
