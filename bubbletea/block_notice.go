package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*NoticeBlock)(nil)

// NoticeBlock renders a system message such as an upload or a dataset
// switch.
type NoticeBlock struct {
	text   string
	styles Styles
}

// NewNoticeBlock creates a NoticeBlock.
func NewNoticeBlock(text string, styles Styles) *NoticeBlock {
	return &NoticeBlock{text: text, styles: styles}
}

func (b *NoticeBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *NoticeBlock) View(width int) string {
	return lipgloss.NewStyle().Width(width).Render(b.styles.System.Render("• " + b.text))
}
