package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/goldmark"
)

var _ MessageBlock = (*AssistantTextBlock)(nil)

// AssistantTextBlock renders a reply with markdown formatting. Rendering
// is cached per width since the viewport redraws on every event.
type AssistantTextBlock struct {
	text    string
	theme   tabula.Theme
	byWidth map[int]string
}

// NewAssistantTextBlock creates an AssistantTextBlock for a reply.
func NewAssistantTextBlock(text string, theme tabula.Theme) *AssistantTextBlock {
	return &AssistantTextBlock{text: text, theme: theme, byWidth: make(map[int]string)}
}

func (b *AssistantTextBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AssistantTextBlock) View(width int) string {
	if width <= 0 {
		return ""
	}
	if cached, ok := b.byWidth[width]; ok {
		return cached
	}
	rendered := goldmark.Render(b.text, width, b.theme)
	b.byWidth[width] = rendered
	return rendered
}
