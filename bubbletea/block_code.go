package bubbletea

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/goldmark"
)

var _ MessageBlock = (*CodeBlock)(nil)

// CodeBlock renders generated analysis code with a collapsible toggle.
// A failed generation shows its diagnostic and cannot be collapsed.
type CodeBlock struct {
	code      string
	failed    bool
	collapsed bool
	theme     tabula.Theme
	styles    Styles
}

// NewCodeBlock creates a CodeBlock. Code blocks start collapsed.
func NewCodeBlock(code string, failed bool, theme tabula.Theme, styles Styles) *CodeBlock {
	return &CodeBlock{code: code, failed: failed, collapsed: !failed, theme: theme, styles: styles}
}

func (b *CodeBlock) collapsible() {}

func (b *CodeBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok && !b.failed {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *CodeBlock) View(width int) string {
	if b.failed {
		return b.styles.Error.Render("✗ Code generation failed") + "\n" +
			b.styles.Muted.Render(strings.TrimPrefix(b.code, "# "))
	}
	lines := strings.Count(b.code, "\n") + 1
	if b.collapsed {
		return b.styles.Code.Render(fmt.Sprintf("▶ Analysis code (%d lines)", lines))
	}
	return b.styles.Code.Render("▼ Analysis code") + "\n" + goldmark.RenderCode(b.code, "python", b.theme)
}
