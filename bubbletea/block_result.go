package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/tabular"
)

var _ MessageBlock = (*ResultBlock)(nil)

const (
	maxPreviewLen  = 60
	maxTableRows   = 20
	maxOutputLines = 200
)

// ResultBlock renders the outcome of running analysis code: printed
// output, the chart location or derived table, and the error. Failed
// results are always expanded.
type ResultBlock struct {
	result    tabula.ExecutionResult
	collapsed bool
	styles    Styles
}

// NewResultBlock creates an expanded ResultBlock.
func NewResultBlock(result tabula.ExecutionResult, styles Styles) *ResultBlock {
	return &ResultBlock{result: result, styles: styles}
}

func (b *ResultBlock) collapsible() {}

func (b *ResultBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed && !b.result.Failed()
	}
	return b, nil
}

func (b *ResultBlock) View(width int) string {
	icon := b.styles.Success.Render("✓")
	if b.result.Failed() {
		icon = b.styles.Error.Render("✗")
	}
	output := CleanOutput(b.result.Output)

	if b.collapsed {
		header := b.styles.Muted.Render("▶ Result") + " " + icon
		if preview := output.First(); preview != "" {
			runes := []rune(preview)
			if len(runes) > maxPreviewLen {
				preview = string(runes[:maxPreviewLen]) + "…"
			}
			header += "  " + preview
		}
		return b.styles.ResultBg.Width(width).Render(header)
	}

	parts := []string{b.styles.Muted.Render("▼ Result") + " " + icon}
	if len(output.Lines) > 0 {
		parts = append(parts, b.styles.Output.Render(output.Tail(maxOutputLines)))
	}
	if output.Notice != "" {
		parts = append(parts, b.styles.Muted.Render(output.Notice))
	}
	switch a := b.result.Artifact.(type) {
	case tabula.Figure:
		parts = append(parts, b.styles.Success.Render("Chart saved to "+a.Path))
	case tabula.TableArtifact:
		parts = append(parts, strings.TrimRight(tabular.Render(a.Table, maxTableRows), "\n"))
	}
	if b.result.Failed() {
		parts = append(parts, b.styles.Error.Render(b.result.Error))
	}
	return b.styles.ResultBg.Width(width).Render(strings.Join(parts, "\n"))
}
