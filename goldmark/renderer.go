package goldmark

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/tabula"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

type terminalRenderer struct {
	parser    parser.Parser
	bold      lipgloss.Style
	italic    lipgloss.Style
	accent    lipgloss.Style
	muted     lipgloss.Style
	code      lipgloss.Style
	underline lipgloss.Style
}

func newRenderer(theme tabula.Theme) *terminalRenderer {
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	return &terminalRenderer{
		parser:    md.Parser(),
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		accent:    lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		code:      lipgloss.NewStyle().Foreground(ansiColor(theme.Code)),
		underline: lipgloss.NewStyle().Underline(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *terminalRenderer) render(source []byte, width int) string {
	doc := r.parser.Parse(text.NewReader(source))
	var buf bytes.Buffer
	r.walkBlock(doc, source, width, &buf)
	return strings.TrimRight(buf.String(), "\n")
}

func (r *terminalRenderer) walkBlock(node ast.Node, source []byte, width int, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.renderBlock(c, source, width, buf)
	}
}

// blockGap separates a block from its next sibling with a blank line.
func blockGap(n ast.Node, buf *bytes.Buffer) {
	if n.NextSibling() != nil {
		buf.WriteString("\n")
	}
}

func (r *terminalRenderer) renderBlock(node ast.Node, source []byte, width int, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		buf.WriteString(lipgloss.NewStyle().Width(width).Render(r.collectInline(n, source)))
		buf.WriteString("\n")
		blockGap(n, buf)

	case *ast.Heading:
		styled := r.accent.Render(r.collectInline(n, source))
		buf.WriteString(lipgloss.NewStyle().Width(width).Render(styled))
		buf.WriteString("\n")
		blockGap(n, buf)

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(source)); lang != "" {
			buf.WriteString(r.muted.Render(lang))
			buf.WriteString("\n")
		}
		r.writeCodeLines(n.Lines(), source, buf)
		blockGap(n, buf)

	case *ast.CodeBlock:
		r.writeCodeLines(n.Lines(), source, buf)
		blockGap(n, buf)

	case *ast.List:
		r.renderList(n, source, width, buf, 0)
		blockGap(n, buf)

	case *ast.Blockquote:
		var inner bytes.Buffer
		r.walkBlock(n, source, max(width-2, 10), &inner)
		gutter := r.muted.Render("┃") + " "
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			buf.WriteString(gutter + line + "\n")
		}
		blockGap(n, buf)

	case *east.Table:
		r.renderTable(n, source, buf)
		blockGap(n, buf)

	case *ast.ThematicBreak:
		buf.WriteString(r.muted.Render(strings.Repeat("─", min(width, 40))))
		buf.WriteString("\n")
		blockGap(n, buf)

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}

	default:
		r.walkBlock(node, source, width, buf)
	}
}

// writeCodeLines writes code behind a gutter at full width.
func (r *terminalRenderer) writeCodeLines(lines *text.Segments, source []byte, buf *bytes.Buffer) {
	gutter := r.muted.Render("│") + " "
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(source)), "\n")
		buf.WriteString(gutter + r.code.Render(line))
		buf.WriteString("\n")
	}
}

// renderTable lays a GitHub table out in aligned columns. Cell widths are
// measured after styling so inline emphasis does not skew alignment.
func (r *terminalRenderer) renderTable(table *east.Table, source []byte, buf *bytes.Buffer) {
	var rows [][]string
	header := -1
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			content := r.collectInline(cell, source)
			if _, ok := row.(*east.TableHeader); ok {
				content = r.accent.Render(content)
			}
			cells = append(cells, content)
		}
		if _, ok := row.(*east.TableHeader); ok {
			header = len(rows)
		}
		rows = append(rows, cells)
	}

	widths := make([]int, len(table.Alignments))
	for _, cells := range rows {
		for j, c := range cells {
			if j < len(widths) {
				widths[j] = max(widths[j], lipgloss.Width(c))
			}
		}
	}

	for i, cells := range rows {
		parts := make([]string, len(widths))
		for j := range widths {
			var c string
			if j < len(cells) {
				c = cells[j]
			}
			parts[j] = pad(c, widths[j], table.Alignments[j])
		}
		buf.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		buf.WriteString("\n")
		if i == header {
			rules := make([]string, len(widths))
			for j, w := range widths {
				rules[j] = strings.Repeat("─", w)
			}
			buf.WriteString(r.muted.Render(strings.Join(rules, "  ")))
			buf.WriteString("\n")
		}
	}
}

func pad(s string, width int, align east.Alignment) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case east.AlignRight:
		return strings.Repeat(" ", gap) + s
	case east.AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}

func (r *terminalRenderer) renderList(node *ast.List, source []byte, width int, buf *bytes.Buffer, depth int) {
	n := node.Start
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		indent := strings.Repeat("  ", depth)
		marker := "• "
		if node.IsOrdered() {
			marker = fmt.Sprintf("%d. ", n)
			n++
		}

		var content bytes.Buffer
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				content.WriteString(r.collectInline(in, source))
			case *ast.List:
				if content.Len() > 0 {
					r.writeListItem(buf, indent, marker, content.String(), width)
					content.Reset()
				}
				r.renderList(in, source, width, buf, depth+1)
				marker = strings.Repeat(" ", lipgloss.Width(marker))
			default:
				r.renderBlock(ic, source, width, &content)
			}
		}
		if content.Len() > 0 {
			r.writeListItem(buf, indent, marker, content.String(), width)
		}
	}
}

// writeListItem wraps content and indents continuation lines under the
// marker.
func (r *terminalRenderer) writeListItem(buf *bytes.Buffer, indent, marker, content string, width int) {
	prefix := indent + marker
	prefixWidth := lipgloss.Width(prefix)
	wrapped := lipgloss.NewStyle().Width(max(width-prefixWidth, 10)).Render(content)
	continuation := strings.Repeat(" ", prefixWidth)
	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			buf.WriteString(prefix + line + "\n")
			continue
		}
		buf.WriteString(continuation + line + "\n")
	}
}

func (r *terminalRenderer) collectInline(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.renderInline(c, source, &buf)
	}
	return buf.String()
}

func (r *terminalRenderer) renderInline(node ast.Node, source []byte, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			buf.WriteByte('\n')
		case n.SoftLineBreak():
			buf.WriteByte(' ')
		}

	case *ast.String:
		buf.Write(n.Value)

	case *ast.Emphasis:
		inner := r.collectInline(n, source)
		if n.Level == 1 {
			buf.WriteString(r.italic.Render(inner))
			break
		}
		buf.WriteString(r.bold.Render(inner))

	case *east.Strikethrough:
		buf.WriteString(r.muted.Render(r.collectInline(n, source)))

	case *ast.CodeSpan:
		buf.WriteString(r.code.Render(r.collectInline(n, source)))

	case *ast.Link:
		buf.WriteString(r.underline.Render(r.collectInline(n, source)))
		buf.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))

	case *ast.AutoLink:
		buf.WriteString(r.underline.Render(string(n.URL(source))))

	case *ast.Image:
		buf.WriteString(r.underline.Render(r.collectInline(n, source)))
		buf.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.renderInline(c, source, buf)
		}
	}
}
