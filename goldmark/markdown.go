// Package goldmark renders the markdown of assistant replies to styled
// terminal output using goldmark for parsing and lipgloss for styling.
// GitHub tables are supported since replies often tabulate results.
package goldmark

import "github.com/fwojciec/tabula"

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks and
// tables are rendered without reflow.
func Render(source string, width int, theme tabula.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	return newRenderer(theme).render([]byte(source), width)
}

// RenderCode renders source as a fenced code block labeled with lang.
func RenderCode(source, lang string, theme tabula.Theme) string {
	if source == "" {
		return ""
	}
	return Render("```"+lang+"\n"+source+"\n```", 0, theme)
}
