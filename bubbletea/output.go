package bubbletea

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// truncationPrefix starts the notice the executor appends when it drops
// output past its byte limit.
const truncationPrefix = "[output truncated:"

// ScriptOutput is interpreter stdout prepared for the terminal: escape
// sequences and control characters removed, progress-bar redraws
// collapsed to their final state.
type ScriptOutput struct {
	Lines []string
	// Notice is the executor's truncation notice, if any.
	Notice string
}

// CleanOutput prepares raw script output for display. Trailing blank lines
// are dropped.
func CleanOutput(s string) ScriptOutput {
	var out ScriptOutput
	for _, line := range splitTerminalLines(ansi.Strip(s)) {
		if strings.HasPrefix(line, truncationPrefix) {
			out.Notice = line
			continue
		}
		out.Lines = append(out.Lines, line)
	}
	for len(out.Lines) > 0 && strings.TrimSpace(out.Lines[len(out.Lines)-1]) == "" {
		out.Lines = out.Lines[:len(out.Lines)-1]
	}
	return out
}

// Empty reports whether there is nothing to show.
func (o ScriptOutput) Empty() bool {
	return len(o.Lines) == 0 && o.Notice == ""
}

// First returns the first non-blank line.
func (o ScriptOutput) First() string {
	for _, l := range o.Lines {
		if strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}

// Tail joins the last n lines, marking the cut with an ellipsis line.
func (o ScriptOutput) Tail(n int) string {
	if len(o.Lines) <= n {
		return strings.Join(o.Lines, "\n")
	}
	return "…\n" + strings.Join(o.Lines[len(o.Lines)-n:], "\n")
}

// String returns every line followed by the notice, newline terminated.
func (o ScriptOutput) String() string {
	if o.Empty() {
		return ""
	}
	lines := o.Lines
	if o.Notice != "" {
		lines = append(lines[:len(lines):len(lines)], o.Notice)
	}
	return strings.Join(lines, "\n") + "\n"
}

// splitTerminalLines replays s the way a terminal would draw it. A carriage
// return moves back to the start of the line and later text overwrites
// what is there; a backspace moves back one cell. Tabs are kept and other
// control characters are dropped.
func splitTerminalLines(s string) []string {
	var (
		lines []string
		line  []rune
		col   int
	)
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == '\r' && i+1 < len(runes) && runes[i+1] == '\n':
			// CRLF ends the line like LF.
		case r == '\n':
			lines = append(lines, string(line))
			line, col = line[:0], 0
		case r == '\r':
			col = 0
		case r == '\b':
			if col > 0 {
				col--
			}
		case r != '\t' && (r < 0x20 || r == 0x7F):
		default:
			if col < len(line) {
				line[col] = r
			} else {
				line = append(line, r)
			}
			col++
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}
