package python

import "strings"

// TailLines returns the last maxLines lines of s, cut further to at most
// maxBytes bytes from the end. It is used to quote interpreter diagnostics,
// where the final lines name the fault.
func TailLines(s string, maxLines, maxBytes int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	out := strings.Join(lines, "\n")
	if len(out) > maxBytes {
		out = out[len(out)-maxBytes:]
		// Drop the partial first line unless it is all we have.
		if i := strings.IndexByte(out, '\n'); i >= 0 && i < len(out)-1 {
			out = out[i+1:]
		}
	}
	return out
}
