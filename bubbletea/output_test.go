package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/tabula"
	bt "github.com/fwojciec/tabula/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanOutput(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		in   string
		want []string
	}{
		{"plain lines", "rows 120\ncols 4\n", []string{"rows 120", "cols 4"}},
		{"colored describe", "\x1b[1mcount\x1b[22m\t120\n", []string{"count\t120"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"tqdm redraw", " 10%|#   |\r 60%|###   |\r100%|######|\n", []string{"100%|######|"}},
		{"short overwrite keeps the tail", "loading 1/3\rdone\n", []string{"doneing 1/3"}},
		{"backspace spinner", "working |\b/\b-\b\\\n", []string{"working \\"}},
		{"bell and title", "\x1b]0;jupyter\x07\aready\n", []string{"ready"}},
		{"trailing blank lines", "total 42\n\n\n", []string{"total 42"}},
		{"no final newline", "partial", []string{"partial"}},
		{"only escapes", "\x1b[31m\x1b[0m", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := bt.CleanOutput(tc.in)
			assert.Equal(t, tc.want, got.Lines)
			assert.Empty(t, got.Notice)
		})
	}
}

func TestCleanOutput_TruncationNotice(t *testing.T) {
	t.Parallel()

	got := bt.CleanOutput("xxxx\n[output truncated: 7 of 11 bytes not shown]\n")
	assert.Equal(t, []string{"xxxx"}, got.Lines)
	assert.Equal(t, "[output truncated: 7 of 11 bytes not shown]", got.Notice)
	assert.Equal(t, "xxxx\n[output truncated: 7 of 11 bytes not shown]\n", got.String())
	assert.False(t, got.Empty())
}

func TestScriptOutput(t *testing.T) {
	t.Parallel()

	t.Run("first skips blank lines", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "mean 15.0", bt.CleanOutput("\n  \nmean 15.0\nmedian 15.0\n").First())
	})

	t.Run("tail marks the cut", func(t *testing.T) {
		t.Parallel()
		out := bt.CleanOutput("1\n2\n3\n4\n")
		assert.Equal(t, "…\n3\n4", out.Tail(2))
		assert.Equal(t, "1\n2\n3\n4", out.Tail(4))
	})

	t.Run("string of nothing is empty", func(t *testing.T) {
		t.Parallel()
		out := bt.CleanOutput("\n\n")
		assert.True(t, out.Empty())
		assert.Equal(t, "", out.String())
	})

	t.Run("large colored output", func(t *testing.T) {
		t.Parallel()
		line := "\x1b[32m" + strings.Repeat("x", 500) + "\x1b[0m\n"
		out := bt.CleanOutput(strings.Repeat(line, 500))
		require.Len(t, out.Lines, 500)
		assert.NotContains(t, out.String(), "\x1b")
	})
}

func TestResultBlock_TruncatedOutput(t *testing.T) {
	t.Parallel()

	view := plain(bt.NewResultBlock(tabula.ExecutionResult{
		Output: strings.Repeat("row\n", 300) + "[output truncated: 900 of 2100 bytes not shown]\n",
	}, bt.NewStyles(tabula.DefaultTheme())).View(80))
	assert.Contains(t, view, "…")
	assert.Contains(t, view, "[output truncated: 900 of 2100 bytes not shown]")
}
