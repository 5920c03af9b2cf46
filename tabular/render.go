package tabular

import (
	"fmt"
	"strings"

	"github.com/fwojciec/tabula"
	"github.com/mattn/go-runewidth"
)

const nullDisplay = "NaN"

// Render lays a table out as aligned plain text, header first, showing at
// most maxRows rows. A maxRows of zero or less shows every row. Numeric
// columns are right-aligned. Alignment uses terminal display width so wide
// characters line up.
func Render(t *tabula.Table, maxRows int) string {
	if t == nil || t.NumCols() == 0 {
		return ""
	}
	rows := t.NumRows()
	shown := rows
	if maxRows > 0 && shown > maxRows {
		shown = maxRows
	}

	widths := make([]int, t.NumCols())
	for j, c := range t.Columns {
		widths[j] = runewidth.StringWidth(c.Name)
		for i := 0; i < shown; i++ {
			if w := runewidth.StringWidth(display(c.Cells[i])); w > widths[j] {
				widths[j] = w
			}
		}
	}

	var b strings.Builder
	line := func(cell func(j int) string) {
		parts := make([]string, t.NumCols())
		for j, c := range t.Columns {
			s := cell(j)
			if c.Type.Numeric() {
				parts[j] = runewidth.FillLeft(s, widths[j])
			} else {
				parts[j] = runewidth.FillRight(s, widths[j])
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		b.WriteByte('\n')
	}
	line(func(j int) string { return t.Columns[j].Name })
	for i := 0; i < shown; i++ {
		line(func(j int) string { return display(t.Columns[j].Cells[i]) })
	}
	if shown < rows {
		fmt.Fprintf(&b, "... %d more rows\n", rows-shown)
	}
	fmt.Fprintf(&b, "[%d rows x %d columns]\n", rows, t.NumCols())
	return b.String()
}

func display(c tabula.Cell) string {
	if c.Null {
		return nullDisplay
	}
	return strings.TrimSpace(c.Text)
}
