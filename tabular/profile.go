package tabular

import (
	"fmt"
	"strings"

	"github.com/fwojciec/tabula"
	"github.com/montanaflynn/stats"
)

// Profile describes a table for a language model: its shape, each column's
// name and type, mean/min/max of numeric columns, and the missing-value
// count of every column that has any. The same table always yields the
// same text.
func Profile(t *tabula.Table) string {
	if t == nil {
		return "No data loaded"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Shape: %d rows, %d columns\n", t.NumRows(), t.NumCols())

	b.WriteString("Columns:\n")
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.Type)
	}

	var numeric []tabula.Column
	for _, c := range t.Columns {
		if c.Type.Numeric() {
			numeric = append(numeric, c)
		}
	}
	if len(numeric) > 0 {
		b.WriteString("\nNumeric column statistics:\n")
		for _, c := range numeric {
			data := stats.Float64Data(c.Floats())
			mean, err1 := data.Mean()
			lo, err2 := data.Min()
			hi, err3 := data.Max()
			if err1 != nil || err2 != nil || err3 != nil {
				fmt.Fprintf(&b, "- %s: mean=nan, min=nan, max=nan\n", c.Name)
				continue
			}
			fmt.Fprintf(&b, "- %s: mean=%.2f, min=%.2f, max=%.2f\n", c.Name, mean, lo, hi)
		}
	}

	rows := t.NumRows()
	var missing strings.Builder
	for _, c := range t.Columns {
		n := c.Missing()
		if n == 0 {
			continue
		}
		fmt.Fprintf(&missing, "- %s: %d missing (%.1f%%)\n", c.Name, n, float64(n)/float64(rows)*100)
	}
	if missing.Len() > 0 {
		b.WriteString("\nMissing values:\n")
		b.WriteString(missing.String())
	}
	return b.String()
}
