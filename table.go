package tabula

import (
	"strconv"
	"strings"
)

// ColumnType is the inferred type of a column, named after the pandas
// dtypes the analysis code will see for the same data.
type ColumnType string

const (
	TypeInt64   ColumnType = "int64"
	TypeFloat64 ColumnType = "float64"
	TypeBool    ColumnType = "bool"
	TypeObject  ColumnType = "object"
)

// Numeric reports whether values of this type take part in numeric
// statistics. Booleans are not numeric.
func (t ColumnType) Numeric() bool {
	return t == TypeInt64 || t == TypeFloat64
}

// Cell is a single table value. Null cells hold missing values; Text keeps
// the original token so tables round-trip without reformatting.
type Cell struct {
	Text string
	Null bool
}

// Column is a named, typed column.
type Column struct {
	Name  string
	Type  ColumnType
	Cells []Cell
}

// Floats returns the non-null values of a numeric column, in row order.
// Non-numeric columns return nil.
func (c Column) Floats() []float64 {
	if !c.Type.Numeric() {
		return nil
	}
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Null {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell.Text), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Missing returns the number of null cells.
func (c Column) Missing() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Null {
			n++
		}
	}
	return n
}

// Table is an in-memory table with named, typed columns of equal length.
type Table struct {
	Columns []Column
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	if t == nil {
		return Column{}, false
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Row returns the cells of row i across all columns.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Cells[i]
	}
	return row
}

// NewTable builds a Table from a header and raw string records. Short
// records are padded with missing values and long records are cut to the
// header width. Column types are inferred from the values.
func NewTable(header []string, records [][]string) *Table {
	t := &Table{Columns: make([]Column, len(header))}
	for j, name := range header {
		cells := make([]Cell, len(records))
		for i, rec := range records {
			if j >= len(rec) {
				cells[i] = Cell{Null: true}
				continue
			}
			cells[i] = Cell{Text: rec[j], Null: IsNullToken(rec[j])}
		}
		t.Columns[j] = Column{
			Name:  strings.TrimSpace(name),
			Type:  InferColumnType(cells),
			Cells: cells,
		}
	}
	return t
}

// nullTokens are the strings pandas treats as missing by default.
var nullTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

// IsNullToken reports whether s denotes a missing value.
func IsNullToken(s string) bool {
	return nullTokens[strings.TrimSpace(s)]
}

// InferColumnType infers a column type with the pandas defaults: integer
// columns with missing values become float64, all-missing columns are
// float64, and booleans with missing values fall back to object.
func InferColumnType(cells []Cell) ColumnType {
	var (
		nonNull  int
		missing  bool
		allInt   = true
		allFloat = true
		allBool  = true
	)
	for _, c := range cells {
		if c.Null {
			missing = true
			continue
		}
		nonNull++
		s := strings.TrimSpace(c.Text)
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			switch s {
			case "True", "False", "true", "false", "TRUE", "FALSE":
			default:
				allBool = false
			}
		}
	}
	switch {
	case nonNull == 0:
		return TypeFloat64
	case allInt && !missing:
		return TypeInt64
	case allInt, allFloat:
		return TypeFloat64
	case allBool && !missing:
		return TypeBool
	default:
		return TypeObject
	}
}
