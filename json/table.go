package json

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/tabula"
)

// tableDTO is the JSON representation of a Table. Missing values are null.
type tableDTO struct {
	Columns []columnDTO `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

type columnDTO struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func marshalTable(t *tabula.Table) tableDTO {
	dto := tableDTO{
		Columns: make([]columnDTO, t.NumCols()),
		Rows:    make([][]*string, t.NumRows()),
	}
	for j, c := range t.Columns {
		dto.Columns[j] = columnDTO{Name: c.Name, Type: string(c.Type)}
	}
	for i := range dto.Rows {
		row := make([]*string, t.NumCols())
		for j, cell := range t.Row(i) {
			if !cell.Null {
				text := cell.Text
				row[j] = &text
			}
		}
		dto.Rows[i] = row
	}
	return dto
}

func unmarshalTable(dto tableDTO) (*tabula.Table, error) {
	t := &tabula.Table{Columns: make([]tabula.Column, len(dto.Columns))}
	for j, c := range dto.Columns {
		t.Columns[j] = tabula.Column{
			Name:  c.Name,
			Type:  tabula.ColumnType(c.Type),
			Cells: make([]tabula.Cell, len(dto.Rows)),
		}
	}
	for i, row := range dto.Rows {
		if len(row) != len(dto.Columns) {
			return nil, fmt.Errorf("row %d: %d cells for %d columns", i, len(row), len(dto.Columns))
		}
		for j, v := range row {
			if v == nil {
				t.Columns[j].Cells[i] = tabula.Cell{Null: true}
				continue
			}
			t.Columns[j].Cells[i] = tabula.Cell{Text: *v}
		}
	}
	return t, nil
}

// MarshalTable encodes a table in the format used inside transcripts. The
// Python harness emits derived tables in the same format.
func MarshalTable(t *tabula.Table) ([]byte, error) {
	return json.Marshal(marshalTable(t))
}

// UnmarshalTable decodes a table written by MarshalTable.
func UnmarshalTable(data []byte) (*tabula.Table, error) {
	var dto tableDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal table: %w", err)
	}
	return unmarshalTable(dto)
}
