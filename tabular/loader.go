// Package tabular reads dataset files into tabula tables and describes them.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/fwojciec/tabula"
	"github.com/xuri/excelize/v2"
)

var _ tabula.TableLoader = (*Loader)(nil)

// Extensions lists the file extensions Loader can read.
var Extensions = []string{".csv", ".xlsx", ".xlsm", ".xls"}

// Supported reports whether name has a readable extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Loader reads CSV and Excel files. The first row is the header; only the
// first sheet of a workbook is read.
type Loader struct{}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the file at path into a Table.
func (l *Loader) Load(path string) (*tabula.Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	case ".xls":
		rows, err = readXLS(path)
	default:
		return nil, fmt.Errorf("tabular: %s: %w", filepath.Base(path), tabula.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("tabular: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tabular: %s: no header row", filepath.Base(path))
	}
	return tabula.NewTable(rows[0], rows[1:]), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sniffSize bounds how much of a CSV file is read to pick its delimiter.
const sniffSize = 4096

// Delimiter reports the field separator Load uses for the CSV file at
// path, so other readers of the same file split it the same way.
func Delimiter(path string) (rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("tabular: open csv: %w", err)
	}
	defer f.Close()

	_, comma, err := csvHead(f)
	if err != nil {
		return 0, fmt.Errorf("tabular: %w", err)
	}
	return comma, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	br, comma, err := csvHead(f)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.Comma = comma
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// csvHead skips a UTF-8 byte order mark and sniffs the delimiter without
// consuming anything else from r.
func csvHead(r io.Reader) (*bufio.Reader, rune, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	first, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, 0, fmt.Errorf("read csv: %w", err)
	}
	return br, sniffDelimiter(first), nil
}

// delimiters are the separators sniffDelimiter chooses from, in tie-break
// order.
var delimiters = []byte{',', ';', '\t', '|'}

// sniffDelimiter picks the most frequent separator in the header record.
// Separators inside double-quoted fields do not count. Ties and headers
// without any separator fall back to comma.
func sniffDelimiter(sample []byte) rune {
	counts := make([]int, len(delimiters))
	quoted := false
scan:
	for _, b := range sample {
		switch {
		case b == '"':
			// An escaped quote toggles twice and leaves the state unchanged.
			quoted = !quoted
		case quoted:
		case b == '\n':
			break scan
		default:
			if i := bytes.IndexByte(delimiters, b); i >= 0 {
				counts[i]++
			}
		}
	}
	best := 0
	for i := range counts {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return rune(delimiters[best])
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found in workbook")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readXLS(path string) ([][]string, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("no sheets found in workbook")
	}
	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	// Trailing blank rows are formatting, not data.
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows, nil
}
