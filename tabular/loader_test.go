package tabular_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_CSV(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "sales.csv", "region,units,price\nnorth,3,1.5\nsouth,,2\n")
	tbl, err := tabular.NewLoader().Load(path)
	require.NoError(t, err)

	require.Equal(t, 2, tbl.NumRows())
	require.Equal(t, 3, tbl.NumCols())
	assert.Equal(t, "region", tbl.Columns[0].Name)
	assert.Equal(t, tabula.TypeObject, tbl.Columns[0].Type)
	assert.Equal(t, tabula.TypeFloat64, tbl.Columns[1].Type)
	assert.Equal(t, 1, tbl.Columns[1].Missing())
	assert.Equal(t, tabula.TypeFloat64, tbl.Columns[2].Type)
}

func TestLoader_CSVSniffsDelimiter(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		content string
	}{
		{"semicolon", "a;b\n1;2\n"},
		{"tab", "a\tb\n1\t2\n"},
		{"bom", "\xEF\xBB\xBFa,b\n1,2\n"},
		{"pipe", "a|b\n1|2\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tbl, err := tabular.NewLoader().Load(writeFile(t, "data.csv", tc.content))
			require.NoError(t, err)
			require.Equal(t, 2, tbl.NumCols())
			assert.Equal(t, "a", tbl.Columns[0].Name)
			assert.Equal(t, tabula.TypeInt64, tbl.Columns[1].Type)
		})
	}
}

func TestLoader_CSVQuotedHeader(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		content string
		want    []string
	}{
		{"semicolons in quotes", "name,\"notes; a; b\"\nann,x\n", []string{"name", "notes; a; b"}},
		{"commas in quotes", "id;\"a, b, c\"\n1;x\n", []string{"id", "a, b, c"}},
		{"escaped quote", "name,\"say \"\"hi\"\"; bye\"\nann,x\n", []string{"name", "say \"hi\"; bye"}},
		{"newline in quotes", "name,\"first;\nsecond\"\nann,x\n", []string{"name", "first;\nsecond"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tbl, err := tabular.NewLoader().Load(writeFile(t, "data.csv", tc.content))
			require.NoError(t, err)
			require.Equal(t, 1, tbl.NumRows())
			names := make([]string, 0, tbl.NumCols())
			for _, c := range tbl.Columns {
				names = append(names, c.Name)
			}
			assert.Equal(t, tc.want, names)
		})
	}
}

func TestDelimiter(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		content string
		want    rune
	}{
		{"a,b\n1,2\n", ','},
		{"a;b;c\n", ';'},
		{"\xEF\xBB\xBFa\tb\n", '\t'},
		{"a|b\n1|2\n", '|'},
		{"name,\"x|y|z\"\n", ','},
		{"single\n1\n", ','},
	} {
		got, err := tabular.Delimiter(writeFile(t, "data.csv", tc.content))
		require.NoError(t, err)
		assert.Equal(t, string(tc.want), string(got), tc.content)
	}

	_, err := tabular.Delimiter(filepath.Join(t.TempDir(), "none.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_XLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"name", "age"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"ann", 31}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"bob", 42}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := tabular.NewLoader().Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.NumRows())
	age, ok := tbl.Column("age")
	require.True(t, ok)
	assert.Equal(t, tabula.TypeInt64, age.Type)
	assert.Equal(t, []float64{31, 42}, age.Floats())
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()
		_, err := tabular.NewLoader().Load(writeFile(t, "notes.txt", "a,b\n"))
		assert.ErrorIs(t, err, tabula.ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := tabular.NewLoader().Load(filepath.Join(t.TempDir(), "none.csv"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty csv", func(t *testing.T) {
		t.Parallel()
		_, err := tabular.NewLoader().Load(writeFile(t, "empty.csv", ""))
		assert.Error(t, err)
	})

	t.Run("corrupt workbook", func(t *testing.T) {
		t.Parallel()
		_, err := tabular.NewLoader().Load(writeFile(t, "bad.xlsx", "not a zip"))
		assert.Error(t, err)
	})
}

func TestSupported(t *testing.T) {
	t.Parallel()
	assert.True(t, tabular.Supported("a.CSV"))
	assert.True(t, tabular.Supported("b.xlsm"))
	assert.True(t, tabular.Supported("c.xls"))
	assert.False(t, tabular.Supported("d.json"))
}
