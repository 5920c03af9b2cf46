package tabular_test

import (
	"testing"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/tabular"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tbl := tabula.NewTable(
		[]string{"name", "n"},
		[][]string{{"ann", "1"}, {"東京", "12"}, {"bo", ""}},
	)

	got := tabular.Render(tbl, 0)
	assert.Equal(t, "name    n\n"+
		"ann     1\n"+
		"東京   12\n"+
		"bo    NaN\n"+
		"[3 rows x 2 columns]\n", got)
}

func TestRender_MaxRows(t *testing.T) {
	t.Parallel()

	tbl := tabula.NewTable([]string{"a"}, [][]string{{"x"}, {"y"}, {"z"}})
	assert.Equal(t, "a\nx\n... 2 more rows\n[3 rows x 1 columns]\n", tabular.Render(tbl, 1))
}

func TestRender_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, tabular.Render(nil, 10))
}
