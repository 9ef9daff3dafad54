package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html/atom"
)

const nested = `<table id="outer"><tr><td>a<table id="inner"><tr><td>x</td></tr></table></td><td>b</td></tr><tr><th>h</th></tr></table>`

func TestRowsSkipsNestedTables(t *testing.T) {
	doc := Parse(nested)
	tables := FindAll(doc, atom.Table)
	require.Len(t, tables, 2)

	assert.Len(t, Rows(tables[0]), 2)
	assert.Len(t, FindAll(tables[0], atom.Tr), 3)
	assert.Len(t, Rows(tables[1]), 1)
}

func TestCellsAreDirectChildren(t *testing.T) {
	doc := Parse(nested)
	rows := Rows(FindAll(doc, atom.Table)[0])

	assert.Len(t, Cells(rows[0], atom.Td), 2)
	assert.Empty(t, Cells(rows[0], atom.Th))
	assert.Len(t, Cells(rows[1], atom.Th), 1)
}

func TestLinesBreakOnElements(t *testing.T) {
	doc := Parse(`<div>Lập trình<br>Tiết: 1-3<span>Phòng: A1</span>
	<script>var x = 1;</script>  <b>  </b>GV: Nguyễn</div>`)
	div := FindAll(doc, atom.Div)[0]

	assert.Equal(t, []string{"Lập trình", "Tiết: 1-3", "Phòng: A1", "GV: Nguyễn"}, Lines(div))
	assert.Equal(t, "Lập trình Tiết: 1-3 Phòng: A1 GV: Nguyễn", Text(div))
}

func TestInnerMarkup(t *testing.T) {
	doc := Parse(`<p>a <i>b</i></p>`)
	p := FindAll(doc, atom.P)[0]

	assert.Equal(t, "a <i>b</i>", InnerMarkup(p))
}

func TestParseMalformed(t *testing.T) {
	doc := Parse(`<table><tr><td>unterminated`)
	require.NotNil(t, doc)
	assert.Len(t, FindAll(doc, atom.Td), 1)
}
