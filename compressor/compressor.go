package compressor

import (
	"fmt"
	"sort"
	"strings"
)

type OriginalTable struct {
	entries  []int
	rowCount int
	colCount int
}

func NewOriginalTable(entries []int, colCount int) (*OriginalTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("enries is empty")
	}
	if colCount <= 0 {
		return nil, fmt.Errorf("colCount must be >=1")
	}
	if len(entries)%colCount != 0 {
		return nil, fmt.Errorf("entries length or column count are incorrect; entries length: %v, column count: %v", len(entries), colCount)
	}

	return &OriginalTable{
		entries:  entries,
		rowCount: len(entries) / colCount,
		colCount: colCount,
	}, nil
}

// Cell is a non-empty entry of a row.
type Cell struct {
	Col   int
	Value int
}

// ForbiddenValue fills the check slots that no row owns. Columns are never negative, so a lookup
// never matches such a slot.
const ForbiddenValue = -1

// RowDisplacementTable packs sparse rows into one shared entry array. Each row gets a displacement,
// and the entry for (row, col) lives at Entries[displacement+col]. Check[displacement+col] holds the
// column that owns the slot, so a lookup verifies the slot before trusting it.
//
// Two different rows never share a displacement. Identical rows do, because any lookup through
// either of them sees the same entries.
type RowDisplacementTable struct {
	EmptyValue      int
	Entries         []int
	Check           []int
	RowDisplacement []int

	used map[int]struct{}
	rows map[string]int
}

func NewRowDisplacementTable(emptyValue int) *RowDisplacementTable {
	return &RowDisplacementTable{
		EmptyValue: emptyValue,
		used:       map[int]struct{}{},
		rows:       map[string]int{},
	}
}

// Insert places a row into the shared array and returns its displacement.
func (tab *RowDisplacementTable) Insert(row []Cell) (int, error) {
	if len(row) == 0 {
		return 0, fmt.Errorf("a row must have at least one cell")
	}

	cells := make([]Cell, len(row))
	copy(cells, row)
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Col < cells[j].Col
	})
	for i, c := range cells {
		if c.Col < 0 {
			return 0, fmt.Errorf("a column must be >= 0: %v", c.Col)
		}
		if i > 0 && cells[i-1].Col == c.Col {
			return 0, fmt.Errorf("a row contains duplicate columns: %v", c.Col)
		}
	}

	key := rowKey(cells)
	if d, ok := tab.rows[key]; ok {
		return d, nil
	}

	minCol := cells[0].Col
	d := -minCol
	for ; ; d++ {
		if _, ok := tab.used[d]; ok {
			continue
		}
		if tab.fits(d, cells) {
			break
		}
	}

	maxIdx := d + cells[len(cells)-1].Col
	for len(tab.Entries) <= maxIdx {
		tab.Entries = append(tab.Entries, tab.EmptyValue)
		tab.Check = append(tab.Check, ForbiddenValue)
	}
	for _, c := range cells {
		tab.Entries[d+c.Col] = c.Value
		tab.Check[d+c.Col] = c.Col
	}
	tab.used[d] = struct{}{}
	tab.rows[key] = d

	return d, nil
}

func (tab *RowDisplacementTable) fits(d int, cells []Cell) bool {
	for _, c := range cells {
		idx := d + c.Col
		if idx < len(tab.Check) && tab.Check[idx] != ForbiddenValue {
			return false
		}
	}
	return true
}

// Lookup returns the entry for `col` in the row placed at `displacement`. The second return value
// is false when the row has no entry for the column.
func (tab *RowDisplacementTable) Lookup(displacement int, col int) (int, bool) {
	if col < 0 {
		return tab.EmptyValue, false
	}
	idx := displacement + col
	if idx < 0 || idx >= len(tab.Entries) || tab.Check[idx] != col {
		return tab.EmptyValue, false
	}
	return tab.Entries[idx], true
}

// Compress packs every row of a dense table. Cells equal to EmptyValue are dropped, and a row
// having no cells gets `emptyRow` as its displacement.
func (tab *RowDisplacementTable) Compress(orig *OriginalTable, emptyRow int) error {
	tab.RowDisplacement = make([]int, orig.rowCount)
	for row := 0; row < orig.rowCount; row++ {
		var cells []Cell
		for col := 0; col < orig.colCount; col++ {
			v := orig.entries[row*orig.colCount+col]
			if v == tab.EmptyValue {
				continue
			}
			cells = append(cells, Cell{
				Col:   col,
				Value: v,
			})
		}
		if len(cells) == 0 {
			tab.RowDisplacement[row] = emptyRow
			continue
		}
		d, err := tab.Insert(cells)
		if err != nil {
			return err
		}
		tab.RowDisplacement[row] = d
	}

	return nil
}

func rowKey(cells []Cell) string {
	var b strings.Builder
	for _, c := range cells {
		fmt.Fprintf(&b, "%v:%v,", c.Col, c.Value)
	}
	return b.String()
}
