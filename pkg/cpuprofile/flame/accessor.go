package flame

import (
	"errors"
	"fmt"
)

// ErrMergedCell is returned when an accessor is constructed over a
// back-reference instead of an authoritative cell. This is a contract
// violation: accessors obtained through RootAccessors and Children never
// trip it.
var ErrMergedCell = errors.New("flame: accessor over a merged cell")

// LocationAccessor is a read-only cursor over the column grid, positioned on
// an authoritative cell.
type LocationAccessor struct {
	columns []Column
	X, Y    int
}

// NewLocationAccessor positions a cursor at column x, row y.
func NewLocationAccessor(cols []Column, x, y int) (LocationAccessor, error) {
	if cols[x].Rows[y].Cell == nil {
		return LocationAccessor{}, fmt.Errorf("%w (column %d, row %d)", ErrMergedCell, x, y)
	}
	return LocationAccessor{columns: cols, X: x, Y: y}, nil
}

// Cell returns the authoritative cell under the cursor.
func (a LocationAccessor) Cell() *Cell {
	return a.columns[a.X].Rows[a.Y].Cell
}

// RootAccessors enumerates the authoritative cells of the top stack row.
func RootAccessors(cols []Column) []LocationAccessor {
	var res []LocationAccessor
	for x := range cols {
		if len(cols[x].Rows) > 0 && cols[x].Rows[0].Cell != nil {
			res = append(res, LocationAccessor{columns: cols, X: x, Y: 0})
		}
	}
	return res
}

// Children enumerates the accessors one row deeper within the cursor's band:
// the cell directly below, plus the cells below every subsequent column whose
// row at this depth merges into the cursor's cell.
func (a LocationAccessor) Children() []LocationAccessor {
	var res []LocationAccessor

	if cell := a.deeperCell(a.X); cell != nil {
		res = append(res, *cell)
	}
	for x := a.X + 1; x < len(a.columns); x++ {
		rows := a.columns[x].Rows
		if a.Y >= len(rows) || rows[a.Y].Cell != nil || resolve(a.columns, x, a.Y) != a.X {
			break
		}
		if cell := a.deeperCell(x); cell != nil {
			res = append(res, *cell)
		}
	}
	return res
}

func (a LocationAccessor) deeperCell(x int) *LocationAccessor {
	rows := a.columns[x].Rows
	if a.Y+1 >= len(rows) || rows[a.Y+1].Cell == nil {
		return nil
	}
	return &LocationAccessor{columns: a.columns, X: x, Y: a.Y + 1}
}

// FilterColumns produces a fresh column list containing the accessors'
// columns and every column spanned by their merge chains. Surviving
// back-references are re-offset to the new indices in a single remapping
// pass; a back-reference whose authoritative column was dropped is
// materialized as a copy of the resolved cell.
func FilterColumns(cols []Column, accessors []LocationAccessor) []Column {
	keep := make([]bool, len(cols))
	for _, a := range accessors {
		keep[a.X] = true
		for x := a.X + 1; x < len(cols); x++ {
			rows := cols[x].Rows
			if a.Y >= len(rows) || rows[a.Y].Cell != nil || resolve(cols, x, a.Y) != a.X {
				break
			}
			keep[x] = true
		}
	}

	mapping := make([]int, len(cols))
	kept := 0
	for x := range cols {
		if keep[x] {
			mapping[x] = kept
			kept++
		} else {
			mapping[x] = -1
		}
	}

	res := make([]Column, 0, kept)
	for x := range cols {
		if !keep[x] {
			continue
		}
		rows := make([]Row, len(cols[x].Rows))
		for y, row := range cols[x].Rows {
			if row.Cell != nil {
				cell := *row.Cell
				rows[y] = Row{Cell: &cell, Ref: -1}
				continue
			}
			target := resolve(cols, x, y)
			if mapping[target] >= 0 {
				rows[y] = Row{Cell: nil, Ref: mapping[target]}
			} else {
				cell := *cols[target].Rows[y].Cell
				rows[y] = Row{Cell: &cell, Ref: -1}
			}
		}
		res = append(res, Column{X1: cols[x].X1, X2: cols[x].X2, Rows: rows})
	}
	return res
}
