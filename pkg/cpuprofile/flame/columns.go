// Package flame lays out a profile model's time-ordered samples as flame
// graph columns: one vertical stack of frames per interior sample, with
// horizontally adjacent identical stacks merged into single wide bands.
package flame

import (
	"github.com/profviz/profviz/pkg/cpuprofile/model"
)

// Cell is an authoritative frame band. Once adjacent columns merge, a cell
// accumulates the self and aggregate time of every column it represents.
// GraphID uniquely identifies the cell across the whole column set.
type Cell struct {
	Location      *model.Location
	SelfTime      int64
	AggregateTime int64
	GraphID       int
}

// Row is one stack depth of a column: either an owned cell, or a
// back-reference to the column holding the merged cell for this depth.
type Row struct {
	Cell *Cell
	// Ref is the referenced column index when Cell is nil.
	Ref int
}

// Column is one time slice of the layout. X1 and X2 are fractions of the
// total duration in [0, 1]. Rows run from the stack root at index 0 down to
// the sampled frame.
type Column struct {
	X1, X2 float64
	Rows   []Row
}

// BuildColumns produces one merged column per interior sample. The first and
// last samples are excluded: they lack, respectively, the preceding and
// following delta needed to form a time slice.
func BuildColumns(m *model.Profile) []Column {
	if len(m.Samples) < 3 {
		return nil
	}

	duration := m.Duration
	if duration <= 0 {
		for i := 1; i < len(m.Samples)-1; i++ {
			duration += m.TimeDeltas[i-1]
		}
	}

	cols := make([]Column, 0, len(m.Samples)-2)
	graphID := 0
	var offset int64
	for i := 1; i < len(m.Samples)-1; i++ {
		id := m.Samples[i]
		selfTime := m.TimeDeltas[i-1]

		rows := make([]Row, m.Depth(id))
		for y, cur := len(rows)-1, id; y >= 0; y, cur = y-1, m.Nodes[cur].Parent {
			cell := &Cell{
				Location: &m.Locations[m.Nodes[cur].LocationID],
				GraphID:  graphID,
			}
			graphID++
			if y == len(rows)-1 {
				// The sampled frame itself was executing.
				cell.SelfTime = selfTime
			} else {
				cell.AggregateTime = selfTime
			}
			rows[y] = Row{Cell: cell, Ref: -1}
		}

		col := Column{Rows: rows}
		if duration > 0 {
			col.X1 = float64(offset) / float64(duration)
			col.X2 = float64(offset+selfTime) / float64(duration)
		}
		cols = append(cols, col)
		offset += selfTime
	}

	mergeColumns(cols)
	return cols
}

// mergeColumns scans left to right and replaces each row that continues the
// previous column's band with a back-reference to the authoritative cell,
// folding its timing in. A discontinuity at some depth blocks merging at all
// deeper rows of that column: stacks are contiguous from the root down.
func mergeColumns(cols []Column) {
	for x := 1; x < len(cols); x++ {
		prev, cur := &cols[x-1], &cols[x]
		for y := 0; y < len(cur.Rows); y++ {
			if cur.Rows[y].Cell == nil {
				continue
			}
			if y >= len(prev.Rows) {
				break
			}
			target := x - 1
			if prev.Rows[y].Cell == nil {
				target = prev.Rows[y].Ref
			}
			auth := cols[target].Rows[y].Cell
			if auth.Location.ID != cur.Rows[y].Cell.Location.ID {
				break
			}
			auth.SelfTime += cur.Rows[y].Cell.SelfTime
			auth.AggregateTime += cur.Rows[y].Cell.AggregateTime
			cur.Rows[y] = Row{Cell: nil, Ref: target}
		}
	}
}

// resolve follows back-references at depth y starting from column x until it
// reaches the column owning the authoritative cell.
func resolve(cols []Column, x, y int) int {
	for cols[x].Rows[y].Cell == nil {
		x = cols[x].Rows[y].Ref
	}
	return x
}
