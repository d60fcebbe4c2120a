package flame

import (
	"github.com/profviz/profviz/pkg/cpuprofile/flame/format"
	"github.com/profviz/profviz/pkg/cpuprofile/model"
)

// Render flattens merged columns into the JSON-friendly format, deduplicating
// names, files and categories through the string table.
func Render(m *model.Profile, cols []Column) *format.Data {
	strtab := format.NewStringTable()

	rendered := make([]format.RenderedColumn, len(cols))
	for x, col := range cols {
		rows := make([]format.RenderedRow, len(col.Rows))
		for y, row := range col.Rows {
			if row.Cell == nil {
				rows[y] = format.RenderedRow{Ref: row.Ref}
				continue
			}
			rows[y] = format.RenderedRow{
				Ref:           -1,
				Function:      strtab.Add(row.Cell.Location.CallFrame.FunctionName),
				File:          strtab.Add(displayPath(row.Cell.Location)),
				Category:      strtab.Add(row.Cell.Location.Category.String()),
				GraphID:       row.Cell.GraphID,
				SelfTime:      row.Cell.SelfTime,
				AggregateTime: row.Cell.AggregateTime,
			}
		}
		rendered[x] = format.RenderedColumn{X1: col.X1, X2: col.X2, Rows: rows}
	}

	return &format.Data{
		Columns: rendered,
		Strings: strtab.Table(),
		Meta: format.Meta{
			ValueUnit: strtab.Add("microseconds"),
			RootPath:  strtab.Add(m.RootPath),
			Duration:  m.Duration,
			Version:   1,
		},
	}
}

func displayPath(loc *model.Location) string {
	if loc.Source == nil {
		return loc.CallFrame.URL
	}
	if loc.Source.RelativePath != "" {
		return loc.Source.RelativePath
	}
	return loc.Source.Path
}
