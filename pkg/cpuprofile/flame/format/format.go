// Package format defines the compact JSON layout flame columns are rendered
// into: cell rows with indices into a deduplicating string table.
package format

// StringIndex is an index into Data.Strings.
type StringIndex = int

type Meta struct {
	ValueUnit StringIndex `json:"valueUnit"`
	RootPath  StringIndex `json:"rootPath"`
	Duration  int64       `json:"duration"`
	Version   int         `json:"version"`
}

type Data struct {
	Columns []RenderedColumn `json:"columns"`
	Strings []string         `json:"stringTable"`
	Meta    Meta             `json:"meta"`
}

type RenderedColumn struct {
	X1   float64       `json:"x1"`
	X2   float64       `json:"x2"`
	Rows []RenderedRow `json:"rows"`
}

// RenderedRow is a tagged cell: when Ref is non-negative the row merges into
// the column at that index and all other fields are zero. Ref is -1 for
// authoritative cells.
type RenderedRow struct {
	Ref           int         `json:"ref"`
	Function      StringIndex `json:"function,omitempty"`
	File          StringIndex `json:"file,omitempty"`
	Category      StringIndex `json:"category,omitempty"`
	GraphID       int         `json:"graphId,omitempty"`
	SelfTime      int64       `json:"selfTime,omitempty"`
	AggregateTime int64       `json:"aggregateTime,omitempty"`
}

// StringTable deduplicates strings for the rendered output.
type StringTable struct {
	s2i map[string]int
	i2s []string
}

func NewStringTable() *StringTable {
	return &StringTable{
		s2i: make(map[string]int, 1000),
		i2s: make([]string, 0, 1000),
	}
}

func (t *StringTable) Add(str string) int {
	res, ok := t.s2i[str]
	if ok {
		return res
	}

	res = len(t.s2i)
	t.s2i[str] = res
	t.i2s = append(t.i2s, str)
	return res
}

func (t *StringTable) Table() []string {
	return t.i2s
}
