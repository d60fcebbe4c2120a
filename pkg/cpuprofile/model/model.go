// Package model normalizes a raw capture into the computation model the
// derived views are built from: deduplicated locations, a dense 0-based array
// of computed call-tree nodes with self and aggregate times, and per-location
// rollups.
package model

import (
	"github.com/profviz/profviz/pkg/cpuprofile"
)

// Category classifies a location by where its code lives.
type Category int8

const (
	CategorySystem Category = iota
	CategoryUser
	CategoryModule
)

func (c Category) String() string {
	switch c {
	case CategorySystem:
		return "system"
	case CategoryUser:
		return "user"
	case CategoryModule:
		return "module"
	default:
		return "unknown"
	}
}

// SourceRef is the best source file match for a location. Positions are
// 1-based. RelativePath is only set when the profile carries a root path and
// the file lives under it.
type SourceRef struct {
	Path            string
	RelativePath    string
	SourceReference int64
	LineNumber      int64
	ColumnNumber    int64
}

// Location is the deduplicated identity of a call site. Self, aggregate and
// tick totals sum the contributions of every node sharing the location, so
// they are call-path-insensitive.
type Location struct {
	ID            int
	SelfTime      int64
	AggregateTime int64
	Ticks         int64
	Category      Category
	CallFrame     cpuprofile.CallFrame
	Source        *SourceRef
}

// ComputedNode is one occurrence of a location within a specific call stack.
// Parent is -1 for roots. AggregateTime is self time plus, recursively, all
// descendants' self time.
type ComputedNode struct {
	ID            int
	SelfTime      int64
	AggregateTime int64
	Ticks         int64
	Children      []int
	Parent        int
	LocationID    int
}

// Profile is the built model. Samples hold 0-based node indices;
// TimeDeltas[i] is the elapsed time attributable to Samples[i+1], so
// len(Samples) == len(TimeDeltas)+1 whenever either is non-empty. A capture
// with no samples yields empty Nodes and Locations but keeps Duration and
// RootPath. The model is immutable once built.
type Profile struct {
	Nodes      []ComputedNode
	Locations  []Location
	Samples    []int
	TimeDeltas []int64
	RootPath   string
	Duration   int64
}

// Node returns the computed node at index id.
func (p *Profile) Node(id int) *ComputedNode {
	return &p.Nodes[id]
}

// Location returns the location at index id.
func (p *Profile) Location(id int) *Location {
	return &p.Locations[id]
}

// Depth is the number of frames on the stack ending at node id, the root
// frame included.
func (p *Profile) Depth(id int) int {
	depth := 0
	for cur := id; cur >= 0; cur = p.Nodes[cur].Parent {
		depth++
	}
	return depth
}
