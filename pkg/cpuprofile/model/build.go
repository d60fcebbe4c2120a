package model

import (
	"fmt"
	"strings"

	"github.com/profviz/profviz/pkg/cpuprofile"
	"github.com/profviz/profviz/pkg/pathutil"
)

const anonymousFunction = "(anonymous)"

// DefaultDependencyMarkers mark directories holding third-party code. The
// check is a plain substring match on the frame URL.
var DefaultDependencyMarkers = []string{"node_modules"}

// Options tune model construction.
type Options struct {
	// RootPath overrides the root path recorded in the profile metadata.
	RootPath string
	// DependencyMarkers used for categorization. Defaults to
	// DefaultDependencyMarkers when empty.
	DependencyMarkers []string
}

// Build converts a raw capture into a Profile. A capture without samples or
// time deltas is not an error: it yields an empty model that keeps duration
// and root path. Structural inconsistencies in the raw record (children or
// samples referencing unknown node ids, mismatched delta count) are reported
// as errors before any model is returned.
func Build(raw *cpuprofile.Profile, opts *Options) (*Profile, error) {
	if opts == nil {
		opts = &Options{}
	}
	rootPath := opts.RootPath
	if rootPath == "" {
		rootPath = raw.RootPath()
	}

	res := &Profile{
		RootPath: rootPath,
		Duration: raw.Duration(),
	}
	if len(raw.Samples) == 0 || len(raw.TimeDeltas) == 0 {
		return res, nil
	}

	markers := opts.DependencyMarkers
	if len(markers) == 0 {
		markers = DefaultDependencyMarkers
	}

	b := &builder{
		index:    make(map[locationKey]int),
		markers:  markers,
		rootPath: rootPath,
	}
	if raw.Metadata != nil {
		for _, loc := range raw.Metadata.Locations {
			b.locationID(loc.CallFrame, loc.Locations)
		}
	}
	precomputed := len(b.locations)

	// Re-index raw 1-based node ids to dense 0-based ones.
	index := make(map[int64]int, len(raw.Nodes))
	for i := range raw.Nodes {
		index[raw.Nodes[i].ID] = i
	}

	nodes := make([]ComputedNode, len(raw.Nodes))
	for i := range raw.Nodes {
		rn := &raw.Nodes[i]

		locID := -1
		if rn.LocationID != nil && *rn.LocationID >= 0 && *rn.LocationID < precomputed {
			locID = *rn.LocationID
		} else {
			locID = b.locationID(rn.CallFrame, sourceCandidates(rn.CallFrame))
		}

		children := make([]int, 0, len(rn.Children))
		for _, c := range rn.Children {
			ci, ok := index[c]
			if !ok {
				return nil, fmt.Errorf("model: node %d references unknown child %d", rn.ID, c)
			}
			children = append(children, ci)
		}

		nodes[i] = ComputedNode{
			ID:         i,
			Ticks:      rn.HitCount,
			Children:   children,
			Parent:     -1,
			LocationID: locID,
		}

		b.addPositionTicks(rn, precomputed)
	}

	// Parent links are absent from the raw record, back-fill them.
	for i := range nodes {
		for _, c := range nodes[i].Children {
			nodes[c].Parent = i
		}
	}

	samples := make([]int, len(raw.Samples))
	for i, s := range raw.Samples {
		si, ok := index[s]
		if !ok {
			return nil, fmt.Errorf("model: sample %d references unknown node %d", i, s)
		}
		samples[i] = si
	}

	deltas, err := normalizeDeltas(raw.TimeDeltas, len(samples))
	if err != nil {
		return nil, err
	}

	// Each delta is attributed to the sample that follows it. The first
	// sample has no preceding delta and contributes nothing on its own.
	for i := 1; i < len(samples); i++ {
		nodes[samples[i]].SelfTime += deltas[i-1]
	}

	computeAggregateTimes(nodes)

	for i := range nodes {
		loc := &b.locations[nodes[i].LocationID]
		loc.SelfTime += nodes[i].SelfTime
		loc.AggregateTime += nodes[i].AggregateTime
		loc.Ticks += nodes[i].Ticks
	}

	res.Nodes = nodes
	res.Locations = b.locations
	res.Samples = samples
	res.TimeDeltas = deltas
	return res, nil
}

// normalizeDeltas trims the delta sequence to one entry fewer than the sample
// count. Captures store either that already, or one delta per sample with the
// leading delta measured from capture start, which no sample accounts for.
func normalizeDeltas(deltas []int64, samples int) ([]int64, error) {
	switch len(deltas) {
	case samples:
		deltas = deltas[1:]
	case samples - 1:
	default:
		return nil, fmt.Errorf("model: %d time deltas for %d samples", len(deltas), samples)
	}
	res := make([]int64, len(deltas))
	copy(res, deltas)
	return res, nil
}

// computeAggregateTimes fills AggregateTime for every node with an iterative
// post-order walk. Each node is summed at most once, however deep the stack.
func computeAggregateTimes(nodes []ComputedNode) {
	done := make([]bool, len(nodes))
	stack := make([]int, 0, 64)

	for i := range nodes {
		if done[i] {
			continue
		}
		stack = append(stack, i)
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			if done[id] {
				stack = stack[:len(stack)-1]
				continue
			}
			ready := true
			for _, c := range nodes[id].Children {
				if !done[c] {
					stack = append(stack, c)
					ready = false
				}
			}
			if !ready {
				continue
			}
			total := nodes[id].SelfTime
			for _, c := range nodes[id].Children {
				total += nodes[c].AggregateTime
			}
			nodes[id].AggregateTime = total
			done[id] = true
			stack = stack[:len(stack)-1]
		}
	}
}

////////////////////////////////////////////////////////////////////////////////

type locationKey struct {
	name     string
	url      string
	scriptID cpuprofile.ScriptID
	line     int64
	column   int64
}

type builder struct {
	locations []Location
	index     map[locationKey]int
	markers   []string
	rootPath  string
}

// locationID returns the dense id for the given call frame, creating the
// location on first sight.
func (b *builder) locationID(cf cpuprofile.CallFrame, candidates []cpuprofile.SourceLocation) int {
	if cf.FunctionName == "" {
		cf.FunctionName = anonymousFunction
	}
	key := locationKey{
		name:     cf.FunctionName,
		url:      cf.URL,
		scriptID: cf.ScriptID,
		line:     cf.LineNumber,
		column:   cf.ColumnNumber,
	}
	if id, ok := b.index[key]; ok {
		return id
	}

	source := bestSource(candidates, b.rootPath)
	id := len(b.locations)
	b.locations = append(b.locations, Location{
		ID:        id,
		Category:  categorize(cf, source != nil, b.markers),
		CallFrame: cf,
		Source:    source,
	})
	b.index[key] = id
	return id
}

// addPositionTicks records per-line tick counts. Tick lines are 1-based; each
// entry marks the half-open line range with two synthetic locations at column
// zero, the preceding line boundary and the following one, and the counts
// accrue to the first. Annotated profiles carry the location ids directly.
func (b *builder) addPositionTicks(rn *cpuprofile.Node, precomputed int) {
	for _, tick := range rn.PositionTicks {
		if tick.StartLocationID != nil && *tick.StartLocationID >= 0 && *tick.StartLocationID < precomputed {
			b.locations[*tick.StartLocationID].Ticks += tick.Ticks
			continue
		}

		start := rn.CallFrame
		start.LineNumber = tick.Line - 1
		start.ColumnNumber = 0
		end := rn.CallFrame
		end.LineNumber = tick.Line
		end.ColumnNumber = 0

		id := b.locationID(start, sourceCandidates(start))
		b.locationID(end, sourceCandidates(end))
		b.locations[id].Ticks += tick.Ticks
	}
}

// sourceCandidates derives the source position list for a frame that has no
// precomputed annotation. Positions switch from the frame's 0-based scheme to
// the 1-based one used by source references.
func sourceCandidates(cf cpuprofile.CallFrame) []cpuprofile.SourceLocation {
	path := pathutil.FromURL(cf.URL)
	if path == "" {
		return nil
	}
	return []cpuprofile.SourceLocation{{
		LineNumber:   cf.LineNumber + 1,
		ColumnNumber: cf.ColumnNumber + 1,
		Source:       cpuprofile.Source{Name: path, Path: path},
	}}
}

// bestSource picks the best match among candidate source positions: an
// on-disk file without an embedded-source reference wins, otherwise the first
// candidate is kept.
func bestSource(candidates []cpuprofile.SourceLocation, rootPath string) *SourceRef {
	if len(candidates) == 0 {
		return nil
	}
	chosen := candidates[0]
	for _, c := range candidates {
		if c.Source.SourceReference == 0 && c.Source.Path != "" {
			chosen = c
			break
		}
	}
	if chosen.Source.Path == "" && chosen.Source.Name == "" {
		return nil
	}

	res := &SourceRef{
		Path:            chosen.Source.Path,
		SourceReference: chosen.Source.SourceReference,
		LineNumber:      chosen.LineNumber,
		ColumnNumber:    chosen.ColumnNumber,
	}
	if rel, ok := pathutil.Relative(rootPath, res.Path); ok {
		res.RelativePath = rel
	}
	return res
}

func categorize(cf cpuprofile.CallFrame, hasSource bool, markers []string) Category {
	if cf.LineNumber < 0 {
		return CategorySystem
	}
	for _, marker := range markers {
		if strings.Contains(cf.URL, marker) {
			return CategoryModule
		}
	}
	if !hasSource {
		return CategoryModule
	}
	return CategoryUser
}
