package model_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/profviz/profviz/pkg/cpuprofile"
	"github.com/profviz/profviz/pkg/cpuprofile/model"
)

func frame(name, url string, line, column int64) cpuprofile.CallFrame {
	return cpuprofile.CallFrame{
		FunctionName: name,
		ScriptID:     1,
		URL:          url,
		LineNumber:   line,
		ColumnNumber: column,
	}
}

// chainProfile is the capture from the attribution scenario: root id1 ->
// child id2 -> grandchild id3, samples [1 2 3 3], deltas [5 5 5].
func chainProfile() *cpuprofile.Profile {
	return &cpuprofile.Profile{
		Nodes: []cpuprofile.Node{
			{ID: 1, CallFrame: frame("a", "file:///src/a.js", 0, 0), Children: []int64{2}},
			{ID: 2, CallFrame: frame("b", "file:///src/b.js", 1, 0), Children: []int64{3}},
			{ID: 3, CallFrame: frame("c", "file:///src/c.js", 2, 0)},
		},
		StartTime:  100,
		EndTime:    115,
		Samples:    []int64{1, 2, 3, 3},
		TimeDeltas: []int64{5, 5, 5},
	}
}

func TestBuildAttribution(t *testing.T) {
	m, err := model.Build(chainProfile(), nil)
	require.NoError(t, err)

	require.Equal(t, []int{0, 1, 2, 2}, m.Samples)
	require.Equal(t, []int64{5, 5, 5}, m.TimeDeltas)
	require.EqualValues(t, 15, m.Duration)

	require.Len(t, m.Nodes, 3)
	require.EqualValues(t, 0, m.Nodes[0].SelfTime)
	require.EqualValues(t, 5, m.Nodes[1].SelfTime)
	require.EqualValues(t, 10, m.Nodes[2].SelfTime)

	require.EqualValues(t, 15, m.Nodes[0].AggregateTime)
	require.EqualValues(t, 15, m.Nodes[1].AggregateTime)
	require.EqualValues(t, 10, m.Nodes[2].AggregateTime)

	require.Equal(t, -1, m.Nodes[0].Parent)
	require.Equal(t, 0, m.Nodes[1].Parent)
	require.Equal(t, 1, m.Nodes[2].Parent)
	require.Equal(t, []int{1}, m.Nodes[0].Children)
}

func TestBuildInvariants(t *testing.T) {
	for i, raw := range []*cpuprofile.Profile{
		chainProfile(),
		{
			// Two stacks sharing a leaf location plus a recursive frame.
			Nodes: []cpuprofile.Node{
				{ID: 10, CallFrame: frame("main", "file:///src/main.js", 0, 0), Children: []int64{11, 13}},
				{ID: 11, CallFrame: frame("work", "file:///src/work.js", 3, 0), Children: []int64{12}},
				{ID: 12, CallFrame: frame("leaf", "file:///src/leaf.js", 9, 0)},
				{ID: 13, CallFrame: frame("leaf", "file:///src/leaf.js", 9, 0)},
			},
			StartTime:  0,
			EndTime:    100,
			Samples:    []int64{10, 12, 12, 13, 11, 13},
			TimeDeltas: []int64{7, 3, 4, 11, 2},
		},
	} {
		t.Run(fmt.Sprintf("profile/%d", i), func(t *testing.T) {
			m, err := model.Build(raw, nil)
			require.NoError(t, err)

			var deltaSum, selfSum int64
			for _, d := range m.TimeDeltas {
				deltaSum += d
			}
			for i := range m.Nodes {
				selfSum += m.Nodes[i].SelfTime
			}
			require.Equal(t, deltaSum, selfSum, "every delta attributed to exactly one node")

			for i := range m.Nodes {
				total := m.Nodes[i].SelfTime
				for _, c := range m.Nodes[i].Children {
					total += m.Nodes[c].AggregateTime
					require.Equal(t, i, m.Nodes[c].Parent)
				}
				require.Equal(t, total, m.Nodes[i].AggregateTime)
			}

			for l := range m.Locations {
				var locSelf int64
				for i := range m.Nodes {
					if m.Nodes[i].LocationID == l {
						locSelf += m.Nodes[i].SelfTime
					}
				}
				require.Equal(t, locSelf, m.Locations[l].SelfTime)
			}

			require.Len(t, m.Samples, len(m.TimeDeltas)+1)
		})
	}
}

func TestBuildEmptyCapture(t *testing.T) {
	raw := &cpuprofile.Profile{
		Nodes: []cpuprofile.Node{
			{ID: 1, CallFrame: frame("a", "", 0, 0)},
		},
		StartTime: 200,
		EndTime:   450,
		Metadata:  &cpuprofile.Metadata{RootPath: "/work/app"},
	}

	m, err := model.Build(raw, nil)
	require.NoError(t, err)
	require.Empty(t, m.Nodes)
	require.Empty(t, m.Locations)
	require.Empty(t, m.Samples)
	require.Empty(t, m.TimeDeltas)
	require.EqualValues(t, 250, m.Duration)
	require.Equal(t, "/work/app", m.RootPath)
}

func TestBuildLeadingDeltaDropped(t *testing.T) {
	raw := &cpuprofile.Profile{
		Nodes: []cpuprofile.Node{
			{ID: 1, CallFrame: frame("a", "", 0, 0), Children: []int64{2}},
			{ID: 2, CallFrame: frame("b", "", 1, 0)},
		},
		Samples: []int64{1, 1, 2},
		// One delta per sample: the first one precedes the first sample
		// and must be discarded.
		TimeDeltas: []int64{3, 5, 7},
	}

	m, err := model.Build(raw, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{5, 7}, m.TimeDeltas)
	require.EqualValues(t, 5, m.Nodes[0].SelfTime)
	require.EqualValues(t, 7, m.Nodes[1].SelfTime)
}

func TestLocationDeduplication(t *testing.T) {
	raw := &cpuprofile.Profile{
		Nodes: []cpuprofile.Node{
			// Same call frame twice, a third differing only by line.
			{ID: 1, CallFrame: frame("f", "file:///src/f.js", 4, 2), Children: []int64{2}},
			{ID: 2, CallFrame: frame("f", "file:///src/f.js", 4, 2), Children: []int64{3}},
			{ID: 3, CallFrame: frame("f", "file:///src/f.js", 5, 2)},
		},
		Samples:    []int64{1, 1, 2, 3},
		TimeDeltas: []int64{2, 4, 8},
	}

	m, err := model.Build(raw, nil)
	require.NoError(t, err)
	require.Len(t, m.Locations, 2)
	require.Equal(t, m.Nodes[0].LocationID, m.Nodes[1].LocationID)
	require.NotEqual(t, m.Nodes[1].LocationID, m.Nodes[2].LocationID)

	// Location totals are call-path-insensitive.
	shared := m.Locations[m.Nodes[0].LocationID]
	require.EqualValues(t, 2+4, shared.SelfTime)
	require.EqualValues(t, (2+4+8)+(4+8), shared.AggregateTime)
}

func TestCategorization(t *testing.T) {
	for _, test := range []struct {
		name     string
		frame    cpuprofile.CallFrame
		expected model.Category
	}{
		{"internal", frame("(garbage collector)", "", -1, -1), model.CategorySystem},
		{"dependency", frame("f", "file:///app/node_modules/lib/i.js", 2, 0), model.CategoryModule},
		{"marker substring anywhere", frame("f", "/home/node_modules_fan/app.js", 2, 0), model.CategoryModule},
		{"no source", frame("f", "", 2, 0), model.CategoryModule},
		{"user", frame("f", "file:///app/src/i.js", 2, 0), model.CategoryUser},
		{"anonymous user", frame("", "file:///app/src/i.js", 7, 0), model.CategoryUser},
	} {
		t.Run(test.name, func(t *testing.T) {
			raw := &cpuprofile.Profile{
				Nodes:      []cpuprofile.Node{{ID: 1, CallFrame: test.frame}},
				Samples:    []int64{1, 1},
				TimeDeltas: []int64{1},
			}
			m, err := model.Build(raw, nil)
			require.NoError(t, err)
			require.Len(t, m.Locations, 1)
			require.Equal(t, test.expected, m.Locations[0].Category)
			require.NotEmpty(t, m.Locations[0].CallFrame.FunctionName)
		})
	}
}

func TestRelativeSourcePaths(t *testing.T) {
	raw := &cpuprofile.Profile{
		Nodes: []cpuprofile.Node{
			{ID: 1, CallFrame: frame("f", "file:///work/app/src/i.js", 2, 0)},
		},
		Samples:    []int64{1, 1},
		TimeDeltas: []int64{1},
		Metadata:   &cpuprofile.Metadata{RootPath: "/work/app"},
	}

	m, err := model.Build(raw, nil)
	require.NoError(t, err)
	require.NotNil(t, m.Locations[0].Source)
	require.Equal(t, "/work/app/src/i.js", m.Locations[0].Source.Path)
	require.Equal(t, "src/i.js", m.Locations[0].Source.RelativePath)
}

func TestPositionTicks(t *testing.T) {
	raw := &cpuprofile.Profile{
		Nodes: []cpuprofile.Node{
			{
				ID:        1,
				CallFrame: frame("f", "file:///src/f.js", 10, 4),
				PositionTicks: []cpuprofile.PositionTick{
					{Line: 2, Ticks: 7},
					{Line: 2, Ticks: 3},
				},
			},
		},
		Samples:    []int64{1, 1},
		TimeDeltas: []int64{1},
	}

	m, err := model.Build(raw, nil)
	require.NoError(t, err)

	// The node's own location plus the two synthetic line-range boundaries.
	require.Len(t, m.Locations, 3)
	var start *model.Location
	for i := range m.Locations {
		loc := &m.Locations[i]
		if loc.CallFrame.LineNumber == 1 && loc.CallFrame.ColumnNumber == 0 {
			start = loc
		}
	}
	require.NotNil(t, start, "synthetic location for the 0-based tick line")
	require.EqualValues(t, 10, start.Ticks)
}

func TestPrecomputedLocations(t *testing.T) {
	locID := 0
	raw := &cpuprofile.Profile{
		Nodes: []cpuprofile.Node{
			{ID: 1, CallFrame: frame("f", "http://host/bundle.js", 2, 0), LocationID: &locID},
		},
		Samples:    []int64{1, 1, 1},
		TimeDeltas: []int64{4, 6},
		Metadata: &cpuprofile.Metadata{
			RootPath: "/work/app",
			Locations: []cpuprofile.Location{
				{
					CallFrame: frame("f", "http://host/bundle.js", 2, 0),
					Locations: []cpuprofile.SourceLocation{
						{LineNumber: 3, ColumnNumber: 1, Source: cpuprofile.Source{Path: "", SourceReference: 11}},
						{LineNumber: 3, ColumnNumber: 1, Source: cpuprofile.Source{Path: "/work/app/src/f.ts"}},
					},
				},
			},
		},
	}

	m, err := model.Build(raw, nil)
	require.NoError(t, err)
	require.Len(t, m.Locations, 1)

	// The on-disk candidate wins over the embedded one.
	loc := m.Locations[0]
	require.NotNil(t, loc.Source)
	require.Equal(t, "/work/app/src/f.ts", loc.Source.Path)
	require.Equal(t, "src/f.ts", loc.Source.RelativePath)
	require.EqualValues(t, 0, loc.Source.SourceReference)
	require.EqualValues(t, 10, loc.SelfTime)
}

func TestBuildErrors(t *testing.T) {
	for _, test := range []struct {
		name string
		raw  *cpuprofile.Profile
	}{
		{
			name: "unknown child",
			raw: &cpuprofile.Profile{
				Nodes:      []cpuprofile.Node{{ID: 1, CallFrame: frame("a", "", 0, 0), Children: []int64{9}}},
				Samples:    []int64{1, 1},
				TimeDeltas: []int64{1},
			},
		},
		{
			name: "unknown sample",
			raw: &cpuprofile.Profile{
				Nodes:      []cpuprofile.Node{{ID: 1, CallFrame: frame("a", "", 0, 0)}},
				Samples:    []int64{1, 7},
				TimeDeltas: []int64{1},
			},
		},
		{
			name: "delta count mismatch",
			raw: &cpuprofile.Profile{
				Nodes:      []cpuprofile.Node{{ID: 1, CallFrame: frame("a", "", 0, 0)}},
				Samples:    []int64{1, 1, 1},
				TimeDeltas: []int64{1, 2, 3, 4},
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := model.Build(test.raw, nil)
			require.Error(t, err)
		})
	}
}

func TestDeepStackAggregation(t *testing.T) {
	// A linear 100k-frame stack must not exhaust the goroutine stack.
	const depth = 100000
	nodes := make([]cpuprofile.Node, depth)
	for i := range nodes {
		nodes[i] = cpuprofile.Node{
			ID:        int64(i + 1),
			CallFrame: frame("f", "file:///src/f.js", int64(i), 0),
		}
		if i+1 < depth {
			nodes[i].Children = []int64{int64(i + 2)}
		}
	}
	raw := &cpuprofile.Profile{
		Nodes:      nodes,
		Samples:    []int64{1, depth},
		TimeDeltas: []int64{5},
	}

	m, err := model.Build(raw, nil)
	require.NoError(t, err)
	require.EqualValues(t, 5, m.Nodes[0].AggregateTime)
	require.EqualValues(t, 5, m.Nodes[depth-1].SelfTime)
	require.Equal(t, depth, m.Depth(depth-1))
}
