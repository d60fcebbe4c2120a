// Package convert exports a built profile model into interchange formats:
// pprof protobuf profiles and Brendan Gregg collapsed stacks.
package convert

import (
	"github.com/google/pprof/profile"

	"github.com/profviz/profviz/pkg/cpuprofile/model"
)

// ToPProf converts a model into a pprof CPU profile. Every computed node with
// self time becomes one sample whose location stack runs leaf first, the way
// pprof stores stacks.
func ToPProf(m *model.Profile) (*profile.Profile, error) {
	res := &profile.Profile{
		SampleType: []*profile.ValueType{{
			Type: "cpu",
			Unit: "microseconds",
		}},
		DefaultSampleType: "cpu",
		DurationNanos:     m.Duration * 1000,
	}

	locations := make(map[int]*profile.Location, len(m.Locations))
	locationFor := func(id int) *profile.Location {
		loc, found := locations[id]
		if found {
			return loc
		}

		src := &m.Locations[id]
		filename := src.CallFrame.URL
		if src.Source != nil && src.Source.Path != "" {
			filename = src.Source.Path
		}
		fn := &profile.Function{
			ID:        1 + uint64(len(res.Function)),
			Name:      src.CallFrame.FunctionName,
			Filename:  filename,
			StartLine: src.CallFrame.LineNumber + 1,
		}
		loc = &profile.Location{
			ID: 1 + uint64(len(res.Location)),
			Line: []profile.Line{{
				Function: fn,
				Line:     src.CallFrame.LineNumber + 1,
			}},
		}
		res.Function = append(res.Function, fn)
		res.Location = append(res.Location, loc)
		locations[id] = loc
		return loc
	}

	for i := range m.Nodes {
		node := &m.Nodes[i]
		if node.SelfTime == 0 {
			continue
		}

		sample := &profile.Sample{
			Value: []int64{node.SelfTime},
		}
		for cur := node; ; cur = &m.Nodes[cur.Parent] {
			sample.Location = append(sample.Location, locationFor(cur.LocationID))
			if cur.Parent < 0 {
				break
			}
		}
		res.Sample = append(res.Sample, sample)
	}

	return res, nil
}
