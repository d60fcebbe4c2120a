// Package bottomup aggregates a profile model by leaf call-site identity:
// the first tree level enumerates every location that was actually running at
// some sample, deeper levels enumerate its callers, with timings summed
// across all stacks sharing the leaf-to-caller chain.
package bottomup

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/profviz/profviz/pkg/cpuprofile/model"
)

// RootLocationID marks the synthetic root of the aggregation.
const RootLocationID = -1

// Node is one vertex of the bottom-up tree. Children are unique per distinct
// location id, not per call stack. Parent is a non-owning back-reference used
// only for upward propagation.
type Node struct {
	Location      *model.Location
	Parent        *Node
	SelfTime      int64
	AggregateTime int64
	Ticks         int64

	children map[int]*Node
}

func newNode(loc *model.Location, parent *Node) *Node {
	return &Node{
		Location: loc,
		Parent:   parent,
		children: make(map[int]*Node),
	}
}

// add accrues one seed node's timing.
func (n *Node) add(seed *model.ComputedNode) {
	n.SelfTime += seed.SelfTime
	n.AggregateTime += seed.AggregateTime
	n.Ticks += seed.Ticks
}

// Child returns the child aggregating the given location id, or nil.
func (n *Node) Child(locationID int) *Node {
	return n.children[locationID]
}

// Children returns the child nodes ordered by descending aggregate time,
// ties broken by location id.
func (n *Node) Children() []*Node {
	res := maps.Values(n.children)
	slices.SortFunc(res, func(a, b *Node) int {
		if a.AggregateTime != b.AggregateTime {
			if a.AggregateTime > b.AggregateTime {
				return -1
			}
			return 1
		}
		return a.Location.ID - b.Location.ID
	})
	return res
}

// Len is the number of distinct child locations.
func (n *Node) Len() int {
	return len(n.children)
}

// Build derives the bottom-up tree from a model. Only leaf computed nodes
// seed the aggregation; every other node is visited solely as an ancestor.
// Each seed's timing lands exactly once on every level of its leaf-to-root
// chain, the synthetic root included, so the root's totals equal the sum
// across all leaf stacks.
func Build(m *model.Profile) *Node {
	root := newNode(&model.Location{ID: RootLocationID, Category: model.CategorySystem}, nil)

	for i := range m.Nodes {
		seed := &m.Nodes[i]
		if len(seed.Children) != 0 {
			continue
		}
		root.add(seed)

		aggregate := root
		for cur := seed; ; {
			child := aggregate.children[cur.LocationID]
			if child == nil {
				child = newNode(&m.Locations[cur.LocationID], aggregate)
				aggregate.children[cur.LocationID] = child
			}
			child.add(seed)

			if cur.Parent < 0 {
				break
			}
			cur = &m.Nodes[cur.Parent]
			aggregate = child
		}
	}

	return root
}
