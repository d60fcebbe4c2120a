package convert

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/profviz/profviz/pkg/cpuprofile/model"
)

// CollapsedSample is one folded stack with its accumulated self time.
type CollapsedSample struct {
	Stack []string
	Value int64
}

// FoldStacks folds the model into collapsed form: one entry per distinct
// root-to-leaf frame chain that accumulated self time, ordered by stack for
// deterministic output.
func FoldStacks(m *model.Profile) []CollapsedSample {
	var res []CollapsedSample
	for i := range m.Nodes {
		node := &m.Nodes[i]
		if node.SelfTime == 0 {
			continue
		}

		depth := m.Depth(node.ID)
		stack := make([]string, depth)
		for y, cur := depth-1, node.ID; y >= 0; y, cur = y-1, m.Nodes[cur].Parent {
			stack[y] = m.Locations[m.Nodes[cur].LocationID].CallFrame.FunctionName
		}
		res = append(res, CollapsedSample{Stack: stack, Value: node.SelfTime})
	}

	sort.Slice(res, func(i, j int) bool {
		return strings.Join(res[i].Stack, ";") < strings.Join(res[j].Stack, ";")
	})
	return res
}

// EncodeCollapsed writes folded stacks in the "frame;frame;frame value"
// format, values in microseconds.
func EncodeCollapsed(w io.Writer, samples []CollapsedSample) error {
	for _, sample := range samples {
		_, err := fmt.Fprintf(w, "%s %d\n", strings.Join(sample.Stack, ";"), sample.Value)
		if err != nil {
			return err
		}
	}
	return nil
}

// MarshalCollapsed folds and encodes a model in one call.
func MarshalCollapsed(m *model.Profile) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := EncodeCollapsed(buf, FoldStacks(m))
	return buf.Bytes(), err
}
