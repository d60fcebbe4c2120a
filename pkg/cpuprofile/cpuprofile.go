// Package cpuprofile holds the raw V8 ".cpuprofile" record as captured by a
// sampling profiler: a call tree with 1-based node ids, a time-ordered sample
// sequence and inter-sample time deltas, all times in microseconds.
//
// The package only decodes and normalizes the raw record. Deriving analytical
// views from it is the job of the model, bottomup and flame packages.
package cpuprofile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// ScriptID accepts both encodings seen in the wild: the DevTools protocol
// emits script ids as strings, offline .cpuprofile files as numbers.
type ScriptID int64

func (s *ScriptID) UnmarshalJSON(data []byte) error {
	if len(data) > 1 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			*s = 0
			return nil
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("cpuprofile: bad script id %q: %w", raw, err)
		}
		*s = ScriptID(id)
		return nil
	}

	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*s = ScriptID(id)
	return nil
}

// CallFrame identifies a function invocation site. Line and column are
// 0-based; negative values denote internal (VM) frames.
type CallFrame struct {
	FunctionName string   `json:"functionName"`
	ScriptID     ScriptID `json:"scriptId"`
	URL          string   `json:"url"`
	LineNumber   int64    `json:"lineNumber"`
	ColumnNumber int64    `json:"columnNumber"`
}

// PositionTick counts samples attributed to a single source line of a node.
// Line is 1-based, unlike CallFrame positions. Start/EndLocationID are only
// present in profiles that carry precomputed location annotations.
type PositionTick struct {
	Line            int64 `json:"line"`
	Ticks           int64 `json:"ticks"`
	StartLocationID *int  `json:"startLocationId,omitempty"`
	EndLocationID   *int  `json:"endLocationId,omitempty"`
}

// Node is one vertex of the captured call tree. IDs are 1-based and node
// order in the file is arbitrary. LocationID indexes Metadata.Locations when
// annotations are present.
type Node struct {
	ID            int64          `json:"id"`
	CallFrame     CallFrame      `json:"callFrame"`
	HitCount      int64          `json:"hitCount,omitempty"`
	Children      []int64        `json:"children,omitempty"`
	PositionTicks []PositionTick `json:"positionTicks,omitempty"`
	LocationID    *int           `json:"locationId,omitempty"`
}

// Source describes one file a location may resolve to. SourceReference
// distinguishes embedded (virtual) sources from files on disk: zero means the
// path points at a real file.
type Source struct {
	Name            string `json:"name,omitempty"`
	Path            string `json:"path,omitempty"`
	SourceReference int64  `json:"sourceReference,omitempty"`
}

// SourceLocation is a candidate source position for a location. Positions are
// 1-based.
type SourceLocation struct {
	LineNumber   int64  `json:"lineNumber"`
	ColumnNumber int64  `json:"columnNumber"`
	Source       Source `json:"source"`
}

// Location is a precomputed, deduplicated location annotation attached by the
// capturing tool.
type Location struct {
	CallFrame CallFrame        `json:"callFrame"`
	Locations []SourceLocation `json:"locations,omitempty"`
}

// Metadata is the optional embedded tool metadata block.
type Metadata struct {
	RootPath  string     `json:"rootPath,omitempty"`
	Locations []Location `json:"locations,omitempty"`
}

// Profile is a raw capture. Samples reference node ids; TimeDeltas[i] is the
// time elapsed before Samples[i] was taken, so a capture with N samples
// carries either N deltas (the first one measured from capture start) or N-1.
type Profile struct {
	Nodes      []Node    `json:"nodes"`
	StartTime  int64     `json:"startTime"`
	EndTime    int64     `json:"endTime"`
	Samples    []int64   `json:"samples,omitempty"`
	TimeDeltas []int64   `json:"timeDeltas,omitempty"`
	Metadata   *Metadata `json:"$vscode,omitempty"`
}

// Duration is the wall time covered by the capture.
func (p *Profile) Duration() int64 {
	return p.EndTime - p.StartTime
}

// RootPath returns the workspace root recorded by the capturing tool, if any.
func (p *Profile) RootPath() string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata.RootPath
}

func Decode(r io.Reader) (*Profile, error) {
	res := new(Profile)
	if err := json.NewDecoder(r).Decode(res); err != nil {
		return nil, fmt.Errorf("cpuprofile: malformed input: %w", err)
	}
	return res, nil
}

func Unmarshal(buf []byte) (*Profile, error) {
	return Decode(bytes.NewReader(buf))
}
