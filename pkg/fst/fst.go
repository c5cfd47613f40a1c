package fst

import (
	"errors"
	"sort"
)

// NodeID addresses a node inside an FST. The root is always 0.
type NodeID int32

// Arc is a labeled transition between two nodes.
type Arc struct {
	Label  byte
	Target NodeID
	Output Output
}

type node struct {
	firstArc    int32
	numArcs     int32
	final       bool
	finalOutput Output
}

var (
	// ErrEmptyInput is returned when adding a zero-length input.
	ErrEmptyInput = errors.New("fst: empty input")
	// ErrDuplicateInput is returned when the same input is added twice.
	ErrDuplicateInput = errors.New("fst: duplicate input")
	// ErrNegativeWeight is returned when an output carries a negative weight.
	ErrNegativeWeight = errors.New("fst: negative weight")
	// ErrCorrupt is returned when unmarshaling malformed bytes.
	ErrCorrupt = errors.New("fst: corrupt data")
)

// FST is an immutable transducer. All methods are safe for concurrent use.
type FST struct {
	nodes []node
	arcs  []Arc
}

// Root returns the start node.
func (f *FST) Root() NodeID { return 0 }

// NumNodes returns the node count.
func (f *FST) NumNodes() int { return len(f.nodes) }

// NumArcs returns the arc count.
func (f *FST) NumArcs() int { return len(f.arcs) }

// Arcs returns the outgoing arcs of n sorted by label. The slice must not be modified.
func (f *FST) Arcs(n NodeID) []Arc {
	nd := &f.nodes[n]
	return f.arcs[nd.firstArc : nd.firstArc+nd.numArcs]
}

// IsFinal reports whether an input may end at n.
func (f *FST) IsFinal(n NodeID) bool { return f.nodes[n].final }

// FinalOutput returns the output emitted when an input ends at n.
func (f *FST) FinalOutput(n NodeID) Output { return f.nodes[n].finalOutput }

// FindArc returns the arc leaving n with the given label.
func (f *FST) FindArc(n NodeID, label byte) (Arc, bool) {
	arcs := f.Arcs(n)
	i := sort.Search(len(arcs), func(i int) bool { return arcs[i].Label >= label })
	if i < len(arcs) && arcs[i].Label == label {
		return arcs[i], true
	}
	return Arc{}, false
}

// Get returns the full output for input, if the FST accepts it.
func (f *FST) Get(input []byte) (Output, bool) {
	if len(f.nodes) == 0 {
		return NoOutput, false
	}
	n := f.Root()
	out := NoOutput
	for _, b := range input {
		arc, ok := f.FindArc(n, b)
		if !ok {
			return NoOutput, false
		}
		out = Add(out, arc.Output)
		n = arc.Target
	}
	if !f.IsFinal(n) {
		return NoOutput, false
	}
	return Add(out, f.FinalOutput(n)), true
}

// RAMBytesUsed approximates the heap held by the FST.
func (f *FST) RAMBytesUsed() int64 {
	size := int64(len(f.nodes))*40 + int64(len(f.arcs))*40
	for i := range f.arcs {
		size += int64(len(f.arcs[i].Output.Payload))
	}
	for i := range f.nodes {
		size += int64(len(f.nodes[i].finalOutput.Payload))
	}
	return size
}
