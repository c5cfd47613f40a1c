package fst

import (
	"fmt"
	"sort"
)

type buildNode struct {
	labels   []byte
	children []*buildNode
	outs     []Output
	final    bool
	finalOut Output
}

func (n *buildNode) child(label byte) (*buildNode, int) {
	i := sort.Search(len(n.labels), func(i int) bool { return n.labels[i] >= label })
	if i < len(n.labels) && n.labels[i] == label {
		return n.children[i], i
	}
	return nil, i
}

func (n *buildNode) insertChild(at int, label byte) *buildNode {
	c := &buildNode{}
	n.labels = append(n.labels, 0)
	copy(n.labels[at+1:], n.labels[at:])
	n.labels[at] = label
	n.children = append(n.children, nil)
	copy(n.children[at+1:], n.children[at:])
	n.children[at] = c
	n.outs = append(n.outs, Output{})
	copy(n.outs[at+1:], n.outs[at:])
	n.outs[at] = NoOutput
	return c
}

// Builder accumulates (input, output) pairs and compiles them into an FST.
// Inputs may be added in any order. A Builder is not safe for concurrent use.
type Builder struct {
	root  *buildNode
	count int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{root: &buildNode{}}
}

// Len returns the number of inputs added so far.
func (b *Builder) Len() int { return b.count }

// Add records input with its output. The output payload is copied.
func (b *Builder) Add(input []byte, out Output) error {
	if len(input) == 0 {
		return ErrEmptyInput
	}
	if out.Weight < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeWeight, out.Weight)
	}
	n := b.root
	for _, label := range input {
		c, at := n.child(label)
		if c == nil {
			c = n.insertChild(at, label)
		}
		n = c
	}
	if n.final {
		return fmt.Errorf("%w: %q", ErrDuplicateInput, input)
	}
	n.final = true
	n.finalOut = Output{Weight: out.Weight, Payload: append([]byte(nil), out.Payload...)}
	b.count++
	return nil
}

// Finish pushes outputs toward the root and freezes the automaton. The builder must not
// be used afterwards.
func (b *Builder) Finish() (*FST, error) {
	for i, c := range b.root.children {
		b.root.outs[i] = push(c)
	}
	f := &FST{}
	f.nodes = append(f.nodes, node{})
	queue := []*buildNode{b.root}
	ids := map[*buildNode]NodeID{b.root: 0}
	// Breadth first so each node's arcs are contiguous.
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		id := ids[n]
		f.nodes[id] = node{
			firstArc:    int32(len(f.arcs)),
			numArcs:     int32(len(n.labels)),
			final:       n.final,
			finalOutput: n.finalOut,
		}
		for i, c := range n.children {
			cid := NodeID(len(f.nodes))
			f.nodes = append(f.nodes, node{})
			ids[c] = cid
			f.arcs = append(f.arcs, Arc{Label: n.labels[i], Target: cid, Output: n.outs[i]})
			queue = append(queue, c)
		}
	}
	b.root = nil
	return f, nil
}

// push rewrites the subtree at n so that every arc leaving n, and its final output, carry
// only what is not shared by all of them. It returns the shared part.
func push(n *buildNode) Output {
	for i, c := range n.children {
		n.outs[i] = push(c)
	}
	var common Output
	first := true
	if n.final {
		common = n.finalOut
		first = false
	}
	for _, o := range n.outs {
		if first {
			common = o
			first = false
			continue
		}
		common = Common(common, o)
	}
	if n.final {
		n.finalOut = Subtract(n.finalOut, common)
	}
	for i := range n.outs {
		n.outs[i] = Subtract(n.outs[i], common)
	}
	common.Payload = append([]byte(nil), common.Payload...)
	return common
}
