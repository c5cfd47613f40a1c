package suggest

import (
	"bytes"

	"github.com/bastiangx/typeahead/pkg/fst"
)

// SearchPath is one partial completion under exploration. It belongs to a single lookup.
type SearchPath struct {
	Node   fst.NodeID
	Output fst.Output
	Input  []byte

	Boost   float32
	Context string

	// payloadSep is the offset of the payload separator, or -1 until it is found.
	payloadSep int
	// lastLen is how many payload bytes the most recent arc appended.
	lastLen int
	// final marks a path that already took its node's final output.
	final bool

	score float32
}

func newSearchPath(node fst.NodeID, out fst.Output, input []byte, boost float32, context string) *SearchPath {
	return &SearchPath{
		Node:       node,
		Output:     out,
		Input:      input,
		Boost:      boost,
		Context:    context,
		payloadSep: -1,
		lastLen:    len(out.Payload),
	}
}

// extend returns a copy of the path moved along st. The separator offset carries over
// once known.
func (p *SearchPath) extend(st step) *SearchPath {
	input := p.Input
	if !st.final {
		input = make([]byte, len(p.Input)+1)
		copy(input, p.Input)
		input[len(p.Input)] = st.label
	}
	return &SearchPath{
		Node:       st.target,
		Output:     fst.Add(p.Output, st.out),
		Input:      input,
		Boost:      p.Boost,
		Context:    p.Context,
		payloadSep: p.payloadSep,
		lastLen:    len(st.out.Payload),
		final:      st.final,
	}
}

// advance moves the path along st in place. Only the searcher's current path is advanced;
// queued paths are never mutated.
func (p *SearchPath) advance(st step) {
	if !st.final {
		p.Input = append(p.Input, st.label)
	}
	p.Node = st.target
	p.Output = fst.Add(p.Output, st.out)
	p.lastLen = len(st.out.Payload)
	p.final = st.final
}

// Final reports whether the path ends in an accepting state of the automaton.
func (p *SearchPath) Final() bool { return p.final }

// Score is the cached rank of the path.
func (p *SearchPath) Score() float32 { return p.score }

// PayloadSep returns the memoized separator offset, -1 when not yet seen.
func (p *SearchPath) PayloadSep() int { return p.payloadSep }

// findSepInLast looks for sep in the bytes appended by the last arc only. It records the
// offset the first time it is found and never rescans afterwards.
func (p *SearchPath) findSepInLast(sep byte) int {
	if p.payloadSep != -1 || p.lastLen == 0 {
		return p.payloadSep
	}
	payload := p.Output.Payload
	start := len(payload) - p.lastLen
	if start < 0 {
		start = 0
	}
	if i := bytes.IndexByte(payload[start:], sep); i >= 0 {
		p.payloadSep = start + i
	}
	return p.payloadSep
}

// findSepFull scans the whole payload when the offset was never memoized.
func (p *SearchPath) findSepFull(sep byte) (int, error) {
	if p.payloadSep != -1 {
		return p.payloadSep, nil
	}
	i, err := ParseSurfaceForm(p.Output.Payload, sep)
	if err != nil {
		return -1, err
	}
	p.payloadSep = i
	return i, nil
}
