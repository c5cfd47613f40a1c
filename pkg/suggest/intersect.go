package suggest

import (
	"github.com/bastiangx/typeahead/pkg/automaton"
	"github.com/bastiangx/typeahead/pkg/fst"
)

// PrefixPath is a position in the completion automaton reached by input the query
// automaton accepts.
type PrefixPath struct {
	Node   fst.NodeID
	Output fst.Output
	Input  []byte
}

// IntersectPrefixPaths walks a and f together and returns every shortest input that a
// accepts, with the node and output it reaches in f. A path is not extended once a
// accepts it: query automata here are prefix languages, so every continuation would be
// accepted as well and is covered by the search below the returned node.
func IntersectPrefixPaths(a automaton.Automaton, f *fst.FST) []PrefixPath {
	if f == nil || f.NumNodes() == 0 {
		return nil
	}
	type frame struct {
		state automaton.State
		node  fst.NodeID
		out   fst.Output
		input []byte
	}
	var paths []PrefixPath
	stack := []frame{{state: a.Start(), node: f.Root()}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.state == automaton.Dead {
			continue
		}
		if a.IsAccept(top.state) {
			paths = append(paths, PrefixPath{Node: top.node, Output: top.out, Input: top.input})
			continue
		}
		arcs := f.Arcs(top.node)
		// Push in reverse so paths come out in label order.
		for i := len(arcs) - 1; i >= 0; i-- {
			arc := arcs[i]
			next := a.Step(top.state, arc.Label)
			if next == automaton.Dead {
				continue
			}
			input := make([]byte, len(top.input)+1)
			copy(input, top.input)
			input[len(top.input)] = arc.Label
			stack = append(stack, frame{
				state: next,
				node:  arc.Target,
				out:   fst.Add(top.out, arc.Output),
				input: input,
			})
		}
	}
	return paths
}
