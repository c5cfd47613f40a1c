package automaton

import "sort"

// contextual matches a context, a separator byte and then whatever inner accepts.
//
// States below len(trie) are positions in the context trie; the remaining ones are inner
// states shifted by len(trie).
type contextual struct {
	trie  []ctxNode
	any   bool
	sep   byte
	inner Automaton
}

type ctxNode struct {
	labels   []byte
	next     []State
	terminal bool
}

// Contextual returns an automaton accepting `ctx ++ sep ++ x` for every ctx in contexts
// and every x accepted by inner. With no contexts, any context not containing sep is
// allowed, including the empty one.
func Contextual(contexts [][]byte, sep byte, inner Automaton) Automaton {
	c := &contextual{sep: sep, inner: inner, any: len(contexts) == 0}
	c.trie = append(c.trie, ctxNode{})
	for _, ctx := range contexts {
		c.add(ctx)
	}
	return c
}

func (c *contextual) add(ctx []byte) {
	n := State(0)
	for _, b := range ctx {
		nd := &c.trie[n]
		i := sort.Search(len(nd.labels), func(i int) bool { return nd.labels[i] >= b })
		if i < len(nd.labels) && nd.labels[i] == b {
			n = nd.next[i]
			continue
		}
		child := State(len(c.trie))
		nd.labels = append(nd.labels, 0)
		copy(nd.labels[i+1:], nd.labels[i:])
		nd.labels[i] = b
		nd.next = append(nd.next, 0)
		copy(nd.next[i+1:], nd.next[i:])
		nd.next[i] = child
		c.trie = append(c.trie, ctxNode{})
		n = child
	}
	c.trie[n].terminal = true
}

func (c *contextual) offset() State { return State(len(c.trie)) }

func (c *contextual) Start() State { return 0 }

func (c *contextual) Step(s State, label byte) State {
	if s == Dead {
		return Dead
	}
	if s >= c.offset() {
		next := c.inner.Step(s-c.offset(), label)
		if next == Dead {
			return Dead
		}
		return next + c.offset()
	}
	if c.any {
		if label == c.sep {
			return c.inner.Start() + c.offset()
		}
		return 0
	}
	nd := &c.trie[s]
	if label == c.sep {
		if nd.terminal {
			return c.inner.Start() + c.offset()
		}
		return Dead
	}
	i := sort.Search(len(nd.labels), func(i int) bool { return nd.labels[i] >= label })
	if i < len(nd.labels) && nd.labels[i] == label {
		return nd.next[i]
	}
	return Dead
}

func (c *contextual) IsAccept(s State) bool {
	if s == Dead || s < c.offset() {
		return false
	}
	return c.inner.IsAccept(s - c.offset())
}
