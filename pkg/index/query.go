package index

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/typeahead/pkg/automaton"
	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/bastiangx/typeahead/pkg/suggest"
)

// Query describes one completion request against an Index.
type Query struct {
	Prefix string
	// Contexts restricts matches to entries indexed under one of them. Empty means any
	// context.
	Contexts []string
	// ContextBoosts multiplies the score of matches under a context. Missing contexts
	// get a boost of 1.
	ContextBoosts map[string]float32

	Fuzzy    bool
	MaxEdits int // 0 uses the index default

	N              int
	SkipDuplicates bool

	// Filter restricts results to these global doc ids when non-nil.
	Filter *roaring.Bitmap
	// Accept is an extra predicate over global doc ids.
	Accept func(docID int) (bool, error)
}

// cacheKey identifies queries whose results can be reused. Queries with a Filter or an
// Accept predicate are never cached.
func (q Query) cacheKey() (string, bool) {
	if q.Filter != nil || q.Accept != nil {
		return "", false
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%q|%d|%t|%t|%d", q.Prefix, q.N, q.SkipDuplicates, q.Fuzzy, q.MaxEdits)
	ctxs := append([]string(nil), q.Contexts...)
	sort.Strings(ctxs)
	for _, c := range ctxs {
		fmt.Fprintf(&sb, "|c%q", c)
	}
	boosted := make([]string, 0, len(q.ContextBoosts))
	for c := range q.ContextBoosts {
		boosted = append(boosted, c)
	}
	sort.Strings(boosted)
	for _, c := range boosted {
		fmt.Fprintf(&sb, "|b%q=%g", c, q.ContextBoosts[c])
	}
	return sb.String(), true
}

// ContextWeight reads the context of a frontier path from the bytes before the context
// separator, and boosts the path by that context's boost. Inner, when set, weighs the
// rest of the input.
type ContextWeight struct {
	Sep    byte
	Boosts map[string]float32
	Inner  suggest.MatchWeight

	context string
	boost   float32
}

func (w *ContextWeight) SetNextMatch(input []byte) {
	rest := input
	w.context = ""
	if i := bytes.IndexByte(input, w.Sep); i >= 0 {
		w.context = string(input[:i])
		rest = input[i+1:]
	}
	w.boost = 1
	if b, ok := w.Boosts[w.context]; ok {
		w.boost = b
	}
	if w.Inner != nil {
		w.Inner.SetNextMatch(rest)
		if b := w.Inner.Boost(); b != 0 {
			w.boost *= b
		}
	}
}

func (w *ContextWeight) Boost() float32  { return w.boost }
func (w *ContextWeight) Context() string { return w.context }

// FuzzyWeight boosts a frontier path by how many of its leading bytes agree with the
// query position by position, so paths that needed fewer edits early rank higher.
type FuzzyWeight struct {
	Target []byte

	boost float32
}

func (w *FuzzyWeight) SetNextMatch(input []byte) {
	n := 0
	for i := 0; i < min(len(input), len(w.Target)); i++ {
		if input[i] == w.Target[i] {
			n++
		}
	}
	w.boost = float32(n)
}

func (w *FuzzyWeight) Boost() float32  { return w.boost }
func (w *FuzzyWeight) Context() string { return "" }

// compile builds the automaton and match weight of q for seg. It reports false when seg
// cannot match q at all.
func (ix *Index) compile(q Query, seg *Segment) (automaton.Automaton, suggest.MatchWeight, bool) {
	analyzed := []byte(dictionary.Analyze(q.Prefix))

	var (
		inner  automaton.Automaton
		weight suggest.MatchWeight
	)
	if q.Fuzzy && utf8.RuneCount(analyzed) >= ix.opts.FuzzyMinLength {
		edits := q.MaxEdits
		if edits <= 0 {
			edits = ix.opts.FuzzyMaxEdits
		}
		edits = min(edits, automaton.MaxEdits)
		inner = automaton.Fuzzy(analyzed, edits, ix.opts.FuzzyExactPrefix)
		weight = &FuzzyWeight{Target: analyzed}
	} else {
		inner = automaton.Prefix(analyzed)
	}

	if !seg.HasContexts() {
		if len(q.Contexts) > 0 {
			return nil, nil, false
		}
		return inner, weight, true
	}
	contexts := make([][]byte, 0, len(q.Contexts))
	for _, c := range q.Contexts {
		contexts = append(contexts, []byte(c))
	}
	return automaton.Contextual(contexts, dictionary.ContextSep, inner),
		&ContextWeight{Sep: dictionary.ContextSep, Boosts: q.ContextBoosts, Inner: weight}, true
}

// segmentFilter maps the global filter onto seg's local doc ids.
func segmentFilter(filter *roaring.Bitmap, docBase, maxDoc int) *roaring.Bitmap {
	window := roaring.New()
	window.AddRange(uint64(docBase), uint64(docBase+maxDoc))
	window.And(filter)
	local := roaring.New()
	it := window.Iterator()
	for it.HasNext() {
		local.Add(it.Next() - uint32(docBase))
	}
	return local
}
