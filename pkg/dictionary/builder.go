package dictionary

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bastiangx/typeahead/pkg/fst"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// ContextSep separates a context from the analyzed form it applies to.
const ContextSep = 0x1D

var (
	// ErrInvalidEntry is returned for entries that cannot be stored.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrEmptyDictionary is returned by Build when nothing was added.
	ErrEmptyDictionary = errors.New("dictionary has no entries")
)

// Entry is one completion before compilation.
type Entry struct {
	Surface  string
	Weight   int64
	DocID    int
	Contexts []string
}

// Analyze is the analysis applied to surface forms at build time and to prefixes at
// query time.
func Analyze(s string) string {
	return strings.ToLower(s)
}

// staged is an entry reduced to what the automaton stores.
type staged struct {
	weight   int64 // encoded
	payload  []byte
	contexts []string
}

// Builder compiles entries into a suggester. Entries are staged in a patricia trie keyed
// by analyzed form, so entries sharing a form end up under one key and get dedup labels.
type Builder struct {
	staging     *patricia.Trie
	count       int
	maxDoc      int
	hasContexts bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{staging: patricia.NewTrie()}
}

// Len returns the number of entries added.
func (b *Builder) Len() int { return b.count }

// MaxDoc is one past the largest doc id added.
func (b *Builder) MaxDoc() int { return b.maxDoc }

// HasContexts reports whether any entry carried a context.
func (b *Builder) HasContexts() bool { return b.hasContexts }

// Add validates and stages e.
func (b *Builder) Add(e Entry) error {
	if e.Surface == "" {
		return fmt.Errorf("%w: empty surface form", ErrInvalidEntry)
	}
	if strings.IndexByte(e.Surface, suggest.DefaultPayloadSep) >= 0 {
		return fmt.Errorf("%w: surface %q contains the payload separator", ErrInvalidEntry, e.Surface)
	}
	analyzed := Analyze(e.Surface)
	if strings.IndexByte(analyzed, suggest.DefaultEndByte) >= 0 || strings.IndexByte(analyzed, ContextSep) >= 0 {
		return fmt.Errorf("%w: surface %q contains a reserved byte", ErrInvalidEntry, e.Surface)
	}
	if e.DocID < 0 || e.DocID > suggest.MaxWeight {
		return fmt.Errorf("%w: doc id %d out of range", ErrInvalidEntry, e.DocID)
	}
	for _, ctx := range e.Contexts {
		if strings.IndexByte(ctx, ContextSep) >= 0 || strings.IndexByte(ctx, suggest.DefaultEndByte) >= 0 {
			return fmt.Errorf("%w: context %q contains a reserved byte", ErrInvalidEntry, ctx)
		}
	}
	weight, err := suggest.EncodeWeight(e.Weight)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidEntry, e.Surface, err)
	}

	s := staged{
		weight:   weight,
		payload:  suggest.MakePayload([]byte(e.Surface), e.DocID, suggest.DefaultPayloadSep),
		contexts: append([]string(nil), e.Contexts...),
	}
	appendStaged(b.staging, []byte(analyzed), s)

	b.count++
	if e.DocID >= b.maxDoc {
		b.maxDoc = e.DocID + 1
	}
	if len(e.Contexts) > 0 {
		b.hasContexts = true
	}
	return nil
}

func appendStaged(t *patricia.Trie, key []byte, s staged) {
	if item := t.Get(patricia.Prefix(key)); item != nil {
		group := item.(*[]staged)
		*group = append(*group, s)
		return
	}
	t.Insert(patricia.Prefix(key), &[]staged{s})
}

// CountPrefix returns how many staged entries have an analyzed form starting with
// prefix.
func (b *Builder) CountPrefix(prefix string) int {
	n := 0
	_ = b.staging.VisitSubtree(patricia.Prefix(Analyze(prefix)), func(_ patricia.Prefix, item patricia.Item) error {
		n += len(*item.(*[]staged))
		return nil
	})
	return n
}

// Build compiles the staged entries. When any entry has a context every entry is
// indexed under its contexts, and entries without one under the empty context.
func (b *Builder) Build() (*suggest.Suggester, error) {
	if b.count == 0 {
		return nil, ErrEmptyDictionary
	}
	groups := b.staging
	if b.hasContexts {
		groups = patricia.NewTrie()
		err := b.staging.Visit(func(key patricia.Prefix, item patricia.Item) error {
			for _, s := range *item.(*[]staged) {
				contexts := s.contexts
				if len(contexts) == 0 {
					contexts = []string{""}
				}
				for _, ctx := range contexts {
					input := make([]byte, 0, len(ctx)+1+len(key))
					input = append(input, ctx...)
					input = append(input, ContextSep)
					input = append(input, key...)
					appendStaged(groups, input, s)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	fb := fst.NewBuilder()
	maxFanout := 0
	err := groups.Visit(func(key patricia.Prefix, item patricia.Item) error {
		group := *item.(*[]staged)
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].weight != group[j].weight {
				return group[i].weight < group[j].weight
			}
			return bytes.Compare(group[i].payload, group[j].payload) < 0
		})
		maxFanout = max(maxFanout, len(group))

		input := make([]byte, 0, len(key)+2)
		input = append(input, key...)
		input = append(input, suggest.DefaultEndByte)
		return addWithDedupLabels(fb, input, group)
	})
	if err != nil {
		return nil, err
	}
	f, err := fb.Finish()
	if err != nil {
		return nil, err
	}
	log.Debugf("Compiled %d entries into %d nodes and %d arcs (max fan-out %d)",
		b.count, f.NumNodes(), f.NumArcs(), maxFanout)
	return suggest.NewSuggester(f, maxFanout, suggest.DefaultEndByte, suggest.DefaultPayloadSep), nil
}

// addWithDedupLabels appends distinct label bytes to input for each entry of a group.
// A label byte holds up to maxArcsForDedupByte(k) values; once full, its value becomes a
// pointer to a further byte, so inputs grow slowly with the group size.
func addWithDedupLabels(fb *fst.Builder, input []byte, group []staged) error {
	input = append(input, 0)
	numArcs, numBytes := 0, 1
	for _, s := range group {
		if numArcs == maxArcsForDedupByte(numBytes) {
			input[len(input)-1] = byte(numArcs)
			input = append(input, 0)
			numArcs = 0
			numBytes++
		}
		input[len(input)-1] = byte(numArcs)
		numArcs++
		if err := fb.Add(input, fst.Output{Weight: s.weight, Payload: s.payload}); err != nil {
			return fmt.Errorf("add %q: %w", input, err)
		}
	}
	return nil
}

func maxArcsForDedupByte(numBytes int) int {
	n := 1 + 2*numBytes
	if numBytes > 5 {
		n *= numBytes
	}
	return min(n, 255)
}
