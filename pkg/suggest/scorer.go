package suggest

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/typeahead/pkg/automaton"
)

// MatchWeight supplies the boost and context of each frontier path. SetNextMatch is called
// once per frontier path, before Boost and Context are read for it.
type MatchWeight interface {
	SetNextMatch(input []byte)
	Boost() float32
	Context() string
}

// NoMatchWeight gives every frontier path a zero boost and no context.
type NoMatchWeight struct{}

func (NoMatchWeight) SetNextMatch([]byte) {}
func (NoMatchWeight) Boost() float32      { return 0 }
func (NoMatchWeight) Context() string     { return "" }

// CompletionScorer carries everything a lookup needs from the caller: the query
// automaton, the per-match weight, the segment's document counts and the acceptance and
// scoring policy.
type CompletionScorer struct {
	Automaton automaton.Automaton
	Weight    MatchWeight

	// NumDocs is the number of live documents, MaxDoc the number of documents including
	// deleted ones.
	NumDocs int
	MaxDoc  int

	// Filtered reports that Accept applies a restriction beyond live docs. It inflates
	// the search queue.
	Filtered bool

	// Filter restricts accepted doc ids when non-nil.
	Filter *roaring.Bitmap

	// AcceptFunc is an optional extra predicate. Its errors abort the lookup.
	AcceptFunc func(docID int) (bool, error)

	// ScoreFunc combines the decoded weight with the path boost. DefaultScore when nil.
	ScoreFunc func(weight, boost float32) float32
}

// Accept reports whether docID may be returned. A nil liveDocs means every document
// below MaxDoc is live.
func (s *CompletionScorer) Accept(docID int, liveDocs *roaring.Bitmap) (bool, error) {
	if docID < 0 || (s.MaxDoc > 0 && docID >= s.MaxDoc) {
		return false, nil
	}
	if liveDocs != nil && !liveDocs.Contains(uint32(docID)) {
		return false, nil
	}
	if s.Filter != nil && !s.Filter.Contains(uint32(docID)) {
		return false, nil
	}
	if s.AcceptFunc != nil {
		return s.AcceptFunc(docID)
	}
	return true, nil
}

// Score combines an index-time weight with a query-time boost.
func (s *CompletionScorer) Score(weight, boost float32) float32 {
	if s.ScoreFunc != nil {
		return s.ScoreFunc(weight, boost)
	}
	return DefaultScore(weight, boost)
}

func (s *CompletionScorer) weight() MatchWeight {
	if s.Weight == nil {
		return NoMatchWeight{}
	}
	return s.Weight
}

// DefaultScore multiplies weight by boost, treating a zero on either side as absent.
func DefaultScore(weight, boost float32) float32 {
	if boost == 0 {
		return weight
	}
	if weight == 0 {
		return boost
	}
	return weight * boost
}
