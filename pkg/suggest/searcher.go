package suggest

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/typeahead/pkg/fst"
)

// SearchStats describes how a lookup went. Nothing in it is an error.
type SearchStats struct {
	// FrontierPaths is the number of automaton positions the query matched.
	FrontierPaths int
	// TopN is the number of results searched for, QueueSize the bound of the queue.
	TopN      int
	QueueSize int
	// Collected counts completions handed to the collector.
	Collected int
	// Rejected counts completed paths refused by the scorer or as duplicates.
	Rejected int
	// Evicted counts paths dropped because the queue was full.
	Evicted int
	// Expanded counts paths taken from the queue.
	Expanded int
	// Complete is true when no eviction happened and the queue could hold every
	// rejected path plus topN, i.e. the results are the true top N.
	Complete bool
	// Terminated is true when the collector stopped the search early.
	Terminated bool
}

// step is one way out of a node: an arc, or the node's final output.
type step struct {
	label  byte
	final  bool
	target fst.NodeID
	out    fst.Output
}

// topNSearcher explores the automaton best first from the frontier paths and hands
// accepted completions to the collector. One searcher serves one lookup.
type topNSearcher struct {
	fst       *fst.FST
	scorer    *CompletionScorer
	liveDocs  *roaring.Bitmap
	collector Collector
	sep       byte

	skipDuplicates bool
	seen           SurfaceSet

	topN     int
	queueCap int
	queue    *pathQueue

	steps []step
	stats SearchStats
}

func newTopNSearcher(f *fst.FST, sep byte, topN, queueCap int, scorer *CompletionScorer, liveDocs *roaring.Bitmap, c Collector) *topNSearcher {
	s := &topNSearcher{
		fst:            f,
		scorer:         scorer,
		liveDocs:       liveDocs,
		collector:      c,
		sep:            sep,
		skipDuplicates: c.SkipDuplicates(),
		topN:           topN,
		queueCap:       queueCap,
		queue:          newPathQueue(queueCap),
	}
	if s.skipDuplicates {
		s.seen = c.SeenSurfaceForms()
		if s.seen == nil {
			s.seen = make(SurfaceSet)
		}
	}
	s.stats.TopN = topN
	s.stats.QueueSize = queueCap
	return s
}

// stepsFrom lists the ways out of node, final output first. The returned slice is reused
// by the next call.
func (s *topNSearcher) stepsFrom(node fst.NodeID) []step {
	s.steps = s.steps[:0]
	if s.fst.IsFinal(node) {
		s.steps = append(s.steps, step{final: true, target: node, out: s.fst.FinalOutput(node)})
	}
	for _, a := range s.fst.Arcs(node) {
		s.steps = append(s.steps, step{label: a.Label, target: a.Target, out: a.Output})
	}
	return s.steps
}

func (s *topNSearcher) score(weight int64, boost float32) float32 {
	return s.scorer.Score(float32(DecodeWeight(weight)), boost)
}

// startPath seeds a search path at a frontier. The frontier output may already hold the
// separator, so it is scanned whole here; children only scan the bytes their arc adds.
func startPath(p PrefixPath, sep byte, boost float32, context string) *SearchPath {
	base := newSearchPath(p.Node, p.Output, p.Input, boost, context)
	base.findSepInLast(sep)
	return base
}

// addStartPaths queues every way out of a frontier path.
func (s *topNSearcher) addStartPaths(p PrefixPath, boost float32, context string) {
	s.stats.FrontierPaths++
	base := startPath(p, s.sep, boost, context)
	for _, st := range s.stepsFrom(p.Node) {
		s.addIfCompetitive(base, st)
	}
}

// addIfCompetitive queues base moved along st unless a full queue already holds only
// better paths.
func (s *topNSearcher) addIfCompetitive(base *SearchPath, st step) {
	if s.queueCap <= 0 {
		return
	}
	out := fst.Add(base.Output, st.out)
	score := s.score(out.Weight, base.Boost)
	if s.queue.Len() >= s.queueCap {
		worst := s.queue.worst()
		if score < worst.score {
			return
		}
		if score == worst.score && compareExtended(base.Input, st, worst.Input) > 0 {
			return
		}
	}
	next := base.extend(st)
	next.score = score
	if !s.acceptPartialPath(next) {
		return
	}
	s.queue.push(next)
	if s.queue.Len() > s.queueCap {
		s.queue.popWorst()
		s.stats.Evicted++
	}
}

// compareExtended compares input moved along st with other without allocating.
func compareExtended(input []byte, st step, other []byte) int {
	n := len(input)
	if !st.final {
		n++
	}
	for i := 0; i < n && i < len(other); i++ {
		var b byte
		if i < len(input) {
			b = input[i]
		} else {
			b = st.label
		}
		if b != other[i] {
			if b < other[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case n < len(other):
		return -1
	case n > len(other):
		return 1
	}
	return 0
}

// search runs until topN completions are collected or the queue runs dry.
func (s *topNSearcher) search() error {
	results := 0
	for results < s.topN && s.queue != nil {
		path := s.queue.popBest()
		if path == nil {
			break
		}
		s.stats.Expanded++
		if !s.acceptPartialPath(path) {
			continue
		}
		if path.final {
			ok, err := s.acceptResult(path)
			if err != nil {
				return err
			}
			if ok {
				results++
			} else {
				s.stats.Rejected++
			}
			continue
		}
		if results == s.topN-1 && s.queueCap == s.topN {
			// Only the last result is missing and nothing queued can beat this path.
			s.queue = nil
		}

		for {
			steps := s.stepsFrom(path.Node)
			if len(steps) == 0 {
				break
			}
			// Follow the cheapest way out, the first on ties, and queue the rest.
			next := 0
			for i := 1; i < len(steps); i++ {
				if steps[i].out.Weight < steps[next].out.Weight {
					next = i
				}
			}
			if s.queue != nil {
				for i, st := range steps {
					if i != next {
						s.addIfCompetitive(path, st)
					}
				}
			}
			st := steps[next]
			path.advance(st)
			if st.final {
				path.score = s.score(path.Output.Weight, path.Boost)
				ok, err := s.acceptResult(path)
				if err != nil {
					return err
				}
				if ok {
					results++
				} else {
					s.stats.Rejected++
				}
				break
			}
			if !s.acceptPartialPath(path) {
				break
			}
		}
	}
	s.stats.Complete = s.stats.Evicted == 0 && s.stats.Rejected+s.topN <= s.queueCap
	return nil
}

// acceptPartialPath prunes paths whose surface form was already collected. It only looks
// at the bytes the last arc appended to find the separator.
func (s *topNSearcher) acceptPartialPath(p *SearchPath) bool {
	if !s.skipDuplicates {
		return true
	}
	i := p.findSepInLast(s.sep)
	if i < 0 {
		return true
	}
	return !s.seen.Contains(p.Output.Payload[:i])
}

// acceptResult decodes a completed path and forwards it to the collector if the scorer
// accepts the document and the surface form is new.
func (s *topNSearcher) acceptResult(p *SearchPath) (bool, error) {
	i, err := p.findSepFull(s.sep)
	if err != nil {
		return false, err
	}
	payload := p.Output.Payload
	docID, err := ReadDocID(payload[i+1:])
	if err != nil {
		return false, err
	}
	ok, err := s.scorer.Accept(docID, s.liveDocs)
	if err != nil || !ok {
		return false, err
	}
	surface := payload[:i]
	if s.skipDuplicates {
		if s.seen.Contains(surface) {
			return false, nil
		}
		s.seen.Add(string(surface))
	}
	if err := s.collector.Collect(docID, string(surface), p.Context, p.score); err != nil {
		return false, err
	}
	s.stats.Collected++
	return true, nil
}
