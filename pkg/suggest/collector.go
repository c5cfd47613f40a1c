package suggest

import (
	"container/heap"
	"sort"
)

// SurfaceSet records surface forms already collected during one lookup.
type SurfaceSet map[string]struct{}

// Contains reports whether surface was recorded.
func (s SurfaceSet) Contains(surface []byte) bool {
	_, ok := s[string(surface)]
	return ok
}

// Add records surface.
func (s SurfaceSet) Add(surface string) { s[surface] = struct{}{} }

// Collector receives accepted completions in best-effort descending score order.
type Collector interface {
	// CountToCollect is the number of results the caller wants.
	CountToCollect() int
	// SkipDuplicates asks the search to drop completions whose surface form was
	// already collected.
	SkipDuplicates() bool
	// SeenSurfaceForms is the set the search reads and writes when skipping
	// duplicates. It must stay the same set for the whole lookup.
	SeenSurfaceForms() SurfaceSet
	// Collect receives one completion. Returning ErrCollectionTerminated stops the
	// lookup without error.
	Collect(docID int, surface, context string, score float32) error
}

// SuggestScoreDoc is one collected completion.
type SuggestScoreDoc struct {
	DocID   int
	Key     string
	Context string
	Score   float32
}

// less orders by score descending, then key, then doc id.
func (d SuggestScoreDoc) less(o SuggestScoreDoc) bool {
	if d.Score != o.Score {
		return d.Score > o.Score
	}
	if d.Key != o.Key {
		return d.Key < o.Key
	}
	return d.DocID < o.DocID
}

// TopSuggestDocsCollector keeps the best N completions across one or more segments.
type TopSuggestDocsCollector struct {
	num            int
	skipDuplicates bool
	seen           SurfaceSet
	docBase        int

	hits       worstFirst
	pending    []SuggestScoreDoc
	segmentHit int
}

// NewTopSuggestDocsCollector returns a collector for num results. num below 1 is
// treated as 1.
func NewTopSuggestDocsCollector(num int, skipDuplicates bool) *TopSuggestDocsCollector {
	if num < 1 {
		num = 1
	}
	return &TopSuggestDocsCollector{
		num:            num,
		skipDuplicates: skipDuplicates,
		seen:           make(SurfaceSet),
	}
}

func (c *TopSuggestDocsCollector) CountToCollect() int          { return c.num }
func (c *TopSuggestDocsCollector) SkipDuplicates() bool         { return c.skipDuplicates }
func (c *TopSuggestDocsCollector) SeenSurfaceForms() SurfaceSet { return c.seen }

// SetNextSegment prepares the collector for the next segment: doc ids are shifted by
// docBase and surface forms seen so far are forgotten, since another segment may hold a
// better scoring copy. Cross-segment duplicates are resolved in Get.
func (c *TopSuggestDocsCollector) SetNextSegment(docBase int) {
	c.docBase = docBase
	c.segmentHit = 0
	if len(c.seen) > 0 {
		c.seen = make(SurfaceSet)
	}
}

// Collect implements Collector.
func (c *TopSuggestDocsCollector) Collect(docID int, surface, context string, score float32) error {
	doc := SuggestScoreDoc{DocID: c.docBase + docID, Key: surface, Context: context, Score: score}
	if c.skipDuplicates {
		c.pending = append(c.pending, doc)
		c.segmentHit++
		if c.segmentHit >= c.num {
			return ErrCollectionTerminated
		}
		return nil
	}
	if len(c.hits) < c.num {
		heap.Push(&c.hits, doc)
		return nil
	}
	if !doc.less(c.hits[0]) {
		// Later completions of this segment score no higher.
		return ErrCollectionTerminated
	}
	c.hits[0] = doc
	heap.Fix(&c.hits, 0)
	return nil
}

// Len returns how many completions are currently held.
func (c *TopSuggestDocsCollector) Len() int {
	return len(c.hits) + len(c.pending)
}

// Get returns the collected completions, best first.
func (c *TopSuggestDocsCollector) Get() []SuggestScoreDoc {
	if c.skipDuplicates {
		docs := append([]SuggestScoreDoc(nil), c.pending...)
		sort.Slice(docs, func(i, j int) bool { return docs[i].less(docs[j]) })
		seen := make(map[string]struct{}, len(docs))
		out := docs[:0]
		for _, d := range docs {
			if _, dup := seen[d.Key]; dup {
				continue
			}
			seen[d.Key] = struct{}{}
			out = append(out, d)
			if len(out) == c.num {
				break
			}
		}
		return out
	}
	docs := append([]SuggestScoreDoc(nil), c.hits...)
	sort.Slice(docs, func(i, j int) bool { return docs[i].less(docs[j]) })
	return docs
}

// worstFirst is a heap whose root is the lowest ranked completion.
type worstFirst []SuggestScoreDoc

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return h[j].less(h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(SuggestScoreDoc)) }
func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
