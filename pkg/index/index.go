// Package index groups compiled segments into one searchable, deletable index with a
// result cache in front of it.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoSegments is returned by Open when the directory holds no segment files.
	ErrNoSegments = errors.New("no segment files found")
	// ErrDocNotFound is returned for doc ids outside every segment.
	ErrDocNotFound = errors.New("doc id not in index")
)

// Options tune an Index.
type Options struct {
	// CacheSize is the number of query results kept; 0 disables the cache.
	CacheSize int
	// MaxSegments limits how many segment files Open loads; 0 loads all.
	MaxSegments int
	// OpenConcurrency bounds concurrent segment loads.
	OpenConcurrency int

	FuzzyMaxEdits    int
	FuzzyMinLength   int // shorter prefixes are matched exactly
	FuzzyExactPrefix int // leading runes that must match without edits
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		CacheSize:        1024,
		OpenConcurrency:  4,
		FuzzyMaxEdits:    1,
		FuzzyMinLength:   3,
		FuzzyExactPrefix: 1,
	}
}

// Suggestion is one completion returned by Suggest.
type Suggestion struct {
	Word    string
	DocID   int
	Score   float32
	Context string
}

// Index is a set of segments searched as one. Doc ids are global: each segment owns the
// range starting at its doc base.
type Index struct {
	mu       sync.RWMutex
	segments []*Segment
	docBases []int
	maxDoc   int

	opts   Options
	cache  *lru.Cache[string, []Suggestion]
	logger *log.Logger

	// gen counts cache purges, so results computed before a purge are not cached after it.
	gen       atomic.Uint64
	queries   atomic.Int64
	cacheHits atomic.Int64
	partial   atomic.Int64
}

// New returns an empty index.
func New(opts Options) *Index {
	ix := &Index{opts: opts, logger: logger.New("index")}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, []Suggestion](opts.CacheSize)
		if err != nil {
			ix.logger.Errorf("Failed to create result cache: %v", err)
		} else {
			ix.cache = cache
		}
	}
	return ix
}

// Open loads every segment file in dir concurrently. Segments are ordered by file name,
// which fixes their doc bases.
func Open(ctx context.Context, dir string, opts Options) (*Index, error) {
	files, err := dictionary.ListSegmentFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSegments, dir)
	}
	if opts.MaxSegments > 0 && len(files) > opts.MaxSegments {
		log.Warnf("Loading %d of %d segments in %s", opts.MaxSegments, len(files), dir)
		files = files[:opts.MaxSegments]
	}

	segments := make([]*Segment, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.OpenConcurrency, 1))
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seg, err := OpenSegment(path)
			if err != nil {
				return err
			}
			segments[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix := New(opts)
	for _, seg := range segments {
		ix.AddSegment(seg)
	}
	ix.logger.Infof("Opened %d segments from %s (%d docs)", len(segments), dir, ix.MaxDoc())
	return ix, nil
}

// AddSegment appends seg; its doc base is the index's current MaxDoc.
func (ix *Index) AddSegment(seg *Segment) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.segments = append(ix.segments, seg)
	ix.docBases = append(ix.docBases, ix.maxDoc)
	ix.maxDoc += seg.MaxDoc()
	ix.purgeCache()
}

// Segments returns the segments in doc base order.
func (ix *Index) Segments() []*Segment {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]*Segment(nil), ix.segments...)
}

// MaxDoc is one past the largest global doc id.
func (ix *Index) MaxDoc() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.maxDoc
}

// NumDocs is the number of live documents over all segments.
func (ix *Index) NumDocs() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, seg := range ix.segments {
		n += seg.NumDocs()
	}
	return n
}

// Suggest returns up to q.N completions of q.Prefix over all segments, best first.
func (ix *Index) Suggest(q Query) ([]Suggestion, error) {
	ix.queries.Add(1)
	key, cacheable := q.cacheKey()
	if cacheable && ix.cache != nil {
		if hit, ok := ix.cache.Get(key); ok {
			ix.cacheHits.Add(1)
			return append([]Suggestion(nil), hit...), nil
		}
	}

	gen := ix.gen.Load()
	ix.mu.RLock()
	segments, docBases := ix.segments, ix.docBases
	ix.mu.RUnlock()

	c := suggest.NewTopSuggestDocsCollector(q.N, q.SkipDuplicates)
	for i, seg := range segments {
		a, weight, ok := ix.compile(q, seg)
		if !ok {
			continue
		}
		base := docBases[i]
		scorer := &suggest.CompletionScorer{Automaton: a, Weight: weight}
		if q.Filter != nil {
			scorer.Filter = segmentFilter(q.Filter, base, seg.MaxDoc())
			scorer.Filtered = true
		}
		if q.Accept != nil {
			accept := q.Accept
			scorer.AcceptFunc = func(docID int) (bool, error) { return accept(base + docID) }
			scorer.Filtered = true
		}
		c.SetNextSegment(base)
		stats, err := seg.Lookup(scorer, c)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", seg.Name(), err)
		}
		if stats.QueueSize > 0 && !stats.Complete {
			ix.partial.Add(1)
		}
	}

	docs := c.Get()
	out := make([]Suggestion, len(docs))
	for i, d := range docs {
		out[i] = Suggestion{Word: d.Key, DocID: d.DocID, Score: d.Score, Context: d.Context}
	}
	if cacheable && ix.cache != nil && ix.gen.Load() == gen {
		ix.cache.Add(key, append([]Suggestion(nil), out...))
	}
	return out, nil
}

// Delete removes the global doc id from search results. It reports whether the
// document was live.
func (ix *Index) Delete(docID int) (bool, error) {
	ix.mu.RLock()
	i := sort.Search(len(ix.docBases), func(i int) bool { return ix.docBases[i] > docID }) - 1
	if docID < 0 || i < 0 || docID >= ix.maxDoc {
		ix.mu.RUnlock()
		return false, fmt.Errorf("%w: %d", ErrDocNotFound, docID)
	}
	seg, base := ix.segments[i], ix.docBases[i]
	ix.mu.RUnlock()

	if !seg.Delete(docID - base) {
		return false, nil
	}
	ix.purgeCache()
	return true, nil
}

// Save writes every segment with pending changes.
func (ix *Index) Save() error {
	var errs []error
	for _, seg := range ix.Segments() {
		if !seg.Dirty() {
			continue
		}
		if err := seg.Save(); err != nil {
			errs = append(errs, err)
			continue
		}
		ix.logger.Debugf("Saved segment %s", seg.Path())
	}
	return errors.Join(errs...)
}

func (ix *Index) purgeCache() {
	ix.gen.Add(1)
	if ix.cache != nil {
		ix.cache.Purge()
	}
}

// Stats reports counts about the index and its cache.
func (ix *Index) Stats() map[string]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	stats := map[string]int{
		"segments":       len(ix.segments),
		"maxDoc":         ix.maxDoc,
		"queries":        int(ix.queries.Load()),
		"cacheHits":      int(ix.cacheHits.Load()),
		"partialLookups": int(ix.partial.Load()),
	}
	var live, ram int64
	for _, seg := range ix.segments {
		live += int64(seg.NumDocs())
		ram += seg.Suggester().RAMBytesUsed()
	}
	stats["numDocs"] = int(live)
	stats["ramBytes"] = int(ram)
	if ix.cache != nil {
		stats["cacheEntries"] = ix.cache.Len()
		stats["cacheSize"] = ix.opts.CacheSize
	}
	return stats
}
