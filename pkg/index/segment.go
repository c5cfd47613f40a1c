package index

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/bastiangx/typeahead/pkg/suggest"
)

// Segment is one immutable suggester plus its mutable set of live documents.
type Segment struct {
	name        string
	path        string
	suggester   *suggest.Suggester
	maxDoc      int
	hasContexts bool

	// live is replaced, never mutated, so lookups can read it without locking.
	live  atomic.Pointer[roaring.Bitmap]
	mu    sync.Mutex // serializes writers of live
	dirty atomic.Bool
}

// NewSegment wraps a decoded segment file. path may be empty for segments that were
// never written.
func NewSegment(name, path string, sf *dictionary.SegmentFile) *Segment {
	s := &Segment{
		name:        name,
		path:        path,
		suggester:   sf.Suggester,
		maxDoc:      sf.MaxDoc,
		hasContexts: sf.HasContexts,
	}
	live := roaring.New()
	live.AddRange(0, uint64(sf.MaxDoc))
	if sf.Deleted != nil {
		live.AndNot(sf.Deleted)
	}
	live.RunOptimize()
	s.live.Store(live)
	return s
}

// OpenSegment loads the segment file or text dictionary at path.
func OpenSegment(path string) (*Segment, error) {
	sf, err := dictionary.Load(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if filepath.Ext(path) != dictionary.SegmentExt {
		// Text dictionaries are compiled in memory and saved next to the source.
		path = strings.TrimSuffix(path, filepath.Ext(path)) + dictionary.SegmentExt
		s := NewSegment(name, path, sf)
		s.dirty.Store(true)
		return s, nil
	}
	return NewSegment(name, path, sf), nil
}

func (s *Segment) Name() string                  { return s.name }
func (s *Segment) Path() string                  { return s.path }
func (s *Segment) Suggester() *suggest.Suggester { return s.suggester }
func (s *Segment) MaxDoc() int                   { return s.maxDoc }
func (s *Segment) HasContexts() bool             { return s.hasContexts }
func (s *Segment) Dirty() bool                   { return s.dirty.Load() }

// LiveDocs returns the current snapshot of live doc ids. Callers must not modify it.
func (s *Segment) LiveDocs() *roaring.Bitmap { return s.live.Load() }

// NumDocs is the number of live documents.
func (s *Segment) NumDocs() int { return int(s.live.Load().GetCardinality()) }

// Delete marks docID deleted and reports whether it was live.
func (s *Segment) Delete(docID int) bool {
	if docID < 0 || docID >= s.maxDoc {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.live.Load()
	if !cur.Contains(uint32(docID)) {
		return false
	}
	next := cur.Clone()
	next.Remove(uint32(docID))
	s.live.Store(next)
	s.dirty.Store(true)
	return true
}

// Deleted returns the deleted doc ids.
func (s *Segment) Deleted() *roaring.Bitmap {
	all := roaring.New()
	all.AddRange(0, uint64(s.maxDoc))
	all.AndNot(s.live.Load())
	return all
}

// Save writes the segment, deletions included, to its path.
func (s *Segment) Save() error {
	if s.path == "" {
		return fmt.Errorf("segment %s has no path", s.name)
	}
	sf := &dictionary.SegmentFile{
		Suggester:   s.suggester,
		MaxDoc:      s.maxDoc,
		HasContexts: s.hasContexts,
		Deleted:     s.Deleted(),
	}
	if err := dictionary.WriteSegmentFile(s.path, sf); err != nil {
		return err
	}
	s.dirty.Store(false)
	return nil
}

// Lookup runs one segment-local lookup against the current live docs.
func (s *Segment) Lookup(scorer *suggest.CompletionScorer, c suggest.Collector) (suggest.SearchStats, error) {
	live := s.live.Load()
	scorer.NumDocs = int(live.GetCardinality())
	scorer.MaxDoc = s.maxDoc
	return s.suggester.Lookup(scorer, live, c)
}
