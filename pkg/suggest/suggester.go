package suggest

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/typeahead/pkg/fst"
)

const (
	recordMagic   = "NRTS"
	recordVersion = 1
)

// Suggester answers top N completion lookups over one immutable weighted automaton. It is
// safe for concurrent use.
type Suggester struct {
	fst        *fst.FST
	maxFanout  int
	endByte    byte
	payloadSep byte
}

// NewSuggester wraps an automaton whose outputs hold encoded weights and payloads built
// with payloadSep. maxFanout is the largest number of entries that share one analyzed
// form.
func NewSuggester(f *fst.FST, maxFanout int, endByte, payloadSep byte) *Suggester {
	if maxFanout < 1 {
		maxFanout = 1
	}
	return &Suggester{fst: f, maxFanout: maxFanout, endByte: endByte, payloadSep: payloadSep}
}

func (s *Suggester) FST() *fst.FST    { return s.fst }
func (s *Suggester) MaxFanout() int   { return s.maxFanout }
func (s *Suggester) EndByte() byte    { return s.endByte }
func (s *Suggester) PayloadSep() byte { return s.payloadSep }

// RAMBytesUsed estimates the memory held by the automaton.
func (s *Suggester) RAMBytesUsed() int64 {
	if s.fst == nil {
		return 0
	}
	return s.fst.RAMBytesUsed()
}

// Lookup collects the best completions the scorer's automaton matches. Results reach the
// collector in descending score order unless the bounded queue had to evict paths, which
// SearchStats reports. A segment without live documents returns before the collector is
// touched.
func (s *Suggester) Lookup(scorer *CompletionScorer, liveDocs *roaring.Bitmap, collector Collector) (SearchStats, error) {
	liveRatio := LiveDocsRatio(scorer.NumDocs, scorer.MaxDoc)
	if liveRatio == -1 {
		return SearchStats{}, nil
	}
	paths := IntersectPrefixPaths(scorer.Automaton, s.fst)
	if len(paths) == 0 {
		return SearchStats{}, nil
	}

	// Every frontier path may lead to the same completions under another context, so
	// each gets room for a full result set.
	topN := collector.CountToCollect() * len(paths)
	queueSize := QueueSize(topN, s.maxFanout, scorer.MaxDoc, liveRatio, scorer.Filtered)

	searcher := newTopNSearcher(s.fst, s.payloadSep, topN, queueSize, scorer, liveDocs, collector)
	weight := scorer.weight()
	for _, p := range paths {
		weight.SetNextMatch(p.Input)
		searcher.addStartPaths(p, weight.Boost(), weight.Context())
	}
	err := searcher.search()
	if errors.Is(err, ErrCollectionTerminated) {
		searcher.stats.Terminated = true
		// The collector has what it asked for, so only evictions can have cost a result.
		searcher.stats.Complete = searcher.stats.Evicted == 0
		return searcher.stats, nil
	}
	return searcher.stats, err
}

// MarshalBinary encodes the suggester record: magic, version, the automaton, the maximum
// fan-out, the end byte and the payload separator.
func (s *Suggester) MarshalBinary() ([]byte, error) {
	automaton, err := s.fst.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal automaton: %w", err)
	}
	buf := make([]byte, 0, len(automaton)+32)
	buf = append(buf, recordMagic...)
	buf = append(buf, recordVersion)
	buf = binary.AppendUvarint(buf, uint64(len(automaton)))
	buf = append(buf, automaton...)
	buf = binary.AppendUvarint(buf, uint64(uint32(s.maxFanout)))
	buf = binary.AppendUvarint(buf, uint64(s.endByte))
	buf = binary.AppendUvarint(buf, uint64(s.payloadSep))
	return buf, nil
}

// UnmarshalSuggester decodes a record written by MarshalBinary.
func UnmarshalSuggester(data []byte) (*Suggester, error) {
	if len(data) < len(recordMagic)+1 || string(data[:len(recordMagic)]) != recordMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidRecord)
	}
	off := len(recordMagic)
	if v := data[off]; v != recordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidRecord, v)
	}
	off++

	next := func(what string, limit uint64) (uint64, error) {
		v, n := binary.Uvarint(data[off:])
		if n <= 0 {
			return 0, fmt.Errorf("%w: truncated %s", ErrInvalidRecord, what)
		}
		if v > limit {
			return 0, fmt.Errorf("%w: %s %d out of range", ErrInvalidRecord, what, v)
		}
		off += n
		return v, nil
	}

	size, err := next("automaton length", uint64(len(data)))
	if err != nil {
		return nil, err
	}
	if uint64(len(data)-off) < size {
		return nil, fmt.Errorf("%w: automaton length %d exceeds record", ErrInvalidRecord, size)
	}
	f := new(fst.FST)
	if err := f.UnmarshalBinary(data[off : off+int(size)]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	off += int(size)

	fanout, err := next("max fan-out", 1<<32-1)
	if err != nil {
		return nil, err
	}
	endByte, err := next("end byte", 0xFF)
	if err != nil {
		return nil, err
	}
	sep, err := next("payload separator", 0xFF)
	if err != nil {
		return nil, err
	}
	if off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidRecord, len(data)-off)
	}
	return NewSuggester(f, int(fanout), byte(endByte), byte(sep)), nil
}
