package fst

import (
	"encoding/binary"
	"fmt"
)

const (
	magic   = "WFST"
	version = 1

	flagFinal = 1 << 0
)

// MarshalBinary encodes the automaton. Weights must be non-negative, which the builder
// guarantees after output pushing.
func (f *FST) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 16+len(f.nodes)*4+len(f.arcs)*6)
	buf = append(buf, magic...)
	buf = append(buf, version)
	buf = binary.AppendUvarint(buf, uint64(len(f.nodes)))
	buf = binary.AppendUvarint(buf, uint64(len(f.arcs)))
	for i := range f.nodes {
		n := &f.nodes[i]
		var flags byte
		if n.final {
			flags |= flagFinal
		}
		buf = append(buf, flags)
		if n.final {
			var err error
			if buf, err = appendOutput(buf, n.finalOutput); err != nil {
				return nil, err
			}
		}
		buf = binary.AppendUvarint(buf, uint64(n.numArcs))
		for _, a := range f.Arcs(NodeID(i)) {
			buf = append(buf, a.Label)
			buf = binary.AppendUvarint(buf, uint64(a.Target))
			var err error
			if buf, err = appendOutput(buf, a.Output); err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

func appendOutput(buf []byte, o Output) ([]byte, error) {
	if o.Weight < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeWeight, o.Weight)
	}
	buf = binary.AppendUvarint(buf, uint64(o.Weight))
	buf = binary.AppendUvarint(buf, uint64(len(o.Payload)))
	return append(buf, o.Payload...), nil
}

// UnmarshalBinary decodes data produced by MarshalBinary. data is copied; payloads
// reference the private copy.
func (f *FST) UnmarshalBinary(data []byte) error {
	r := &reader{buf: append([]byte(nil), data...)}
	if len(r.buf) < len(magic)+1 || string(r.buf[:len(magic)]) != magic {
		return fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	r.off = len(magic)
	if v := r.readByte(); v != version {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	numNodes := r.uvarint()
	numArcs := r.uvarint()
	if r.err != nil {
		return r.err
	}
	if numNodes == 0 || numNodes > uint64(len(r.buf)) || numArcs > uint64(len(r.buf)) {
		return fmt.Errorf("%w: implausible sizes nodes=%d arcs=%d", ErrCorrupt, numNodes, numArcs)
	}
	nodes := make([]node, numNodes)
	arcs := make([]Arc, 0, numArcs)
	for i := range nodes {
		flags := r.readByte()
		n := node{final: flags&flagFinal != 0, firstArc: int32(len(arcs))}
		if n.final {
			n.finalOutput = r.output()
		}
		count := r.uvarint()
		if r.err != nil {
			return r.err
		}
		if uint64(len(arcs))+count > numArcs {
			return fmt.Errorf("%w: node %d overflows arc table", ErrCorrupt, i)
		}
		n.numArcs = int32(count)
		var prev int
		for j := uint64(0); j < count; j++ {
			label := r.readByte()
			target := r.uvarint()
			out := r.output()
			if r.err != nil {
				return r.err
			}
			if target >= numNodes {
				return fmt.Errorf("%w: arc target %d out of range", ErrCorrupt, target)
			}
			if j > 0 && int(label) <= prev {
				return fmt.Errorf("%w: unsorted arcs at node %d", ErrCorrupt, i)
			}
			prev = int(label)
			arcs = append(arcs, Arc{Label: label, Target: NodeID(target), Output: out})
		}
		nodes[i] = n
	}
	if r.err != nil {
		return r.err
	}
	if uint64(len(arcs)) != numArcs {
		return fmt.Errorf("%w: expected %d arcs, read %d", ErrCorrupt, numArcs, len(arcs))
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(r.buf)-r.off)
	}
	f.nodes = nodes
	f.arcs = arcs
	return nil
}

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) readByte() byte {
	if r.err != nil {
		return 0
	}
	if r.off >= len(r.buf) {
		r.err = fmt.Errorf("%w: unexpected end of data", ErrCorrupt)
		return 0
	}
	b := r.buf[r.off]
	r.off++
	return b
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		r.err = fmt.Errorf("%w: bad varint at offset %d", ErrCorrupt, r.off)
		return 0
	}
	r.off += n
	return v
}

func (r *reader) output() Output {
	w := r.uvarint()
	l := r.uvarint()
	if r.err != nil {
		return NoOutput
	}
	if w > 1<<62 || l > uint64(len(r.buf)-r.off) {
		r.err = fmt.Errorf("%w: output out of range at offset %d", ErrCorrupt, r.off)
		return NoOutput
	}
	var payload []byte
	if l > 0 {
		payload = r.buf[r.off : r.off+int(l) : r.off+int(l)]
		r.off += int(l)
	}
	return Output{Weight: int64(w), Payload: payload}
}
