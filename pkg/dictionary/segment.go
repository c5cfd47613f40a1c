package dictionary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/edsrzf/mmap-go"
)

const (
	// SegmentExt is the file extension of compiled segments.
	SegmentExt = ".tas"

	segmentMagic   = "TASG"
	segmentVersion = 1

	flagContexts = 1 << 0
)

// ErrInvalidSegment is returned for segment files that cannot be decoded.
var ErrInvalidSegment = errors.New("invalid segment file")

// SegmentFile is the on-disk form of one segment.
type SegmentFile struct {
	Suggester   *suggest.Suggester
	MaxDoc      int
	HasContexts bool
	// Deleted holds deleted doc ids; nil when none are deleted.
	Deleted *roaring.Bitmap
}

// MarshalBinary encodes magic, version, flags, maxDoc, the deleted bitmap (length
// prefixed, zero length when empty) and the suggester record.
func (sf *SegmentFile) MarshalBinary() ([]byte, error) {
	record, err := sf.Suggester.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var deleted []byte
	if sf.Deleted != nil && !sf.Deleted.IsEmpty() {
		sf.Deleted.RunOptimize()
		if deleted, err = sf.Deleted.ToBytes(); err != nil {
			return nil, fmt.Errorf("encode deleted docs: %w", err)
		}
	}
	var flags byte
	if sf.HasContexts {
		flags |= flagContexts
	}
	buf := make([]byte, 0, len(record)+len(deleted)+32)
	buf = append(buf, segmentMagic...)
	buf = append(buf, segmentVersion, flags)
	buf = binary.AppendUvarint(buf, uint64(sf.MaxDoc))
	buf = binary.AppendUvarint(buf, uint64(len(deleted)))
	buf = append(buf, deleted...)
	return append(buf, record...), nil
}

// UnmarshalSegment decodes data written by MarshalBinary. It copies whatever it keeps, so
// data may be unmapped afterwards.
func UnmarshalSegment(data []byte) (*SegmentFile, error) {
	head := len(segmentMagic) + 2
	if len(data) < head || string(data[:len(segmentMagic)]) != segmentMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidSegment)
	}
	if v := data[len(segmentMagic)]; v != segmentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSegment, v)
	}
	flags := data[len(segmentMagic)+1]
	off := head

	maxDoc, n := binary.Uvarint(data[off:])
	if n <= 0 || maxDoc > suggest.MaxWeight {
		return nil, fmt.Errorf("%w: bad max doc", ErrInvalidSegment)
	}
	off += n
	size, n := binary.Uvarint(data[off:])
	if n <= 0 || size > uint64(len(data)-off-n) {
		return nil, fmt.Errorf("%w: bad deleted docs length", ErrInvalidSegment)
	}
	off += n

	sf := &SegmentFile{MaxDoc: int(maxDoc), HasContexts: flags&flagContexts != 0}
	if size > 0 {
		sf.Deleted = roaring.New()
		// UnmarshalBinary copies, unlike FromBuffer.
		if err := sf.Deleted.UnmarshalBinary(data[off : off+int(size)]); err != nil {
			return nil, fmt.Errorf("%w: deleted docs: %w", ErrInvalidSegment, err)
		}
		off += int(size)
	}
	s, err := suggest.UnmarshalSuggester(data[off:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSegment, err)
	}
	sf.Suggester = s
	return sf, nil
}

// WriteSegmentFile writes sf to path through a temporary file and a rename.
func WriteSegmentFile(path string, sf *SegmentFile) error {
	data, err := sf.MarshalBinary()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".segment-*")
	if err != nil {
		return fmt.Errorf("failed to create segment file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write segment %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write segment %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move segment into place: %w", err)
	}
	log.Debugf("Wrote segment %s (%d bytes)", path, len(data))
	return nil
}

// ReadSegmentFile maps path read-only and decodes it. The decoded segment owns copies of
// everything it needs, so the mapping is released before returning.
func ReadSegmentFile(path string) (*SegmentFile, error) {
	if err := ValidateFileFormat(path, FormatSegment); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment %s: %w", path, err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to map segment %s: %w", path, err)
	}
	sf, err := UnmarshalSegment(m)
	if uerr := m.Unmap(); uerr != nil {
		log.Warnf("Failed to unmap %s: %v", path, uerr)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("Loaded segment %s: maxDoc=%d contexts=%v", path, sf.MaxDoc, sf.HasContexts)
	return sf, nil
}

// Compile builds a segment file from a builder.
func Compile(b *Builder) (*SegmentFile, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &SegmentFile{Suggester: s, MaxDoc: b.MaxDoc(), HasContexts: b.HasContexts()}, nil
}
