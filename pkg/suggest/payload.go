package suggest

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DefaultPayloadSep separates the surface form from the doc id inside a payload.
const DefaultPayloadSep = 0x1F

// DefaultEndByte terminates the analyzed input; dedup labels follow it.
const DefaultEndByte = 0x00

// maxDocIDLenWithSep is the separator plus the longest uvarint of a 32 bit doc id.
const maxDocIDLenWithSep = 1 + binary.MaxVarintLen32

// MakePayload encodes surface ++ sep ++ uvarint(docID). The caller guarantees surface does
// not contain sep.
func MakePayload(surface []byte, docID int, sep byte) []byte {
	buf := make([]byte, 0, len(surface)+maxDocIDLenWithSep)
	buf = append(buf, surface...)
	buf = append(buf, sep)
	return binary.AppendUvarint(buf, uint64(uint32(docID)))
}

// ParseSurfaceForm returns the offset of the separator, which is also the surface length.
func ParseSurfaceForm(payload []byte, sep byte) (int, error) {
	i := bytes.IndexByte(payload, sep)
	if i < 0 {
		return -1, &PayloadError{Payload: payload, Reason: "no payload separator"}
	}
	return i, nil
}

// ReadDocID decodes the doc id that follows the separator.
func ReadDocID(b []byte) (int, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 || v > 1<<31-1 {
		return 0, &PayloadError{Payload: b, Reason: fmt.Sprintf("bad doc id varint (n=%d)", n)}
	}
	return int(v), nil
}

// DecodePayload splits a complete payload into surface and doc id.
func DecodePayload(payload []byte, sep byte) (surface []byte, docID int, err error) {
	i, err := ParseSurfaceForm(payload, sep)
	if err != nil {
		return nil, 0, err
	}
	docID, err = ReadDocID(payload[i+1:])
	if err != nil {
		return nil, 0, err
	}
	return payload[:i], docID, nil
}
