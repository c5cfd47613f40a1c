package suggest

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightRoundTrip(t *testing.T) {
	for _, w := range []int64{0, 1, 2, 50, 1 << 20, MaxWeight - 1, MaxWeight} {
		enc, err := EncodeWeight(w)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, enc, int64(0))
		assert.Equal(t, w, DecodeWeight(enc))
	}
}

func TestWeightOrderIsReversed(t *testing.T) {
	hi, err := EncodeWeight(50)
	require.NoError(t, err)
	lo, err := EncodeWeight(30)
	require.NoError(t, err)
	assert.Less(t, hi, lo)
}

func TestEncodeWeightOutOfRange(t *testing.T) {
	for _, w := range []int64{-1, -1 << 40, MaxWeight + 1, 1 << 40} {
		_, err := EncodeWeight(w)
		assert.ErrorIs(t, err, ErrWeightOutOfRange, "weight %d", w)
	}
}

func TestDecodeWeightPanics(t *testing.T) {
	assert.Panics(t, func() { DecodeWeight(-1) })
	assert.Panics(t, func() { DecodeWeight(MaxWeight + 1) })
}

func TestPayload(t *testing.T) {
	tests := []struct {
		name    string
		surface string
		docID   int
	}{
		{"simple", "apple", 1},
		{"empty surface", "", 7},
		{"zero doc", "zero", 0},
		{"multi byte doc", "big", 1 << 20},
		{"max doc", "max", 1<<31 - 1},
		{"utf8", "crème brûlée", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MakePayload([]byte(tt.surface), tt.docID, DefaultPayloadSep)
			i, err := ParseSurfaceForm(p, DefaultPayloadSep)
			require.NoError(t, err)
			assert.Equal(t, len(tt.surface), i)

			surface, docID, err := DecodePayload(p, DefaultPayloadSep)
			require.NoError(t, err)
			assert.Equal(t, tt.surface, string(surface))
			assert.Equal(t, tt.docID, docID)
		})
	}
}

func TestPayloadCorrupt(t *testing.T) {
	_, err := ParseSurfaceForm([]byte("no separator"), DefaultPayloadSep)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptPayload))
	var perr *PayloadError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "no separator", string(perr.Payload))

	_, err = ReadDocID(nil)
	assert.ErrorIs(t, err, ErrCorruptPayload)

	// A continuation bit with nothing after it.
	_, err = ReadDocID([]byte{0x80})
	assert.ErrorIs(t, err, ErrCorruptPayload)

	_, err = ReadDocID(binary.AppendUvarint(nil, 1<<31))
	assert.ErrorIs(t, err, ErrCorruptPayload)

	_, _, err = DecodePayload([]byte("apple\x1f"), DefaultPayloadSep)
	assert.ErrorIs(t, err, ErrCorruptPayload)
}
