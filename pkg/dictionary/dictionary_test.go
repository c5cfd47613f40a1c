package dictionary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/typeahead/pkg/automaton"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(t *testing.T, s *suggest.Suggester, a automaton.Automaton, maxDoc, n int, skip bool) []suggest.SuggestScoreDoc {
	t.Helper()
	c := suggest.NewTopSuggestDocsCollector(n, skip)
	_, err := s.Lookup(&suggest.CompletionScorer{Automaton: a, NumDocs: maxDoc, MaxDoc: maxDoc}, nil, c)
	require.NoError(t, err)
	return c.Get()
}

func surfaces(docs []suggest.SuggestScoreDoc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Key
	}
	return out
}

func TestBuilderAddValidation(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{"empty surface", Entry{Surface: "", Weight: 1}},
		{"payload separator", Entry{Surface: "a\x1fb", Weight: 1}},
		{"end byte", Entry{Surface: "a\x00b", Weight: 1}},
		{"context separator in surface", Entry{Surface: "a\x1db", Weight: 1}},
		{"context separator in context", Entry{Surface: "ab", Weight: 1, Contexts: []string{"x\x1d"}}},
		{"negative weight", Entry{Surface: "ab", Weight: -1}},
		{"huge weight", Entry{Surface: "ab", Weight: suggest.MaxWeight + 1}},
		{"negative doc", Entry{Surface: "ab", DocID: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			assert.ErrorIs(t, b.Add(tt.entry), ErrInvalidEntry)
			assert.Zero(t, b.Len())
		})
	}

	_, err := NewBuilder().Build()
	assert.ErrorIs(t, err, ErrEmptyDictionary)
}

func TestBuilderWeightErrorIsMatchable(t *testing.T) {
	err := NewBuilder().Add(Entry{Surface: "x", Weight: -5})
	assert.ErrorIs(t, err, suggest.ErrWeightOutOfRange)
}

func TestBuildLookup(t *testing.T) {
	b, err := BuildFromEntries([]Entry{
		{Surface: "Apple", Weight: 50, DocID: 1},
		{Surface: "apply", Weight: 30, DocID: 2},
		{Surface: "apple", Weight: 40, DocID: 3},
		{Surface: "banana", Weight: 99, DocID: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, 4, b.MaxDoc())
	assert.Equal(t, 3, b.CountPrefix("AP"))
	assert.Equal(t, 0, b.CountPrefix("c"))

	s, err := b.Build()
	require.NoError(t, err)
	// "Apple" and "apple" share an analyzed form.
	assert.Equal(t, 2, s.MaxFanout())

	got := lookup(t, s, automaton.Prefix([]byte("app")), 4, 3, false)
	assert.Equal(t, []string{"Apple", "apple", "apply"}, surfaces(got))
	assert.Equal(t, []int{1, 3, 2}, []int{got[0].DocID, got[1].DocID, got[2].DocID})
}

func TestDedupLabels(t *testing.T) {
	assert.Equal(t, 3, maxArcsForDedupByte(1))
	assert.Equal(t, 5, maxArcsForDedupByte(2))
	assert.Equal(t, 11, maxArcsForDedupByte(5))
	assert.Equal(t, 78, maxArcsForDedupByte(6))
	assert.Equal(t, 255, maxArcsForDedupByte(12))

	// Many entries with one analyzed form all stay reachable.
	b := NewBuilder()
	const n = 600
	for i := 0; i < n; i++ {
		require.NoError(t, b.Add(Entry{Surface: "same", Weight: int64(i), DocID: i}))
	}
	s, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, n, s.MaxFanout())

	got := lookup(t, s, automaton.Prefix([]byte("sa")), n, n, false)
	require.Len(t, got, n)
	for i, d := range got {
		assert.Equal(t, n-1-i, d.DocID)
	}
}

func TestBuildWithContexts(t *testing.T) {
	b, err := BuildFromEntries([]Entry{
		{Surface: "pizza", Weight: 10, DocID: 0, Contexts: []string{"food", "italy"}},
		{Surface: "pisa", Weight: 20, DocID: 1, Contexts: []string{"italy"}},
		{Surface: "pie", Weight: 5, DocID: 2},
	})
	require.NoError(t, err)
	require.True(t, b.HasContexts())
	s, err := b.Build()
	require.NoError(t, err)

	inner := automaton.Prefix([]byte("pi"))
	tests := []struct {
		name     string
		contexts []string
		want     []string
	}{
		{"food", []string{"food"}, []string{"pizza"}},
		{"italy", []string{"italy"}, []string{"pisa", "pizza"}},
		{"any", nil, []string{"pisa", "pizza", "pie"}},
		{"missing", []string{"space"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctx [][]byte
			for _, c := range tt.contexts {
				ctx = append(ctx, []byte(c))
			}
			got := lookup(t, s, automaton.Contextual(ctx, ContextSep, inner), 3, 5, true)
			assert.Equal(t, tt.want, surfaces(got))
		})
	}
}

func TestParseText(t *testing.T) {
	in := strings.Join([]string{
		"# comment",
		"apple\t50\t1",
		"",
		"pizza\t10\t7\tfood, italy",
		"ranked",
		"second",
		"apply\t30",
	}, "\n")
	entries, err := ParseText(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, entries, 5)

	assert.Equal(t, Entry{Surface: "apple", Weight: 50, DocID: 1}, entries[0])
	assert.Equal(t, Entry{Surface: "pizza", Weight: 10, DocID: 7, Contexts: []string{"food", "italy"}}, entries[1])
	assert.Equal(t, Entry{Surface: "ranked", Weight: 2, DocID: 2}, entries[2])
	assert.Equal(t, Entry{Surface: "second", Weight: 1, DocID: 3}, entries[3])
	assert.Equal(t, Entry{Surface: "apply", Weight: 30, DocID: 4}, entries[4])
}

func TestParseTextErrors(t *testing.T) {
	tests := map[string]string{
		"bad weight":   "apple\tmany",
		"bad doc":      "apple\t1\tx",
		"extra fields": "apple\t1\t2\tctx\tmore",
		"empty":        "\t5",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseText(strings.NewReader("ok\t1\n" + in))
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, 2, perr.Line)
		})
	}
}

func TestSegmentFileRoundTrip(t *testing.T) {
	b, err := BuildFromEntries([]Entry{
		{Surface: "apple", Weight: 50, DocID: 1},
		{Surface: "apply", Weight: 30, DocID: 2, Contexts: []string{"verb"}},
	})
	require.NoError(t, err)
	sf, err := Compile(b)
	require.NoError(t, err)
	sf.Deleted = roaring.BitmapOf(1)

	path := filepath.Join(t.TempDir(), "one"+SegmentExt)
	require.NoError(t, WriteSegmentFile(path, sf))

	format, err := DetectFileFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatSegment, format)

	got, err := ReadSegmentFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MaxDoc)
	assert.True(t, got.HasContexts)
	require.NotNil(t, got.Deleted)
	assert.Equal(t, []uint32{1}, got.Deleted.ToArray())

	docs := lookup(t, got.Suggester, automaton.Contextual(nil, ContextSep, automaton.Prefix([]byte("ap"))), 3, 2, true)
	assert.Equal(t, []string{"apple", "apply"}, surfaces(docs))

	files, err := ListSegmentFiles(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestReadSegmentFileCorrupt(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o644))
		return p
	}

	_, err := ReadSegmentFile(write("magic"+SegmentExt, []byte("NOPE\x01\x00\x00\x00")))
	assert.ErrorIs(t, err, ErrInvalidSegment)

	_, err = ReadSegmentFile(write("version"+SegmentExt, []byte("TASG\x09\x00\x00\x00")))
	assert.ErrorIs(t, err, ErrInvalidSegment)

	_, err = ReadSegmentFile(write("short"+SegmentExt, []byte("TASG\x01\x00\x01\x00")))
	assert.ErrorIs(t, err, ErrInvalidSegment)

	_, err = ReadSegmentFile(write("wrong.bin", []byte("TASG\x01\x00\x01\x00")))
	assert.Error(t, err)
}

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\t5\t0\nhelp\t9\t1\n"), 0o644))

	sf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, sf.MaxDoc)
	docs := lookup(t, sf.Suggester, automaton.Prefix([]byte("hel")), 2, 5, true)
	assert.Equal(t, []string{"help", "hello"}, surfaces(docs))
}
