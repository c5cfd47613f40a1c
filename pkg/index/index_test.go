package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, entries ...dictionary.Entry) *dictionary.SegmentFile {
	t.Helper()
	b, err := dictionary.BuildFromEntries(entries)
	require.NoError(t, err)
	sf, err := dictionary.Compile(b)
	require.NoError(t, err)
	return sf
}

func words(got []Suggestion) []string {
	out := make([]string, len(got))
	for i, s := range got {
		out[i] = s.Word
	}
	return out
}

func docIDs(got []Suggestion) []int {
	out := make([]int, len(got))
	for i, s := range got {
		out[i] = s.DocID
	}
	return out
}

// twoSegments holds "apple" in both segments: doc 0 (50) and doc 2 (70).
func twoSegments(t *testing.T, opts Options) *Index {
	ix := New(opts)
	ix.AddSegment(NewSegment("a", "", compile(t,
		dictionary.Entry{Surface: "apple", Weight: 50, DocID: 0},
		dictionary.Entry{Surface: "apply", Weight: 30, DocID: 1},
	)))
	ix.AddSegment(NewSegment("b", "", compile(t,
		dictionary.Entry{Surface: "apple", Weight: 70, DocID: 0},
		dictionary.Entry{Surface: "apricot", Weight: 20, DocID: 1},
	)))
	return ix
}

func TestSuggestAcrossSegments(t *testing.T) {
	ix := twoSegments(t, DefaultOptions())
	assert.Equal(t, 4, ix.MaxDoc())
	assert.Equal(t, 4, ix.NumDocs())

	tests := []struct {
		name  string
		query Query
		words []string
		docs  []int
	}{
		{"all", Query{Prefix: "ap", N: 3}, []string{"apple", "apple", "apply"}, []int{2, 0, 1}},
		{"dedup", Query{Prefix: "ap", N: 3, SkipDuplicates: true}, []string{"apple", "apply", "apricot"}, []int{2, 1, 3}},
		{"case folded", Query{Prefix: "APR", N: 3}, []string{"apricot"}, []int{3}},
		{"no match", Query{Prefix: "b", N: 3}, []string{}, []int{}},
		{"filter", Query{Prefix: "ap", N: 5, Filter: roaring.BitmapOf(1, 3)}, []string{"apply", "apricot"}, []int{1, 3}},
		{"accept", Query{Prefix: "ap", N: 5, Accept: func(doc int) (bool, error) { return doc%2 == 0, nil }},
			[]string{"apple", "apple"}, []int{2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ix.Suggest(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.words, words(got))
			assert.Equal(t, tt.docs, docIDs(got))
		})
	}
}

func TestSuggestFullWordWithManyDocs(t *testing.T) {
	// Doc 31 encodes to the same byte as the payload separator.
	ix := New(DefaultOptions())
	ix.AddSegment(NewSegment("s", "", compile(t,
		dictionary.Entry{Surface: "apple", Weight: 50, DocID: 5},
		dictionary.Entry{Surface: "apple", Weight: 40, DocID: 31},
		dictionary.Entry{Surface: "apply", Weight: 30, DocID: 3999},
	)))
	for _, prefix := range []string{"app", "apple"} {
		got, err := ix.Suggest(Query{Prefix: prefix, N: 2, SkipDuplicates: true})
		require.NoError(t, err, prefix)
		assert.Equal(t, 5, got[0].DocID, prefix)
		assert.Equal(t, "apple", got[0].Word, prefix)
	}
	got, err := ix.Suggest(Query{Prefix: "apple", N: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 31}, docIDs(got))
}

func TestSuggestAcceptError(t *testing.T) {
	ix := twoSegments(t, DefaultOptions())
	boom := fmt.Errorf("boom")
	_, err := ix.Suggest(Query{Prefix: "ap", N: 2, Accept: func(int) (bool, error) { return false, boom }})
	assert.ErrorIs(t, err, boom)
}

func TestDeleteAndCache(t *testing.T) {
	ix := twoSegments(t, DefaultOptions())
	q := Query{Prefix: "app", N: 2}

	got, err := ix.Suggest(q)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, docIDs(got))
	_, err = ix.Suggest(q)
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Stats()["cacheHits"])

	ok, err := ix.Delete(2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = ix.Delete(2)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = ix.Delete(4)
	assert.ErrorIs(t, err, ErrDocNotFound)
	_, err = ix.Delete(-1)
	assert.ErrorIs(t, err, ErrDocNotFound)

	got, err = ix.Suggest(q)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, docIDs(got))
	assert.Equal(t, 3, ix.NumDocs())
	assert.True(t, ix.Segments()[1].Dirty())
	assert.False(t, ix.Segments()[0].Dirty())
}

func TestSegmentWithoutLiveDocs(t *testing.T) {
	ix := New(Options{})
	seg := NewSegment("s", "", compile(t, dictionary.Entry{Surface: "solo", Weight: 1, DocID: 0}))
	ix.AddSegment(seg)
	require.True(t, seg.Delete(0))
	assert.Zero(t, seg.NumDocs())

	got, err := ix.Suggest(Query{Prefix: "so", N: 1})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, ix.Stats()["partialLookups"])
}

func TestSuggestContexts(t *testing.T) {
	ix := New(DefaultOptions())
	ix.AddSegment(NewSegment("ctx", "", compile(t,
		dictionary.Entry{Surface: "pizza", Weight: 10, DocID: 0, Contexts: []string{"food", "italy"}},
		dictionary.Entry{Surface: "pisa", Weight: 20, DocID: 1, Contexts: []string{"italy"}},
		dictionary.Entry{Surface: "pie", Weight: 5, DocID: 2},
	)))

	got, err := ix.Suggest(Query{Prefix: "pi", N: 5, ContextBoosts: map[string]float32{"food": 3}})
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{
		{Word: "pizza", DocID: 0, Score: 30, Context: "food"},
		{Word: "pisa", DocID: 1, Score: 20, Context: "italy"},
		{Word: "pizza", DocID: 0, Score: 10, Context: "italy"},
		{Word: "pie", DocID: 2, Score: 5, Context: ""},
	}, got)

	got, err = ix.Suggest(Query{Prefix: "pi", N: 5, Contexts: []string{"italy"}, SkipDuplicates: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"pisa", "pizza"}, words(got))

	// A segment indexed without contexts cannot satisfy a context restriction.
	plain := twoSegments(t, DefaultOptions())
	got, err = plain.Suggest(Query{Prefix: "ap", N: 5, Contexts: []string{"food"}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestFuzzy(t *testing.T) {
	ix := New(DefaultOptions())
	ix.AddSegment(NewSegment("f", "", compile(t,
		dictionary.Entry{Surface: "hello", Weight: 10, DocID: 0},
		dictionary.Entry{Surface: "help", Weight: 30, DocID: 1},
		dictionary.Entry{Surface: "world", Weight: 50, DocID: 2},
	)))

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"exact misses typo", Query{Prefix: "helo", N: 5}, []string{}},
		{"typo", Query{Prefix: "helo", N: 5, Fuzzy: true}, []string{"help", "hello"}},
		{"dropped letter", Query{Prefix: "wrld", N: 5, Fuzzy: true}, []string{"world"}},
		{"first letter is exact", Query{Prefix: "xelp", N: 5, Fuzzy: true}, []string{}},
		{"short prefix is exact", Query{Prefix: "wr", N: 5, Fuzzy: true}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ix.Suggest(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, words(got))
		})
	}
}

func TestFuzzyWeightPrefersCloserMatches(t *testing.T) {
	ix := New(DefaultOptions())
	ix.AddSegment(NewSegment("f", "", compile(t,
		dictionary.Entry{Surface: "carton", Weight: 10, DocID: 0},
		dictionary.Entry{Surface: "cattle", Weight: 12, DocID: 1},
	)))
	// "car" agrees with "cart" on three bytes, "cat" on two.
	got, err := ix.Suggest(Query{Prefix: "cart", N: 2, Fuzzy: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"carton", "cattle"}, words(got))
	assert.Equal(t, []float32{30, 24}, []float32{got[0].Score, got[1].Score})

	w := &FuzzyWeight{Target: []byte("cart")}
	w.SetNextMatch([]byte("cxrt"))
	assert.Equal(t, float32(3), w.Boost())
	w.SetNextMatch(nil)
	assert.Zero(t, w.Boost())
}

func TestSegmentFilter(t *testing.T) {
	local := segmentFilter(roaring.BitmapOf(1, 5, 6, 9), 5, 3)
	assert.Equal(t, []uint32{0, 1}, local.ToArray())
	assert.True(t, segmentFilter(roaring.BitmapOf(1), 5, 3).IsEmpty())
}

func TestCacheKey(t *testing.T) {
	a, ok := Query{Prefix: "x", N: 3, Contexts: []string{"b", "a"}}.cacheKey()
	require.True(t, ok)
	b, _ := Query{Prefix: "x", N: 3, Contexts: []string{"a", "b"}}.cacheKey()
	assert.Equal(t, a, b)
	c, _ := Query{Prefix: "x", N: 4, Contexts: []string{"a", "b"}}.cacheKey()
	assert.NotEqual(t, a, c)

	_, ok = Query{Prefix: "x", Filter: roaring.New()}.cacheKey()
	assert.False(t, ok)
	_, ok = Query{Prefix: "x", Accept: func(int) (bool, error) { return true, nil }}.cacheKey()
	assert.False(t, ok)
}

func TestOpenSaveReopen(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(context.Background(), dir, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoSegments)

	require.NoError(t, dictionary.WriteSegmentFile(filepath.Join(dir, "00"+dictionary.SegmentExt), compile(t,
		dictionary.Entry{Surface: "alpha", Weight: 5, DocID: 0},
		dictionary.Entry{Surface: "alps", Weight: 9, DocID: 1},
	)))
	require.NoError(t, dictionary.WriteSegmentFile(filepath.Join(dir, "01"+dictionary.SegmentExt), compile(t,
		dictionary.Entry{Surface: "altitude", Weight: 7, DocID: 0},
	)))

	ix, err := Open(context.Background(), dir, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, ix.Segments(), 2)
	assert.Equal(t, 3, ix.MaxDoc())

	got, err := ix.Suggest(Query{Prefix: "al", N: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"alps", "altitude", "alpha"}, words(got))

	ok, err := ix.Delete(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, ix.Save())

	reopened, err := Open(context.Background(), dir, DefaultOptions())
	require.NoError(t, err)
	got, err = reopened.Suggest(Query{Prefix: "al", N: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"altitude", "alpha"}, words(got))
	assert.Equal(t, 2, reopened.NumDocs())

	opts := DefaultOptions()
	opts.MaxSegments = 1
	limited, err := Open(context.Background(), dir, opts)
	require.NoError(t, err)
	assert.Len(t, limited.Segments(), 1)
}

func TestOpenCancelled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, dictionary.WriteSegmentFile(filepath.Join(dir, "00"+dictionary.SegmentExt),
		compile(t, dictionary.Entry{Surface: "x", Weight: 1})))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, dir, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenTextSegment(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(src, []byte("tea\t3\ntee\t8\n"), 0o644))

	seg, err := OpenSegment(src)
	require.NoError(t, err)
	assert.Equal(t, "words", seg.Name())
	assert.Equal(t, filepath.Join(dir, "words"+dictionary.SegmentExt), seg.Path())
	assert.True(t, seg.Dirty())

	require.NoError(t, seg.Save())
	assert.False(t, seg.Dirty())
	_, err = os.Stat(seg.Path())
	require.NoError(t, err)

	assert.Error(t, NewSegment("memory", "", compile(t, dictionary.Entry{Surface: "x"})).Save())
}

func TestStats(t *testing.T) {
	ix := twoSegments(t, DefaultOptions())
	_, err := ix.Suggest(Query{Prefix: "a", N: 1})
	require.NoError(t, err)

	stats := ix.Stats()
	assert.Equal(t, 2, stats["segments"])
	assert.Equal(t, 4, stats["maxDoc"])
	assert.Equal(t, 4, stats["numDocs"])
	assert.Equal(t, 1, stats["queries"])
	assert.Equal(t, 1, stats["cacheEntries"])
	assert.Positive(t, stats["ramBytes"])

	_, hasCache := twoSegments(t, Options{}).Stats()["cacheEntries"]
	assert.False(t, hasCache)
}

func TestConcurrentSuggestAndDelete(t *testing.T) {
	var entries []dictionary.Entry
	for i := 0; i < 200; i++ {
		prefix := "a"
		if i%2 == 1 {
			prefix = "z"
		}
		entries = append(entries, dictionary.Entry{
			Surface: fmt.Sprintf("%s%03d", prefix, i),
			Weight:  int64(i * 7 % 101),
			DocID:   i,
		})
	}
	opts := DefaultOptions()
	opts.CacheSize = 8
	ix := New(opts)
	ix.AddSegment(NewSegment("big", "", compile(t, entries...)))

	queries := []Query{
		{Prefix: "a", N: 10},
		{Prefix: "a0", N: 5, SkipDuplicates: true},
		{Prefix: "a1", N: 20},
		{Prefix: "a00", N: 3, Fuzzy: true},
	}
	want := make([][]Suggestion, len(queries))
	for i, q := range queries {
		got, err := ix.Suggest(q)
		require.NoError(t, err)
		want[i] = got
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Only "z" docs are deleted, so "a" results stay fixed.
		for i := 1; i < 200; i += 2 {
			_, _ = ix.Delete(i)
		}
	}()
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < 50; r++ {
				i := (g + r) % len(queries)
				got, err := ix.Suggest(queries[i])
				if err != nil {
					errs <- err
					return
				}
				if !assert.Equal(t, want[i], got) {
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 100, ix.NumDocs())
}
