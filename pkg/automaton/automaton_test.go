package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefix(t *testing.T) {
	a := Prefix([]byte("app"))
	tests := []struct {
		input string
		want  bool
	}{
		{"app", true},
		{"apple", true},
		{"ap", false},
		{"apx", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepts(a, []byte(tt.input)))
		})
	}
	assert.True(t, Accepts(Prefix(nil), []byte("anything")))
}

func TestContextual(t *testing.T) {
	const sep = 0x1D
	in := func(ctx, s string) []byte { return append(append([]byte(ctx), sep), s...) }

	a := Contextual([][]byte{[]byte("music"), []byte("movies")}, sep, Prefix([]byte("st")))
	assert.True(t, Accepts(a, in("music", "star")))
	assert.True(t, Accepts(a, in("movies", "stone")))
	assert.False(t, Accepts(a, in("mus", "star")))
	assert.False(t, Accepts(a, in("books", "star")))
	assert.False(t, Accepts(a, in("music", "bar")))
	assert.False(t, Accepts(a, []byte("music")))

	anyCtx := Contextual(nil, sep, Prefix([]byte("st")))
	assert.True(t, Accepts(anyCtx, in("books", "star")))
	assert.True(t, Accepts(anyCtx, in("", "star")))
	assert.False(t, Accepts(anyCtx, in("books", "bar")))
}

func TestFuzzy(t *testing.T) {
	tests := []struct {
		name   string
		target string
		edits  int
		exact  int
		input  string
		want   bool
	}{
		{"exact", "apple", 1, 0, "apple", true},
		{"exact with tail", "apple", 1, 0, "applesauce", true},
		{"substitution", "apple", 1, 0, "apxle", true},
		{"deletion", "apple", 1, 0, "aple", true},
		{"insertion", "apple", 1, 0, "appple", true},
		{"too far", "apple", 1, 0, "axxle", false},
		{"two edits", "apple", 2, 0, "axxle", true},
		{"exact prefix respected", "apple", 1, 1, "bpple", false},
		{"edit after exact prefix", "apple", 1, 1, "abple", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Fuzzy([]byte(tt.target), tt.edits, tt.exact)
			assert.Equal(t, tt.want, Accepts(a, []byte(tt.input)))
		})
	}
}

func TestFuzzyDistance(t *testing.T) {
	a := Fuzzy([]byte("apple"), 2, 0)
	assert.Equal(t, 0, a.Distance([]byte("apples")))
	assert.Equal(t, 1, a.Distance([]byte("aple")))
	assert.Equal(t, 2, a.Distance([]byte("axxle")))
	assert.Equal(t, 3, a.Distance([]byte("zzzzz")))
}

func TestFuzzyClampsEdits(t *testing.T) {
	a := Fuzzy([]byte("abc"), 10, -1)
	assert.Equal(t, MaxEdits, a.maxEdits)
	assert.Equal(t, 0, a.exact)
}
