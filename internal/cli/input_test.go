package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/bastiangx/typeahead/pkg/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *index.Index {
	t.Helper()
	b, err := dictionary.BuildFromEntries([]dictionary.Entry{
		{Surface: "hello", Weight: 40, DocID: 0},
		{Surface: "help", Weight: 30, DocID: 1},
		{Surface: "helmet", Weight: 10, DocID: 2},
		{Surface: "world", Weight: 20, DocID: 3},
	})
	require.NoError(t, err)
	sf, err := dictionary.Compile(b)
	require.NoError(t, err)
	ix := index.New(index.DefaultOptions())
	ix.AddSegment(index.NewSegment("cli", "", sf))
	return ix
}

func run(t *testing.T, h *InputHandler, input string) string {
	t.Helper()
	var out bytes.Buffer
	h.SetIO(strings.NewReader(input), &out)
	require.NoError(t, h.Start())
	return out.String()
}

func TestInputHandler(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "prefix",
			input:    "hel\n",
			contains: []string{"Found 3 suggestions for prefix 'hel'", " 1. hello", " 2. help", " 3. helmet"},
		},
		{
			name:     "no trailing newline",
			input:    "wor",
			contains: []string{" 1. world"},
		},
		{
			name:     "filtered input",
			input:    "123\nhel!\n",
			excludes: []string{"Found"},
		},
		{
			name:     "too long",
			input:    "hellohello\n",
			excludes: []string{"Found"},
		},
		{
			name:     "fuzzy toggle",
			input:    ":fuzzy\nwrld\n",
			contains: []string{"fuzzy: true", " 1. world"},
		},
		{
			name:     "delete",
			input:    ":del 0\nhel\n:del x\n",
			contains: []string{"deleted 0: true", "Found 2 suggestions", " 1. help"},
			excludes: []string{"hello "},
		},
		{
			name:     "stats",
			input:    ":stats\n",
			contains: []string{"segments", "numDocs"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewInputHandler(testIndex(t), 1, 8, 5, false, false)
			out := run(t, h, tt.input)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestInputHandlerContexts(t *testing.T) {
	b, err := dictionary.BuildFromEntries([]dictionary.Entry{
		{Surface: "pizza", Weight: 10, DocID: 0, Contexts: []string{"food"}},
		{Surface: "pisa", Weight: 20, DocID: 1, Contexts: []string{"city"}},
	})
	require.NoError(t, err)
	sf, err := dictionary.Compile(b)
	require.NoError(t, err)
	ix := index.New(index.DefaultOptions())
	ix.AddSegment(index.NewSegment("ctx", "", sf))

	h := NewInputHandler(ix, 1, 24, 5, false, false)
	out := run(t, h, ":ctx food\npi\n:ctx\npi\n")
	assert.Contains(t, out, "contexts: [food]")
	assert.Contains(t, out, "Found 1 suggestions for prefix 'pi'")
	assert.Contains(t, out, "[food]")
	assert.Contains(t, out, "Found 2 suggestions for prefix 'pi'")
}
