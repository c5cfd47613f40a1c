package utils

import (
	"strings"
)

// SuggestionFilter drops suggestions that repeat the input or an earlier suggestion,
// ignoring case. It is not safe for concurrent use.
type SuggestionFilter struct {
	seenWords map[string]bool
	inputWord string
}

// NewSuggestionFilter creates a new filter instance that will exclude the given input word
func NewSuggestionFilter(input string) *SuggestionFilter {
	lowerInput := strings.ToLower(input)
	return &SuggestionFilter{
		seenWords: map[string]bool{lowerInput: true},
		inputWord: lowerInput,
	}
}

// ShouldInclude reports whether word is new, and records it.
func (f *SuggestionFilter) ShouldInclude(word string) bool {
	lowerWord := strings.ToLower(word)
	if f.seenWords[lowerWord] {
		return false
	}
	f.seenWords[lowerWord] = true
	return true
}
