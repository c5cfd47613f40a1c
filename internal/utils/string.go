package utils

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Capital letter processing uses a pool to reduce allocations
var capitalInfoPool = sync.Pool{
	New: func() any {
		return &CapitalInfo{positions: make([]int, 0, 4)}
	},
}

// CapitalInfo records which rune positions of a prefix were upper case.
type CapitalInfo struct {
	positions []int
}

// Reset resets the CapitalInfo for reuse
func (ci *CapitalInfo) Reset() {
	ci.positions = ci.positions[:0]
}

// Release returns ci to the pool. ci must not be used afterwards.
func (ci *CapitalInfo) Release() {
	if ci != nil {
		capitalInfoPool.Put(ci)
	}
}

// ProcessCapitals returns the lower case form of s and the positions of its upper case
// runes, or nil info when s has none.
func ProcessCapitals(s string) (string, *CapitalInfo) {
	info := capitalInfoPool.Get().(*CapitalInfo)
	info.Reset()
	pos := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			info.positions = append(info.positions, pos)
		}
		pos++
	}
	if len(info.positions) == 0 {
		capitalInfoPool.Put(info)
		return strings.ToLower(s), nil
	}
	return strings.ToLower(s), info
}

// ApplyCapitals upper-cases the runes of word at the recorded positions. Runes that are
// already upper case or not letters are left alone.
func ApplyCapitals(word string, info *CapitalInfo) string {
	if info == nil || len(info.positions) == 0 {
		return word
	}
	runes := []rune(word)
	changed := false
	for _, pos := range info.positions {
		if pos < len(runes) && unicode.IsLower(runes[pos]) {
			runes[pos] = unicode.ToUpper(runes[pos])
			changed = true
		}
	}
	if !changed {
		return word
	}
	return string(runes)
}

// FormatWithCommas formats an integer with comma separators
func FormatWithCommas(n int) string {
	if n < 0 {
		return "-" + FormatWithCommas(-n)
	}
	str := strconv.Itoa(n)
	if len(str) <= 3 {
		return str
	}
	var sb strings.Builder
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
