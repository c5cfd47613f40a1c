package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/charmbracelet/log"
)

// ParseError points at a malformed text dictionary line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// ParseText reads a text dictionary. Each non-empty line not starting with '#' is
//
//	surface<TAB>weight[<TAB>docID[<TAB>ctx1,ctx2]]
//
// A missing doc id defaults to the line's entry index. A line holding only a surface
// form is ranked by position: earlier lines get higher weights.
func ParseText(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		ranked  []int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		e := Entry{Surface: fields[0], DocID: len(entries)}
		if e.Surface == "" {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: empty surface form", ErrInvalidEntry)}
		}
		if len(fields) == 1 {
			ranked = append(ranked, len(entries))
			entries = append(entries, e)
			continue
		}
		w, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("weight: %w", err)}
		}
		e.Weight = w
		if len(fields) > 2 && strings.TrimSpace(fields[2]) != "" {
			id, err := strconv.Atoi(strings.TrimSpace(fields[2]))
			if err != nil {
				return nil, &ParseError{Line: line, Err: fmt.Errorf("doc id: %w", err)}
			}
			e.DocID = id
		}
		if len(fields) > 3 {
			for _, ctx := range strings.Split(fields[3], ",") {
				if ctx = strings.TrimSpace(ctx); ctx != "" {
					e.Contexts = append(e.Contexts, ctx)
				}
			}
		}
		if len(fields) > 4 {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("%d fields, want at most 4", len(fields))}
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	weights := utils.RankWeights(len(ranked))
	for i, idx := range ranked {
		entries[idx].Weight = weights[i]
	}
	return entries, nil
}

// ReadTextFile parses the text dictionary at path.
func ReadTextFile(path string) ([]Entry, error) {
	if err := ValidateFileFormat(path, FormatText); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ParseText(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("Read %d entries from %s", len(entries), path)
	return entries, nil
}

// BuildFromEntries compiles entries, wrapping the first invalid one with its position.
func BuildFromEntries(entries []Entry) (*Builder, error) {
	b := NewBuilder()
	for i, e := range entries {
		if err := b.Add(e); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return b, nil
}
