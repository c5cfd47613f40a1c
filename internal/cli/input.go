// Package cli handles cmd line input and suggestions for debugging and testing the index
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/index"
	"github.com/charmbracelet/log"
)

// InputHandler reads prefixes line by line and prints their suggestions.
// Lines starting with ':' are commands:
//
//	:fuzzy         toggle fuzzy matching
//	:ctx a,b       restrict lookups to the contexts a and b (empty clears)
//	:del <doc>     delete a document
//	:stats         print index statistics
type InputHandler struct {
	index           *index.Index
	minPrefixLength int
	maxPrefixLength int
	suggestLimit    int
	noFilter        bool
	fuzzy           bool
	contexts        []string

	in           io.Reader
	out          io.Writer
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(ix *index.Index, minLength, maxLength, limit int, noFilter, fuzzy bool) *InputHandler {
	return &InputHandler{
		index:           ix,
		minPrefixLength: minLength,
		maxPrefixLength: maxLength,
		suggestLimit:    limit,
		noFilter:        noFilter,
		fuzzy:           fuzzy,
		in:              os.Stdin,
		out:             os.Stdout,
	}
}

// SetIO replaces stdin and stdout.
func (h *InputHandler) SetIO(in io.Reader, out io.Writer) {
	h.in, h.out = in, out
}

// Start begins the interface loop. It returns nil once the input is closed.
func (h *InputHandler) Start() error {
	log.Print("typeahead CLI [BETA]")
	log.Print("type something and press Enter to see the suggestions (Ctrl+C to exit):")
	reader := bufio.NewReader(h.in)

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if strings.HasPrefix(line, ":") {
				h.handleCommand(line[1:])
			} else {
				h.handleInput(line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (h *InputHandler) handleCommand(cmd string) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "fuzzy":
		h.fuzzy = !h.fuzzy
		fmt.Fprintf(h.out, "fuzzy: %v\n", h.fuzzy)
	case "ctx":
		h.contexts = nil
		for _, c := range strings.Split(arg, ",") {
			if c = strings.TrimSpace(c); c != "" {
				h.contexts = append(h.contexts, c)
			}
		}
		fmt.Fprintf(h.out, "contexts: %v\n", h.contexts)
	case "del":
		var doc int
		if _, err := fmt.Sscanf(arg, "%d", &doc); err != nil {
			log.Errorf("Invalid doc id: %q", arg)
			return
		}
		deleted, err := h.index.Delete(doc)
		if err != nil {
			log.Errorf("Delete failed: %v", err)
			return
		}
		fmt.Fprintf(h.out, "deleted %d: %v\n", doc, deleted)
	case "stats":
		stats := h.index.Stats()
		for _, k := range []string{"segments", "maxDoc", "numDocs", "queries", "cacheHits", "partialLookups", "ramBytes"} {
			fmt.Fprintf(h.out, "%-15s %s\n", k, utils.FormatWithCommas(stats[k]))
		}
	default:
		log.Errorf("Unknown command: %s", name)
	}
}

// handleInput validates a prefix's length and content, then prints its suggestions.
func (h *InputHandler) handleInput(prefix string) {
	h.requestCount++
	length := utf8.RuneCountInString(prefix)
	if length < h.minPrefixLength {
		log.Errorf("Prefix too short: %s", prefix)
		return
	}
	if length > h.maxPrefixLength {
		log.Errorf("Prefix too long: %s", prefix)
		return
	}

	// input filtering by default (unless --no-filter flag is used)
	if !h.noFilter {
		if !utils.IsValidInput(prefix) {
			log.Infof("No results found for prefix: '%s'", prefix)
			return
		}
	} else if utils.ContainsReserved(prefix) {
		log.Errorf("Prefix contains control characters: %q", prefix)
		return
	}

	start := time.Now()
	log.Debug("Processing request for", "prefix", prefix, "fuzzy", h.fuzzy, "contexts", h.contexts)
	suggestions, err := h.index.Suggest(index.Query{
		Prefix:         prefix,
		N:              h.suggestLimit,
		Fuzzy:          h.fuzzy,
		Contexts:       h.contexts,
		SkipDuplicates: true,
	})
	if err != nil {
		log.Errorf("Lookup failed: %v", err)
		return
	}
	log.Debugf("Took [ %v ] for prefix '%s'", time.Since(start), prefix)

	if len(suggestions) == 0 {
		log.Warnf("No suggestions found for prefix: '%s'", prefix)
		return
	}

	fmt.Fprintf(h.out, "Found %d suggestions for prefix '%s':\n", len(suggestions), prefix)
	for i, s := range suggestions {
		line := fmt.Sprintf("%2d. %-30s (score: %10.1f, doc: %s)", i+1, s.Word, s.Score, utils.FormatWithCommas(s.DocID))
		if s.Context != "" {
			line += " [" + s.Context + "]"
		}
		fmt.Fprintln(h.out, line)
	}
}
