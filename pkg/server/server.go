package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/config"
	"github.com/bastiangx/typeahead/pkg/index"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultLimit = 10

// Server handles the IPC for completions
type Server struct {
	index      *index.Index
	config     *config.Config
	configPath string

	decoder *msgpack.Decoder
	writer  *bufio.Writer
	encoder *msgpack.Encoder
	logger  *log.Logger

	requests int
}

// NewServer creates a completion server using stdin/stdout for IPC. configPath is
// where config updates are saved; empty keeps them in memory.
func NewServer(ix *index.Index, cfg *config.Config, configPath string) *Server {
	return NewServerWithIO(ix, cfg, configPath, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server reading requests from r and writing responses to w.
func NewServerWithIO(ix *index.Index, cfg *config.Config, configPath string, r io.Reader, w io.Writer) *Server {
	bw := bufio.NewWriter(w)
	return &Server{
		index:      ix,
		config:     cfg,
		configPath: configPath,
		decoder:    msgpack.NewDecoder(bufio.NewReader(r)),
		writer:     bw,
		encoder:    msgpack.NewEncoder(bw),
		logger:     logger.New("server"),
	}
}

// Start serves requests until the input is closed.
func (s *Server) Start() error {
	s.logger.Debug("Starting server")
	for {
		raw, err := s.decoder.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debugf("Input closed after %d requests", s.requests)
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}
		s.requests++
		s.handleMessage(raw)
		if err := s.writer.Flush(); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

// handleMessage routes one message by its action.
func (s *Server) handleMessage(raw msgpack.RawMessage) {
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		s.logger.Errorf("Unmarshaling request: %v", err)
		s.sendError("", "invalid request", 400)
		return
	}
	switch env.Action {
	case "":
		s.handleCompletion(env.ID, raw)
	case ActionStats, ActionDelete, ActionSave:
		s.handleIndex(env.ID, raw)
	case ActionGetConfig, ActionUpdateConfig:
		s.handleConfig(env.ID, raw)
	default:
		s.sendError(env.ID, fmt.Sprintf("unknown action: %s", env.Action), 400)
	}
}

// handleCompletion validates the prefix against the server limits, looks it up and
// re-applies the prefix's capitalization to each suggestion.
func (s *Server) handleCompletion(id string, raw msgpack.RawMessage) {
	var req CompletionRequest
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		s.sendError(id, "invalid completion request", 400)
		return
	}
	cfg := s.config.Server
	prefix := req.Prefix
	length := utf8.RuneCountInString(prefix)
	switch {
	case prefix == "":
		s.sendError(id, "missing prefix", 400)
		return
	case length < cfg.MinPrefix:
		s.sendError(id, fmt.Sprintf("prefix must be at least %d characters", cfg.MinPrefix), 400)
		return
	case length > cfg.MaxPrefix:
		s.sendError(id, fmt.Sprintf("prefix exceeds maximum length of %d", cfg.MaxPrefix), 400)
		return
	case utils.ContainsReserved(prefix):
		s.sendError(id, "prefix contains control characters", 400)
		return
	}

	response := CompletionResponse{ID: id, Suggestions: []CompletionSuggestion{}}
	if cfg.EnableFilter && !utils.IsValidInput(prefix) {
		s.logger.Debugf("Filtered prefix %q", prefix)
		s.sendResponse(response)
		return
	}

	limit := req.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	limit = max(min(limit, cfg.MaxLimit), 1)

	start := time.Now()
	lower, caps := utils.ProcessCapitals(prefix)
	defer caps.Release()
	q := index.Query{
		Prefix:         lower,
		N:              limit,
		SkipDuplicates: cfg.SkipDuplicates,
		Fuzzy:          req.Fuzzy,
		Contexts:       req.Contexts,
		ContextBoosts:  req.Boosts,
	}
	var filter *utils.SuggestionFilter
	if cfg.EnableFilter {
		// The prefix itself is dropped, so ask for one more.
		q.N++
		filter = utils.NewSuggestionFilter(prefix)
	}
	results, err := s.index.Suggest(q)
	if err != nil {
		s.logger.Errorf("Lookup for %q failed: %v", prefix, err)
		s.sendError(id, "internal server error", 500)
		return
	}

	for _, r := range results {
		if len(response.Suggestions) == limit {
			break
		}
		if filter != nil && !filter.ShouldInclude(r.Word) {
			continue
		}
		response.Suggestions = append(response.Suggestions, CompletionSuggestion{
			Word:    utils.ApplyCapitals(r.Word, caps),
			Rank:    uint16(len(response.Suggestions) + 1),
			DocID:   r.DocID,
			Context: r.Context,
		})
	}
	response.Count = len(response.Suggestions)
	response.TimeTaken = time.Since(start).Microseconds()
	s.logger.Debugf("Took %dµs for prefix %q (%d suggestions)", response.TimeTaken, prefix, response.Count)
	s.sendResponse(response)
}

func (s *Server) handleIndex(id string, raw msgpack.RawMessage) {
	var req IndexRequest
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		s.sendResponse(IndexResponse{ID: id, Status: "error", Error: "invalid index request"})
		return
	}
	resp := IndexResponse{ID: id, Status: "ok"}
	switch req.Action {
	case ActionStats:
		resp.Stats = s.index.Stats()
	case ActionDelete:
		if req.DocID == nil {
			resp.Status, resp.Error = "error", "missing doc"
			break
		}
		deleted, err := s.index.Delete(*req.DocID)
		if err != nil {
			resp.Status, resp.Error = "error", err.Error()
			break
		}
		resp.Deleted = deleted
	case ActionSave:
		if err := s.index.Save(); err != nil {
			s.logger.Errorf("Saving index: %v", err)
			resp.Status, resp.Error = "error", err.Error()
		}
	}
	s.sendResponse(resp)
}

func (s *Server) handleConfig(id string, raw msgpack.RawMessage) {
	var req ConfigRequest
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		s.sendResponse(ConfigResponse{ID: id, Status: "error", Error: "invalid config request"})
		return
	}
	if req.Action == ActionUpdateConfig {
		if err := s.updateConfig(req); err != nil {
			resp := s.configResponse(id)
			resp.Status, resp.Error = "error", err.Error()
			s.sendResponse(resp)
			return
		}
	}
	s.sendResponse(s.configResponse(id))
}

func (s *Server) updateConfig(req ConfigRequest) error {
	cur := s.config.Server
	minPrefix, maxPrefix := cur.MinPrefix, cur.MaxPrefix
	if req.MinPrefix != nil {
		minPrefix = *req.MinPrefix
	}
	if req.MaxPrefix != nil {
		maxPrefix = *req.MaxPrefix
	}
	switch {
	case req.MaxLimit != nil && (*req.MaxLimit < 1 || *req.MaxLimit > 1<<16-1):
		return fmt.Errorf("max_limit must be between 1 and %d", 1<<16-1)
	case minPrefix < 1:
		return errors.New("min_prefix must be at least 1")
	case maxPrefix < minPrefix:
		return errors.New("max_prefix must not be below min_prefix")
	}
	if err := s.config.Update(s.configPath, req.MaxLimit, req.MinPrefix, req.MaxPrefix, req.EnableFilter); err != nil {
		s.logger.Errorf("Saving config to %s: %v", s.configPath, err)
		return fmt.Errorf("save config: %w", err)
	}
	s.logger.Debugf("Config updated: %+v", s.config.Server)
	return nil
}

func (s *Server) configResponse(id string) ConfigResponse {
	cfg := s.config.Server
	return ConfigResponse{
		ID:           id,
		Status:       "ok",
		MaxLimit:     cfg.MaxLimit,
		MinPrefix:    cfg.MinPrefix,
		MaxPrefix:    cfg.MaxPrefix,
		EnableFilter: cfg.EnableFilter,
	}
}

func (s *Server) sendResponse(response any) {
	if err := s.encoder.Encode(response); err != nil {
		s.logger.Errorf("Marshaling response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(CompletionError{ID: id, Error: message, Code: code})
}
