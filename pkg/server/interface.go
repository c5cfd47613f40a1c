/*
Package server implements msgpack IPC for prefix completion.

The server reads msgpack encoded messages from stdin and writes one msgpack encoded
response per message to stdout. Logs go to stderr so they never mix with responses.

# IPC

Every message carries an id which is echoed back. Messages without an action are
completion requests:

	{"id": "req_001", "p": "ame", "l": 24}

Optional keys turn on fuzzy matching ("f"), restrict the contexts ("ctx") and boost
some of them ("b"):

	{"id": "req_002", "p": "piz", "ctx": ["food"], "b": {"food": 2.0}, "f": true}

The server responds with suggestions, best first:

	{"id": "req_001", "s": [{"w": "amenity", "r": 1, "d": 412}, {"w": "america", "r": 2, "d": 97}], "c": 2, "t": 145}

"t" is the lookup time in microseconds. Rejected requests get an error message:

	{"id": "req_003", "e": "prefix exceeds maximum length of 60", "c": 400}

Index management uses an action:

	{"id": "ix_001", "action": "stats"}
	{"id": "ix_002", "action": "delete", "doc": 97}
	{"id": "ix_003", "action": "save"}

Config messages adjust server limits without a restart:

	{"id": "cfg_001", "action": "get_config"}
	{"id": "cfg_002", "action": "update_config", "max_limit": 32}
*/
package server

// Request actions
const (
	ActionStats        = "stats"
	ActionDelete       = "delete"
	ActionSave         = "save"
	ActionGetConfig    = "get_config"
	ActionUpdateConfig = "update_config"
)

// envelope is decoded first to route a message.
type envelope struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"action"`
}

// CompletionRequest - minimal completion request
type CompletionRequest struct {
	ID       string             `msgpack:"id"`
	Prefix   string             `msgpack:"p"`
	Limit    int                `msgpack:"l,omitempty"`
	Fuzzy    bool               `msgpack:"f,omitempty"`
	Contexts []string           `msgpack:"ctx,omitempty"`
	Boosts   map[string]float32 `msgpack:"b,omitempty"`
}

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word    string `msgpack:"w"`
	Rank    uint16 `msgpack:"r"`
	DocID   int    `msgpack:"d"`
	Context string `msgpack:"x,omitempty"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
	TimeTaken   int64                  `msgpack:"t"`
}

// CompletionError holds basic error information for completion requests
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

// IndexRequest - index management request
type IndexRequest struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"action"`        // "stats", "delete", "save"
	DocID  *int   `msgpack:"doc,omitempty"` // for "delete"
}

// IndexResponse - index operation response
type IndexResponse struct {
	ID      string         `msgpack:"id"`
	Status  string         `msgpack:"status"`
	Error   string         `msgpack:"error,omitempty"`
	Deleted bool           `msgpack:"deleted,omitempty"`
	Stats   map[string]int `msgpack:"stats,omitempty"`
}

// ConfigRequest - server config request; nil fields are left unchanged
type ConfigRequest struct {
	ID           string `msgpack:"id"`
	Action       string `msgpack:"action"` // "get_config", "update_config"
	MaxLimit     *int   `msgpack:"max_limit,omitempty"`
	MinPrefix    *int   `msgpack:"min_prefix,omitempty"`
	MaxPrefix    *int   `msgpack:"max_prefix,omitempty"`
	EnableFilter *bool  `msgpack:"enable_filter,omitempty"`
}

// ConfigResponse - config operation response
type ConfigResponse struct {
	ID           string `msgpack:"id"`
	Status       string `msgpack:"status"`
	Error        string `msgpack:"error,omitempty"`
	MaxLimit     int    `msgpack:"max_limit"`
	MinPrefix    int    `msgpack:"min_prefix"`
	MaxPrefix    int    `msgpack:"max_prefix"`
	EnableFilter bool   `msgpack:"enable_filter"`
}
