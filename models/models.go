package models

import "errors"

// ErrRefusal is returned by a provider when the model refuses the request.
var ErrRefusal = errors.New("model refused the request")

// ErrNoDecision is returned when the model output could not be parsed into a Decision.
var ErrNoDecision = errors.New("no valid decision")

// ErrFetchFailed is returned when a page-fetch job reports failure.
var ErrFetchFailed = errors.New("fetch job failed")

// ErrFetchTimeout is returned when a page-fetch job exceeds its deadline.
var ErrFetchTimeout = errors.New("fetch job timed out")

// Action is the next pipeline step chosen by the decision model.
type Action string

const (
	ActionSearch Action = "search"
	ActionAnswer Action = "answer"
)

// Decision is the structured output of one decision call.
type Decision struct {
	Action        Action   `json:"action"`
	SearchQueries []string `json:"search_queries"`
	Message       string   `json:"message,omitempty"`
	Scratchpad    string   `json:"scratchpad,omitempty"`
}

// Document is one normalized web search result. Error and Query are set
// only on the placeholder document substituted when a whole query fails.
type Document struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Error   string  `json:"error,omitempty"`
	Query   string  `json:"query,omitempty"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is an out-of-band function invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one conversation turn.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolSpec describes a callable tool advertised to the model in
// streaming chat mode.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type StreamEventType string

const (
	StreamText     StreamEventType = "text"
	StreamToolCall StreamEventType = "tool_call"
)

// StreamEvent is a tagged union carried over a streaming chat channel:
// either a text delta or an accumulated tool call.
type StreamEvent struct {
	Type     StreamEventType
	Text     string
	ToolCall ToolCall
}
