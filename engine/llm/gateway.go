package llm

import "context"

// Finish reasons reported by providers. Stop, Length, and ContentFilter end
// the agent decision loop; ToolCalls keeps it iterating.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
	FinishReasonToolCalls     = "tool_calls"
)

// IsTerminalFinishReason reports whether reason ends the decision loop.
func IsTerminalFinishReason(reason string) bool {
	switch reason {
	case FinishReasonStop, FinishReasonLength, FinishReasonContentFilter:
		return true
	default:
		return false
	}
}

// ToolSchema describes one callable action as a JSON Schema function
// definition, the shape tool-capable providers consume.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Config is a single completion request as a closed record: every option the
// port supports is enumerated here, and zero-valued fields are omitted from
// the provider call.
type Config struct {
	Model            string       `json:"model"`
	Messages         []Message    `json:"messages"`
	Tools            []ToolSchema `json:"tools,omitempty"`
	ToolChoice       string       `json:"tool_choice,omitempty"`
	Temperature      float64      `json:"temperature,omitempty"`
	TopP             float64      `json:"top_p,omitempty"`
	N                int          `json:"n,omitempty"`
	Stop             []string     `json:"stop,omitempty"`
	MaxTokens        int          `json:"max_tokens,omitempty"`
	PresencePenalty  float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64      `json:"frequency_penalty,omitempty"`
	Seed             int          `json:"seed,omitempty"`
	JSONMode         bool         `json:"json_mode,omitempty"`
}

// Choice is the first completion choice of a response.
type Choice struct {
	FinishReason string  `json:"finish_reason"`
	Message      Message `json:"message"`
}

// Gateway is the chat-completion port task activities call.
type Gateway interface {
	Completion(ctx context.Context, cfg *Config) (*Choice, error)
	Close() error
}
