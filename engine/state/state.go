// Package state implements the conversational state service: an ordered
// message history plus a context map per task, persisted as one JSON blob in
// the KV store under the literal task id.
package state

import (
	"context"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/llm"
)

// AgentState holds a task's full conversational state.
type AgentState struct {
	Messages []llm.Message  `json:"messages"`
	Context  map[string]any `json:"context"`
}

// NewAgentState returns an empty state with initialized collections.
func NewAgentState() *AgentState {
	return &AgentState{
		Messages: []llm.Message{},
		Context:  map[string]any{},
	}
}

// normalize repairs nil collections after JSON decoding so callers can
// append and assign without nil checks.
func (s *AgentState) normalize() {
	if s.Messages == nil {
		s.Messages = []llm.Message{}
	}
	if s.Context == nil {
		s.Context = map[string]any{}
	}
}

// Repository loads and saves whole state blobs keyed by task id. Load on an
// unseen key returns a fresh empty state, not an error.
type Repository interface {
	Load(ctx context.Context, taskID core.ID) (*AgentState, error)
	Save(ctx context.Context, taskID core.ID, state *AgentState) error
	Delete(ctx context.Context, taskID core.ID) error
}
