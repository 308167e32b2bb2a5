package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/llm"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/agentplane/agentplane/engine/schema"
	"github.com/agentplane/agentplane/engine/state"
	"github.com/agentplane/agentplane/engine/task"
)

const TakeActionLabel = "TakeAction"

type TakeActionInput struct {
	Task        task.Task      `json:"task"`
	ServiceName string         `json:"service_name"`
	ToolCallID  string         `json:"tool_call_id"`
	ToolName    string         `json:"tool_name"`
	ToolArgs    map[string]any `json:"tool_args"`
	Schema      map[string]any `json:"schema,omitempty"`
}

// TakeAction validates the model's arguments against the action schema,
// invokes the action server over its in-cluster service, and records the
// response as a tool message. Invalid arguments are a CLIENT_ERROR so the
// workflow fails instead of retrying a call that can never succeed.
type TakeAction struct {
	states    *state.Service
	platform  platform.Platform
	namespace string
}

func NewTakeAction(states *state.Service, p platform.Platform, namespace string) *TakeAction {
	return &TakeAction{states: states, platform: p, namespace: namespace}
}

func (a *TakeAction) Run(ctx context.Context, input *TakeActionInput) (map[string]any, error) {
	if input.Schema != nil {
		doc := schema.Schema(input.Schema)
		if err := doc.Validate(ctx, input.ToolArgs); err != nil {
			return nil, core.NewError(
				fmt.Errorf("invalid arguments for action %q: %w", input.ToolName, err),
				core.CodeClientError,
				map[string]any{"tool_name": input.ToolName, "tool_call_id": input.ToolCallID},
			)
		}
	}
	response, err := a.platform.CallService(ctx, platform.CallServiceInput{
		Namespace: a.namespace,
		Name:      input.ServiceName,
		Path:      "/" + input.ToolName,
		Method:    http.MethodPost,
		Payload:   input.ToolArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("calling action %q on %q: %w", input.ToolName, input.ServiceName, err)
	}
	content, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("encoding response of action %q: %w", input.ToolName, err)
	}
	message := llm.ToolMessage(input.ToolCallID, input.ToolName, string(content))
	if err := a.states.Messages.Append(ctx, input.Task.ID, message); err != nil {
		return nil, fmt.Errorf("appending tool message for task %s: %w", input.Task.ID, err)
	}
	return response, nil
}
