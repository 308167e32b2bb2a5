package activities

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/llm"
	"github.com/agentplane/agentplane/engine/state"
	"github.com/agentplane/agentplane/engine/task"
)

const DecideActionLabel = "DecideAction"

type DecideActionInput struct {
	Task  task.Task   `json:"task"`
	Agent agent.Agent `json:"agent"`
}

// DecideActionOutput carries the model's choice back into the workflow.
// The workflow inspects the finish reason and tool calls; the message
// content is already persisted to the conversation by the activity.
type DecideActionOutput struct {
	FinishReason string      `json:"finish_reason"`
	Message      llm.Message `json:"message"`
}

// DecideAction asks the model for the next step given the conversation so
// far and the agent's advertised actions, then appends the assistant
// message to the conversation.
type DecideAction struct {
	states  *state.Service
	gateway llm.Gateway
}

func NewDecideAction(states *state.Service, gateway llm.Gateway) *DecideAction {
	return &DecideAction{states: states, gateway: gateway}
}

func (a *DecideAction) Run(ctx context.Context, input *DecideActionInput) (*DecideActionOutput, error) {
	messages, err := a.states.Messages.GetAll(ctx, input.Task.ID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation for task %s: %w", input.Task.ID, err)
	}
	tools := make([]llm.ToolSchema, 0, len(input.Agent.Actions))
	for _, action := range input.Agent.Actions {
		tools = append(tools, llm.ToolSchema{
			Name:        action.Schema.Name,
			Description: action.Schema.Description,
			Parameters:  action.Schema.Parameters,
		})
	}
	choice, err := a.gateway.Completion(ctx, &llm.Config{
		Model:    input.Agent.Model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return nil, fmt.Errorf("requesting completion for task %s: %w", input.Task.ID, err)
	}
	if err := a.states.Messages.Append(ctx, input.Task.ID, choice.Message); err != nil {
		return nil, fmt.Errorf("appending assistant message for task %s: %w", input.Task.ID, err)
	}
	return &DecideActionOutput{FinishReason: choice.FinishReason, Message: choice.Message}, nil
}
