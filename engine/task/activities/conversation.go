package activities

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/llm"
	"github.com/agentplane/agentplane/engine/state"
	"github.com/agentplane/agentplane/engine/task"
)

const InitTaskStateLabel = "InitTaskState"

type InitTaskStateInput struct {
	Task  task.Task   `json:"task"`
	Agent agent.Agent `json:"agent"`
}

// InitTaskState seeds the conversation with the agent's instructions and
// the user's prompt. Appending instead of overwriting keeps a retried
// workflow from erasing messages written by a prior attempt.
type InitTaskState struct {
	states *state.Service
}

func NewInitTaskState(states *state.Service) *InitTaskState {
	return &InitTaskState{states: states}
}

func (a *InitTaskState) Run(ctx context.Context, input *InitTaskStateInput) error {
	seed := make([]llm.Message, 0, 2)
	if input.Agent.Instructions != "" {
		seed = append(seed, llm.SystemMessage(input.Agent.Instructions))
	}
	seed = append(seed, llm.UserMessage(input.Task.Prompt))
	if err := a.states.Messages.BatchAppend(ctx, input.Task.ID, seed); err != nil {
		return fmt.Errorf("seeding conversation for task %s: %w", input.Task.ID, err)
	}
	return nil
}

const AppendInstructionLabel = "AppendInstruction"

type AppendInstructionInput struct {
	TaskID core.ID `json:"task_id"`
	Prompt string  `json:"prompt"`
}

// AppendInstruction records a human follow-up as a user message so the
// next decision sees it.
type AppendInstruction struct {
	states *state.Service
}

func NewAppendInstruction(states *state.Service) *AppendInstruction {
	return &AppendInstruction{states: states}
}

func (a *AppendInstruction) Run(ctx context.Context, input *AppendInstructionInput) error {
	if err := a.states.Messages.Append(ctx, input.TaskID, llm.UserMessage(input.Prompt)); err != nil {
		return fmt.Errorf("appending instruction for task %s: %w", input.TaskID, err)
	}
	return nil
}
