package worker

import (
	"encoding/json"
	"fmt"

	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/builder"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/llm"
	"github.com/agentplane/agentplane/engine/task"
	taskacts "github.com/agentplane/agentplane/engine/task/activities"
	wf "github.com/agentplane/agentplane/engine/workflow"
)

// RunAgentTaskWorkflow runs one task against a built agent: it seeds the
// conversation, then loops decide/act until the model stops. When approval
// is required the workflow parks at a human gate after each answer and
// resumes on an instruct or approve signal. The agent row reads Active
// while the loop runs and returns to Idle when the workflow leaves,
// including on failure and cancellation.
func RunAgentTaskWorkflow(ctx workflow.Context, input task.WorkflowInput) (*task.Result, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting agent task", "task_id", input.Task.ID, "agent_name", input.Agent.Name)

	gate, err := newHumanGate(ctx, &input)
	if err != nil {
		return nil, err
	}
	defer taskCancelCleanup(ctx, input.Agent.ID)
	failHandler := taskFailHandler(ctx, input.Agent.ID)

	convCtx := withActivityOptions(ctx, conversationActivityTimeout, conversationActivityAttempts)
	if err := workflow.ExecuteActivity(convCtx, taskacts.InitTaskStateLabel, &taskacts.InitTaskStateInput{
		Task:  input.Task,
		Agent: input.Agent,
	}).Get(convCtx, nil); err != nil {
		return nil, failHandler(err)
	}
	if err := updateAgentStatus(ctx, input.Agent.ID, agent.StatusActive, ""); err != nil {
		return nil, failHandler(err)
	}

	serviceName := builder.ServerName(input.Agent.Name)
	var content string
	for {
		var decision taskacts.DecideActionOutput
		err := workflow.ExecuteActivity(convCtx, taskacts.DecideActionLabel, &taskacts.DecideActionInput{
			Task:  input.Task,
			Agent: input.Agent,
		}).Get(convCtx, &decision)
		if err != nil {
			return nil, failHandler(err)
		}
		gate.RecordIteration()
		content = decision.Message.Content

		if llm.IsTerminalFinishReason(decision.FinishReason) {
			if !input.RequireApproval {
				break
			}
			approved, err := gate.AwaitInstructionOrApproval(ctx)
			if err != nil {
				return nil, failHandler(err)
			}
			if approved {
				break
			}
			continue
		}

		if err := dispatchToolCalls(ctx, &input, serviceName, decision.Message.ToolCalls); err != nil {
			return nil, failHandler(err)
		}
	}

	if err := updateAgentStatus(ctx, input.Agent.ID, agent.StatusIdle, ""); err != nil {
		return nil, failHandler(err)
	}
	logger.Info("Agent task finished", "task_id", input.Task.ID, "iterations", gate.Iterations())
	return &task.Result{Status: "completed", Content: content}, nil
}

// dispatchToolCalls fans the model's tool calls out as parallel activities
// and waits for all of them. Unknown tool names and malformed argument
// payloads are terminal: retrying the same decision cannot fix them.
func dispatchToolCalls(
	ctx workflow.Context,
	input *task.WorkflowInput,
	serviceName string,
	calls []llm.ToolCall,
) error {
	actCtx := withActivityOptions(ctx, conversationActivityTimeout, conversationActivityAttempts)
	futures := make([]workflow.Future, 0, len(calls))
	for i := range calls {
		call := calls[i]
		action := findAction(input.Agent.Actions, call.Function.Name)
		if action == nil {
			return core.NewError(
				fmt.Errorf("agent %q has no action named %q", input.Agent.Name, call.Function.Name),
				core.CodeClientError,
				map[string]any{"tool_name": call.Function.Name},
			)
		}
		var args map[string]any
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return core.NewError(
					fmt.Errorf("decoding arguments for action %q: %w", call.Function.Name, err),
					core.CodeClientError,
					map[string]any{"tool_call_id": call.ID, "tool_name": call.Function.Name},
				)
			}
		}
		futures = append(futures, workflow.ExecuteActivity(actCtx, taskacts.TakeActionLabel, &taskacts.TakeActionInput{
			Task:        input.Task,
			ServiceName: serviceName,
			ToolCallID:  call.ID,
			ToolName:    call.Function.Name,
			ToolArgs:    args,
			Schema:      action.Schema.Parameters,
		}))
	}
	for _, future := range futures {
		if err := future.Get(actCtx, nil); err != nil {
			return err
		}
	}
	return nil
}

func findAction(actions []agent.Action, name string) *agent.Action {
	for i := range actions {
		if actions[i].Schema.Name == name {
			return &actions[i]
		}
	}
	return nil
}

// taskFailHandler returns the agent to Idle when the task unwinds with an
// error, so a failed task does not leave the agent stuck Active.
// Cancellation passes through to the deferred cleanup.
func taskFailHandler(ctx workflow.Context, agentID core.ID) func(err error) error {
	return func(err error) error {
		logger := workflow.GetLogger(ctx)
		if temporal.IsCanceledError(err) || err == workflow.ErrCanceled {
			logger.Info("Task workflow canceled")
			return err
		}
		logger.Info("Returning agent to Idle after task error", "error", err)
		cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
		if updateErr := updateAgentStatus(cleanupCtx, agentID, agent.StatusIdle, ""); updateErr != nil {
			logger.Error("Failed to return agent to Idle", "error", updateErr)
		}
		return err
	}
}

// taskCancelCleanup runs deferred and only acts on cancellation. The agent
// goes back to Idle on a disconnected context so the write outlives the
// canceled workflow context.
func taskCancelCleanup(ctx workflow.Context, agentID core.ID) {
	if ctx.Err() != workflow.ErrCanceled {
		return
	}
	logger := workflow.GetLogger(ctx)
	logger.Info("Task workflow canceled, returning agent to Idle")
	cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
	if err := updateAgentStatus(cleanupCtx, agentID, agent.StatusIdle, ""); err != nil {
		logger.Error("Failed to return agent to Idle during cleanup", "error", err)
	}
}

// -----------------------------------------------------------------------------
// Human Gate
// -----------------------------------------------------------------------------

// humanGate owns the task's observable progress and the signal handlers
// that advance it. Instructions are appended to the conversation the
// moment they arrive, so the next decision sees them even while the tool
// loop is mid-flight; approval flips a flag the workflow waits on between
// decision rounds.
type humanGate struct {
	progress wf.Progress
	taskID   core.ID
	logger   log.Logger
}

// newHumanGate installs the signal listeners and the state query handler
// and returns the gate.
func newHumanGate(ctx workflow.Context, input *task.WorkflowInput) (*humanGate, error) {
	g := &humanGate{taskID: input.Task.ID, logger: workflow.GetLogger(ctx)}
	if err := workflow.SetQueryHandler(ctx, wf.QueryState, func() (wf.Progress, error) {
		return g.progress, nil
	}); err != nil {
		return nil, err
	}

	appendCtx := withActivityOptions(ctx, conversationActivityTimeout, conversationActivityAttempts)
	instruct := workflow.GetSignalChannel(ctx, wf.SignalInstruct)
	approve := workflow.GetSignalChannel(ctx, wf.SignalApprove)

	workflow.Go(ctx, func(ctx workflow.Context) {
		for {
			var instruction wf.HumanInstruction
			instruct.Receive(ctx, &instruction)
			if ctx.Err() == workflow.ErrCanceled {
				return
			}
			g.handleInstruction(appendCtx, instruction)
		}
	})
	workflow.Go(ctx, func(ctx workflow.Context) {
		for {
			approve.Receive(ctx, nil)
			if ctx.Err() == workflow.ErrCanceled {
				return
			}
			g.logger.Info("Approval signal received")
			g.progress.TaskApproved = true
		}
	})
	return g, nil
}

// handleInstruction appends the prompt as a user message and releases the
// gate. The gate stays closed when the append fails, so the sender can
// retry the signal instead of the workflow resuming on a conversation the
// instruction never reached.
func (g *humanGate) handleInstruction(ctx workflow.Context, instruction wf.HumanInstruction) {
	if instruction.Prompt == "" {
		g.logger.Info("Ignoring instruction with empty prompt")
		return
	}
	err := workflow.ExecuteActivity(ctx, taskacts.AppendInstructionLabel, &taskacts.AppendInstructionInput{
		TaskID: g.taskID,
		Prompt: instruction.Prompt,
	}).Get(ctx, nil)
	if err != nil {
		g.logger.Error("Failed to append instruction", "error", err)
		return
	}
	g.progress.WaitingForInstruction = false
}

// AwaitInstructionOrApproval parks the workflow until a human reacts to
// the latest answer. It reports whether the reaction was an approval.
func (g *humanGate) AwaitInstructionOrApproval(ctx workflow.Context) (bool, error) {
	g.progress.WaitingForInstruction = true
	g.logger.Info("Waiting for human instruction or approval", "task_id", g.taskID)
	err := workflow.Await(ctx, func() bool {
		return !g.progress.WaitingForInstruction || g.progress.TaskApproved
	})
	if err != nil {
		return false, err
	}
	return g.progress.TaskApproved, nil
}

func (g *humanGate) RecordIteration() {
	g.progress.Iterations++
}

func (g *humanGate) Iterations() int {
	return g.progress.Iterations
}
