package uc

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/task"
	"github.com/agentplane/agentplane/engine/workflow"
	"github.com/agentplane/agentplane/pkg/logger"
)

// ApproveTask signals the running workflow that its human gate may close.
type ApproveTask struct {
	tasks  task.Repository
	engine workflow.Engine
	taskID core.ID
}

func NewApproveTask(tasks task.Repository, engine workflow.Engine, taskID core.ID) *ApproveTask {
	return &ApproveTask{tasks: tasks, engine: engine, taskID: taskID}
}

func (uc *ApproveTask) Execute(ctx context.Context) error {
	t, err := mustGetTask(ctx, uc.tasks, uc.taskID)
	if err != nil {
		return err
	}
	if err := uc.engine.SendSignal(ctx, t.ID.String(), workflow.SignalApprove, nil); err != nil {
		return fmt.Errorf("approving task %s: %w", t.ID, err)
	}
	logger.FromContext(ctx).Info("Task approved", "task_id", t.ID)
	return nil
}

// InstructTask delivers a follow-up prompt to the running workflow. The
// workflow appends it as a user message and resumes the tool loop.
type InstructTask struct {
	tasks  task.Repository
	engine workflow.Engine
	taskID core.ID
	prompt string
}

func NewInstructTask(tasks task.Repository, engine workflow.Engine, taskID core.ID, prompt string) *InstructTask {
	return &InstructTask{tasks: tasks, engine: engine, taskID: taskID, prompt: prompt}
}

func (uc *InstructTask) Execute(ctx context.Context) error {
	if uc.prompt == "" {
		return core.NewError(fmt.Errorf("prompt is required"), core.CodeClientError, nil)
	}
	t, err := mustGetTask(ctx, uc.tasks, uc.taskID)
	if err != nil {
		return err
	}
	instruction := workflow.HumanInstruction{TaskID: t.ID, Prompt: uc.prompt}
	if err := uc.engine.SendSignal(ctx, t.ID.String(), workflow.SignalInstruct, instruction); err != nil {
		return fmt.Errorf("instructing task %s: %w", t.ID, err)
	}
	logger.FromContext(ctx).Info("Task instructed", "task_id", t.ID)
	return nil
}

// CancelTask requests cooperative cancellation so the workflow can run
// its teardown before reporting Canceled.
type CancelTask struct {
	tasks  task.Repository
	engine workflow.Engine
	taskID core.ID
}

func NewCancelTask(tasks task.Repository, engine workflow.Engine, taskID core.ID) *CancelTask {
	return &CancelTask{tasks: tasks, engine: engine, taskID: taskID}
}

func (uc *CancelTask) Execute(ctx context.Context) error {
	t, err := mustGetTask(ctx, uc.tasks, uc.taskID)
	if err != nil {
		return err
	}
	if err := uc.engine.CancelWorkflow(ctx, t.ID.String()); err != nil {
		return fmt.Errorf("canceling task %s: %w", t.ID, err)
	}
	logger.FromContext(ctx).Info("Task cancellation requested", "task_id", t.ID)
	return nil
}
