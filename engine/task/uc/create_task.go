package uc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/builder"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/agentplane/agentplane/engine/task"
	"github.com/agentplane/agentplane/engine/workflow"
	"github.com/agentplane/agentplane/pkg/logger"
)

// CreateTaskInput is the task submission request. Exactly one of AgentID
// and AgentName must identify an existing agent.
type CreateTaskInput struct {
	AgentID         core.ID `json:"agent_id"`
	AgentName       string  `json:"agent_name"`
	Prompt          string  `json:"prompt"`
	RequireApproval bool    `json:"require_approval"`
}

// CreateTask submits a prompt to an agent: it snapshots the agent's spec
// from its running service, persists the task row, and starts the task
// workflow under the task's ID. Duplicate submissions of the same ID are
// rejected by the engine.
type CreateTask struct {
	tasks    task.Repository
	agents   agent.Repository
	engine   workflow.Engine
	platform platform.Platform
	cfg      *Config
	input    *CreateTaskInput
}

func NewCreateTask(
	tasks task.Repository,
	agents agent.Repository,
	engine workflow.Engine,
	platform platform.Platform,
	cfg *Config,
	input *CreateTaskInput,
) *CreateTask {
	return &CreateTask{
		tasks:    tasks,
		agents:   agents,
		engine:   engine,
		platform: platform,
		cfg:      cfg,
		input:    input,
	}
}

func (uc *CreateTask) Execute(ctx context.Context) (*task.Task, error) {
	log := logger.FromContext(ctx)
	if uc.input.Prompt == "" {
		return nil, core.NewError(fmt.Errorf("prompt is required"), core.CodeClientError, nil)
	}
	a, err := uc.resolveAgent(ctx)
	if err != nil {
		return nil, err
	}
	if err := uc.hydrateAgentSpec(ctx, a); err != nil {
		return nil, err
	}
	t, err := uc.createTask(ctx, a)
	if err != nil {
		return nil, err
	}
	queue := a.WorkflowQueueName
	if queue == "" {
		queue = uc.cfg.TaskQueue
	}
	workflowName := a.WorkflowName
	if workflowName == "" {
		workflowName = workflow.TaskWorkflowName
	}
	startedID, err := uc.engine.StartWorkflow(ctx, workflow.StartOptions{
		WorkflowName:    workflowName,
		WorkflowID:      t.ID.String(),
		TaskQueue:       queue,
		Arg:             task.WorkflowInput{Task: *t, Agent: *a, RequireApproval: uc.input.RequireApproval},
		DuplicatePolicy: workflow.PolicyRejectDuplicate,
	})
	if err != nil {
		return nil, fmt.Errorf("starting task workflow for task %s: %w", t.ID, err)
	}
	if startedID != t.ID.String() {
		return nil, core.NewError(
			fmt.Errorf("workflow id %s does not match task id %s", startedID, t.ID),
			core.CodeServiceError,
			nil,
		)
	}
	log.Info("Task submitted", "task_id", t.ID, "agent_id", a.ID, "queue", queue)
	return t, nil
}

// resolveAgent treats a missing agent as a client mistake: the dependency
// row the request names does not exist.
func (uc *CreateTask) resolveAgent(ctx context.Context) (*agent.Agent, error) {
	var a *agent.Agent
	var err error
	switch {
	case !uc.input.AgentID.IsZero():
		a, err = uc.agents.GetByID(ctx, uc.input.AgentID)
	case uc.input.AgentName != "":
		a, err = uc.agents.GetByName(ctx, uc.input.AgentName)
	default:
		return nil, core.NewError(fmt.Errorf("agent id or name is required"), core.CodeClientError, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving agent: %w", err)
	}
	if a == nil {
		return nil, core.NewError(
			fmt.Errorf("agent does not exist"),
			core.CodeClientError,
			map[string]any{"agent_id": uc.input.AgentID.String(), "agent_name": uc.input.AgentName},
		)
	}
	return a, nil
}

// hydrateAgentSpec snapshots model, instructions, and actions from the
// agent's running service so the workflow input is self-contained.
func (uc *CreateTask) hydrateAgentSpec(ctx context.Context, a *agent.Agent) error {
	payload, err := uc.platform.CallService(ctx, platform.CallServiceInput{
		Namespace: uc.cfg.AgentsNamespace,
		Name:      builder.ServerName(a.Name),
		Path:      "/",
		Method:    http.MethodGet,
	})
	if err != nil {
		return fmt.Errorf("fetching spec for agent %s: %w", a.ID, err)
	}
	spec, err := agent.SpecFromPayload(payload)
	if err != nil {
		return core.NewError(err, core.CodeServiceError, map[string]any{"agent_id": a.ID.String()})
	}
	a.ApplySpec(spec)
	return nil
}

func (uc *CreateTask) createTask(ctx context.Context, a *agent.Agent) (*task.Task, error) {
	id, err := core.NewID()
	if err != nil {
		return nil, fmt.Errorf("generating task id: %w", err)
	}
	now := time.Now().UTC()
	t := &task.Task{
		ID:        id,
		AgentID:   a.ID,
		Prompt:    uc.input.Prompt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
