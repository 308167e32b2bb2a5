package uc

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/workflow"
	"github.com/agentplane/agentplane/pkg/logger"
	"github.com/spf13/afero"
)

// statusReasonQueued is stored on the row before the build workflow picks
// the agent up.
const statusReasonQueued = "Request to create agent received. Waiting for build process to start."

// DefaultActionServicePort is the container port agent servers listen on
// unless the create request overrides it.
const DefaultActionServicePort int32 = 8000

// CreateAgentInput is the parsed multipart create request. Context streams
// the uploaded tar.gz build context.
type CreateAgentInput struct {
	Name              string
	Description       string
	ActionServicePort int32
	Filename          string
	Context           io.Reader
}

// CreateAgent stages the build context on the shared volume, upserts the
// agent row, and starts the build workflow. Re-creating an existing name
// resets the agent to Pending and rebuilds it, terminating any build still
// running for the same agent.
type CreateAgent struct {
	repo   agent.Repository
	engine workflow.Engine
	fs     afero.Fs
	cfg    *Config
	input  *CreateAgentInput
}

func NewCreateAgent(
	repo agent.Repository,
	engine workflow.Engine,
	fs afero.Fs,
	cfg *Config,
	input *CreateAgentInput,
) *CreateAgent {
	return &CreateAgent{repo: repo, engine: engine, fs: fs, cfg: cfg, input: input}
}

func (uc *CreateAgent) Execute(ctx context.Context) (*agent.Agent, error) {
	log := logger.FromContext(ctx)
	if uc.input.Name == "" {
		return nil, core.NewError(fmt.Errorf("agent name is required"), core.CodeClientError, nil)
	}
	if uc.input.Context == nil {
		return nil, core.NewError(fmt.Errorf("agent build context is required"), core.CodeClientError, nil)
	}
	tarPath, err := uc.saveBuildContext()
	if err != nil {
		return nil, err
	}
	a, err := uc.upsertAgent(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := uc.engine.StartWorkflow(ctx, workflow.StartOptions{
		WorkflowName:    workflow.BuildWorkflowName,
		WorkflowID:      a.ID.String(),
		TaskQueue:       uc.cfg.BuildTaskQueue,
		Arg:             agent.BuildInput{Agent: *a, AgentTarPath: tarPath},
		DuplicatePolicy: workflow.PolicyTerminateIfRunning,
	}); err != nil {
		return nil, fmt.Errorf("starting build workflow for agent %s: %w", a.ID, err)
	}
	log.Info("Agent build requested", "agent_id", a.ID, "name", a.Name, "tar_path", tarPath)
	return a, nil
}

// saveBuildContext stages the upload in a fresh directory under the shared
// contexts volume. Rebuilds must never reuse a tar path: the previous
// build job's name is derived from it and its pre-stop hook deletes it.
func (uc *CreateAgent) saveBuildContext() (string, error) {
	if err := uc.fs.MkdirAll(uc.cfg.ContextsPath, 0o755); err != nil {
		return "", fmt.Errorf("creating contexts directory: %w", err)
	}
	dir, err := afero.TempDir(uc.fs, uc.cfg.ContextsPath, "ctx-")
	if err != nil {
		return "", fmt.Errorf("creating build context directory: %w", err)
	}
	name := filepath.Base(uc.input.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "agent.tar.gz"
	}
	tarPath := filepath.Join(dir, name)
	if err := afero.WriteReader(uc.fs, tarPath, uc.input.Context); err != nil {
		return "", fmt.Errorf("saving build context: %w", err)
	}
	return tarPath, nil
}

func (uc *CreateAgent) upsertAgent(ctx context.Context) (*agent.Agent, error) {
	existing, err := uc.repo.GetByName(ctx, uc.input.Name)
	if err != nil {
		return nil, fmt.Errorf("checking existing agent: %w", err)
	}
	if existing != nil {
		existing.SetStatus(agent.StatusPending, statusReasonQueued)
		if uc.input.Description != "" {
			existing.Description = uc.input.Description
		}
		if uc.input.ActionServicePort > 0 {
			existing.ActionServicePort = uc.input.ActionServicePort
		}
		if err := uc.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("resetting agent for rebuild: %w", err)
		}
		return existing, nil
	}
	id, err := core.NewID()
	if err != nil {
		return nil, fmt.Errorf("generating agent id: %w", err)
	}
	port := uc.input.ActionServicePort
	if port <= 0 {
		port = DefaultActionServicePort
	}
	now := time.Now().UTC()
	a := &agent.Agent{
		ID:                id,
		Name:              uc.input.Name,
		Description:       uc.input.Description,
		WorkflowName:      workflow.TaskWorkflowName,
		WorkflowQueueName: uc.cfg.TaskQueue,
		ActionServicePort: port,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	a.SetStatus(agent.StatusPending, statusReasonQueued)
	if err := uc.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
