package worker

import (
	"context"

	"github.com/agentplane/agentplane/engine/agent"
	agentacts "github.com/agentplane/agentplane/engine/agent/activities"
	"github.com/agentplane/agentplane/engine/builder"
	"github.com/agentplane/agentplane/engine/llm"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/agentplane/agentplane/engine/state"
	taskacts "github.com/agentplane/agentplane/engine/task/activities"
)

// Activities bundles every activity the build and task workflows call.
// Methods are registered under their own names, which match the Label
// constants next to each activity implementation.
type Activities struct {
	agents    agent.Repository
	platform  platform.Platform
	states    *state.Service
	gateway   llm.Gateway
	build     *builder.Config
	namespace string
}

func NewActivities(
	agents agent.Repository,
	p platform.Platform,
	states *state.Service,
	gateway llm.Gateway,
	build *builder.Config,
	namespace string,
) *Activities {
	return &Activities{
		agents:    agents,
		platform:  p,
		states:    states,
		gateway:   gateway,
		build:     build,
		namespace: namespace,
	}
}

// -----------------------------------------------------------------------------
// Agent row
// -----------------------------------------------------------------------------

func (a *Activities) UpdateAgent(
	ctx context.Context,
	input *agentacts.UpdateAgentInput,
) (*agent.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act := agentacts.NewUpdateAgent(a.agents)
	updated, err := act.Run(ctx, input)
	return updated, toActivityError(err)
}

func (a *Activities) UpdateAgentStatus(
	ctx context.Context,
	input *agentacts.UpdateAgentStatusInput,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	act := agentacts.NewUpdateAgentStatus(a.agents)
	return toActivityError(act.Run(ctx, input))
}

// -----------------------------------------------------------------------------
// Build
// -----------------------------------------------------------------------------

func (a *Activities) BuildAndPush(
	ctx context.Context,
	input *agentacts.BuildAndPushInput,
) (*agentacts.BuildAndPushOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act := agentacts.NewBuildAndPush(a.platform, a.build, a.namespace)
	out, err := act.Run(ctx, input)
	return out, toActivityError(err)
}

func (a *Activities) GetBuildJob(
	ctx context.Context,
	input *agentacts.GetBuildJobInput,
) (*platform.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act := agentacts.NewGetBuildJob(a.platform)
	job, err := act.Run(ctx, input)
	return job, toActivityError(err)
}

func (a *Activities) DeleteBuildJob(
	ctx context.Context,
	input *agentacts.DeleteBuildJobInput,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	act := agentacts.NewDeleteBuildJob(a.platform)
	return toActivityError(act.Run(ctx, input))
}

// -----------------------------------------------------------------------------
// Agent server
// -----------------------------------------------------------------------------

func (a *Activities) CreateAgentDeployment(
	ctx context.Context,
	input *agentacts.CreateAgentDeploymentInput,
) (*platform.Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act := agentacts.NewCreateAgentDeployment(a.platform)
	deployment, err := act.Run(ctx, input)
	return deployment, toActivityError(err)
}

func (a *Activities) GetAgentDeployment(
	ctx context.Context,
	input *agentacts.GetAgentDeploymentInput,
) (*platform.Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act := agentacts.NewGetAgentDeployment(a.platform)
	deployment, err := act.Run(ctx, input)
	return deployment, toActivityError(err)
}

func (a *Activities) DeleteAgentDeployment(
	ctx context.Context,
	input *agentacts.DeleteAgentDeploymentInput,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	act := agentacts.NewDeleteAgentDeployment(a.platform)
	return toActivityError(act.Run(ctx, input))
}

func (a *Activities) CreateAgentService(
	ctx context.Context,
	input *agentacts.CreateAgentServiceInput,
) (*platform.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act := agentacts.NewCreateAgentService(a.platform)
	service, err := act.Run(ctx, input)
	return service, toActivityError(err)
}

func (a *Activities) GetAgentService(
	ctx context.Context,
	input *agentacts.GetAgentServiceInput,
) (*platform.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act := agentacts.NewGetAgentService(a.platform)
	service, err := act.Run(ctx, input)
	return service, toActivityError(err)
}

func (a *Activities) DeleteAgentService(
	ctx context.Context,
	input *agentacts.DeleteAgentServiceInput,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	act := agentacts.NewDeleteAgentService(a.platform)
	return toActivityError(act.Run(ctx, input))
}

func (a *Activities) CreateAgentPodDisruptionBudget(
	ctx context.Context,
	input *agentacts.CreateAgentPodDisruptionBudgetInput,
) (*platform.PodDisruptionBudget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act := agentacts.NewCreateAgentPodDisruptionBudget(a.platform)
	pdb, err := act.Run(ctx, input)
	return pdb, toActivityError(err)
}

// -----------------------------------------------------------------------------
// Conversation
// -----------------------------------------------------------------------------

func (a *Activities) InitTaskState(
	ctx context.Context,
	input *taskacts.InitTaskStateInput,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	act := taskacts.NewInitTaskState(a.states)
	return toActivityError(act.Run(ctx, input))
}

func (a *Activities) DecideAction(
	ctx context.Context,
	input *taskacts.DecideActionInput,
) (*taskacts.DecideActionOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act := taskacts.NewDecideAction(a.states, a.gateway)
	out, err := act.Run(ctx, input)
	return out, toActivityError(err)
}

func (a *Activities) TakeAction(
	ctx context.Context,
	input *taskacts.TakeActionInput,
) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act := taskacts.NewTakeAction(a.states, a.platform, a.namespace)
	response, err := act.Run(ctx, input)
	return response, toActivityError(err)
}

func (a *Activities) AppendInstruction(
	ctx context.Context,
	input *taskacts.AppendInstructionInput,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	act := taskacts.NewAppendInstruction(a.states)
	return toActivityError(act.Run(ctx, input))
}
