package activities

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/builder"
	"github.com/agentplane/agentplane/engine/platform"
)

const CreateAgentDeploymentLabel = "CreateAgentDeployment"

type CreateAgentDeploymentInput struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Port      int32  `json:"port"`
}

// CreateAgentDeployment rolls out the agent action server. Override is on so
// a rebuilt image replaces the pods of a previous build under the same name.
type CreateAgentDeployment struct {
	platform platform.Platform
}

func NewCreateAgentDeployment(p platform.Platform) *CreateAgentDeployment {
	return &CreateAgentDeployment{platform: p}
}

func (a *CreateAgentDeployment) Run(
	ctx context.Context,
	input *CreateAgentDeploymentInput,
) (*platform.Deployment, error) {
	spec := builder.AgentDeployment(input.Name, input.Image, input.Port, 1)
	deployment, err := a.platform.CreateDeployment(ctx, input.Namespace, spec, true)
	if err != nil {
		return nil, fmt.Errorf("creating deployment %q: %w", input.Name, err)
	}
	return deployment, nil
}

const GetAgentDeploymentLabel = "GetAgentDeployment"

type GetAgentDeploymentInput struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type GetAgentDeployment struct {
	platform platform.Platform
}

func NewGetAgentDeployment(p platform.Platform) *GetAgentDeployment {
	return &GetAgentDeployment{platform: p}
}

func (a *GetAgentDeployment) Run(
	ctx context.Context,
	input *GetAgentDeploymentInput,
) (*platform.Deployment, error) {
	deployment, err := a.platform.GetDeployment(ctx, input.Namespace, input.Name)
	if err != nil {
		return nil, fmt.Errorf("getting deployment %q: %w", input.Name, err)
	}
	return deployment, nil
}

const DeleteAgentDeploymentLabel = "DeleteAgentDeployment"

type DeleteAgentDeploymentInput struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type DeleteAgentDeployment struct {
	platform platform.Platform
}

func NewDeleteAgentDeployment(p platform.Platform) *DeleteAgentDeployment {
	return &DeleteAgentDeployment{platform: p}
}

func (a *DeleteAgentDeployment) Run(ctx context.Context, input *DeleteAgentDeploymentInput) error {
	if err := a.platform.DeleteDeployment(ctx, input.Namespace, input.Name); err != nil {
		return fmt.Errorf("deleting deployment %q: %w", input.Name, err)
	}
	return nil
}

const CreateAgentServiceLabel = "CreateAgentService"

type CreateAgentServiceInput struct {
	Namespace  string `json:"namespace"`
	Name       string `json:"name"`
	TargetPort int32  `json:"target_port"`
}

// CreateAgentService exposes the action server inside the cluster. The
// service is stable across rebuilds, so an existing one is reused.
type CreateAgentService struct {
	platform platform.Platform
}

func NewCreateAgentService(p platform.Platform) *CreateAgentService {
	return &CreateAgentService{platform: p}
}

func (a *CreateAgentService) Run(
	ctx context.Context,
	input *CreateAgentServiceInput,
) (*platform.Service, error) {
	spec := builder.AgentService(input.Name, input.TargetPort)
	service, err := a.platform.CreateService(ctx, input.Namespace, spec, false)
	if err != nil {
		return nil, fmt.Errorf("creating service %q: %w", input.Name, err)
	}
	return service, nil
}

const GetAgentServiceLabel = "GetAgentService"

type GetAgentServiceInput struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type GetAgentService struct {
	platform platform.Platform
}

func NewGetAgentService(p platform.Platform) *GetAgentService {
	return &GetAgentService{platform: p}
}

func (a *GetAgentService) Run(
	ctx context.Context,
	input *GetAgentServiceInput,
) (*platform.Service, error) {
	service, err := a.platform.GetService(ctx, input.Namespace, input.Name)
	if err != nil {
		return nil, fmt.Errorf("getting service %q: %w", input.Name, err)
	}
	return service, nil
}

const DeleteAgentServiceLabel = "DeleteAgentService"

type DeleteAgentServiceInput struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type DeleteAgentService struct {
	platform platform.Platform
}

func NewDeleteAgentService(p platform.Platform) *DeleteAgentService {
	return &DeleteAgentService{platform: p}
}

func (a *DeleteAgentService) Run(ctx context.Context, input *DeleteAgentServiceInput) error {
	if err := a.platform.DeleteService(ctx, input.Namespace, input.Name); err != nil {
		return fmt.Errorf("deleting service %q: %w", input.Name, err)
	}
	return nil
}

const CreateAgentPodDisruptionBudgetLabel = "CreateAgentPodDisruptionBudget"

type CreateAgentPodDisruptionBudgetInput struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// CreateAgentPodDisruptionBudget guards the single-replica action server
// against voluntary evictions.
type CreateAgentPodDisruptionBudget struct {
	platform platform.Platform
}

func NewCreateAgentPodDisruptionBudget(p platform.Platform) *CreateAgentPodDisruptionBudget {
	return &CreateAgentPodDisruptionBudget{platform: p}
}

func (a *CreateAgentPodDisruptionBudget) Run(
	ctx context.Context,
	input *CreateAgentPodDisruptionBudgetInput,
) (*platform.PodDisruptionBudget, error) {
	spec := builder.AgentPodDisruptionBudget(input.Name)
	pdb, err := a.platform.CreatePodDisruptionBudget(ctx, input.Namespace, spec, false)
	if err != nil {
		return nil, fmt.Errorf("creating pod disruption budget %q: %w", input.Name, err)
	}
	return pdb, nil
}
