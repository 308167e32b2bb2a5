package activities

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/builder"
	"github.com/agentplane/agentplane/engine/platform"
)

const BuildAndPushLabel = "BuildAndPush"

type BuildAndPushInput struct {
	Agent   agent.Agent `json:"agent"`
	TarPath string      `json:"tar_path"`
}

// BuildAndPushOutput records where the build runs and the image reference
// it will publish on success.
type BuildAndPushOutput struct {
	JobName      string `json:"job_name"`
	JobNamespace string `json:"job_namespace"`
	Image        string `json:"image"`
}

// BuildAndPush submits the Kaniko job that builds the uploaded context and
// pushes the image tagged latest. Submission is fire-and-forget; the build
// workflow polls GetBuildJob until the job settles.
type BuildAndPush struct {
	platform  platform.Platform
	build     *builder.Config
	namespace string
}

func NewBuildAndPush(p platform.Platform, build *builder.Config, namespace string) *BuildAndPush {
	return &BuildAndPush{platform: p, build: build, namespace: namespace}
}

func (a *BuildAndPush) Run(ctx context.Context, input *BuildAndPushInput) (*BuildAndPushOutput, error) {
	image := builder.ServerName(input.Agent.Name)
	spec, imageURL := builder.KanikoJob(a.build, image, "latest", input.TarPath)
	job, err := a.platform.CreateJob(ctx, a.namespace, spec, false)
	if err != nil {
		return nil, fmt.Errorf("submitting build job for agent %q: %w", input.Agent.Name, err)
	}
	return &BuildAndPushOutput{
		JobName:      job.Name,
		JobNamespace: job.Namespace,
		Image:        imageURL,
	}, nil
}

const GetBuildJobLabel = "GetBuildJob"

type GetBuildJobInput struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// GetBuildJob reports the current state of a build job, nil when the job is
// not observable yet.
type GetBuildJob struct {
	platform platform.Platform
}

func NewGetBuildJob(p platform.Platform) *GetBuildJob {
	return &GetBuildJob{platform: p}
}

func (a *GetBuildJob) Run(ctx context.Context, input *GetBuildJobInput) (*platform.Job, error) {
	job, err := a.platform.GetJob(ctx, input.Namespace, input.Name)
	if err != nil {
		return nil, fmt.Errorf("getting build job %q: %w", input.Name, err)
	}
	return job, nil
}

const DeleteBuildJobLabel = "DeleteBuildJob"

type DeleteBuildJobInput struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type DeleteBuildJob struct {
	platform platform.Platform
}

func NewDeleteBuildJob(p platform.Platform) *DeleteBuildJob {
	return &DeleteBuildJob{platform: p}
}

func (a *DeleteBuildJob) Run(ctx context.Context, input *DeleteBuildJobInput) error {
	if err := a.platform.DeleteJob(ctx, input.Namespace, input.Name); err != nil {
		return fmt.Errorf("deleting build job %q: %w", input.Name, err)
	}
	return nil
}
