package worker

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/agentplane/agentplane/engine/agent"
	agentacts "github.com/agentplane/agentplane/engine/agent/activities"
	"github.com/agentplane/agentplane/engine/builder"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/platform"
)

// Build job and server rollout polls share one cadence: every five
// seconds, up to half an hour.
const (
	serverPollAttempts = 360
	serverPollInterval = 5 * time.Second
)

// BuildAgentWorkflow builds the agent's action image from the uploaded tar
// context, rolls out the action server behind a stable Service, and walks
// the agent row from Building to Ready. Any failure marks the agent Failed
// with the causing error's message before the workflow unwinds.
func BuildAgentWorkflow(ctx workflow.Context, input agent.BuildInput) (*agent.Agent, error) {
	log := workflow.GetLogger(ctx)
	log.Info("Starting agent build", "agent_id", input.Agent.ID, "agent_name", input.Agent.Name)
	failHandler := buildFailHandler(ctx, input.Agent.ID)

	current := input.Agent
	current.SetStatus(agent.StatusBuilding, "Agent is building its actions.")
	updated, err := updateAgent(ctx, &current)
	if err != nil {
		return nil, failHandler(err)
	}
	current = *updated

	// Submit the build job, then record where it runs and what it will
	// publish so operators can find the job while it is still going.
	buildCtx := withBuildSubmitOptions(ctx)
	var build agentacts.BuildAndPushOutput
	err = workflow.ExecuteActivity(buildCtx, agentacts.BuildAndPushLabel, &agentacts.BuildAndPushInput{
		Agent:   current,
		TarPath: input.AgentTarPath,
	}).Get(buildCtx, &build)
	if err != nil {
		return nil, failHandler(err)
	}
	current.DockerImage = &build.Image
	current.BuildJobName = &build.JobName
	current.BuildJobNamespace = &build.JobNamespace
	updated, err = updateAgent(ctx, &current)
	if err != nil {
		return nil, failHandler(err)
	}
	current = *updated

	if err := awaitBuildJob(ctx, build.JobNamespace, build.JobName); err != nil {
		return nil, failHandler(err)
	}
	if err := rolloutServer(ctx, build.JobNamespace, &current, build.Image); err != nil {
		return nil, failHandler(err)
	}

	current.SetStatus(agent.StatusReady, "Agent built and ready to receive tasks.")
	updated, err = updateAgent(ctx, &current)
	if err != nil {
		return nil, failHandler(err)
	}
	log.Info("Agent build finished", "agent_id", updated.ID, "image", build.Image)
	return updated, nil
}

// buildFailHandler marks the agent Failed when the build unwinds with an
// error. Cancellation passes through untouched so CancelWorkflow keeps its
// cooperative semantics.
func buildFailHandler(ctx workflow.Context, agentID core.ID) func(err error) error {
	return func(err error) error {
		log := workflow.GetLogger(ctx)
		if temporal.IsCanceledError(err) || err == workflow.ErrCanceled {
			log.Info("Build workflow canceled")
			return err
		}
		log.Info("Marking agent Failed due to build error", "error", err)
		cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
		if updateErr := updateAgentStatus(cleanupCtx, agentID, agent.StatusFailed, reasonOf(err)); updateErr != nil {
			log.Error("Failed to mark agent Failed", "error", updateErr)
		}
		return err
	}
}

func updateAgent(ctx workflow.Context, current *agent.Agent) (*agent.Agent, error) {
	ctx = withActivityOptions(ctx, quickActivityTimeout, quickActivityAttempts)
	var updated agent.Agent
	err := workflow.ExecuteActivity(ctx, agentacts.UpdateAgentLabel, &agentacts.UpdateAgentInput{
		Agent: *current,
	}).Get(ctx, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func updateAgentStatus(ctx workflow.Context, agentID core.ID, status agent.Status, reason string) error {
	ctx = withActivityOptions(ctx, quickActivityTimeout, quickActivityAttempts)
	return workflow.ExecuteActivity(ctx, agentacts.UpdateAgentStatusLabel, &agentacts.UpdateAgentStatusInput{
		AgentID: agentID,
		Status:  status,
		Reason:  reason,
	}).Get(ctx, nil)
}

// awaitBuildJob polls the build job until it settles. A nil job counts as
// still pending because the job may not be observable right after
// submission. On timeout the job is deleted so a stuck build does not keep
// holding the registry credentials mount.
func awaitBuildJob(ctx workflow.Context, namespace string, name string) error {
	log := workflow.GetLogger(ctx)
	pollCtx := withActivityOptions(ctx, quickActivityTimeout, quickActivityAttempts)
	for attempt := 0; attempt < serverPollAttempts; attempt++ {
		var job *platform.Job
		err := workflow.ExecuteActivity(pollCtx, agentacts.GetBuildJobLabel, &agentacts.GetBuildJobInput{
			Namespace: namespace,
			Name:      name,
		}).Get(pollCtx, &job)
		if err != nil {
			return err
		}
		if job != nil {
			switch job.Status {
			case platform.JobSucceeded:
				log.Info("Build job succeeded", "job_name", name)
				return nil
			case platform.JobFailed:
				return temporal.NewApplicationError(fmt.Sprintf(
					"Error building agent actions. Build job '%s' failed. "+
						"Please confirm that you can build the agent locally before trying again.",
					name,
				), core.CodeWorkflowFailure)
			case platform.JobPending, platform.JobRunning:
				// Still going.
			default:
				return temporal.NewApplicationError(fmt.Sprintf(
					"Error building agent actions. Build job '%s' has an unknown status. Please try again.",
					name,
				), core.CodeWorkflowFailure)
			}
		}
		if err := workflow.Sleep(ctx, serverPollInterval); err != nil {
			return err
		}
	}

	log.Info("Build job timed out, deleting it", "job_name", name)
	if err := workflow.ExecuteActivity(pollCtx, agentacts.DeleteBuildJobLabel, &agentacts.DeleteBuildJobInput{
		Namespace: namespace,
		Name:      name,
	}).Get(pollCtx, nil); err != nil {
		log.Error("Failed to delete timed out build job", "error", err)
	}
	return temporal.NewApplicationError(fmt.Sprintf(
		"Error building agent's actions: Build job '%s' timed out. Please try again.",
		name,
	), core.CodeWorkflowFailure)
}

// rolloutServer creates the Deployment, Service, and PodDisruptionBudget
// for the agent's action server and waits for each to settle. When any
// step fails, the Service and Deployment are deleted again before the
// cause is returned.
func rolloutServer(ctx workflow.Context, namespace string, current *agent.Agent, image string) error {
	name := builder.ServerName(current.Name)
	createCtx := withCreateOptions(ctx)
	err := func() error {
		if err := workflow.ExecuteActivity(createCtx, agentacts.CreateAgentDeploymentLabel, &agentacts.CreateAgentDeploymentInput{
			Namespace: namespace,
			Name:      name,
			Image:     image,
			Port:      current.ActionServicePort,
		}).Get(createCtx, nil); err != nil {
			return err
		}
		if err := awaitDeploymentReady(ctx, namespace, name); err != nil {
			return err
		}
		if err := workflow.ExecuteActivity(createCtx, agentacts.CreateAgentServiceLabel, &agentacts.CreateAgentServiceInput{
			Namespace:  namespace,
			Name:       name,
			TargetPort: current.ActionServicePort,
		}).Get(createCtx, nil); err != nil {
			return err
		}
		if err := awaitServiceObservable(ctx, namespace, name); err != nil {
			return err
		}
		return workflow.ExecuteActivity(createCtx, agentacts.CreateAgentPodDisruptionBudgetLabel, &agentacts.CreateAgentPodDisruptionBudgetInput{
			Namespace: namespace,
			Name:      name,
		}).Get(createCtx, nil)
	}()
	if err != nil {
		teardownServer(ctx, namespace, name)
		return err
	}
	return nil
}

// awaitDeploymentReady polls the rollout until all replicas are available.
// On timeout the deployment is deleted so the next build starts clean.
func awaitDeploymentReady(ctx workflow.Context, namespace string, name string) error {
	log := workflow.GetLogger(ctx)
	pollCtx := withActivityOptions(ctx, quickActivityTimeout, quickActivityAttempts)
	for attempt := 0; attempt < serverPollAttempts; attempt++ {
		var deployment *platform.Deployment
		err := workflow.ExecuteActivity(pollCtx, agentacts.GetAgentDeploymentLabel, &agentacts.GetAgentDeploymentInput{
			Namespace: namespace,
			Name:      name,
		}).Get(pollCtx, &deployment)
		if err != nil {
			return err
		}
		if deployment != nil && deployment.Status == platform.DeploymentReady {
			return nil
		}
		if err := workflow.Sleep(ctx, serverPollInterval); err != nil {
			return err
		}
	}

	log.Info("Deployment rollout timed out, deleting it", "deployment_name", name)
	if err := workflow.ExecuteActivity(pollCtx, agentacts.DeleteAgentDeploymentLabel, &agentacts.DeleteAgentDeploymentInput{
		Namespace: namespace,
		Name:      name,
	}).Get(pollCtx, nil); err != nil {
		log.Error("Failed to delete timed out deployment", "error", err)
	}
	return temporal.NewApplicationError(fmt.Sprintf(
		"Error creating agent action deployment: Deployment '%s' timed out. Please try again.",
		name,
	), core.CodeWorkflowFailure)
}

func awaitServiceObservable(ctx workflow.Context, namespace string, name string) error {
	pollCtx := withActivityOptions(ctx, quickActivityTimeout, quickActivityAttempts)
	for attempt := 0; attempt < serverPollAttempts; attempt++ {
		var service *platform.Service
		err := workflow.ExecuteActivity(pollCtx, agentacts.GetAgentServiceLabel, &agentacts.GetAgentServiceInput{
			Namespace: namespace,
			Name:      name,
		}).Get(pollCtx, &service)
		if err != nil {
			return err
		}
		if service != nil {
			return nil
		}
		if err := workflow.Sleep(ctx, serverPollInterval); err != nil {
			return err
		}
	}
	return temporal.NewApplicationError(fmt.Sprintf(
		"Error creating agent action service: Service '%s' timed out. Please try again.",
		name,
	), core.CodeWorkflowFailure)
}

// teardownServer removes the Service then the Deployment, best-effort, on
// a disconnected context so compensation still runs while the workflow is
// unwinding from cancellation.
func teardownServer(ctx workflow.Context, namespace string, name string) {
	log := workflow.GetLogger(ctx)
	log.Info("Tearing down agent server", "server_name", name)
	cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
	cleanupCtx = withActivityOptions(cleanupCtx, quickActivityTimeout, quickActivityAttempts)
	if err := workflow.ExecuteActivity(cleanupCtx, agentacts.DeleteAgentServiceLabel, &agentacts.DeleteAgentServiceInput{
		Namespace: namespace,
		Name:      name,
	}).Get(cleanupCtx, nil); err != nil {
		log.Error("Failed to delete agent service during teardown", "error", err)
	}
	if err := workflow.ExecuteActivity(cleanupCtx, agentacts.DeleteAgentDeploymentLabel, &agentacts.DeleteAgentDeploymentInput{
		Namespace: namespace,
		Name:      name,
	}).Get(cleanupCtx, nil); err != nil {
		log.Error("Failed to delete agent deployment during teardown", "error", err)
	}
}
