package uc_test

import (
	"context"
	"sync"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/agentplane/agentplane/engine/workflow"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
)

type fakeRepo struct {
	mu        sync.Mutex
	agents    map[core.ID]*agent.Agent
	createErr error
	updateErr error
	creates   int
	updates   int
	deletes   []core.ID
}

func newFakeRepo(seed ...*agent.Agent) *fakeRepo {
	repo := &fakeRepo{agents: make(map[core.ID]*agent.Agent)}
	for _, a := range seed {
		copied := *a
		repo.agents[a.ID] = &copied
	}
	return repo
}

func (f *fakeRepo) Create(_ context.Context, a *agent.Agent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.creates++
	copied := *a
	f.agents[a.ID] = &copied
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id core.ID) (*agent.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.agents[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeRepo) GetByName(_ context.Context, name string) (*agent.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.agents {
		if a.Name == name {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) List(_ context.Context) ([]agent.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	agents := make([]agent.Agent, 0, len(f.agents))
	for _, a := range f.agents {
		agents = append(agents, *a)
	}
	return agents, nil
}

func (f *fakeRepo) Update(_ context.Context, a *agent.Agent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	copied := *a
	f.agents[a.ID] = &copied
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id core.ID, status agent.Status, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.agents[id]
	if !ok {
		return core.NewError(nil, core.CodeNotFound, map[string]any{"agent_id": id.String()})
	}
	a.SetStatus(status, reason)
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id core.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	delete(f.agents, id)
	return nil
}

type fakeEngine struct {
	starts       []workflow.StartOptions
	startErr     error
	terminations []string
	terminateErr error
}

func (f *fakeEngine) StartWorkflow(_ context.Context, opts workflow.StartOptions) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.starts = append(f.starts, opts)
	return opts.WorkflowID, nil
}

func (f *fakeEngine) SendSignal(context.Context, string, string, any) error { return nil }

func (f *fakeEngine) CancelWorkflow(context.Context, string) error { return nil }

func (f *fakeEngine) TerminateWorkflow(_ context.Context, workflowID string, _ string) error {
	f.terminations = append(f.terminations, workflowID)
	return f.terminateErr
}

func (f *fakeEngine) GetWorkflowStatus(context.Context, string) (*workflow.State, error) {
	return workflow.StateFor(workflow.StatusNotFound), nil
}

func (f *fakeEngine) Close() {}

type fakePlatform struct {
	deleted   []string
	deleteErr error
}

func (f *fakePlatform) CreateJob(context.Context, string, *batchv1.Job, bool) (*platform.Job, error) {
	return nil, nil
}

func (f *fakePlatform) GetJob(context.Context, string, string) (*platform.Job, error) {
	return nil, nil
}

func (f *fakePlatform) DeleteJob(_ context.Context, namespace, name string) error {
	f.deleted = append(f.deleted, "job/"+namespace+"/"+name)
	return f.deleteErr
}

func (f *fakePlatform) CreateDeployment(context.Context, string, *appsv1.Deployment, bool) (*platform.Deployment, error) {
	return nil, nil
}

func (f *fakePlatform) GetDeployment(context.Context, string, string) (*platform.Deployment, error) {
	return nil, nil
}

func (f *fakePlatform) DeleteDeployment(_ context.Context, namespace, name string) error {
	f.deleted = append(f.deleted, "deployment/"+namespace+"/"+name)
	return f.deleteErr
}

func (f *fakePlatform) CreateService(context.Context, string, *corev1.Service, bool) (*platform.Service, error) {
	return nil, nil
}

func (f *fakePlatform) GetService(context.Context, string, string) (*platform.Service, error) {
	return nil, nil
}

func (f *fakePlatform) DeleteService(_ context.Context, namespace, name string) error {
	f.deleted = append(f.deleted, "service/"+namespace+"/"+name)
	return f.deleteErr
}

func (f *fakePlatform) CreatePodDisruptionBudget(context.Context, string, *policyv1.PodDisruptionBudget, bool) (*platform.PodDisruptionBudget, error) {
	return nil, nil
}

func (f *fakePlatform) GetPodDisruptionBudget(context.Context, string, string) (*platform.PodDisruptionBudget, error) {
	return nil, nil
}

func (f *fakePlatform) DeletePodDisruptionBudget(_ context.Context, namespace, name string) error {
	f.deleted = append(f.deleted, "pdb/"+namespace+"/"+name)
	return f.deleteErr
}

func (f *fakePlatform) CallService(context.Context, platform.CallServiceInput) (map[string]any, error) {
	return nil, nil
}
