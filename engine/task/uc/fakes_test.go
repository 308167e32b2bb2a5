package uc_test

import (
	"context"
	"sync"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/agentplane/agentplane/engine/state"
	"github.com/agentplane/agentplane/engine/task"
	"github.com/agentplane/agentplane/engine/workflow"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
)

type fakeTaskRepo struct {
	mu            sync.Mutex
	tasks         map[core.ID]*task.Task
	createErr     error
	statusUpdates []string
	deletes       []core.ID
}

func newFakeTaskRepo(seed ...*task.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{tasks: make(map[core.ID]*task.Task)}
	for _, t := range seed {
		copied := *t
		repo.tasks[t.ID] = &copied
	}
	return repo
}

func (f *fakeTaskRepo) Create(_ context.Context, t *task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *t
	f.tasks[t.ID] = &copied
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id core.ID) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeTaskRepo) List(_ context.Context) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := make([]task.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (f *fakeTaskRepo) UpdateStatus(_ context.Context, id core.ID, status string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return core.NewError(nil, core.CodeNotFound, map[string]any{"task_id": id.String()})
	}
	t.SetStatus(status, reason)
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id core.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	delete(f.tasks, id)
	return nil
}

type fakeAgentRepo struct {
	agents map[core.ID]*agent.Agent
}

func newFakeAgentRepo(seed ...*agent.Agent) *fakeAgentRepo {
	repo := &fakeAgentRepo{agents: make(map[core.ID]*agent.Agent)}
	for _, a := range seed {
		copied := *a
		repo.agents[a.ID] = &copied
	}
	return repo
}

func (f *fakeAgentRepo) Create(_ context.Context, a *agent.Agent) error {
	copied := *a
	f.agents[a.ID] = &copied
	return nil
}

func (f *fakeAgentRepo) GetByID(_ context.Context, id core.ID) (*agent.Agent, error) {
	if a, ok := f.agents[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeAgentRepo) GetByName(_ context.Context, name string) (*agent.Agent, error) {
	for _, a := range f.agents {
		if a.Name == name {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeAgentRepo) List(_ context.Context) ([]agent.Agent, error) {
	agents := make([]agent.Agent, 0, len(f.agents))
	for _, a := range f.agents {
		agents = append(agents, *a)
	}
	return agents, nil
}

func (f *fakeAgentRepo) Update(_ context.Context, a *agent.Agent) error {
	copied := *a
	f.agents[a.ID] = &copied
	return nil
}

func (f *fakeAgentRepo) UpdateStatus(_ context.Context, id core.ID, status agent.Status, reason string) error {
	a, ok := f.agents[id]
	if !ok {
		return core.NewError(nil, core.CodeNotFound, map[string]any{"agent_id": id.String()})
	}
	a.SetStatus(status, reason)
	return nil
}

func (f *fakeAgentRepo) Delete(_ context.Context, id core.ID) error {
	delete(f.agents, id)
	return nil
}

type signalCall struct {
	workflowID string
	name       string
	payload    any
}

type fakeEngine struct {
	starts       []workflow.StartOptions
	startErr     error
	signals      []signalCall
	signalErr    error
	cancels      []string
	terminations []string
	terminateErr error
	states       map[string]*workflow.State
	describes    int
}

func (f *fakeEngine) StartWorkflow(_ context.Context, opts workflow.StartOptions) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.starts = append(f.starts, opts)
	return opts.WorkflowID, nil
}

func (f *fakeEngine) SendSignal(_ context.Context, workflowID string, name string, payload any) error {
	if f.signalErr != nil {
		return f.signalErr
	}
	f.signals = append(f.signals, signalCall{workflowID: workflowID, name: name, payload: payload})
	return nil
}

func (f *fakeEngine) CancelWorkflow(_ context.Context, workflowID string) error {
	f.cancels = append(f.cancels, workflowID)
	return nil
}

func (f *fakeEngine) TerminateWorkflow(_ context.Context, workflowID string, _ string) error {
	if f.terminateErr != nil {
		return f.terminateErr
	}
	f.terminations = append(f.terminations, workflowID)
	return nil
}

func (f *fakeEngine) GetWorkflowStatus(_ context.Context, workflowID string) (*workflow.State, error) {
	f.describes++
	if s, ok := f.states[workflowID]; ok {
		return s, nil
	}
	return workflow.StateFor(workflow.StatusNotFound), nil
}

func (f *fakeEngine) Close() {}

type fakePlatform struct {
	callResponse map[string]any
	callErr      error
	calls        []platform.CallServiceInput
}

func (f *fakePlatform) CreateJob(context.Context, string, *batchv1.Job, bool) (*platform.Job, error) {
	return nil, nil
}

func (f *fakePlatform) GetJob(context.Context, string, string) (*platform.Job, error) {
	return nil, nil
}

func (f *fakePlatform) DeleteJob(context.Context, string, string) error { return nil }

func (f *fakePlatform) CreateDeployment(context.Context, string, *appsv1.Deployment, bool) (*platform.Deployment, error) {
	return nil, nil
}

func (f *fakePlatform) GetDeployment(context.Context, string, string) (*platform.Deployment, error) {
	return nil, nil
}

func (f *fakePlatform) DeleteDeployment(context.Context, string, string) error { return nil }

func (f *fakePlatform) CreateService(context.Context, string, *corev1.Service, bool) (*platform.Service, error) {
	return nil, nil
}

func (f *fakePlatform) GetService(context.Context, string, string) (*platform.Service, error) {
	return nil, nil
}

func (f *fakePlatform) DeleteService(context.Context, string, string) error { return nil }

func (f *fakePlatform) CreatePodDisruptionBudget(context.Context, string, *policyv1.PodDisruptionBudget, bool) (*platform.PodDisruptionBudget, error) {
	return nil, nil
}

func (f *fakePlatform) GetPodDisruptionBudget(context.Context, string, string) (*platform.PodDisruptionBudget, error) {
	return nil, nil
}

func (f *fakePlatform) DeletePodDisruptionBudget(context.Context, string, string) error {
	return nil
}

func (f *fakePlatform) CallService(_ context.Context, input platform.CallServiceInput) (map[string]any, error) {
	f.calls = append(f.calls, input)
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.callResponse, nil
}

type fakeStateStore struct {
	blobs   map[core.ID]*state.AgentState
	getErr  error
	deletes []core.ID
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{blobs: make(map[core.ID]*state.AgentState)}
}

func (f *fakeStateStore) Get(_ context.Context, taskID core.ID) (*state.AgentState, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if blob, ok := f.blobs[taskID]; ok {
		return blob, nil
	}
	return state.NewAgentState(), nil
}

func (f *fakeStateStore) Delete(_ context.Context, taskID core.ID) error {
	f.deletes = append(f.deletes, taskID)
	delete(f.blobs, taskID)
	return nil
}
