// Package routertest provides in-memory doubles for handler tests.
package routertest

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

// InMemoryAgentRepo is a map-backed agent.Repository.
type InMemoryAgentRepo struct {
	mu     sync.Mutex
	agents map[core.ID]*agent.Agent

	// Err, when set, is returned by every method.
	Err error
}

func NewInMemoryAgentRepo(seed ...*agent.Agent) *InMemoryAgentRepo {
	repo := &InMemoryAgentRepo{agents: make(map[core.ID]*agent.Agent)}
	for _, a := range seed {
		copied := *a
		repo.agents[a.ID] = &copied
	}
	return repo
}

func (r *InMemoryAgentRepo) Create(_ context.Context, a *agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, existing := range r.agents {
		if existing.Name == a.Name {
			return core.NewError(nil, core.CodeDuplicateItem, map[string]any{"name": a.Name})
		}
	}
	copied := *a
	r.agents[a.ID] = &copied
	return nil
}

func (r *InMemoryAgentRepo) GetByID(_ context.Context, id core.ID) (*agent.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if a, ok := r.agents[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (r *InMemoryAgentRepo) GetByName(_ context.Context, name string) (*agent.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, a := range r.agents {
		if a.Name == name {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *InMemoryAgentRepo) List(_ context.Context) ([]agent.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	agents := make([]agent.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, *a)
	}
	return agents, nil
}

func (r *InMemoryAgentRepo) Update(_ context.Context, a *agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.agents[a.ID]; !ok {
		return core.NewError(nil, core.CodeNotFound, map[string]any{"agent_id": a.ID.String()})
	}
	copied := *a
	r.agents[a.ID] = &copied
	return nil
}

func (r *InMemoryAgentRepo) UpdateStatus(_ context.Context, id core.ID, status agent.Status, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	a, ok := r.agents[id]
	if !ok {
		return core.NewError(nil, core.CodeNotFound, map[string]any{"agent_id": id.String()})
	}
	a.SetStatus(status, reason)
	return nil
}

func (r *InMemoryAgentRepo) Delete(_ context.Context, id core.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.agents[id]; !ok {
		return core.NewError(nil, core.CodeNotFound, map[string]any{"agent_id": id.String()})
	}
	delete(r.agents, id)
	return nil
}

// InMemoryTaskRepo is a map-backed task.Repository that records status
// updates for assertions.
type InMemoryTaskRepo struct {
	mu            sync.Mutex
	tasks         map[core.ID]*task.Task
	StatusUpdates []string

	Err error
}

func NewInMemoryTaskRepo(seed ...*task.Task) *InMemoryTaskRepo {
	repo := &InMemoryTaskRepo{tasks: make(map[core.ID]*task.Task)}
	for _, t := range seed {
		copied := *t
		repo.tasks[t.ID] = &copied
	}
	return repo
}

func (r *InMemoryTaskRepo) Create(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	copied := *t
	r.tasks[t.ID] = &copied
	return nil
}

func (r *InMemoryTaskRepo) GetByID(_ context.Context, id core.ID) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if t, ok := r.tasks[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (r *InMemoryTaskRepo) List(_ context.Context) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	tasks := make([]task.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (r *InMemoryTaskRepo) UpdateStatus(_ context.Context, id core.ID, status, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	t, ok := r.tasks[id]
	if !ok {
		return core.NewError(nil, core.CodeNotFound, map[string]any{"task_id": id.String()})
	}
	t.SetStatus(status, reason)
	r.StatusUpdates = append(r.StatusUpdates, status)
	return nil
}

func (r *InMemoryTaskRepo) Delete(_ context.Context, id core.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.tasks[id]; !ok {
		return core.NewError(nil, core.CodeNotFound, map[string]any{"task_id": id.String()})
	}
	delete(r.tasks, id)
	return nil
}

// SignalCall records one SendSignal invocation.
type SignalCall struct {
	WorkflowID string
	Name       string
	Payload    any
}

// StubEngine is a workflow.Engine that records every interaction.
type StubEngine struct {
	mu           sync.Mutex
	Starts       []workflow.StartOptions
	Signals      []SignalCall
	Cancels      []string
	Terminations []string

	// StateByID serves GetWorkflowStatus; unknown ids report NOT_FOUND.
	StateByID map[string]*workflow.State

	StartErr  error
	SignalErr error
}

func (e *StubEngine) StartWorkflow(_ context.Context, opts workflow.StartOptions) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.StartErr != nil {
		return "", e.StartErr
	}
	e.Starts = append(e.Starts, opts)
	return opts.WorkflowID, nil
}

func (e *StubEngine) SendSignal(_ context.Context, workflowID, name string, payload any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.SignalErr != nil {
		return e.SignalErr
	}
	e.Signals = append(e.Signals, SignalCall{WorkflowID: workflowID, Name: name, Payload: payload})
	return nil
}

func (e *StubEngine) CancelWorkflow(_ context.Context, workflowID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Cancels = append(e.Cancels, workflowID)
	return nil
}

func (e *StubEngine) TerminateWorkflow(_ context.Context, workflowID, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Terminations = append(e.Terminations, workflowID)
	return nil
}

func (e *StubEngine) GetWorkflowStatus(_ context.Context, workflowID string) (*workflow.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.StateByID[workflowID]; ok {
		return s, nil
	}
	return workflow.StateFor(workflow.StatusNotFound), nil
}

func (e *StubEngine) Close() {}

// StubPlatform is a platform.Platform whose mutating calls are no-ops.
// CallService serves Response and records its input; deletes are recorded
// as "kind/namespace/name".
type StubPlatform struct {
	mu       sync.Mutex
	Response map[string]any
	CallErr  error
	Calls    []platform.CallServiceInput
	Deletes  []string
}

func (p *StubPlatform) record(kind, namespace, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Deletes = append(p.Deletes, kind+"/"+namespace+"/"+name)
}

func (p *StubPlatform) CreateJob(context.Context, string, *batchv1.Job, bool) (*platform.Job, error) {
	return nil, nil
}

func (p *StubPlatform) GetJob(context.Context, string, string) (*platform.Job, error) {
	return nil, nil
}

func (p *StubPlatform) DeleteJob(_ context.Context, namespace, name string) error {
	p.record("job", namespace, name)
	return nil
}

func (p *StubPlatform) CreateDeployment(context.Context, string, *appsv1.Deployment, bool) (*platform.Deployment, error) {
	return nil, nil
}

func (p *StubPlatform) GetDeployment(context.Context, string, string) (*platform.Deployment, error) {
	return nil, nil
}

func (p *StubPlatform) DeleteDeployment(_ context.Context, namespace, name string) error {
	p.record("deployment", namespace, name)
	return nil
}

func (p *StubPlatform) CreateService(context.Context, string, *corev1.Service, bool) (*platform.Service, error) {
	return nil, nil
}

func (p *StubPlatform) GetService(context.Context, string, string) (*platform.Service, error) {
	return nil, nil
}

func (p *StubPlatform) DeleteService(_ context.Context, namespace, name string) error {
	p.record("service", namespace, name)
	return nil
}

func (p *StubPlatform) CreatePodDisruptionBudget(context.Context, string, *policyv1.PodDisruptionBudget, bool) (*platform.PodDisruptionBudget, error) {
	return nil, nil
}

func (p *StubPlatform) GetPodDisruptionBudget(context.Context, string, string) (*platform.PodDisruptionBudget, error) {
	return nil, nil
}

func (p *StubPlatform) DeletePodDisruptionBudget(_ context.Context, namespace, name string) error {
	p.record("pdb", namespace, name)
	return nil
}

func (p *StubPlatform) CallService(_ context.Context, input platform.CallServiceInput) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, input)
	if p.CallErr != nil {
		return nil, p.CallErr
	}
	return p.Response, nil
}

// InMemoryStateStore serves conversational state blobs from a map.
type InMemoryStateStore struct {
	mu      sync.Mutex
	Blobs   map[core.ID]*state.AgentState
	Deletes []core.ID
}

func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{Blobs: make(map[core.ID]*state.AgentState)}
}

func (s *InMemoryStateStore) Get(_ context.Context, taskID core.ID) (*state.AgentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if blob, ok := s.Blobs[taskID]; ok {
		return blob, nil
	}
	return state.NewAgentState(), nil
}

func (s *InMemoryStateStore) Delete(_ context.Context, taskID core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes = append(s.Deletes, taskID)
	delete(s.Blobs, taskID)
	return nil
}
