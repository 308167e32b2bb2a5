package activities_test

import (
	"context"
	"sync"

	"github.com/agentplane/agentplane/engine/platform"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
)

type resourceCall struct {
	kind      string
	namespace string
	name      string
	override  bool
}

// fakePlatform records calls and derives records from the submitted specs,
// the way the real adapter reports back what it created.
type fakePlatform struct {
	mu      sync.Mutex
	creates []resourceCall
	gets    []resourceCall
	deletes []resourceCall
	err     error

	jobSpec        *batchv1.Job
	deploymentSpec *appsv1.Deployment
	serviceSpec    *corev1.Service
	pdbSpec        *policyv1.PodDisruptionBudget

	job        *platform.Job
	deployment *platform.Deployment
	service    *platform.Service
	pdb        *platform.PodDisruptionBudget
}

func (f *fakePlatform) record(list *[]resourceCall, call resourceCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*list = append(*list, call)
}

func (f *fakePlatform) CreateJob(
	_ context.Context, namespace string, spec *batchv1.Job, override bool,
) (*platform.Job, error) {
	f.record(&f.creates, resourceCall{"job", namespace, spec.Name, override})
	f.jobSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	if f.job != nil {
		return f.job, nil
	}
	return &platform.Job{Name: spec.Name, Namespace: namespace, Status: platform.JobPending}, nil
}

func (f *fakePlatform) GetJob(_ context.Context, namespace, name string) (*platform.Job, error) {
	f.record(&f.gets, resourceCall{kind: "job", namespace: namespace, name: name})
	return f.job, f.err
}

func (f *fakePlatform) DeleteJob(_ context.Context, namespace, name string) error {
	f.record(&f.deletes, resourceCall{kind: "job", namespace: namespace, name: name})
	return f.err
}

func (f *fakePlatform) CreateDeployment(
	_ context.Context, namespace string, spec *appsv1.Deployment, override bool,
) (*platform.Deployment, error) {
	f.record(&f.creates, resourceCall{"deployment", namespace, spec.Name, override})
	f.deploymentSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	if f.deployment != nil {
		return f.deployment, nil
	}
	return &platform.Deployment{
		Name:      spec.Name,
		Namespace: namespace,
		Status:    platform.DeploymentUnavailable,
	}, nil
}

func (f *fakePlatform) GetDeployment(
	_ context.Context, namespace, name string,
) (*platform.Deployment, error) {
	f.record(&f.gets, resourceCall{kind: "deployment", namespace: namespace, name: name})
	return f.deployment, f.err
}

func (f *fakePlatform) DeleteDeployment(_ context.Context, namespace, name string) error {
	f.record(&f.deletes, resourceCall{kind: "deployment", namespace: namespace, name: name})
	return f.err
}

func (f *fakePlatform) CreateService(
	_ context.Context, namespace string, spec *corev1.Service, override bool,
) (*platform.Service, error) {
	f.record(&f.creates, resourceCall{"service", namespace, spec.Name, override})
	f.serviceSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	if f.service != nil {
		return f.service, nil
	}
	return &platform.Service{Name: spec.Name, Namespace: namespace}, nil
}

func (f *fakePlatform) GetService(_ context.Context, namespace, name string) (*platform.Service, error) {
	f.record(&f.gets, resourceCall{kind: "service", namespace: namespace, name: name})
	return f.service, f.err
}

func (f *fakePlatform) DeleteService(_ context.Context, namespace, name string) error {
	f.record(&f.deletes, resourceCall{kind: "service", namespace: namespace, name: name})
	return f.err
}

func (f *fakePlatform) CreatePodDisruptionBudget(
	_ context.Context, namespace string, spec *policyv1.PodDisruptionBudget, override bool,
) (*platform.PodDisruptionBudget, error) {
	f.record(&f.creates, resourceCall{"pdb", namespace, spec.Name, override})
	f.pdbSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	if f.pdb != nil {
		return f.pdb, nil
	}
	return &platform.PodDisruptionBudget{Name: spec.Name, Namespace: namespace, MinAvailable: 1}, nil
}

func (f *fakePlatform) GetPodDisruptionBudget(
	_ context.Context, namespace, name string,
) (*platform.PodDisruptionBudget, error) {
	f.record(&f.gets, resourceCall{kind: "pdb", namespace: namespace, name: name})
	return f.pdb, f.err
}

func (f *fakePlatform) DeletePodDisruptionBudget(_ context.Context, namespace, name string) error {
	f.record(&f.deletes, resourceCall{kind: "pdb", namespace: namespace, name: name})
	return f.err
}

func (f *fakePlatform) CallService(
	context.Context, platform.CallServiceInput,
) (map[string]any, error) {
	return nil, nil
}
