package kube

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/go-resty/resty/v2"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/platform"
)

// Platform implements the workload-platform port with a typed clientset
// for resource operations and resty for in-cluster HTTP calls.
type Platform struct {
	clientset kubernetes.Interface
	http      *resty.Client
}

type Option func(*Platform)

// WithHTTPClient overrides the HTTP client used by CallService.
func WithHTTPClient(client *resty.Client) Option {
	return func(p *Platform) {
		p.http = client
	}
}

func New(clientset kubernetes.Interface, opts ...Option) *Platform {
	p := &Platform{
		clientset: clientset,
		http:      resty.New().SetHeader("Content-Type", "application/json"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var deleteOptions = metav1.DeleteOptions{
	PropagationPolicy: propagationPtr(metav1.DeletePropagationBackground),
}

func propagationPtr(p metav1.DeletionPropagation) *metav1.DeletionPropagation {
	return &p
}

// CreateJob creates a batch job. An existing job with the same name is
// returned as-is unless override is set, in which case it is deleted
// and re-created.
func (p *Platform) CreateJob(
	ctx context.Context,
	namespace string,
	spec *batchv1.Job,
	override bool,
) (*platform.Job, error) {
	jobs := p.clientset.BatchV1().Jobs(namespace)
	created, err := jobs.Create(ctx, spec, metav1.CreateOptions{})
	if err == nil {
		return platform.JobFromK8s(created), nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return nil, serviceError(err, "job", namespace, spec.Name)
	}
	if !override {
		existing, getErr := jobs.Get(ctx, spec.Name, metav1.GetOptions{})
		if getErr != nil {
			return nil, serviceError(getErr, "job", namespace, spec.Name)
		}
		return platform.JobFromK8s(existing), nil
	}
	if err := p.DeleteJob(ctx, namespace, spec.Name); err != nil {
		return nil, err
	}
	created, err = jobs.Create(ctx, spec, metav1.CreateOptions{})
	if err != nil {
		return nil, serviceError(err, "job", namespace, spec.Name)
	}
	return platform.JobFromK8s(created), nil
}

// GetJob returns nil without error when the job does not exist.
func (p *Platform) GetJob(ctx context.Context, namespace, name string) (*platform.Job, error) {
	job, err := p.clientset.BatchV1().Jobs(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, serviceError(err, "job", namespace, name)
	}
	return platform.JobFromK8s(job), nil
}

// DeleteJob removes the job and its pods. Missing jobs are not an
// error.
func (p *Platform) DeleteJob(ctx context.Context, namespace, name string) error {
	err := p.clientset.BatchV1().Jobs(namespace).Delete(ctx, name, deleteOptions)
	if err != nil && !apierrors.IsNotFound(err) {
		return serviceError(err, "job", namespace, name)
	}
	return nil
}

func (p *Platform) CreateDeployment(
	ctx context.Context,
	namespace string,
	spec *appsv1.Deployment,
	override bool,
) (*platform.Deployment, error) {
	deployments := p.clientset.AppsV1().Deployments(namespace)
	created, err := deployments.Create(ctx, spec, metav1.CreateOptions{})
	if err == nil {
		return platform.DeploymentFromK8s(created), nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return nil, serviceError(err, "deployment", namespace, spec.Name)
	}
	if !override {
		existing, getErr := deployments.Get(ctx, spec.Name, metav1.GetOptions{})
		if getErr != nil {
			return nil, serviceError(getErr, "deployment", namespace, spec.Name)
		}
		return platform.DeploymentFromK8s(existing), nil
	}
	if err := p.DeleteDeployment(ctx, namespace, spec.Name); err != nil {
		return nil, err
	}
	created, err = deployments.Create(ctx, spec, metav1.CreateOptions{})
	if err != nil {
		return nil, serviceError(err, "deployment", namespace, spec.Name)
	}
	return platform.DeploymentFromK8s(created), nil
}

func (p *Platform) GetDeployment(ctx context.Context, namespace, name string) (*platform.Deployment, error) {
	dep, err := p.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, serviceError(err, "deployment", namespace, name)
	}
	return platform.DeploymentFromK8s(dep), nil
}

func (p *Platform) DeleteDeployment(ctx context.Context, namespace, name string) error {
	err := p.clientset.AppsV1().Deployments(namespace).Delete(ctx, name, deleteOptions)
	if err != nil && !apierrors.IsNotFound(err) {
		return serviceError(err, "deployment", namespace, name)
	}
	return nil
}

func (p *Platform) CreateService(
	ctx context.Context,
	namespace string,
	spec *corev1.Service,
	override bool,
) (*platform.Service, error) {
	services := p.clientset.CoreV1().Services(namespace)
	created, err := services.Create(ctx, spec, metav1.CreateOptions{})
	if err == nil {
		return platform.ServiceFromK8s(created), nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return nil, serviceError(err, "service", namespace, spec.Name)
	}
	if !override {
		existing, getErr := services.Get(ctx, spec.Name, metav1.GetOptions{})
		if getErr != nil {
			return nil, serviceError(getErr, "service", namespace, spec.Name)
		}
		return platform.ServiceFromK8s(existing), nil
	}
	if err := p.DeleteService(ctx, namespace, spec.Name); err != nil {
		return nil, err
	}
	created, err = services.Create(ctx, spec, metav1.CreateOptions{})
	if err != nil {
		return nil, serviceError(err, "service", namespace, spec.Name)
	}
	return platform.ServiceFromK8s(created), nil
}

func (p *Platform) GetService(ctx context.Context, namespace, name string) (*platform.Service, error) {
	svc, err := p.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, serviceError(err, "service", namespace, name)
	}
	return platform.ServiceFromK8s(svc), nil
}

func (p *Platform) DeleteService(ctx context.Context, namespace, name string) error {
	err := p.clientset.CoreV1().Services(namespace).Delete(ctx, name, deleteOptions)
	if err != nil && !apierrors.IsNotFound(err) {
		return serviceError(err, "service", namespace, name)
	}
	return nil
}

func (p *Platform) CreatePodDisruptionBudget(
	ctx context.Context,
	namespace string,
	spec *policyv1.PodDisruptionBudget,
	override bool,
) (*platform.PodDisruptionBudget, error) {
	budgets := p.clientset.PolicyV1().PodDisruptionBudgets(namespace)
	created, err := budgets.Create(ctx, spec, metav1.CreateOptions{})
	if err == nil {
		return platform.PodDisruptionBudgetFromK8s(created), nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return nil, serviceError(err, "poddisruptionbudget", namespace, spec.Name)
	}
	if !override {
		existing, getErr := budgets.Get(ctx, spec.Name, metav1.GetOptions{})
		if getErr != nil {
			return nil, serviceError(getErr, "poddisruptionbudget", namespace, spec.Name)
		}
		return platform.PodDisruptionBudgetFromK8s(existing), nil
	}
	if err := p.DeletePodDisruptionBudget(ctx, namespace, spec.Name); err != nil {
		return nil, err
	}
	created, err = budgets.Create(ctx, spec, metav1.CreateOptions{})
	if err != nil {
		return nil, serviceError(err, "poddisruptionbudget", namespace, spec.Name)
	}
	return platform.PodDisruptionBudgetFromK8s(created), nil
}

func (p *Platform) GetPodDisruptionBudget(
	ctx context.Context,
	namespace, name string,
) (*platform.PodDisruptionBudget, error) {
	pdb, err := p.clientset.PolicyV1().PodDisruptionBudgets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, serviceError(err, "poddisruptionbudget", namespace, name)
	}
	return platform.PodDisruptionBudgetFromK8s(pdb), nil
}

func (p *Platform) DeletePodDisruptionBudget(ctx context.Context, namespace, name string) error {
	err := p.clientset.PolicyV1().PodDisruptionBudgets(namespace).Delete(ctx, name, deleteOptions)
	if err != nil && !apierrors.IsNotFound(err) {
		return serviceError(err, "poddisruptionbudget", namespace, name)
	}
	return nil
}

func serviceError(err error, kind, namespace, name string) error {
	return core.NewError(err, core.CodeServiceError, map[string]any{
		"resource":  kind,
		"namespace": namespace,
		"name":      name,
	})
}
