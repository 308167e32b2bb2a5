// Package platform defines the workload-platform port: create, inspect,
// and delete the compute primitives agents run on, plus in-cluster HTTP
// calls to agent services. The Kubernetes adapter lives in
// engine/infra/kube.
package platform

import (
	"context"
	"net/http"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
)

// DefaultServicePort is used by CallService when no port is given.
const DefaultServicePort = 80

// CallServiceInput addresses an HTTP request to a service by its
// in-cluster DNS name.
type CallServiceInput struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Port      int    `json:"port,omitempty"`
	Path      string `json:"path"`
	Method    string `json:"method,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

func (in *CallServiceInput) ApplyDefaults() {
	if in.Port == 0 {
		in.Port = DefaultServicePort
	}
	if in.Method == "" {
		in.Method = http.MethodGet
	}
	if in.Path == "" {
		in.Path = "/"
	}
}

// Platform is the workload-platform port. Create operations are
// idempotent: with override false an already-existing resource is
// fetched and returned instead of failing; with override true it is
// deleted and re-created. Get operations return (nil, nil) when the
// resource does not exist. Delete operations tolerate missing
// resources.
type Platform interface {
	CreateJob(ctx context.Context, namespace string, spec *batchv1.Job, override bool) (*Job, error)
	GetJob(ctx context.Context, namespace, name string) (*Job, error)
	DeleteJob(ctx context.Context, namespace, name string) error

	CreateDeployment(ctx context.Context, namespace string, spec *appsv1.Deployment, override bool) (*Deployment, error)
	GetDeployment(ctx context.Context, namespace, name string) (*Deployment, error)
	DeleteDeployment(ctx context.Context, namespace, name string) error

	CreateService(ctx context.Context, namespace string, spec *corev1.Service, override bool) (*Service, error)
	GetService(ctx context.Context, namespace, name string) (*Service, error)
	DeleteService(ctx context.Context, namespace, name string) error

	CreatePodDisruptionBudget(ctx context.Context, namespace string, spec *policyv1.PodDisruptionBudget, override bool) (*PodDisruptionBudget, error)
	GetPodDisruptionBudget(ctx context.Context, namespace, name string) (*PodDisruptionBudget, error)
	DeletePodDisruptionBudget(ctx context.Context, namespace, name string) error

	// CallService performs an HTTP request against
	// http://{name}.{namespace}:{port}{path} and decodes the JSON
	// response. Non-2xx responses are SERVICE_ERROR so the activity
	// tier retries them.
	CallService(ctx context.Context, input CallServiceInput) (map[string]any, error)
}
