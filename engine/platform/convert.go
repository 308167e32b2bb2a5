package platform

import (
	"time"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// JobFromK8s maps a batch job onto the domain record. Pod counters take
// precedence in the order succeeded, failed, active; a job with no
// recorded pods yet is Pending.
func JobFromK8s(job *batchv1.Job) *Job {
	if job == nil {
		return nil
	}
	status := JobPending
	switch {
	case job.Status.Succeeded > 0:
		status = JobSucceeded
	case job.Status.Failed > 0:
		status = JobFailed
	case job.Status.Active > 0:
		status = JobRunning
	}
	return &Job{
		Name:        job.Name,
		Namespace:   job.Namespace,
		Status:      status,
		CreatedAt:   timePtr(job.CreationTimestamp),
		StartedAt:   metaTimePtr(job.Status.StartTime),
		CompletedAt: metaTimePtr(job.Status.CompletionTime),
	}
}

// DeploymentFromK8s maps a deployment onto the domain record. Available
// replicas signal readiness; a deployment the controller has observed
// but not made available is Unavailable; anything earlier is Unknown.
func DeploymentFromK8s(dep *appsv1.Deployment) *Deployment {
	if dep == nil {
		return nil
	}
	status := DeploymentUnknown
	switch {
	case dep.Status.AvailableReplicas > 0:
		status = DeploymentReady
	case dep.Status.ObservedGeneration > 0:
		status = DeploymentUnavailable
	}
	return &Deployment{
		Name:      dep.Name,
		Namespace: dep.Namespace,
		Status:    status,
		CreatedAt: timePtr(dep.CreationTimestamp),
	}
}

func ServiceFromK8s(svc *corev1.Service) *Service {
	if svc == nil {
		return nil
	}
	return &Service{
		Name:      svc.Name,
		Namespace: svc.Namespace,
		ClusterIP: svc.Spec.ClusterIP,
		CreatedAt: timePtr(svc.CreationTimestamp),
	}
}

func PodDisruptionBudgetFromK8s(pdb *policyv1.PodDisruptionBudget) *PodDisruptionBudget {
	if pdb == nil {
		return nil
	}
	record := &PodDisruptionBudget{
		Name:      pdb.Name,
		Namespace: pdb.Namespace,
	}
	if pdb.Spec.MinAvailable != nil {
		record.MinAvailable = pdb.Spec.MinAvailable.IntVal
	}
	return record
}

func timePtr(t metav1.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	value := t.Time
	return &value
}

func metaTimePtr(t *metav1.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	value := t.Time
	return &value
}
