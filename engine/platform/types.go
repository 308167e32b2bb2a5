package platform

import "time"

// JobStatus is the domain view of a build job's lifecycle.
type JobStatus string

const (
	JobSucceeded JobStatus = "Succeeded"
	JobFailed    JobStatus = "Failed"
	JobRunning   JobStatus = "Running"
	JobPending   JobStatus = "Pending"
	JobUnknown   JobStatus = "Unknown"
)

// DeploymentStatus is the domain view of a deployment's availability.
type DeploymentStatus string

const (
	DeploymentReady       DeploymentStatus = "Ready"
	DeploymentUnavailable DeploymentStatus = "Unavailable"
	DeploymentUnknown     DeploymentStatus = "Unknown"
)

// Job is the platform-neutral record returned for batch jobs. Records
// are serialized into workflow histories, so they carry only stable
// scalar fields.
type Job struct {
	Name        string     `json:"name"`
	Namespace   string     `json:"namespace"`
	Status      JobStatus  `json:"status"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Deployment is the platform-neutral record for a workload deployment.
type Deployment struct {
	Name      string           `json:"name"`
	Namespace string           `json:"namespace"`
	Status    DeploymentStatus `json:"status"`
	CreatedAt *time.Time       `json:"created_at,omitempty"`
}

// Service is the platform-neutral record for a network service. Services
// have no meaningful phase; existence is the readiness signal.
type Service struct {
	Name      string     `json:"name"`
	Namespace string     `json:"namespace"`
	ClusterIP string     `json:"cluster_ip,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// PodDisruptionBudget is the platform-neutral record for a disruption
// budget guarding an agent's pods.
type PodDisruptionBudget struct {
	Name         string `json:"name"`
	Namespace    string `json:"namespace"`
	MinAvailable int32  `json:"min_available"`
}
