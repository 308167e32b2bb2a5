package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentplane/agentplane/engine/core"
)

// Status tracks an agent through its build and serving lifecycle. Build
// activities move an agent from Pending through Building to Ready; the task
// workflow toggles it between Active and Idle while serving.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusBuilding Status = "Building"
	StatusReady    Status = "Ready"
	StatusFailed   Status = "Failed"
	StatusIdle     Status = "Idle"
	StatusActive   Status = "Active"
	StatusUnknown  Status = "Unknown"
)

// Agent is the persisted record of a deployable agent. The row is created
// when a build is requested and mutated only by build and task workflow
// activities afterwards.
type Agent struct {
	ID                core.ID   `db:"id,pk"               json:"id"`
	Name              string    `db:"name,unique"         json:"name"`
	Description       string    `db:"description"         json:"description"`
	DockerImage       *string   `db:"docker_image"        json:"docker_image,omitempty"`
	Status            Status    `db:"status"              json:"status"`
	StatusReason      *string   `db:"status_reason"       json:"status_reason,omitempty"`
	BuildJobName      *string   `db:"build_job_name"      json:"build_job_name,omitempty"`
	BuildJobNamespace *string   `db:"build_job_namespace" json:"build_job_namespace,omitempty"`
	WorkflowName      string    `db:"workflow_name"       json:"workflow_name"`
	WorkflowQueueName string    `db:"workflow_queue_name" json:"workflow_queue_name"`
	ActionServicePort int32     `db:"action_service_port" json:"action_service_port"`
	CreatedAt         time.Time `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"          json:"updated_at"`

	// Hydrated from the agent server's spec endpoint when a task starts.
	// Carried on workflow inputs, never persisted.
	Model        string   `db:"-" json:"model,omitempty"`
	Instructions string   `db:"-" json:"instructions,omitempty"`
	Actions      []Action `db:"-" json:"actions,omitempty"`
}

// Spec is the self-description a running agent serves at GET /.
type Spec struct {
	Model        string   `json:"model"`
	Instructions string   `json:"instructions"`
	Actions      []Action `json:"actions"`
}

// Action describes one callable tool exposed by an agent server.
type Action struct {
	Schema      ActionSchema   `json:"schema"`
	TestPayload map[string]any `json:"test_payload,omitempty"`
}

// ActionSchema is the function-call schema advertised to the model.
type ActionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// SpecFromPayload decodes the response body of the agent spec endpoint.
func SpecFromPayload(payload map[string]any) (*Spec, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding agent spec payload: %w", err)
	}
	var spec Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("decoding agent spec payload: %w", err)
	}
	return &spec, nil
}

// ApplySpec hydrates the runtime fields from a fetched spec.
func (a *Agent) ApplySpec(spec *Spec) {
	if spec == nil {
		return
	}
	a.Model = spec.Model
	a.Instructions = spec.Instructions
	a.Actions = spec.Actions
}

// SetStatus records a lifecycle transition with an optional human-readable
// reason. An empty reason clears the previous one.
func (a *Agent) SetStatus(status Status, reason string) {
	a.Status = status
	if reason == "" {
		a.StatusReason = nil
		return
	}
	a.StatusReason = &reason
}
