// Package workflow defines the engine-agnostic port for durable workflow
// execution. Use cases start, signal, and inspect workflows through the
// Engine interface; the Temporal adapter in engine/infra/temporal is the
// production implementation.
package workflow

import (
	"context"
	"time"

	"github.com/agentplane/agentplane/engine/core"
)

// Registered workflow names. Agent rows record which workflow the task
// router dispatches to, so these names are part of the persisted domain
// vocabulary, not an adapter detail.
const (
	BuildWorkflowName = "BuildAgentWorkflow"
	TaskWorkflowName  = "RunAgentTaskWorkflow"
)

// Signal and query names accepted by the task workflow.
const (
	SignalInstruct = "instruct"
	SignalApprove  = "approve"
	QueryState     = "state"
)

// HumanInstruction is the payload of an instruct signal. The prompt is
// appended to the task's conversation as a user message.
type HumanInstruction struct {
	TaskID core.ID `json:"task_id"`
	Prompt string  `json:"prompt"`
}

// Progress is the answer to a state query against the task workflow.
type Progress struct {
	WaitingForInstruction bool `json:"waiting_for_instruction"`
	TaskApproved          bool `json:"task_approved"`
	Iterations            int  `json:"iterations"`
}

// DuplicateWorkflowPolicy controls what happens when a workflow is
// started with an ID that already exists.
type DuplicateWorkflowPolicy string

const (
	// PolicyAllowDuplicate starts a new run regardless of previous runs
	// with the same ID.
	PolicyAllowDuplicate DuplicateWorkflowPolicy = "allow_duplicate"
	// PolicyAllowDuplicateFailedOnly starts a new run only when the
	// previous run ended in failure, cancellation, or timeout.
	PolicyAllowDuplicateFailedOnly DuplicateWorkflowPolicy = "allow_duplicate_failed_only"
	// PolicyRejectDuplicate refuses to start when any run with the same
	// ID exists, in any state.
	PolicyRejectDuplicate DuplicateWorkflowPolicy = "reject_duplicate"
	// PolicyTerminateIfRunning terminates a running workflow with the
	// same ID and starts a fresh run in its place.
	PolicyTerminateIfRunning DuplicateWorkflowPolicy = "terminate_if_running"
)

// Default execution limits applied when StartOptions leaves them unset.
const (
	DefaultTaskTimeout      = 10 * time.Second
	DefaultExecutionTimeout = 24 * time.Hour
)

// StartOptions describes a workflow start request. WorkflowID doubles as
// the domain primary key (agent or task ID), which is what makes
// signal/cancel/describe addressable without a lookup table.
type StartOptions struct {
	WorkflowName     string
	WorkflowID       string
	TaskQueue        string
	Arg              any
	DuplicatePolicy  DuplicateWorkflowPolicy
	RetryPolicy      *core.RetryPolicyConfig
	TaskTimeout      time.Duration
	ExecutionTimeout time.Duration
}

// ApplyDefaults fills unset fields: a single-attempt retry policy, the
// default task and execution timeouts, and duplicate rejection.
func (o *StartOptions) ApplyDefaults() {
	if o.RetryPolicy == nil {
		o.RetryPolicy = &core.RetryPolicyConfig{MaximumAttempts: 1}
	}
	if o.TaskTimeout == 0 {
		o.TaskTimeout = DefaultTaskTimeout
	}
	if o.ExecutionTimeout == 0 {
		o.ExecutionTimeout = DefaultExecutionTimeout
	}
	if o.DuplicatePolicy == "" {
		o.DuplicatePolicy = PolicyRejectDuplicate
	}
}

// Engine is the client-side surface of the workflow engine. All
// operations are keyed by workflow ID. Implementations must be safe for
// concurrent use.
type Engine interface {
	// StartWorkflow starts a workflow run and returns its workflow ID,
	// which always equals opts.WorkflowID. When opts.DuplicatePolicy is
	// PolicyRejectDuplicate and any run with the same ID exists, it
	// fails with a DUPLICATE_ITEM error.
	StartWorkflow(ctx context.Context, opts StartOptions) (string, error)
	// SendSignal delivers a signal to the running workflow with
	// at-least-once semantics. Unknown workflow IDs yield NOT_FOUND.
	SendSignal(ctx context.Context, workflowID string, signalName string, payload any) error
	// CancelWorkflow requests cooperative cancellation; the workflow
	// observes it at its next suspension point and may run teardown.
	CancelWorkflow(ctx context.Context, workflowID string) error
	// TerminateWorkflow stops the workflow unconditionally. No teardown
	// runs.
	TerminateWorkflow(ctx context.Context, workflowID string, reason string) error
	// GetWorkflowStatus describes the workflow's current state. Unknown
	// workflow IDs return the synthetic terminal NotFound state rather
	// than an error.
	GetWorkflowStatus(ctx context.Context, workflowID string) (*State, error)
	// Close releases the underlying engine connection.
	Close()
}
