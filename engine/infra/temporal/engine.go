package temporal

import (
	"context"
	"errors"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/agentplane/agentplane/engine/core"
	wf "github.com/agentplane/agentplane/engine/workflow"
)

// StartWorkflow starts a workflow run, translating the duplicate policy
// into Temporal's ID reuse and conflict policies. The returned ID always
// equals the requested workflow ID.
func (e *Engine) StartWorkflow(ctx context.Context, opts wf.StartOptions) (string, error) {
	opts.ApplyDefaults()
	startOptions := client.StartWorkflowOptions{
		ID:                       opts.WorkflowID,
		TaskQueue:                opts.TaskQueue,
		WorkflowExecutionTimeout: opts.ExecutionTimeout,
		WorkflowTaskTimeout:      opts.TaskTimeout,
		RetryPolicy:              opts.RetryPolicy.ToTemporal(),
	}
	applyDuplicatePolicy(&startOptions, opts.DuplicatePolicy)
	var run client.WorkflowRun
	var err error
	if opts.Arg != nil {
		run, err = e.client.ExecuteWorkflow(ctx, startOptions, opts.WorkflowName, opts.Arg)
	} else {
		run, err = e.client.ExecuteWorkflow(ctx, startOptions, opts.WorkflowName)
	}
	if err != nil {
		return "", mapStartError(err, opts.WorkflowID)
	}
	recordWorkflowStart(ctx, opts.WorkflowName)
	return run.GetID(), nil
}

// SendSignal delivers a signal to the current run of the workflow.
func (e *Engine) SendSignal(ctx context.Context, workflowID string, signalName string, payload any) error {
	if err := e.client.SignalWorkflow(ctx, workflowID, "", signalName, payload); err != nil {
		return mapWorkflowError(err, workflowID)
	}
	recordWorkflowSignal(ctx, signalName)
	return nil
}

// CancelWorkflow requests cooperative cancellation of the current run.
func (e *Engine) CancelWorkflow(ctx context.Context, workflowID string) error {
	if err := e.client.CancelWorkflow(ctx, workflowID, ""); err != nil {
		return mapWorkflowError(err, workflowID)
	}
	return nil
}

// TerminateWorkflow stops the current run without running teardown.
func (e *Engine) TerminateWorkflow(ctx context.Context, workflowID string, reason string) error {
	if err := e.client.TerminateWorkflow(ctx, workflowID, "", reason); err != nil {
		return mapWorkflowError(err, workflowID)
	}
	return nil
}

// GetWorkflowStatus describes the current run. A missing workflow maps
// to the synthetic terminal NotFound state instead of an error.
func (e *Engine) GetWorkflowStatus(ctx context.Context, workflowID string) (*wf.State, error) {
	resp, err := e.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return wf.StateFor(wf.StatusNotFound), nil
		}
		return nil, core.NewError(err, core.CodeServiceError, map[string]any{"workflow_id": workflowID})
	}
	status := resp.GetWorkflowExecutionInfo().GetStatus()
	return wf.StateFor(statusFromProto(status)), nil
}

// applyDuplicatePolicy maps the domain duplicate policy onto Temporal's
// two-axis model. Reuse policies govern IDs of closed runs; the conflict
// policy governs a currently running workflow with the same ID.
func applyDuplicatePolicy(opts *client.StartWorkflowOptions, policy wf.DuplicateWorkflowPolicy) {
	switch policy {
	case wf.PolicyAllowDuplicate:
		opts.WorkflowIDReusePolicy = enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE
	case wf.PolicyAllowDuplicateFailedOnly:
		opts.WorkflowIDReusePolicy = enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY
	case wf.PolicyTerminateIfRunning:
		opts.WorkflowIDReusePolicy = enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE
		opts.WorkflowIDConflictPolicy = enumspb.WORKFLOW_ID_CONFLICT_POLICY_TERMINATE_EXISTING
	default:
		opts.WorkflowIDReusePolicy = enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE
	}
}

func statusFromProto(status enumspb.WorkflowExecutionStatus) wf.Status {
	switch status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return wf.StatusRunning
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return wf.StatusCompleted
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED:
		return wf.StatusFailed
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return wf.StatusCanceled
	case enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return wf.StatusTerminated
	case enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return wf.StatusTimedOut
	case enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		return wf.StatusContinuedAsNew
	default:
		return wf.StatusRunning
	}
}

func mapStartError(err error, workflowID string) error {
	var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &alreadyStarted) {
		return core.NewError(err, core.CodeDuplicateItem, map[string]any{"workflow_id": workflowID})
	}
	return core.NewError(err, core.CodeServiceError, map[string]any{"workflow_id": workflowID})
}

func mapWorkflowError(err error, workflowID string) error {
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return core.NewError(err, core.CodeNotFound, map[string]any{"workflow_id": workflowID})
	}
	return core.NewError(err, core.CodeServiceError, map[string]any{"workflow_id": workflowID})
}
