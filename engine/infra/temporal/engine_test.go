package temporal

import (
	"errors"
	"testing"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/agentplane/agentplane/engine/core"
	wf "github.com/agentplane/agentplane/engine/workflow"
	"github.com/stretchr/testify/assert"
)

func TestApplyDuplicatePolicy(t *testing.T) {
	t.Run("Should reject duplicates in any state by default", func(t *testing.T) {
		opts := &client.StartWorkflowOptions{}
		applyDuplicatePolicy(opts, wf.PolicyRejectDuplicate)
		assert.Equal(t, enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE, opts.WorkflowIDReusePolicy)
		assert.Equal(t, enumspb.WORKFLOW_ID_CONFLICT_POLICY_UNSPECIFIED, opts.WorkflowIDConflictPolicy)
	})
	t.Run("Should allow duplicates", func(t *testing.T) {
		opts := &client.StartWorkflowOptions{}
		applyDuplicatePolicy(opts, wf.PolicyAllowDuplicate)
		assert.Equal(t, enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE, opts.WorkflowIDReusePolicy)
	})
	t.Run("Should allow duplicates only after failure", func(t *testing.T) {
		opts := &client.StartWorkflowOptions{}
		applyDuplicatePolicy(opts, wf.PolicyAllowDuplicateFailedOnly)
		assert.Equal(
			t,
			enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
			opts.WorkflowIDReusePolicy,
		)
	})
	t.Run("Should terminate a running workflow before starting anew", func(t *testing.T) {
		opts := &client.StartWorkflowOptions{}
		applyDuplicatePolicy(opts, wf.PolicyTerminateIfRunning)
		assert.Equal(t, enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE, opts.WorkflowIDReusePolicy)
		assert.Equal(
			t,
			enumspb.WORKFLOW_ID_CONFLICT_POLICY_TERMINATE_EXISTING,
			opts.WorkflowIDConflictPolicy,
		)
	})
}

func TestStatusFromProto(t *testing.T) {
	cases := []struct {
		name     string
		proto    enumspb.WorkflowExecutionStatus
		expected wf.Status
	}{
		{"running", enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, wf.StatusRunning},
		{"completed", enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED, wf.StatusCompleted},
		{"failed", enumspb.WORKFLOW_EXECUTION_STATUS_FAILED, wf.StatusFailed},
		{"canceled", enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED, wf.StatusCanceled},
		{"terminated", enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED, wf.StatusTerminated},
		{"timed out", enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT, wf.StatusTimedOut},
		{"continued as new", enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW, wf.StatusContinuedAsNew},
		{"unspecified", enumspb.WORKFLOW_EXECUTION_STATUS_UNSPECIFIED, wf.StatusRunning},
	}
	for _, tc := range cases {
		t.Run("Should map "+tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, statusFromProto(tc.proto))
		})
	}
}

func TestMapStartError(t *testing.T) {
	t.Run("Should map already-started to DUPLICATE_ITEM", func(t *testing.T) {
		cause := serviceerror.NewWorkflowExecutionAlreadyStarted("exists", "req-1", "run-1")
		err := mapStartError(cause, "task-1")
		assert.True(t, core.IsCode(err, core.CodeDuplicateItem))
	})
	t.Run("Should map other failures to SERVICE_ERROR", func(t *testing.T) {
		err := mapStartError(errors.New("dial tcp: refused"), "task-1")
		assert.True(t, core.IsCode(err, core.CodeServiceError))
	})
}

func TestMapWorkflowError(t *testing.T) {
	t.Run("Should map missing workflows to NOT_FOUND", func(t *testing.T) {
		err := mapWorkflowError(serviceerror.NewNotFound("no workflow"), "task-1")
		assert.True(t, core.IsCode(err, core.CodeNotFound))
	})
	t.Run("Should map other failures to SERVICE_ERROR", func(t *testing.T) {
		err := mapWorkflowError(errors.New("unavailable"), "task-1")
		assert.True(t, core.IsCode(err, core.CodeServiceError))
	})
}
