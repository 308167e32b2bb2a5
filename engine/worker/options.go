package worker

import (
	"errors"
	"time"

	"github.com/agentplane/agentplane/engine/core"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Activity timing tiers. Platform and database lookups settle fast and
// retry a few times; model calls and state writes get a longer leash.
// Platform creates and the build submission carry their own options below.
const (
	quickActivityTimeout        = 10 * time.Second
	conversationActivityTimeout = time.Minute

	quickActivityAttempts        = 3
	conversationActivityAttempts = 5
)

// nonRetryableCodes fail an activity no matter how often it runs.
var nonRetryableCodes = []string{
	core.CodeClientError,
	core.CodeDuplicateItem,
	core.CodeNotFound,
}

func withActivityOptions(ctx workflow.Context, timeout time.Duration, attempts int32) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        attempts,
			NonRetryableErrorTypes: nonRetryableCodes,
		},
	})
}

// createOptions governs the platform create calls. Creates retry until the
// workflow stops waiting for them, and cancellation holds until the
// in-flight attempt returns: teardown deletes what the creates made, so
// the workflow must not unwind while a create is still running on the
// platform.
var createOptions = core.ActivityOptionsConfig{
	StartToCloseTimeout: "10s",
	WaitForCancellation: true,
	RetryPolicy: &core.RetryPolicyConfig{
		NonRetryableErrorTypes: nonRetryableCodes,
	},
}

func withCreateOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, createOptions.ToTemporalActivityOptions())
}

// buildSubmitOptions governs the build job submission the same way, with
// a longer timeout. A job created after the workflow has unwound is
// recorded nowhere, so the submit too holds cancellation until the
// in-flight attempt returns.
var buildSubmitOptions = core.ActivityOptionsConfig{
	StartToCloseTimeout: "1m",
	WaitForCancellation: true,
	RetryPolicy: &core.RetryPolicyConfig{
		NonRetryableErrorTypes: nonRetryableCodes,
	},
}

func withBuildSubmitOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, buildSubmitOptions.ToTemporalActivityOptions())
}

// toActivityError classifies an activity failure so the retry policy can
// tell terminal codes from transient ones. The canonical code travels as
// the application error type.
func toActivityError(err error) error {
	if err == nil {
		return nil
	}
	code := core.CodeOf(err)
	switch code {
	case core.CodeClientError, core.CodeDuplicateItem, core.CodeNotFound:
		return temporal.NewNonRetryableApplicationError(err.Error(), code, err)
	default:
		return temporal.NewApplicationError(err.Error(), code, err)
	}
}

// reasonOf unwraps an activity failure to the message the activity raised,
// keeping persisted status reasons free of envelope noise.
func reasonOf(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}
