package core

import (
	"time"

	"dario.cat/mergo"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RetryPolicyConfig describes automatic retry behavior for a single
// activity invocation. Durations are Go duration strings so policies can
// be declared inline or loaded from configuration and merged.
//
// MaximumAttempts follows Temporal semantics: 0 means unbounded, 1 means
// a single attempt with no retries.
type RetryPolicyConfig struct {
	InitialInterval        string   `json:"initial_interval,omitempty"          koanf:"initial_interval"`
	BackoffCoefficient     float64  `json:"backoff_coefficient,omitempty"       koanf:"backoff_coefficient"`
	MaximumAttempts        int32    `json:"maximum_attempts,omitempty"          koanf:"maximum_attempts"`
	MaximumInterval        string   `json:"maximum_interval,omitempty"          koanf:"maximum_interval"`
	NonRetryableErrorTypes []string `json:"non_retryable_error_types,omitempty" koanf:"non_retryable_error_types"`
}

// Merge overlays the non-zero fields of other onto c.
func (c *RetryPolicyConfig) Merge(other *RetryPolicyConfig) error {
	if other == nil {
		return nil
	}
	return mergo.Merge(c, other, mergo.WithOverride)
}

// ToTemporal converts the config to a temporal.RetryPolicy, leaving
// unset fields to server defaults.
func (c *RetryPolicyConfig) ToTemporal() *temporal.RetryPolicy {
	if c == nil {
		return nil
	}
	policy := &temporal.RetryPolicy{}
	setDurationIfValid(c.InitialInterval, &policy.InitialInterval)
	setDurationIfValid(c.MaximumInterval, &policy.MaximumInterval)
	if c.BackoffCoefficient > 0 {
		policy.BackoffCoefficient = c.BackoffCoefficient
	}
	if c.MaximumAttempts > 0 {
		policy.MaximumAttempts = c.MaximumAttempts
	}
	if len(c.NonRetryableErrorTypes) > 0 {
		policy.NonRetryableErrorTypes = c.NonRetryableErrorTypes
	}
	return policy
}

// ActivityOptionsConfig groups the timeouts and retry policy applied to
// an activity invocation.
type ActivityOptionsConfig struct {
	ScheduleToStartTimeout string             `json:"schedule_to_start_timeout,omitempty" koanf:"schedule_to_start_timeout"`
	StartToCloseTimeout    string             `json:"start_to_close_timeout,omitempty"    koanf:"start_to_close_timeout"`
	ScheduleToCloseTimeout string             `json:"schedule_to_close_timeout,omitempty" koanf:"schedule_to_close_timeout"`
	HeartbeatTimeout       string             `json:"heartbeat_timeout,omitempty"         koanf:"heartbeat_timeout"`
	WaitForCancellation    bool               `json:"wait_for_cancellation,omitempty"     koanf:"wait_for_cancellation"`
	RetryPolicy            *RetryPolicyConfig `json:"retry_policy,omitempty"              koanf:"retry_policy"`
}

// ToTemporalActivityOptions converts the config to workflow
// ActivityOptions, guaranteeing at least one required timeout is set.
func (o *ActivityOptionsConfig) ToTemporalActivityOptions() workflow.ActivityOptions {
	opts := workflow.ActivityOptions{WaitForCancellation: o.WaitForCancellation}
	setDurationIfValid(o.ScheduleToStartTimeout, &opts.ScheduleToStartTimeout)
	setDurationIfValid(o.StartToCloseTimeout, &opts.StartToCloseTimeout)
	setDurationIfValid(o.ScheduleToCloseTimeout, &opts.ScheduleToCloseTimeout)
	setDurationIfValid(o.HeartbeatTimeout, &opts.HeartbeatTimeout)
	if opts.StartToCloseTimeout == 0 && opts.ScheduleToCloseTimeout == 0 {
		opts.StartToCloseTimeout = 5 * time.Minute
	}
	if o.RetryPolicy != nil {
		opts.RetryPolicy = o.RetryPolicy.ToTemporal()
	}
	return opts
}

// setDurationIfValid parses a duration string and assigns it when valid.
func setDurationIfValid(durationStr string, target *time.Duration) {
	if durationStr == "" {
		return
	}
	if d, err := time.ParseDuration(durationStr); err == nil {
		*target = d
	}
}
