package interceptor

import (
	"context"
	"errors"
	"sync"

	"github.com/agentplane/agentplane/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"
)

var (
	activityFailuresTotal metric.Int64Counter
	initOnce              sync.Once
	initMutex             sync.Mutex
)

// initMetrics creates the Temporal instruments once; the first meter wins.
func initMetrics(ctx context.Context, meter metric.Meter) {
	if meter == nil {
		return
	}
	initOnce.Do(func() {
		var err error
		activityFailuresTotal, err = meter.Int64Counter(
			"agentplane_temporal_activity_failures_total",
			metric.WithDescription("Activity executions that returned an error"),
		)
		if err != nil {
			logger.FromContext(ctx).Error("Failed to create activity failures counter", "error", err)
		}
	})
}

// ResetMetricsForTesting resets the instrument state between test runs.
func ResetMetricsForTesting() {
	initMutex.Lock()
	defer initMutex.Unlock()
	activityFailuresTotal = nil
	initOnce = sync.Once{}
}

// TemporalMetrics returns a worker interceptor that counts failed activity
// executions per activity type. A nil meter yields a no-op interceptor so
// callers never have to branch on whether monitoring is enabled.
func TemporalMetrics(ctx context.Context, meter metric.Meter) interceptor.WorkerInterceptor {
	if meter == nil {
		return &interceptor.WorkerInterceptorBase{}
	}
	initMetrics(ctx, meter)
	return &metricsInterceptor{baseCtx: context.WithoutCancel(ctx)}
}

type metricsInterceptor struct {
	interceptor.WorkerInterceptorBase
	baseCtx context.Context
}

func (m *metricsInterceptor) InterceptActivity(
	_ context.Context,
	next interceptor.ActivityInboundInterceptor,
) interceptor.ActivityInboundInterceptor {
	return &activityInboundInterceptor{
		ActivityInboundInterceptorBase: interceptor.ActivityInboundInterceptorBase{Next: next},
		baseCtx:                        m.baseCtx,
	}
}

type activityInboundInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	baseCtx context.Context
}

// ExecuteActivity runs the chain and records a labeled failure when it
// returns an error.
func (a *activityInboundInterceptor) ExecuteActivity(
	ctx context.Context,
	in *interceptor.ExecuteActivityInput,
) (any, error) {
	result, err := a.Next.ExecuteActivity(ctx, in)
	if err != nil {
		a.recordFailure(activity.GetInfo(ctx).ActivityType.Name, err)
	}
	return result, err
}

// recordFailure observes against baseCtx so a canceled activity context
// cannot drop the data point.
func (a *activityInboundInterceptor) recordFailure(activityType string, err error) {
	if activityFailuresTotal == nil {
		return
	}
	label := classifyActivityError(err)
	activityFailuresTotal.Add(a.baseCtx, 1, metric.WithAttributes(
		attribute.String("activity_type", activityType),
		attribute.String("result", label),
	))
	logger.FromContext(a.baseCtx).Debug(
		"Activity failed",
		"activity_type", activityType,
		"result", label,
		"error", err,
	)
}

// classifyActivityError maps activity errors to result labels.
func classifyActivityError(err error) string {
	switch {
	case temporal.IsCanceledError(err) || errors.Is(err, context.Canceled):
		return "canceled"
	case temporal.IsTimeoutError(err) || errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "failed"
	}
}
