package temporal

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const temporalMeterName = "agentplane.temporal"

var (
	clientInstrumentsOnce sync.Once
	clientInstrumentsErr  error
	workflowStartsTotal   metric.Int64Counter
	workflowSignalsTotal  metric.Int64Counter
)

// ensureClientInstruments creates the client-side counters once per process
// against the global meter provider, mirroring how the Postgres pool gauges
// are registered.
func ensureClientInstruments() error {
	clientInstrumentsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(temporalMeterName)
		var err error
		workflowStartsTotal, err = meter.Int64Counter(
			"agentplane_workflow_starts_total",
			metric.WithDescription("Workflow executions started through the engine."),
		)
		if err != nil {
			clientInstrumentsErr = fmt.Errorf("temporal: init workflow starts counter: %w", err)
			return
		}
		workflowSignalsTotal, err = meter.Int64Counter(
			"agentplane_workflow_signals_total",
			metric.WithDescription("Signals delivered to running workflows."),
		)
		if err != nil {
			clientInstrumentsErr = fmt.Errorf("temporal: init workflow signals counter: %w", err)
		}
	})
	return clientInstrumentsErr
}

func recordWorkflowStart(ctx context.Context, workflowName string) {
	if workflowStartsTotal == nil {
		return
	}
	workflowStartsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("workflow", workflowName)))
}

func recordWorkflowSignal(ctx context.Context, signalName string) {
	if workflowSignalsTotal == nil {
		return
	}
	workflowSignalsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("signal", signalName)))
}
