package postgres

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const postgresMeterName = "agentplane.postgres"

var (
	poolInstrumentsOnce sync.Once
	poolInstrumentsErr  error
	poolGaugeOpen       metric.Int64ObservableGauge
	poolGaugeInUse      metric.Int64ObservableGauge
	poolGaugeIdle       metric.Int64ObservableGauge
	poolGaugeMax        metric.Int64ObservableGauge
	attachedPools       sync.Map
)

// poolMetrics observes pgxpool statistics through async otel gauges. The
// instruments and the observation callback are registered once per process;
// each Store adds itself to attachedPools and removes itself on Close.
type poolMetrics struct {
	pool atomic.Pointer[pgxpool.Pool]
}

func newPoolMetrics() (*poolMetrics, error) {
	if err := ensurePoolInstruments(); err != nil {
		return nil, err
	}
	m := &poolMetrics{}
	attachedPools.Store(m, struct{}{})
	return m, nil
}

func (m *poolMetrics) attach(pool *pgxpool.Pool) {
	m.pool.Store(pool)
}

func (m *poolMetrics) unregister() {
	attachedPools.Delete(m)
}

func ensurePoolInstruments() error {
	poolInstrumentsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(postgresMeterName)
		instruments := []struct {
			target      *metric.Int64ObservableGauge
			name        string
			description string
		}{
			{&poolGaugeOpen, "agentplane_postgres_connections_open", "Connections currently open in the pgx pool."},
			{&poolGaugeInUse, "agentplane_postgres_connections_in_use", "Connections currently acquired from the pool."},
			{&poolGaugeIdle, "agentplane_postgres_connections_idle", "Idle connections held by the pool."},
			{&poolGaugeMax, "agentplane_postgres_connections_max", "Configured maximum pool size."},
		}
		for _, inst := range instruments {
			gauge, err := meter.Int64ObservableGauge(inst.name, metric.WithDescription(inst.description))
			if err != nil {
				poolInstrumentsErr = fmt.Errorf("postgres: init gauge %s: %w", inst.name, err)
				return
			}
			*inst.target = gauge
		}
		_, err := meter.RegisterCallback(
			observePools,
			poolGaugeOpen,
			poolGaugeInUse,
			poolGaugeIdle,
			poolGaugeMax,
		)
		if err != nil {
			poolInstrumentsErr = fmt.Errorf("postgres: register pool callback: %w", err)
		}
	})
	return poolInstrumentsErr
}

func observePools(_ context.Context, observer metric.Observer) error {
	attachedPools.Range(func(key, _ any) bool {
		m, ok := key.(*poolMetrics)
		if !ok {
			return true
		}
		pool := m.pool.Load()
		if pool == nil {
			return true
		}
		stat := pool.Stat()
		observer.ObserveInt64(poolGaugeOpen, int64(stat.TotalConns()))
		observer.ObserveInt64(poolGaugeInUse, int64(stat.AcquiredConns()))
		observer.ObserveInt64(poolGaugeIdle, int64(stat.IdleConns()))
		observer.ObserveInt64(poolGaugeMax, int64(stat.MaxConns()))
		return true
	})
	return nil
}
