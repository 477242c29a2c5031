package seatlock

import (
	"context"
	"log/slog"
	"time"

	internalaudit "github.com/preplabs/seatlock/internal/audit"
	"github.com/preplabs/seatlock/internal/flows"
	internalmetrics "github.com/preplabs/seatlock/internal/metrics"
	"github.com/preplabs/seatlock/registry"
)

// Engine is the server-side policy core: it owns the session registry, the
// request gate, and the audit/metrics plumbing, and delegates all token
// operations to the configured [AuthProvider].
//
// Engine instances are configured during initialization through
// [Builder.Build] and then treated as immutable.
type Engine struct {
	config   Config
	provider AuthProvider
	registry *registry.Store
	audit    *internalaudit.Dispatcher
	metrics  *internalmetrics.Metrics
	deps     flows.Deps
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were dropped because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// RegistryPing reports registry availability and round-trip latency. For
// health endpoints; never called on the request path.
func (e *Engine) RegistryPing(ctx context.Context) (time.Duration, error) {
	if e == nil || e.registry == nil {
		return 0, ErrEngineNotReady
	}
	return e.registry.Ping(ctx)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func (e *Engine) warn(msg string, args ...any) {
	if e == nil {
		return
	}
	if e.config.Warn != nil {
		e.config.Warn(msg, args...)
		return
	}
	slog.Warn(msg, args...)
}
