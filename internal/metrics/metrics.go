package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRegisterSuccess
	MetricRegisterPending
	MetricRegisterFailure
	MetricClaimOverwrite
	MetricGateAllowed
	MetricGateUnauthenticated
	MetricGateMalformed
	MetricGateDeviceMismatch
	MetricGateRegistryError
	MetricGateBootstrapPass
	MetricRefreshSuccess
	MetricRefreshRejected
	MetricRefreshTransportFailure
	MetricHeartbeat
	MetricLogout
	MetricRevoke
	MetricGateLatency

	MetricIDCount
)

// HistogramBuckets is the number of fixed latency buckets per histogram.
const HistogramBuckets = 8

// Bucket upper bounds in nanoseconds; the last bucket is +Inf.
var bucketBounds = [HistogramBuckets - 1]int64{
	int64(5 * time.Millisecond),
	int64(10 * time.Millisecond),
	int64(25 * time.Millisecond),
	int64(50 * time.Millisecond),
	int64(100 * time.Millisecond),
	int64(250 * time.Millisecond),
	int64(time.Second),
}

// Config controls metric collection behavior.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// paddedCounter occupies a full cache line to avoid false sharing between
// adjacent hot counters.
type paddedCounter struct {
	v atomic.Uint64
	_ [56]byte
}

// Metrics holds atomic counters and optional latency histograms. A nil
// *Metrics is valid and all operations on it are no-ops.
type Metrics struct {
	cfg        Config
	counters   [MetricIDCount]paddedCounter
	histograms [MetricIDCount][HistogramBuckets]atomic.Uint64
}

// New creates a Metrics instance. When cfg.Enabled is false it returns nil,
// which disables all collection without branching at call sites.
func New(cfg Config) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{cfg: cfg}
}

// Inc atomically increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= MetricIDCount {
		return
	}
	m.counters[id].v.Add(1)
}

// Observe records a latency sample into the fixed-bucket histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.cfg.EnableLatency || id >= MetricIDCount {
		return
	}

	ns := d.Nanoseconds()
	bucket := HistogramBuckets - 1
	for i, bound := range bucketBounds {
		if ns <= bound {
			bucket = i
			break
		}
	}
	m.histograms[id][bucket].Add(1)
}

// Snapshot is a point-in-time deep copy of all metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// Snapshot copies every counter and histogram. Safe to call concurrently
// with writers; values are read atomically per slot (no cross-slot
// consistency is promised).
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Counters:   make(map[MetricID]uint64, MetricIDCount),
		Histograms: make(map[MetricID][]uint64),
	}
	if m == nil {
		return snap
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if v := m.counters[id].v.Load(); v != 0 {
			snap.Counters[id] = v
		}
	}

	if m.cfg.EnableLatency {
		for id := MetricID(0); id < MetricIDCount; id++ {
			var total uint64
			buckets := make([]uint64, HistogramBuckets)
			for i := range buckets {
				buckets[i] = m.histograms[id][i].Load()
				total += buckets[i]
			}
			if total != 0 {
				snap.Histograms[id] = buckets
			}
		}
	}

	return snap
}
