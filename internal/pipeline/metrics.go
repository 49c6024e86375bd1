package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	errspkg "github.com/drblury/abrflow/internal/runtime/errors"
)

// Metrics tracks pipeline throughput for Prometheus and /stats.
type Metrics struct {
	mu sync.RWMutex

	stats Stats

	recordsTotal    *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	unmatchedTotal  prometheus.Counter
	batchDuration   prometheus.Histogram
	batchSize       prometheus.Gauge

	registerer prometheus.Registerer
	registered bool
}

// Stats is a point-in-time view of Metrics.
type Stats struct {
	Batches    uint64            `json:"batches"`
	Accepted   uint64            `json:"accepted"`
	Rejected   uint64            `json:"rejected"`
	Unmatched  uint64            `json:"unmatched"`
	ByKind     map[string]uint64 `json:"rejected_by_kind"`
	LastBatch  time.Duration     `json:"last_batch_ns"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	InProgress bool              `json:"in_progress"`
}

// NewMetrics creates collectors. A nil registerer uses the Prometheus
// default registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		stats:      Stats{ByKind: make(map[string]uint64)},
		registerer: registerer,
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abrflow",
			Subsystem: "pipeline",
			Name:      "records_total",
			Help:      "Spans processed, by outcome",
		}, []string{"outcome"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abrflow",
			Subsystem: "pipeline",
			Name:      "rejections_total",
			Help:      "Rejected spans, by error kind",
		}, []string{"kind"}),
		unmatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "abrflow",
			Subsystem: "pipeline",
			Name:      "unmatched_total",
			Help:      "Values found at positions with no routing rule",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "abrflow",
			Subsystem: "pipeline",
			Name:      "batch_duration_seconds",
			Help:      "Time to process and emit one batch",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		batchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "abrflow",
			Subsystem: "pipeline",
			Name:      "batch_size",
			Help:      "Spans in the batch currently being processed",
		}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.recordsTotal,
		m.rejectionsTotal,
		m.unmatchedTotal,
		m.batchDuration,
		m.batchSize,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// BatchStarted records the size of a batch entering the pool.
func (m *Metrics) BatchStarted(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.InProgress = true
	m.batchSize.Set(float64(size))
}

// BatchDone records the accepted and unmatched counts of a finished batch.
// Rejections are counted one by one through Rejected.
func (m *Metrics) BatchDone(accepted, unmatched int, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Batches++
	m.stats.Accepted += uint64(accepted)
	m.stats.Unmatched += uint64(unmatched)
	m.stats.LastBatch = took
	m.stats.UpdatedAt = time.Now()
	m.stats.InProgress = false

	m.recordsTotal.WithLabelValues("accepted").Add(float64(accepted))
	m.unmatchedTotal.Add(float64(unmatched))
	m.batchDuration.Observe(took.Seconds())
}

// Rejected counts one rejection under the kind carried by err.
func (m *Metrics) Rejected(err error) {
	kind := errspkg.KindOf(err).String()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Rejected++
	m.stats.ByKind[kind]++

	m.recordsTotal.WithLabelValues("rejected").Inc()
	m.rejectionsTotal.WithLabelValues(kind).Inc()
}

// Snapshot returns a copy of the current stats.
func (m *Metrics) Snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.stats
	s.ByKind = make(map[string]uint64, len(m.stats.ByKind))
	for k, v := range m.stats.ByKind {
		s.ByKind[k] = v
	}
	return s
}

// Reset clears the stats and the labelled counters, for tests.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats = Stats{ByKind: make(map[string]uint64)}
	m.recordsTotal.Reset()
	m.rejectionsTotal.Reset()
}
