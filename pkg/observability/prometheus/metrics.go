// Package prometheus wraps a process-wide Prometheus registry the way the
// teacher's pkg/observability/prometheus wraps DefaultRegisterer with a
// "service" label, retargeted from the teacher's HTTP/EventBus/database
// metric surface to Theron's own: directory occupancy, scheduler worker
// counts, and fallback-chain activity, plus the teacher's custom
// counter/gauge/histogram registry for ad hoc instrumentation.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the default Prometheus registry used when a
	// Framework is constructed without an explicit Registerer.
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer wraps DefaultRegistry with a "service" label,
	// mirroring the teacher's "fluxor" label, renamed to "theron".
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "theron"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds Theron's process-wide gauges/counters plus a registry of
// caller-defined custom metrics, mirroring the teacher's
// CustomCounters/CustomGauges/CustomHistograms extension points.
type Metrics struct {
	// DirectorySlotsInUse / DirectorySlotsFree track each Framework's
	// Directory (C4) occupancy, labeled by framework_id.
	DirectorySlotsInUse *prometheus.GaugeVec
	DirectorySlotsFree  *prometheus.GaugeVec

	// SchedulerWorkers reports the live worker-thread count per
	// Framework; SchedulerMinThreads/SchedulerMaxThreads report the
	// configured bounds (spec §6's get_num_threads/get_min_threads/
	// get_max_threads family, mirrored for external scraping).
	SchedulerWorkers    *prometheus.GaugeVec
	SchedulerMinThreads *prometheus.GaugeVec
	SchedulerMaxThreads *prometheus.GaugeVec

	// FallbackInvocationsTotal counts messages that reached the
	// FallbackChain's per-framework stage (spec §4.6 step 2/3).
	FallbackInvocationsTotal *prometheus.CounterVec

	// ReceiverArrivalsTotal counts messages pushed into a Receiver (C10),
	// labeled by the Receiver's advisory name.
	ReceiverArrivalsTotal *prometheus.CounterVec

	CustomCounters   map[string]*prometheus.CounterVec
	CustomGauges     map[string]*prometheus.GaugeVec
	CustomHistograms map[string]*prometheus.HistogramVec
	customMu         sync.RWMutex
}

// GetMetrics returns the process-wide Metrics instance, constructing it
// against DefaultRegisterer on first use.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics constructs a Metrics collection registered against
// registerer, falling back to DefaultRegisterer if nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		DirectorySlotsInUse: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "theron_directory_slots_in_use",
				Help: "Number of allocated mailbox slots in a Framework's Directory",
			},
			[]string{"framework_id"},
		),
		DirectorySlotsFree: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "theron_directory_slots_free",
				Help: "Number of free mailbox slots in a Framework's Directory",
			},
			[]string{"framework_id"},
		),
		SchedulerWorkers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "theron_scheduler_workers",
				Help: "Current live worker-thread count for a Framework's Scheduler",
			},
			[]string{"framework_id"},
		),
		SchedulerMinThreads: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "theron_scheduler_min_threads",
				Help: "Configured minimum worker-thread bound",
			},
			[]string{"framework_id"},
		),
		SchedulerMaxThreads: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "theron_scheduler_max_threads",
				Help: "Configured maximum worker-thread bound",
			},
			[]string{"framework_id"},
		),
		FallbackInvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "theron_fallback_invocations_total",
				Help: "Total number of messages handled by the FallbackChain",
			},
			[]string{"framework_id"},
		),
		ReceiverArrivalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "theron_receiver_arrivals_total",
				Help: "Total number of messages pushed into a Receiver",
			},
			[]string{"receiver"},
		),
		CustomCounters:   make(map[string]*prometheus.CounterVec),
		CustomGauges:     make(map[string]*prometheus.GaugeVec),
		CustomHistograms: make(map[string]*prometheus.HistogramVec),
	}
}

// UpdateDirectory records a Framework's Directory occupancy.
func (m *Metrics) UpdateDirectory(frameworkID string, inUse, free int) {
	m.DirectorySlotsInUse.WithLabelValues(frameworkID).Set(float64(inUse))
	m.DirectorySlotsFree.WithLabelValues(frameworkID).Set(float64(free))
}

// UpdateSchedulerThreads records a Framework's current worker count and
// configured min/max bounds.
func (m *Metrics) UpdateSchedulerThreads(frameworkID string, current, min, max int) {
	m.SchedulerWorkers.WithLabelValues(frameworkID).Set(float64(current))
	m.SchedulerMinThreads.WithLabelValues(frameworkID).Set(float64(min))
	m.SchedulerMaxThreads.WithLabelValues(frameworkID).Set(float64(max))
}

// RecordFallbackInvocation increments the fallback-chain counter for
// frameworkID.
func (m *Metrics) RecordFallbackInvocation(frameworkID string) {
	m.FallbackInvocationsTotal.WithLabelValues(frameworkID).Inc()
}

// RecordReceiverArrival increments the arrival counter for a named
// Receiver.
func (m *Metrics) RecordReceiverArrival(name string) {
	if name == "" {
		name = "unnamed"
	}
	m.ReceiverArrivalsTotal.WithLabelValues(name).Inc()
}

// Counter returns (creating if necessary) a custom counter metric
// registered against DefaultRegisterer, matching the teacher's ad hoc
// custom-metric convenience.
func (m *Metrics) Counter(name, help string, labels ...string) *prometheus.CounterVec {
	m.customMu.RLock()
	if c, ok := m.CustomCounters[name]; ok {
		m.customMu.RUnlock()
		return c
	}
	m.customMu.RUnlock()

	m.customMu.Lock()
	defer m.customMu.Unlock()
	if c, ok := m.CustomCounters[name]; ok {
		return c
	}
	c := promauto.With(DefaultRegisterer).NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	m.CustomCounters[name] = c
	return c
}

// Gauge returns (creating if necessary) a custom gauge metric.
func (m *Metrics) Gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	m.customMu.RLock()
	if g, ok := m.CustomGauges[name]; ok {
		m.customMu.RUnlock()
		return g
	}
	m.customMu.RUnlock()

	m.customMu.Lock()
	defer m.customMu.Unlock()
	if g, ok := m.CustomGauges[name]; ok {
		return g
	}
	g := promauto.With(DefaultRegisterer).NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
	m.CustomGauges[name] = g
	return g
}

// Histogram returns (creating if necessary) a custom histogram metric.
// A nil buckets slice falls back to prometheus.DefBuckets.
func (m *Metrics) Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	m.customMu.RLock()
	if h, ok := m.CustomHistograms[name]; ok {
		m.customMu.RUnlock()
		return h
	}
	m.customMu.RUnlock()

	m.customMu.Lock()
	defer m.customMu.Unlock()
	if h, ok := m.CustomHistograms[name]; ok {
		return h
	}
	opts := prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}
	if buckets == nil {
		opts.Buckets = prometheus.DefBuckets
	}
	h := promauto.With(DefaultRegisterer).NewHistogramVec(opts, labels)
	m.CustomHistograms[name] = h
	return h
}

// Counter returns a custom counter metric from the process-wide Metrics
// instance (creates it if it doesn't exist).
func Counter(name, help string, labels ...string) *prometheus.CounterVec {
	return GetMetrics().Counter(name, help, labels...)
}

// Gauge returns a custom gauge metric from the process-wide Metrics
// instance (creates it if it doesn't exist).
func Gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	return GetMetrics().Gauge(name, help, labels...)
}

// Histogram returns a custom histogram metric from the process-wide
// Metrics instance (creates it if it doesn't exist).
func Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return GetMetrics().Histogram(name, help, buckets, labels...)
}
