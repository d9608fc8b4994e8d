package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// outcome label values
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeConflict = "conflict"
)

type Manager struct {
	// counters
	CounterRequests          *prometheus.CounterVec
	CounterRemoteWrites      *prometheus.CounterVec
	CounterVersionConflicts  prometheus.Counter
	CounterDuplicatesDeleted prometheus.Counter
	CounterDebouncedEdits    prometheus.Counter

	// gauges
	GaugeRequests    prometheus.Gauge
	GaugeOpenEditors prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("tracker", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("tracker", "test", reg), reg
}

// SetupPrometheus returns a registry with the Go runtime and process collectors.
func SetupPrometheus() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterRemoteWrites := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "remote_writes",
		Help:      "Writes sent to the document store",
	}, []string{"op", "outcome"})
	counterVersionConflicts := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "version_conflicts",
		Help:      "Exercise writes rejected because the session changed underneath",
	})
	counterDuplicatesDeleted := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "duplicate_sessions_deleted",
		Help:      "Redundant same-day sessions removed by cleanup",
	})
	counterDebouncedEdits := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "debounced_edits",
		Help:      "Local exercise edits scheduled for auto-save",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeOpenEditors := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "open_editors",
		Help:      "Session editors currently open",
	})

	histReqDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		Name:      "request_duration_seconds",
		Help:      "Total duration of requests in seconds",
	})

	return &Manager{
		CounterRequests:          counterRequests,
		CounterRemoteWrites:      counterRemoteWrites,
		CounterVersionConflicts:  counterVersionConflicts,
		CounterDuplicatesDeleted: counterDuplicatesDeleted,
		CounterDebouncedEdits:    counterDebouncedEdits,
		GaugeRequests:            gaugeRequests,
		GaugeOpenEditors:         gaugeOpenEditors,
		HistRequestDuration:      histReqDuration,
	}
}

// RemoteWrite counts one write of op with the outcome derived from err.
func (m *Manager) RemoteWrite(op string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.CounterRemoteWrites.WithLabelValues(op, outcome).Inc()
}
