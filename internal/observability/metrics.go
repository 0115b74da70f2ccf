package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seismic"

// Metrics holds the Prometheus counters, histograms, and gauges for the monitoring loop.
type Metrics struct {
	SchedulerRunning prometheus.Gauge
	CyclesTotal      prometheus.Counter
	CycleFailures    prometheus.Counter
	CycleDuration    prometheus.Histogram

	// Per-station analysis.
	AcquisitionFailures *prometheus.CounterVec // labels: station
	Detections          *prometheus.CounterVec // labels: station, class={none,weak,strong}
	Picks               *prometheus.CounterVec // labels: station, outcome={picked,none}
	LifecycleActions    *prometheus.CounterVec // labels: action
	PersistenceFailures *prometheus.CounterVec // labels: operation

	// Estimation.
	EstimatesProduced prometheus.Counter
	QuorumMisses      prometheus.Counter
	PublishFailures   *prometheus.CounterVec // labels: sink={store,dashboard,kafka,notifier}

	// Retention cleanup.
	CleanupDeletions *prometheus.CounterVec // labels: reason={age,count}
	CleanupFailures  prometheus.Counter

	// Waveform source.
	WaveformRequests     *prometheus.CounterVec // labels: outcome={success,no_data,error,rejected}
	WaveformDuration     prometheus.Histogram
	WaveformBreakerState prometheus.Gauge // 0 closed, 1 half-open, 2 open

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      help("1 when the monitoring loop is active, 0 when shut down."),
		}),
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      help("Total monitoring cycles started."),
		}),
		CycleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_failures_total",
			Help:      help("Cycles aborted by an unexpected error."),
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      help("Duration of a complete monitoring cycle."),
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		AcquisitionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisition_failures_total",
			Help:      help("Station windows that could not be acquired."),
		}, []string{"station"}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      help("Detector outcomes by station and class."),
		}, []string{"station", "class"}),
		Picks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "picks_total",
			Help:      help("Arrival pick attempts by station and outcome."),
		}, []string{"station", "outcome"}),
		LifecycleActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_actions_total",
			Help:      help("Storage actions taken by the retention lifecycle."),
		}, []string{"action"}),
		PersistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      help("Failed persistence writes by operation."),
		}, []string{"operation"}),
		EstimatesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "epicenter_estimates_total",
			Help:      help("Epicenter estimates produced."),
		}),
		QuorumMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quorum_misses_total",
			Help:      help("Cycles where fewer than three stations qualified."),
		}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      help("Estimate publication failures by sink."),
		}, []string{"sink"}),
		CleanupDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_deletions_total",
			Help:      help("Raw event records removed by retention cleanup."),
		}, []string{"reason"}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      help("Records retention cleanup failed to delete."),
		}),
		WaveformRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waveform_requests_total",
			Help:      help("Waveform gateway requests by outcome."),
		}, []string{"outcome"}),
		WaveformDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "waveform_request_duration_seconds",
			Help:      help("Waveform gateway request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		WaveformBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waveform_breaker_state",
			Help:      help("Waveform circuit breaker state: 0 closed, 1 half-open, 2 open."),
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      help("Reverse geocoding API requests by outcome."),
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      help("Geocoding cache lookups by result."),
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      help("Mapbox API request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      help("1 when epicenter place naming is enabled, 0 otherwise."),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SchedulerRunning,
		m.CyclesTotal,
		m.CycleFailures,
		m.CycleDuration,
		m.AcquisitionFailures,
		m.Detections,
		m.Picks,
		m.LifecycleActions,
		m.PersistenceFailures,
		m.EstimatesProduced,
		m.QuorumMisses,
		m.PublishFailures,
		m.CleanupDeletions,
		m.CleanupFailures,
		m.WaveformRequests,
		m.WaveformDuration,
		m.WaveformBreakerState,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
