package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is Chronicle's private Prometheus registry. It is served over
// HTTP only when "chronicle start --metrics-addr" is given; without that
// flag no listener is opened.
var Registry = prometheus.NewRegistry()

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_events_total",
			Help: "Total number of events recorded, by collector source and event type",
		},
		[]string{"source", "event_type"},
	)

	CollectorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_collector_errors_total",
			Help: "Total number of collector poll/run errors, by collector name",
		},
		[]string{"collector"},
	)

	CollectorsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronicle_collectors_active",
			Help: "Number of collectors currently running",
		},
	)

	GraphNodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronicle_graph_nodes_total",
			Help: "Number of nodes in the activity graph",
		},
	)

	GraphEdgesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronicle_graph_edges_total",
			Help: "Number of edges in the activity graph",
		},
	)

	StoreEventsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronicle_store_events_total",
			Help: "Total number of events currently persisted in the event store",
		},
	)

	GraphSaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chronicle_graph_save_duration_seconds",
			Help:    "Time taken to persist the activity graph to disk",
			Buckets: prometheus.DefBuckets,
		},
	)

	InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chronicle_inference_duration_seconds",
			Help:    "Time taken to compute activity windows and task inference over a range",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	Registry.MustRegister(EventsTotal)
	Registry.MustRegister(CollectorErrorsTotal)
	Registry.MustRegister(CollectorsActive)
	Registry.MustRegister(GraphNodesTotal)
	Registry.MustRegister(GraphEdgesTotal)
	Registry.MustRegister(StoreEventsTotal)
	Registry.MustRegister(GraphSaveDuration)
	Registry.MustRegister(InferenceDuration)
}

// Timer measures elapsed wall-clock time for a single operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labeled histogram vec.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
